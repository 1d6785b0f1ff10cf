//go:build linux && (amd64 || arm64)

package alsa

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// PcmParams is the hardware parameter space of a playback device.
type PcmParams struct {
	params *sndPcmHwParams
}

// PcmParamsRefined opens the playback device hw:card,device and asks the kernel to restrict the
// full parameter space to what the hardware supports.
func PcmParamsRefined(card, device uint) (*PcmParams, error) {
	path := pcmPath(card, device)

	file, err := os.OpenFile(path, os.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open PCM device %s for query: %w", path, err)
	}
	defer file.Close()

	return refine(file.Fd(), nil)
}

// refine runs HW_REFINE on fd, starting from the full space narrowed by set when not nil.
func refine(fd uintptr, set func(p *sndPcmHwParams)) (*PcmParams, error) {
	hwParams := &sndPcmHwParams{}
	paramInit(hwParams)
	if set != nil {
		set(hwParams)
	}

	if err := ioctl(fd, SNDRV_PCM_IOCTL_HW_REFINE, uintptr(unsafe.Pointer(hwParams))); err != nil {
		return nil, fmt.Errorf("ioctl HW_REFINE failed: %w", err)
	}

	return &PcmParams{params: hwParams}, nil
}

// RangeMin returns the minimum value for an interval parameter.
func (pp *PcmParams) RangeMin(param PcmParam) (uint32, error) {
	if pp == nil || pp.params == nil {
		return 0, fmt.Errorf("params not initialized")
	}

	if !paramIsInterval(param) {
		return 0, fmt.Errorf("parameter %d is not an interval type", param)
	}

	return pp.params.Intervals[param-SNDRV_PCM_HW_PARAM_SAMPLE_BITS].MinVal, nil
}

// RangeMax returns the maximum value for an interval parameter.
func (pp *PcmParams) RangeMax(param PcmParam) (uint32, error) {
	if pp == nil || pp.params == nil {
		return 0, fmt.Errorf("params not initialized")
	}

	if !paramIsInterval(param) {
		return 0, fmt.Errorf("parameter %d is not an interval type", param)
	}

	return pp.params.Intervals[param-SNDRV_PCM_HW_PARAM_SAMPLE_BITS].MaxVal, nil
}

// Nearest returns the value of an interval parameter closest to want.
func (pp *PcmParams) Nearest(param PcmParam, want uint32) (uint32, error) {
	lo, err := pp.RangeMin(param)
	if err != nil {
		return 0, err
	}

	hi, err := pp.RangeMax(param)
	if err != nil {
		return 0, err
	}

	if lo > hi {
		return 0, fmt.Errorf("parameter %d has an empty range", param)
	}

	return min(max(want, lo), hi), nil
}

// FormatIsSupported checks if a given PCM format is supported.
func (pp *PcmParams) FormatIsSupported(format PcmFormat) bool {
	if pp == nil || pp.params == nil || format < 0 {
		return false
	}

	return pp.params.Masks[SNDRV_PCM_HW_PARAM_FORMAT-SNDRV_PCM_HW_PARAM_ACCESS].test(uint32(format))
}

// String returns a human-readable representation of the device capabilities.
func (pp *PcmParams) String() string {
	if pp == nil || pp.params == nil {
		return "<nil>"
	}

	var b strings.Builder

	var formats []string
	keys := make([]int, 0, len(pcmFormatNames))
	for k := range pcmFormatNames {
		keys = append(keys, int(k))
	}
	sort.Ints(keys)

	for _, k := range keys {
		if f := PcmFormat(k); pp.FormatIsSupported(f) {
			formats = append(formats, f.String())
		}
	}

	if len(formats) > 0 {
		b.WriteString(fmt.Sprintf("%12s: %s\n", "Format", strings.Join(formats, ", ")))
	}

	printInterval := func(name string, param PcmParam, unit string) {
		rangeMin, errMin := pp.RangeMin(param)
		rangeMax, errMax := pp.RangeMax(param)

		if errMin != nil || errMax != nil {
			return
		}

		if rangeMax == 0 || rangeMax == ^uint32(0) {
			return
		}

		b.WriteString(fmt.Sprintf("%12s: min=%-6d max=%-6d %s\n", name, rangeMin, rangeMax, unit))
	}

	printInterval("Rate", SNDRV_PCM_HW_PARAM_RATE, "Hz")
	printInterval("Channels", SNDRV_PCM_HW_PARAM_CHANNELS, "")
	printInterval("Period size", SNDRV_PCM_HW_PARAM_PERIOD_SIZE, "frames")
	printInterval("Buffer size", SNDRV_PCM_HW_PARAM_BUFFER_SIZE, "frames")

	return b.String()
}

func paramIsMask(param PcmParam) bool {
	return param >= SNDRV_PCM_HW_PARAM_ACCESS && param <= SNDRV_PCM_HW_PARAM_SUBFORMAT
}

func paramIsInterval(param PcmParam) bool {
	return param >= SNDRV_PCM_HW_PARAM_SAMPLE_BITS && param <= SNDRV_PCM_HW_PARAM_TICK_TIME
}

// paramInit initializes a sndPcmHwParams struct to allow all possible values.
func paramInit(p *sndPcmHwParams) {
	for n := range p.Masks {
		for i := range p.Masks[n].Bits {
			p.Masks[n].Bits[i] = ^uint32(0)
		}
	}

	for n := range p.Mres {
		for i := range p.Mres[n].Bits {
			p.Mres[n].Bits[i] = ^uint32(0)
		}
	}

	for n := range p.Intervals {
		p.Intervals[n] = sndInterval{MaxVal: ^uint32(0)}
	}

	for n := range p.Ires {
		p.Ires[n] = sndInterval{MaxVal: ^uint32(0)}
	}

	p.Rmask = ^uint32(0)
	p.Info = ^uint32(0)
}

func paramSetMask(p *sndPcmHwParams, param PcmParam, bit uint32) {
	if !paramIsMask(param) {
		return
	}

	mask := &p.Masks[param-SNDRV_PCM_HW_PARAM_ACCESS]
	for i := range mask.Bits {
		mask.Bits[i] = 0
	}

	if bit >= 256 {
		return
	}

	mask.Bits[bit>>5] |= 1 << (bit & 31)
}

func paramSetInt(p *sndPcmHwParams, param PcmParam, val uint32) {
	if !paramIsInterval(param) {
		return
	}

	interval := &p.Intervals[param-SNDRV_PCM_HW_PARAM_SAMPLE_BITS]
	interval.MinVal = val
	interval.MaxVal = val
	interval.Flags = SNDRV_PCM_INTERVAL_INTEGER
}

func paramSetMin(p *sndPcmHwParams, param PcmParam, val uint32) {
	if !paramIsInterval(param) {
		return
	}

	p.Intervals[param-SNDRV_PCM_HW_PARAM_SAMPLE_BITS].MinVal = val
}

// paramGetInt reads a parameter the driver has narrowed to a single value.
func paramGetInt(p *sndPcmHwParams, param PcmParam) uint32 {
	if !paramIsInterval(param) {
		return 0
	}

	return p.Intervals[param-SNDRV_PCM_HW_PARAM_SAMPLE_BITS].MinVal
}
