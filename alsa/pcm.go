//go:build linux && (amd64 || arm64)

package alsa

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Config encapsulates the hardware parameters of a playback stream.
type Config struct {
	Channels    uint32
	Rate        uint32
	PeriodSize  uint32
	PeriodCount uint32
	Format      PcmFormat
}

// PCM represents an open playback PCM device handle.
type PCM struct {
	file        *os.File
	config      Config
	bufferSize  uint32 // In frames
	subdevice   uint32
	name        string
	syncPointer *sndPcmSyncPtr
	xruns       int
}

func pcmPath(card, device uint) string {
	return fmt.Sprintf("/dev/snd/pcmC%dD%dp", card, device)
}

// PcmOpen opens the playback device hw:card,device in non-blocking mode and configures it.
// Only direct hardware devices are supported, the alsa-lib plugin layer is not.
func PcmOpen(card, device uint, config *Config) (*PCM, error) {
	path := pcmPath(card, device)

	file, err := os.OpenFile(path, os.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open PCM device %s: %w", path, err)
	}

	var info sndPcmInfo
	if err := ioctl(file.Fd(), SNDRV_PCM_IOCTL_INFO, uintptr(unsafe.Pointer(&info))); err != nil {
		_ = file.Close()

		return nil, fmt.Errorf("ioctl INFO failed: %w", err)
	}

	pcm := &PCM{
		file:        file,
		subdevice:   info.Subdevice,
		name:        cString(info.Name[:]),
		syncPointer: &sndPcmSyncPtr{},
	}

	if config != nil {
		if err := pcm.SetConfig(config); err != nil {
			_ = pcm.Close()

			return nil, fmt.Errorf("failed to set PCM config: %w", err)
		}
	}

	return pcm, nil
}

// IsReady checks if the PCM handle is valid.
func (p *PCM) IsReady() bool {
	return p != nil && p.file != nil
}

// Close closes the PCM device handle.
func (p *PCM) Close() error {
	if !p.IsReady() {
		return nil
	}

	err := p.file.Close()
	p.bufferSize = 0
	p.file = nil

	return err
}

// Config returns a copy of the configuration in effect.
func (p *PCM) Config() Config {
	return p.config
}

// BufferSize returns the total buffer size in frames.
func (p *PCM) BufferSize() uint32 {
	return p.bufferSize
}

// PeriodSize returns the number of frames per period.
func (p *PCM) PeriodSize() uint32 {
	return p.config.PeriodSize
}

// Channels returns the number of channels.
func (p *PCM) Channels() uint32 {
	return p.config.Channels
}

// Rate returns the sample rate in Hz.
func (p *PCM) Rate() uint32 {
	return p.config.Rate
}

// Format returns the sample format.
func (p *PCM) Format() PcmFormat {
	return p.config.Format
}

// Name returns the device name reported by the driver.
func (p *PCM) Name() string {
	return p.name
}

// Fd returns the underlying file descriptor.
func (p *PCM) Fd() uintptr {
	if !p.IsReady() {
		return ^uintptr(0)
	}

	return p.file.Fd()
}

// Subdevice returns the subdevice number of the stream.
func (p *PCM) Subdevice() uint32 {
	return p.subdevice
}

// Xruns returns the number of underruns recovered so far.
func (p *PCM) Xruns() int {
	return p.xruns
}

// FrameSize returns the size of a single frame in bytes.
func (p *PCM) FrameSize() uint32 {
	return p.config.Channels * (p.config.Format.PhysicalBits() / 8)
}

func setHwParams(p *sndPcmHwParams, c Config) {
	paramSetMask(p, SNDRV_PCM_HW_PARAM_ACCESS, SNDRV_PCM_ACCESS_RW_INTERLEAVED)
	paramSetMask(p, SNDRV_PCM_HW_PARAM_FORMAT, uint32(c.Format))
	paramSetMask(p, SNDRV_PCM_HW_PARAM_SUBFORMAT, SNDRV_PCM_SUBFORMAT_STD)
	paramSetMin(p, SNDRV_PCM_HW_PARAM_PERIOD_SIZE, c.PeriodSize)
	paramSetInt(p, SNDRV_PCM_HW_PARAM_CHANNELS, c.Channels)
	paramSetInt(p, SNDRV_PCM_HW_PARAM_PERIODS, c.PeriodCount)
	paramSetInt(p, SNDRV_PCM_HW_PARAM_RATE, c.Rate)
}

// SetConfig sets the hardware and software parameters of the stream. When the device cannot
// provide the requested rate, channel count or period count, the nearest supported values are
// used instead. The format is never changed.
func (p *PCM) SetConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("nil config")
	}

	if config.Format.PhysicalBits() == 0 {
		return fmt.Errorf("unsupported format %s", config.Format)
	}

	c := *config
	if c.PeriodCount == 0 {
		c.PeriodCount = 4
	}

	hwParams := &sndPcmHwParams{}
	paramInit(hwParams)
	setHwParams(hwParams, c)

	err := ioctl(p.file.Fd(), SNDRV_PCM_IOCTL_HW_PARAMS, uintptr(unsafe.Pointer(hwParams)))
	if errors.Is(err, unix.EINVAL) {
		caps, rerr := refine(p.file.Fd(), func(hp *sndPcmHwParams) {
			paramSetMask(hp, SNDRV_PCM_HW_PARAM_ACCESS, SNDRV_PCM_ACCESS_RW_INTERLEAVED)
			paramSetMask(hp, SNDRV_PCM_HW_PARAM_FORMAT, uint32(c.Format))
		})
		if rerr != nil {
			return fmt.Errorf("format %s not supported: %w", c.Format, rerr)
		}

		if c.Rate, err = caps.Nearest(SNDRV_PCM_HW_PARAM_RATE, c.Rate); err != nil {
			return err
		}
		if c.Channels, err = caps.Nearest(SNDRV_PCM_HW_PARAM_CHANNELS, c.Channels); err != nil {
			return err
		}
		if c.PeriodCount, err = caps.Nearest(SNDRV_PCM_HW_PARAM_PERIODS, c.PeriodCount); err != nil {
			return err
		}
		if c.PeriodSize, err = caps.Nearest(SNDRV_PCM_HW_PARAM_PERIOD_SIZE, c.PeriodSize); err != nil {
			return err
		}

		paramInit(hwParams)
		setHwParams(hwParams, c)
		err = ioctl(p.file.Fd(), SNDRV_PCM_IOCTL_HW_PARAMS, uintptr(unsafe.Pointer(hwParams)))
	}
	if err != nil {
		return fmt.Errorf("ioctl HW_PARAMS failed: %w", err)
	}

	c.PeriodSize = paramGetInt(hwParams, SNDRV_PCM_HW_PARAM_PERIOD_SIZE)
	c.PeriodCount = paramGetInt(hwParams, SNDRV_PCM_HW_PARAM_PERIODS)
	c.Channels = paramGetInt(hwParams, SNDRV_PCM_HW_PARAM_CHANNELS)
	c.Rate = paramGetInt(hwParams, SNDRV_PCM_HW_PARAM_RATE)

	if c.Channels == 0 || c.Rate == 0 || c.PeriodSize == 0 || c.PeriodCount == 0 {
		return fmt.Errorf("driver finalized invalid PCM configuration (Channels=%d, Rate=%d, PeriodSize=%d, PeriodCount=%d)",
			c.Channels, c.Rate, c.PeriodSize, c.PeriodCount)
	}

	p.config = c
	p.bufferSize = c.PeriodSize * c.PeriodCount

	swParams := &sndPcmSwParams{}
	swParams.TstampMode = SNDRV_PCM_TSTAMP_ENABLE
	swParams.PeriodStep = 1
	swParams.AvailMin = sndPcmUframesT(c.PeriodSize)
	swParams.StartThreshold = sndPcmUframesT(p.bufferSize)
	swParams.StopThreshold = sndPcmUframesT(p.bufferSize)
	swParams.XferAlign = 1

	if err := ioctl(p.file.Fd(), SNDRV_PCM_IOCTL_SW_PARAMS, uintptr(unsafe.Pointer(swParams))); err != nil {
		return fmt.Errorf("ioctl SW_PARAMS failed: %w", err)
	}

	return nil
}

// Prepare readies the stream for I/O. It is also used to recover from an underrun.
func (p *PCM) Prepare() error {
	if err := ioctl(p.file.Fd(), SNDRV_PCM_IOCTL_PREPARE, 0); err != nil {
		return fmt.Errorf("ioctl PREPARE failed: %w", err)
	}

	return nil
}

// Stop stops the stream, dropping any pending frames.
func (p *PCM) Stop() error {
	if err := ioctl(p.file.Fd(), SNDRV_PCM_IOCTL_DROP, 0); err != nil {
		return fmt.Errorf("ioctl DROP failed: %w", err)
	}

	return nil
}

// Resume resumes a stream suspended by a system suspend.
func (p *PCM) Resume() error {
	if err := ioctl(p.file.Fd(), SNDRV_PCM_IOCTL_RESUME, 0); err != nil {
		return fmt.Errorf("ioctl RESUME failed: %w", err)
	}

	return nil
}

// State returns the current state of the stream.
func (p *PCM) State() PcmState {
	if !p.IsReady() {
		return SNDRV_PCM_STATE_DISCONNECTED
	}

	// Reading back appl_ptr and avail_min keeps the kernel copies intact.
	p.syncPointer.Flags = SNDRV_PCM_SYNC_PTR_HWSYNC | SNDRV_PCM_SYNC_PTR_APPL | SNDRV_PCM_SYNC_PTR_AVAIL_MIN
	if err := ioctl(p.file.Fd(), SNDRV_PCM_IOCTL_SYNC_PTR, uintptr(unsafe.Pointer(p.syncPointer))); err != nil {
		if errors.Is(err, unix.ENODEV) {
			return SNDRV_PCM_STATE_DISCONNECTED
		}

		return SNDRV_PCM_STATE_XRUN
	}

	return PcmState(p.syncPointer.S.State)
}

// Write writes interleaved frames without blocking and returns the number of bytes accepted.
// A full buffer returns zero and no error. Underruns and suspends are recovered transparently.
func (p *PCM) Write(b []byte) (int, error) {
	if !p.IsReady() {
		return 0, fmt.Errorf("PCM handle is not valid")
	}

	frameSize := p.FrameSize()
	if frameSize == 0 {
		return 0, fmt.Errorf("PCM is not configured")
	}

	frames := uint32(len(b)) / frameSize
	if frames == 0 {
		return 0, nil
	}

	x := sndXferi{
		Buf:    uintptr(unsafe.Pointer(&b[0])),
		Frames: sndPcmUframesT(frames),
	}

	err := ioctl(p.file.Fd(), SNDRV_PCM_IOCTL_WRITEI_FRAMES, uintptr(unsafe.Pointer(&x)))
	runtime.KeepAlive(b)

	if err != nil {
		return 0, p.recover(err)
	}

	return x.Result * int(frameSize), nil
}

// recover handles the errors a write can report on a stream that is still usable.
func (p *PCM) recover(err error) error {
	switch {
	case errors.Is(err, unix.EAGAIN):
		return nil
	case errors.Is(err, unix.EPIPE):
		p.xruns++

		return p.Prepare()
	case errors.Is(err, unix.ESTRPIPE):
		if rerr := p.Resume(); rerr == nil {
			return nil
		}

		return p.Prepare()
	default:
		return fmt.Errorf("ioctl WRITEI_FRAMES failed: %w", err)
	}
}
