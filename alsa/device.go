//go:build linux && (amd64 || arm64)

package alsa

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/gen2brain/alsasink"
)

// DefaultPeriodFrames is the period size used when no buffer size is requested.
const DefaultPeriodFrames = 1024

// volumeControls are the mixer controls tried, in order, for the device volume.
var volumeControls = []string{
	"Master Playback Volume",
	"PCM Playback Volume",
	"Speaker Playback Volume",
	"Headphone Playback Volume",
}

// cardIndex resolves a card id such as "Loopback" to its index.
var cardIndex = func(id string) int {
	content, err := os.ReadFile("/proc/asound/cards")
	if err != nil {
		return -1
	}

	return findCard(string(content), id)
}

// ParseName resolves a device name to a card and device number. Accepted forms are "default",
// "hw:CARD" and "hw:CARD,DEV", where CARD is an index or a card id.
func ParseName(name string) (card, device uint, err error) {
	if name == "" || name == alsasink.DefaultDevice {
		return 0, 0, nil
	}

	rest, ok := strings.CutPrefix(name, "hw:")
	if !ok || rest == "" {
		return 0, 0, fmt.Errorf("invalid device name %q: expected hw:card[,device]", name)
	}

	cardPart, devPart, hasDev := strings.Cut(rest, ",")

	if c, err := strconv.ParseUint(cardPart, 10, 32); err == nil {
		card = uint(c)
	} else if idx := cardIndex(cardPart); idx >= 0 {
		card = uint(idx)
	} else {
		return 0, 0, fmt.Errorf("invalid device name %q: unknown card %q", name, cardPart)
	}

	if hasDev {
		d, err := strconv.ParseUint(devPart, 10, 32)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid device name %q: bad device number %q", name, devPart)
		}
		device = uint(d)
	}

	return card, device, nil
}

// Device is a playback device on a hardware PCM, with the card's mixer as its volume source.
type Device struct {
	name string
	pcm  *PCM

	mixer     *Mixer
	volumeCtl *MixerCtl

	params     alsasink.Params
	configured bool

	mu       sync.Mutex
	onVolume func(raw uint32)
	lastRaw  uint32
}

// Open opens the playback device called name. A card without a usable volume control still
// opens, with volume changes kept local.
func Open(name string) (*Device, error) {
	card, device, err := ParseName(name)
	if err != nil {
		return nil, err
	}

	pcm, err := PcmOpen(card, device, nil)
	if err != nil {
		return nil, err
	}

	d := &Device{name: name, pcm: pcm, lastRaw: alsasink.MaxDeviceVolume}

	if mixer, err := MixerOpen(card); err == nil {
		d.mixer = mixer
		d.volumeCtl = findVolumeControl(mixer)
		if d.volumeCtl == nil || mixer.SubscribeEvents(true) != nil {
			_ = mixer.Close()
			d.mixer, d.volumeCtl = nil, nil
		}
	}

	return d, nil
}

// Opener opens name as an alsasink.Device.
func Opener(name string) (alsasink.Device, error) {
	d, err := Open(name)
	if err != nil {
		return nil, err
	}

	return d, nil
}

func findVolumeControl(m *Mixer) *MixerCtl {
	for _, name := range volumeControls {
		if ctl, err := m.CtlByName(name); err == nil && ctl.Writable() {
			return ctl
		}
	}

	return nil
}

// SetParams configures the PCM. Rate, channel count and buffer size may be adjusted by the driver.
func (d *Device) SetParams(p alsasink.Params) error {
	format, err := pcmFormatFor(p)
	if err != nil {
		return err
	}

	period := uint32(DefaultPeriodFrames)
	if p.BufferFrames > 0 {
		period = max(p.BufferFrames/4, 1)
	}

	err = d.pcm.SetConfig(&Config{
		Channels:    p.Channels,
		Rate:        p.Rate,
		PeriodSize:  period,
		PeriodCount: 4,
		Format:      format,
	})
	if err != nil {
		return err
	}

	d.params, err = paramsFor(d.pcm.Config())
	if err != nil {
		return err
	}

	d.params.BufferFrames = d.pcm.BufferSize()
	d.configured = true

	return nil
}

// Params returns the parameters in effect.
func (d *Device) Params() (alsasink.Params, error) {
	if !d.configured {
		return alsasink.Params{}, fmt.Errorf("device %s is not configured", d.name)
	}

	return d.params, nil
}

// Start prepares the stream. Playback begins once the buffer has been filled.
func (d *Device) Start() error {
	return d.pcm.Prepare()
}

// Stop drops pending frames and halts the stream.
func (d *Device) Stop() error {
	return d.pcm.Stop()
}

// Write writes interleaved frames without blocking.
func (d *Device) Write(b []byte) (int, error) {
	return d.pcm.Write(b)
}

// NumDescriptors returns the PCM slot plus the mixer slot.
func (d *Device) NumDescriptors() int {
	return 2
}

// PollDescriptors fills slot 0 with the PCM when writes are wanted and slot 1 with the mixer.
func (d *Device) PollDescriptors(fds []unix.PollFd, events alsasink.Events) int {
	if len(fds) < 2 {
		return 0
	}

	fds[0] = unix.PollFd{Fd: -1}
	if events&alsasink.EventWritable != 0 && d.pcm.IsReady() {
		fds[0] = unix.PollFd{Fd: int32(d.pcm.Fd()), Events: unix.POLLOUT}
	}

	fds[1] = unix.PollFd{Fd: -1}
	if d.volumeCtl != nil {
		fds[1] = unix.PollFd{Fd: int32(d.mixer.Fd()), Events: unix.POLLIN}
	}

	return 2
}

// Revents translates poll results. Underruns and suspends are recovered here and reported as
// writable, a disconnected card is reported as a hangup.
func (d *Device) Revents(fds []unix.PollFd) alsasink.Events {
	var ev alsasink.Events
	if len(fds) < 2 {
		return ev
	}

	if fds[0].Fd >= 0 {
		re := fds[0].Revents
		if re&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			ev |= d.recoverState(re)
		} else if re&unix.POLLOUT != 0 {
			ev |= alsasink.EventWritable
		}
	}

	if fds[1].Fd >= 0 {
		re := fds[1].Revents
		if re&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			ev |= alsasink.EventHangup
		} else if re&unix.POLLIN != 0 {
			ev |= alsasink.EventReadable
			d.readVolume()
		}
	}

	return ev
}

func (d *Device) recoverState(re int16) alsasink.Events {
	switch d.pcm.State() {
	case SNDRV_PCM_STATE_XRUN:
		d.pcm.xruns++
		if d.pcm.Prepare() != nil {
			return alsasink.EventHangup
		}

		return alsasink.EventWritable
	case SNDRV_PCM_STATE_SUSPENDED:
		if d.pcm.Resume() != nil && d.pcm.Prepare() != nil {
			return alsasink.EventHangup
		}

		return alsasink.EventWritable
	case SNDRV_PCM_STATE_DISCONNECTED:
		return alsasink.EventHangup
	}

	if re&(unix.POLLHUP|unix.POLLNVAL) != 0 {
		return alsasink.EventHangup
	}

	return alsasink.EventWritable
}

func (d *Device) readVolume() {
	changed, _ := d.mixer.DrainEvents()

	for _, id := range changed {
		if id != d.volumeCtl.ID() {
			continue
		}

		if raw, err := d.currentVolume(); err == nil {
			d.notify(raw)
		}

		return
	}
}

func (d *Device) currentVolume() (uint32, error) {
	values, err := d.volumeCtl.Values()
	if err != nil {
		return 0, err
	}

	lo, hi, err := d.volumeCtl.Range()
	if err != nil {
		return 0, err
	}

	top := lo
	for _, v := range values {
		top = max(top, v)
	}

	return rawFromCtl(top, lo, hi), nil
}

func (d *Device) notify(raw uint32) {
	d.mu.Lock()
	fn := d.onVolume
	d.lastRaw = raw
	d.mu.Unlock()

	if fn != nil {
		fn(raw)
	}
}

// OnVolume registers fn and calls it right away with the current level.
func (d *Device) OnVolume(fn func(raw uint32)) {
	d.mu.Lock()
	d.onVolume = fn
	raw := d.lastRaw
	d.mu.Unlock()

	if d.volumeCtl != nil {
		if cur, err := d.currentVolume(); err == nil {
			raw = cur
		}
	}

	d.notify(raw)
}

// SetVolume sets every channel of the volume control. Without a control the level is only
// reported back.
func (d *Device) SetVolume(raw uint32) error {
	raw = min(raw, alsasink.MaxDeviceVolume)

	if d.volumeCtl != nil {
		lo, hi, err := d.volumeCtl.Range()
		if err != nil {
			return err
		}

		if err := d.volumeCtl.SetValues(ctlFromRaw(raw, lo, hi)); err != nil {
			return err
		}
	}

	d.notify(raw)

	return nil
}

// Description returns the name the driver reports for the PCM.
func (d *Device) Description() string {
	if n := d.pcm.Name(); n != "" {
		return n
	}

	return d.name
}

// Xruns returns the number of underruns recovered so far.
func (d *Device) Xruns() int {
	return d.pcm.Xruns()
}

// Close releases the mixer and the PCM.
func (d *Device) Close() error {
	if !d.pcm.IsReady() {
		return fmt.Errorf("device %s already closed", d.name)
	}

	_ = d.mixer.Close()

	return d.pcm.Close()
}

func pcmFormatFor(p alsasink.Params) (PcmFormat, error) {
	le := p.LittleEndian || p.BytesPerSample == 1

	switch {
	case p.Bits == 8 && p.BytesPerSample == 1:
		if p.Signed {
			return SNDRV_PCM_FORMAT_S8, nil
		}

		return SNDRV_PCM_FORMAT_U8, nil
	case !p.Signed:
	case p.Bits == 16 && p.BytesPerSample == 2:
		return pick(le, SNDRV_PCM_FORMAT_S16_LE, SNDRV_PCM_FORMAT_S16_BE), nil
	case p.Bits == 24 && p.BytesPerSample == 3:
		return pick(le, SNDRV_PCM_FORMAT_S24_3LE, SNDRV_PCM_FORMAT_S24_3BE), nil
	case p.Bits == 24 && p.BytesPerSample == 4 && !p.MSB:
		return pick(le, SNDRV_PCM_FORMAT_S24_LE, SNDRV_PCM_FORMAT_S24_BE), nil
	case p.Bits == 32 && p.BytesPerSample == 4:
		return pick(le, SNDRV_PCM_FORMAT_S32_LE, SNDRV_PCM_FORMAT_S32_BE), nil
	}

	return SNDRV_PCM_FORMAT_INVALID, fmt.Errorf("%w: %s", alsasink.ErrUnsupportedFormat, p)
}

func pick(le bool, l, b PcmFormat) PcmFormat {
	if le {
		return l
	}

	return b
}

func paramsFor(c Config) (alsasink.Params, error) {
	p := alsasink.Params{Signed: true, LittleEndian: true, Rate: c.Rate, Channels: c.Channels}

	switch c.Format {
	case SNDRV_PCM_FORMAT_U8:
		p.Bits, p.BytesPerSample, p.Signed = 8, 1, false
	case SNDRV_PCM_FORMAT_S8:
		p.Bits, p.BytesPerSample = 8, 1
	case SNDRV_PCM_FORMAT_S16_LE, SNDRV_PCM_FORMAT_S16_BE:
		p.Bits, p.BytesPerSample = 16, 2
	case SNDRV_PCM_FORMAT_S24_3LE, SNDRV_PCM_FORMAT_S24_3BE:
		p.Bits, p.BytesPerSample = 24, 3
	case SNDRV_PCM_FORMAT_S24_LE, SNDRV_PCM_FORMAT_S24_BE:
		p.Bits, p.BytesPerSample = 24, 4
	case SNDRV_PCM_FORMAT_S32_LE, SNDRV_PCM_FORMAT_S32_BE:
		p.Bits, p.BytesPerSample = 32, 4
	default:
		return alsasink.Params{}, fmt.Errorf("%w: %s", alsasink.ErrUnsupportedFormat, c.Format)
	}

	switch c.Format {
	case SNDRV_PCM_FORMAT_S16_BE, SNDRV_PCM_FORMAT_S24_3BE, SNDRV_PCM_FORMAT_S24_BE, SNDRV_PCM_FORMAT_S32_BE:
		p.LittleEndian = false
	}

	return p, nil
}

// rawFromCtl scales a control value in [lo, hi] to 0..MaxDeviceVolume.
func rawFromCtl(v, lo, hi int) uint32 {
	if hi <= lo {
		return alsasink.MaxDeviceVolume
	}

	v = min(max(v, lo), hi)

	return uint32((int64(v-lo)*int64(alsasink.MaxDeviceVolume) + int64(hi-lo)/2) / int64(hi-lo))
}

// ctlFromRaw scales 0..MaxDeviceVolume to a control value in [lo, hi].
func ctlFromRaw(raw uint32, lo, hi int) int {
	if hi <= lo {
		return lo
	}

	raw = min(raw, alsasink.MaxDeviceVolume)

	return lo + int((int64(raw)*int64(hi-lo)+int64(alsasink.MaxDeviceVolume)/2)/int64(alsasink.MaxDeviceVolume))
}
