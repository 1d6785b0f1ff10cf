package alsasink

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Events is an abstract readiness mask, independent of the native poll flags a device uses.
type Events uint8

const (
	EventReadable Events = 1 << iota
	EventWritable
	EventHangup
)

// String returns a human-readable representation of the mask.
func (e Events) String() string {
	if e == 0 {
		return "none"
	}

	s := ""
	for _, ev := range []struct {
		bit  Events
		name string
	}{{EventReadable, "readable"}, {EventWritable, "writable"}, {EventHangup, "hangup"}} {
		if e&ev.bit != 0 {
			if s != "" {
				s += "|"
			}
			s += ev.name
		}
	}

	return s
}

// Params describes the encoding and buffering of a playback stream as seen by the device.
type Params struct {
	Bits           uint32 // Significant bits per sample.
	BytesPerSample uint32 // Storage size of one sample.
	Signed         bool
	LittleEndian   bool
	MSB            bool // Samples are MSB-aligned when BytesPerSample*8 > Bits.
	Rate           uint32
	Channels       uint32
	BufferFrames   uint32 // Device buffer size in frames, 0 requests the device default.
}

// FrameSize returns the size of one frame in bytes.
func (p Params) FrameSize() uint32 {
	return p.BytesPerSample * p.Channels
}

// BufferBytes returns the device buffer size in bytes.
func (p Params) BufferBytes() uint32 {
	return p.BufferFrames * p.FrameSize()
}

func (p Params) sameEncoding(o Params) bool {
	if p.Bits != o.Bits || p.BytesPerSample != o.BytesPerSample || p.Signed != o.Signed {
		return false
	}

	if p.BytesPerSample > 1 && p.LittleEndian != o.LittleEndian {
		return false
	}

	return p.Bits == p.BytesPerSample*8 || p.MSB == o.MSB
}

// String returns a human-readable representation of the parameters.
func (p Params) String() string {
	sign, order := "s", "le"
	if !p.Signed {
		sign = "u"
	}
	if !p.LittleEndian {
		order = "be"
	}

	return fmt.Sprintf("%s%d/%d%s %dHz %dch buffer=%d", sign, p.Bits, p.BytesPerSample, order, p.Rate, p.Channels, p.BufferFrames)
}

// Device is a playback device handle. Apart from OnVolume callbacks, all methods are called
// from a single goroutine at a time.
type Device interface {
	// SetParams requests stream parameters. The device may adjust rate, channels and buffer size.
	SetParams(p Params) error
	// Params returns the parameters actually in effect.
	Params() (Params, error)
	// Start arms the stream so written data is played.
	Start() error
	// Stop halts the stream and drops pending data.
	Stop() error
	// Write writes interleaved frames without blocking and returns the number of bytes accepted.
	// Zero with a nil error means the device buffer is full.
	Write(b []byte) (int, error)
	// NumDescriptors returns the number of poll slots the device needs.
	NumDescriptors() int
	// PollDescriptors fills fds for the requested events and returns the number of slots used.
	// Unused slots must have a negative Fd.
	PollDescriptors(fds []unix.PollFd, events Events) int
	// Revents translates the native results stored in fds back to an abstract mask.
	Revents(fds []unix.PollFd) Events
	// OnVolume registers fn to be called with the device volume in 0..MaxDeviceVolume
	// whenever it changes. fn may be called from any goroutine.
	OnVolume(fn func(raw uint32))
	// SetVolume sets the device volume in 0..MaxDeviceVolume.
	SetVolume(raw uint32) error
	// Close releases the device.
	Close() error
}

// Opener opens a playback device by name.
type Opener func(name string) (Device, error)

// describer is implemented by devices that can name themselves better than their identifier.
type describer interface {
	Description() string
}
