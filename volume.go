package alsasink

import (
	"fmt"
	"math"
	"sync/atomic"
)

// Volume is a software volume level where VolumeNorm is unity gain.
type Volume uint32

const (
	VolumeMuted Volume = 0
	VolumeNorm  Volume = 0x10000
	VolumeMax   Volume = math.MaxUint32 / 2

	// MaxDeviceVolume is the largest raw device volume.
	MaxDeviceVolume uint32 = 127
	// DeviceVolumeSteps is the number of distinct raw device volumes.
	DeviceVolumeSteps = int(MaxDeviceVolume) + 1
)

// VolumeFromPercent converts a percentage of unity gain into a Volume.
func VolumeFromPercent(p float64) Volume {
	if p <= 0 {
		return VolumeMuted
	}

	v := math.Round(p / 100 * float64(VolumeNorm))
	if v >= float64(VolumeMax) {
		return VolumeMax
	}

	return Volume(v)
}

// Percent returns the volume as a percentage of unity gain.
func (v Volume) Percent() float64 {
	return float64(v) * 100 / float64(VolumeNorm)
}

// String returns the volume as a rounded percentage.
func (v Volume) String() string {
	return fmt.Sprintf("%.0f%%", v.Percent())
}

// VolumeFromRaw converts a raw device volume to a Volume. Values at or above
// MaxDeviceVolume map to VolumeNorm.
func VolumeFromRaw(raw uint32) Volume {
	if raw >= MaxDeviceVolume {
		return VolumeNorm
	}

	return Volume(uint64(raw) * uint64(VolumeNorm) / uint64(MaxDeviceVolume))
}

// RawFromVolume converts a Volume to a raw device volume. Values at or above VolumeNorm map
// to MaxDeviceVolume.
func RawFromVolume(v Volume) uint32 {
	if v >= VolumeNorm {
		return MaxDeviceVolume
	}

	return uint32(uint64(v) * uint64(MaxDeviceVolume) / uint64(VolumeNorm))
}

// ChannelVolumes holds one volume per channel.
type ChannelVolumes []Volume

// NewChannelVolumes returns channels copies of v.
func NewChannelVolumes(channels int, v Volume) ChannelVolumes {
	cv := make(ChannelVolumes, channels)
	for i := range cv {
		cv[i] = v
	}

	return cv
}

// Max returns the loudest channel volume.
func (cv ChannelVolumes) Max() Volume {
	m := VolumeMuted
	for _, v := range cv {
		if v > m {
			m = v
		}
	}

	return m
}

// volumeBridge carries volume between the device callback, the control side and the I/O
// goroutine. current and pending are safe for concurrent use; lastApplied belongs to the
// I/O goroutine.
type volumeBridge struct {
	current     atomic.Uint32
	pending     atomic.Uint32
	hasPending  atomic.Bool
	lastApplied int64
}

func newVolumeBridge() *volumeBridge {
	b := &volumeBridge{lastApplied: -1}
	b.current.Store(MaxDeviceVolume)

	return b
}

// onDeviceVolume records a volume reported by the device.
func (b *volumeBridge) onDeviceVolume(raw uint32) {
	b.current.Store(raw)
}

// volume returns the device volume replicated over channels.
func (b *volumeBridge) volume(channels int) ChannelVolumes {
	return NewChannelVolumes(channels, VolumeFromRaw(b.current.Load()))
}

// request records channel 0 of cv as the next raw volume to apply. An empty cv mutes.
func (b *volumeBridge) request(cv ChannelVolumes) uint32 {
	var raw uint32
	if len(cv) > 0 {
		raw = RawFromVolume(cv[0])
	}
	b.pending.Store(raw)
	b.hasPending.Store(true)

	return raw
}

// apply pushes a pending request to the device. It returns true when the device was called.
// Requests for the value the device already reports are dropped.
func (b *volumeBridge) apply(dev interface{ SetVolume(uint32) error }) (bool, error) {
	if !b.hasPending.Swap(false) {
		return false, nil
	}

	raw := b.pending.Load()
	if int64(raw) == b.lastApplied && b.current.Load() == raw {
		return false, nil
	}

	if err := dev.SetVolume(raw); err != nil {
		return false, fmt.Errorf("set device volume: %w", err)
	}

	b.lastApplied = int64(raw)

	return true, nil
}
