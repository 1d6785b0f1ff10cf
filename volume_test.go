package alsasink

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVolumeMapping(t *testing.T) {
	assert.Equal(t, VolumeMuted, VolumeFromRaw(0))
	assert.Equal(t, VolumeNorm, VolumeFromRaw(MaxDeviceVolume))
	assert.Equal(t, VolumeNorm, VolumeFromRaw(200))

	assert.Equal(t, uint32(0), RawFromVolume(VolumeMuted))
	assert.Equal(t, MaxDeviceVolume, RawFromVolume(VolumeNorm))
	assert.Equal(t, MaxDeviceVolume, RawFromVolume(VolumeMax))
	assert.Equal(t, uint32(63), RawFromVolume(VolumeNorm/2))

	for v := uint32(0); v <= MaxDeviceVolume; v++ {
		got := RawFromVolume(VolumeFromRaw(v))
		assert.LessOrEqual(t, got, v)
		assert.GreaterOrEqual(t, got+1, v, "raw %d", v)
	}

	assert.Equal(t, VolumeNorm, VolumeFromPercent(100))
	assert.Equal(t, VolumeMuted, VolumeFromPercent(-3))
	assert.Equal(t, "50%", (VolumeNorm / 2).String())
	assert.Equal(t, Volume(7), ChannelVolumes{3, 7, 5}.Max())
}

type recordingVolume struct {
	set []uint32
	err error
}

func (r *recordingVolume) SetVolume(raw uint32) error {
	if r.err != nil {
		return r.err
	}
	r.set = append(r.set, raw)
	return nil
}

func TestVolumeBridge(t *testing.T) {
	b := newVolumeBridge()
	dev := &recordingVolume{}

	assert.Equal(t, NewChannelVolumes(2, VolumeNorm), b.volume(2))

	applied, err := b.apply(dev)
	require.NoError(t, err)
	assert.False(t, applied)

	assert.Equal(t, uint32(31), b.request(ChannelVolumes{VolumeNorm / 4, VolumeNorm}))
	applied, err = b.apply(dev)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, []uint32{31}, dev.set)

	assert.Equal(t, uint32(0), b.request(nil))
	b.request(ChannelVolumes{VolumeNorm / 2, VolumeMuted})
	applied, err = b.apply(dev)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, []uint32{31, 63}, dev.set)

	b.onDeviceVolume(63)
	b.request(ChannelVolumes{VolumeNorm / 2})
	applied, _ = b.apply(dev)
	assert.False(t, applied, "value already in effect")

	b.onDeviceVolume(20)
	b.request(ChannelVolumes{VolumeNorm / 2})
	applied, _ = b.apply(dev)
	assert.True(t, applied, "device moved away from the requested value")
	assert.Equal(t, NewChannelVolumes(1, VolumeFromRaw(20)), b.volume(1))

	dev.err = errors.New("mixer gone")
	b.request(ChannelVolumes{VolumeMuted})
	_, err = b.apply(dev)
	assert.ErrorIs(t, err, dev.err)
}
