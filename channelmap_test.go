package alsasink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultChannelMap(t *testing.T) {
	assert.Equal(t, "mono", DefaultChannelMap(1).String())
	assert.Equal(t, "front-left,front-right", DefaultChannelMap(2).String())
	assert.Equal(t, "front-left,front-right,rear-left,rear-right", DefaultChannelMap(4).String())
	assert.Equal(t, "front-left,front-right,rear-left,rear-right,front-center,lfe", DefaultChannelMap(6).String())
	assert.Equal(t, "front-left,front-right,rear-left,rear-right,front-center,lfe,side-left,side-right", DefaultChannelMap(8).String())
	assert.Equal(t, "aux0,aux1,aux2", DefaultChannelMap(3).String())

	m := DefaultChannelMap(2)
	m[0] = PositionLFE
	assert.Equal(t, PositionFrontLeft, DefaultChannelMap(2)[0], "default layouts must not be shared")
}

func TestParseChannelMap(t *testing.T) {
	m, err := ParseChannelMap("surround-51")
	require.NoError(t, err)
	assert.Equal(t, DefaultChannelMap(6), m)

	m, err = ParseChannelMap("left, right,subwoofer,aux7,top-rear-center")
	require.NoError(t, err)
	assert.Equal(t, ChannelMap{PositionFrontLeft, PositionFrontRight, PositionLFE, PositionAux0 + 7, PositionTopRearCenter}, m)
	assert.Equal(t, "front-left,front-right,lfe,aux7,top-rear-center", m.String())

	for _, bad := range []string{"", "front-left,nowhere", "aux32", "aux01"} {
		_, err := ParseChannelMap(bad)
		assert.ErrorIs(t, err, ErrInvalidConfig, bad)
	}

	spec := SampleSpec{Format: SampleS16LE, Rate: 44100, Channels: 2}
	assert.True(t, DefaultChannelMap(2).Compatible(spec))
	assert.False(t, DefaultChannelMap(1).Compatible(spec))
	assert.False(t, ChannelMap(nil).Compatible(spec))
}
