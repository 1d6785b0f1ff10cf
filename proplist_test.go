package alsasink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProperties(t *testing.T) {
	props, err := ParseProperties(`device.description="Living Room" device.icon_name=audio-card media.role='it\'s music'`)
	require.NoError(t, err)

	assert.Len(t, props, 3)
	assert.Equal(t, "Living Room", propString(props, "device.description"))
	assert.Equal(t, "audio-card", propString(props, "device.icon_name"))
	assert.Equal(t, "it's music", propString(props, "media.role"))
	assert.Equal(t, "", propString(props, "missing"))

	empty, err := ParseProperties("   ")
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, bad := range []string{"novalue", `key="open`, "=value", "bad key=1", "ключ=1"} {
		_, err := ParseProperties(bad)
		assert.ErrorIs(t, err, ErrInvalidConfig, bad)
	}
}
