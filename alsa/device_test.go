//go:build linux && (amd64 || arm64)

package alsa

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/gen2brain/alsasink"
)

func TestParseName(t *testing.T) {
	orig := cardIndex
	cardIndex = func(id string) int {
		if id == "Loopback" {
			return 2
		}

		return -1
	}
	defer func() { cardIndex = orig }()

	testCases := []struct {
		name         string
		card, device uint
		wantErr      bool
	}{
		{name: "", card: 0, device: 0},
		{name: "default", card: 0, device: 0},
		{name: "hw:1", card: 1, device: 0},
		{name: "hw:1,3", card: 1, device: 3},
		{name: "hw:Loopback,1", card: 2, device: 1},
		{name: "hw:", wantErr: true},
		{name: "hw:Unknown", wantErr: true},
		{name: "hw:0,x", wantErr: true},
		{name: "plughw:0,0", wantErr: true},
		{name: "snd/0", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%q", tc.name), func(t *testing.T) {
			card, device, err := ParseName(tc.name)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.card, card)
			assert.Equal(t, tc.device, device)
		})
	}
}

func TestFormatMapping(t *testing.T) {
	testCases := []struct {
		params alsasink.Params
		format PcmFormat
	}{
		{alsasink.Params{Bits: 8, BytesPerSample: 1, LittleEndian: true}, SNDRV_PCM_FORMAT_U8},
		{alsasink.Params{Bits: 16, BytesPerSample: 2, Signed: true, LittleEndian: true}, SNDRV_PCM_FORMAT_S16_LE},
		{alsasink.Params{Bits: 16, BytesPerSample: 2, Signed: true}, SNDRV_PCM_FORMAT_S16_BE},
		{alsasink.Params{Bits: 24, BytesPerSample: 3, Signed: true, LittleEndian: true}, SNDRV_PCM_FORMAT_S24_3LE},
		{alsasink.Params{Bits: 24, BytesPerSample: 4, Signed: true, LittleEndian: true}, SNDRV_PCM_FORMAT_S24_LE},
		{alsasink.Params{Bits: 32, BytesPerSample: 4, Signed: true}, SNDRV_PCM_FORMAT_S32_BE},
	}

	for _, tc := range testCases {
		t.Run(tc.format.String(), func(t *testing.T) {
			format, err := pcmFormatFor(tc.params)
			require.NoError(t, err)
			assert.Equal(t, tc.format, format)

			back, err := paramsFor(Config{Format: format, Rate: 48000, Channels: 2})
			require.NoError(t, err)
			assert.Equal(t, tc.params.Bits, back.Bits)
			assert.Equal(t, tc.params.BytesPerSample, back.BytesPerSample)
			assert.Equal(t, tc.params.Signed, back.Signed)
			assert.Equal(t, uint32(48000), back.Rate)
			assert.Equal(t, uint32(2), back.Channels)
			if tc.params.BytesPerSample > 1 {
				assert.Equal(t, tc.params.LittleEndian, back.LittleEndian)
			}
		})
	}

	_, err := pcmFormatFor(alsasink.Params{Bits: 16, BytesPerSample: 2, LittleEndian: true})
	assert.ErrorIs(t, err, alsasink.ErrUnsupportedFormat, "unsigned 16-bit")

	_, err = pcmFormatFor(alsasink.Params{Bits: 24, BytesPerSample: 4, Signed: true, MSB: true})
	assert.ErrorIs(t, err, alsasink.ErrUnsupportedFormat, "msb-aligned 24-bit")

	_, err = paramsFor(Config{Format: SNDRV_PCM_FORMAT_FLOAT_LE})
	assert.ErrorIs(t, err, alsasink.ErrUnsupportedFormat)
}

func TestVolumeScaling(t *testing.T) {
	assert.Equal(t, uint32(0), rawFromCtl(0, 0, 255))
	assert.Equal(t, alsasink.MaxDeviceVolume, rawFromCtl(255, 0, 255))
	assert.Equal(t, alsasink.MaxDeviceVolume, rawFromCtl(300, 0, 255), "clamped")
	assert.Equal(t, uint32(0), rawFromCtl(-10, 0, 255), "clamped")
	assert.Equal(t, alsasink.MaxDeviceVolume, rawFromCtl(5, 5, 5), "empty range")

	assert.Equal(t, -6000, ctlFromRaw(0, -6000, 0))
	assert.Equal(t, 0, ctlFromRaw(alsasink.MaxDeviceVolume, -6000, 0))
	assert.Equal(t, 0, ctlFromRaw(500, -6000, 0), "clamped")
	assert.Equal(t, 7, ctlFromRaw(64, 7, 7), "empty range")

	for _, r := range [][2]int{{0, 255}, {0, 65536}, {-6000, 0}, {0, 127}} {
		for raw := uint32(0); raw <= alsasink.MaxDeviceVolume; raw++ {
			v := ctlFromRaw(raw, r[0], r[1])
			require.Equal(t, raw, rawFromCtl(v, r[0], r[1]), "range %v raw %d", r, raw)
		}
	}
}

func openLoopback(t *testing.T) *Device {
	t.Helper()
	requireLoopback(t)

	d, err := Open(fmt.Sprintf("hw:%d,0", loopbackCard))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	return d
}

func TestDeviceHardware(t *testing.T) {
	d := openLoopback(t)

	_, err := d.Params()
	assert.Error(t, err, "params before configuration")

	err = d.SetParams(alsasink.Params{Bits: 16, BytesPerSample: 2, Signed: true, LittleEndian: true, Rate: 48000, Channels: 2, BufferFrames: 4096})
	require.NoError(t, err)

	p, err := d.Params()
	require.NoError(t, err)
	assert.Equal(t, uint32(48000), p.Rate)
	assert.Equal(t, uint32(2), p.Channels)
	assert.NotZero(t, p.BufferFrames)
	assert.NotEmpty(t, d.Description())

	require.NoError(t, d.Start())

	fds := make([]unix.PollFd, d.NumDescriptors())
	assert.Equal(t, 2, d.PollDescriptors(fds, alsasink.EventWritable))
	assert.GreaterOrEqual(t, fds[0].Fd, int32(0))
	assert.Equal(t, int16(unix.POLLOUT), fds[0].Events)

	_, err = unix.Poll(fds, int(time.Second/time.Millisecond))
	require.NoError(t, err)
	assert.NotZero(t, d.Revents(fds)&alsasink.EventWritable)

	// The stream is not running yet, so at least the whole buffer is free.
	buf := make([]byte, int(p.BufferBytes())*2)
	n, err := d.Write(buf)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int(p.BufferBytes()))
	assert.Zero(t, n%int(p.FrameSize()))

	_, err = d.Write(buf)
	require.NoError(t, err)

	require.NoError(t, d.Stop())

	d.PollDescriptors(fds, 0)
	assert.Equal(t, int32(-1), fds[0].Fd, "no PCM slot when writes are not wanted")

	require.NoError(t, d.Close())
	assert.Error(t, d.Close(), "second close")
}

func TestDeviceRateDrift(t *testing.T) {
	d := openLoopback(t)

	err := d.SetParams(alsasink.Params{Bits: 16, BytesPerSample: 2, Signed: true, LittleEndian: true, Rate: 1000000, Channels: 2})
	require.NoError(t, err)

	p, err := d.Params()
	require.NoError(t, err)
	assert.Less(t, p.Rate, uint32(1000000))
	assert.NotZero(t, p.Rate)
}

func TestDeviceVolumeCallback(t *testing.T) {
	d := openLoopback(t)

	var got []uint32
	d.OnVolume(func(raw uint32) { got = append(got, raw) })
	require.Len(t, got, 1, "called on registration")

	require.NoError(t, d.SetVolume(40))
	assert.Equal(t, uint32(40), got[len(got)-1])

	require.NoError(t, d.SetVolume(1000))
	assert.Equal(t, alsasink.MaxDeviceVolume, got[len(got)-1], "clamped")
}

func TestOpenerErrors(t *testing.T) {
	dev, err := Opener("bogus")
	assert.Error(t, err)
	assert.Nil(t, dev)

	dev, err = Opener("hw:99,0")
	assert.Error(t, err)
	assert.Nil(t, dev)
}
