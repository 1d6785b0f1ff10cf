package alsasink

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestSession(t *testing.T) {
	spec := SampleSpec{Format: SampleS24_32LE, Rate: 96000, Channels: 2}

	t.Run("Negotiate", func(t *testing.T) {
		dev := newFakeDevice(t)
		log, logs := observedLogger()

		s, err := OpenSession(dev.opener, "", log)
		require.NoError(t, err)
		assert.Equal(t, DefaultDevice, s.Name())
		assert.Equal(t, "Fake Device", s.Description())

		p, err := s.Negotiate(spec, 2048)
		require.NoError(t, err)
		assert.Equal(t, uint32(24), dev.requested.Bits)
		assert.Equal(t, uint32(4), dev.requested.BytesPerSample)
		assert.Equal(t, uint32(2048), dev.requested.BufferFrames)
		assert.Equal(t, p, s.Params())
		assert.Equal(t, 2048*4*2, s.BufferSize())
		assert.Equal(t, 2, s.DescriptorCount())
		assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	})

	t.Run("Drift", func(t *testing.T) {
		dev := newFakeDevice(t)
		dev.adjust = func(p *Params) { p.Rate, p.Channels = 48000, 4 }
		log, logs := observedLogger()

		s, err := OpenSession(dev.opener, "hw:0,0", log)
		require.NoError(t, err)

		p, err := s.Negotiate(spec, 0)
		require.NoError(t, err)
		assert.Equal(t, uint32(48000), p.Rate)
		assert.Equal(t, uint32(4), p.Channels)
		assert.Equal(t, 1, logs.FilterMessage("rate changed").Len())
		assert.Equal(t, 1, logs.FilterMessage("playback channels changed").Len())
	})

	t.Run("Rejected", func(t *testing.T) {
		for name, adjust := range map[string]func(*Params){
			"Bits":     func(p *Params) { p.Bits = 32 },
			"Sign":     func(p *Params) { p.Signed = false },
			"MSB":      func(p *Params) { p.MSB = true },
			"Rate":     func(p *Params) { p.Rate = 0 },
			"Channels": func(p *Params) { p.Channels = MaxChannels + 1 },
		} {
			t.Run(name, func(t *testing.T) {
				dev := newFakeDevice(t)
				dev.adjust = adjust

				s, err := OpenSession(dev.opener, "", nil)
				require.NoError(t, err)

				_, err = s.Negotiate(spec, 0)
				assert.ErrorIs(t, err, ErrParameterNegotiation)
			})
		}

		dev := newFakeDevice(t)
		dev.getErr = errors.New("ioctl failed")
		s, err := OpenSession(dev.opener, "", nil)
		require.NoError(t, err)
		_, err = s.Negotiate(spec, 0)
		assert.ErrorIs(t, err, ErrParameterNegotiation)
		assert.ErrorIs(t, err, dev.getErr)

		_, err = s.Negotiate(SampleSpec{Format: SampleULaw, Rate: 8000, Channels: 1}, 0)
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("StartStop", func(t *testing.T) {
		dev := newFakeDevice(t)
		s, err := OpenSession(dev.opener, "", nil)
		require.NoError(t, err)

		require.NoError(t, s.Stop())
		require.NoError(t, s.Start())
		require.NoError(t, s.Start())
		assert.True(t, s.Running())
		require.NoError(t, s.Stop())
		require.NoError(t, s.Stop())
		assert.False(t, s.Running())

		starts, stops, _ := dev.counts()
		assert.Equal(t, 1, starts)
		assert.Equal(t, 1, stops)

		require.NoError(t, s.Start())
		require.NoError(t, s.Close())
		require.NoError(t, s.Close())

		_, stops, closes := dev.counts()
		assert.Equal(t, 2, stops)
		assert.Equal(t, 1, closes)

		var nilSession *Session
		assert.NoError(t, nilSession.Close())
	})

	t.Run("StopError", func(t *testing.T) {
		dev := newFakeDevice(t)
		s, err := OpenSession(dev.opener, "", nil)
		require.NoError(t, err)
		require.NoError(t, s.Start())

		dev.mu.Lock()
		dev.stopErr = errors.New("device busy")
		dev.mu.Unlock()

		err = s.Stop()
		assert.ErrorIs(t, err, dev.stopErr)
		assert.True(t, s.Running())

		dev.mu.Lock()
		dev.stopErr = nil
		dev.mu.Unlock()

		require.NoError(t, s.Stop())
		assert.False(t, s.Running())
	})

	t.Run("OpenError", func(t *testing.T) {
		_, err := OpenSession(func(string) (Device, error) { return nil, errors.New("busy") }, "hw:3,0", nil)
		assert.ErrorIs(t, err, ErrDeviceOpen)
		assert.Contains(t, err.Error(), "hw:3,0")
	})
}
