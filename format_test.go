package alsasink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/cpu"
)

func TestParseSampleFormat(t *testing.T) {
	native := func(le, be SampleFormat) SampleFormat {
		if cpu.IsBigEndian {
			return be
		}
		return le
	}

	tests := []struct {
		in   string
		want SampleFormat
	}{
		{"u8", SampleU8},
		{"8", SampleU8},
		{"alaw", SampleALaw},
		{"mulaw", SampleULaw},
		{"S16LE", SampleS16LE},
		{"s16be", SampleS16BE},
		{"s16", native(SampleS16LE, SampleS16BE)},
		{"s16ne", native(SampleS16LE, SampleS16BE)},
		{"s16re", native(SampleS16BE, SampleS16LE)},
		{"float", native(SampleFloat32LE, SampleFloat32BE)},
		{"s24le", SampleS24LE},
		{"s24-32be", SampleS24_32BE},
		{"s24-32ne", native(SampleS24_32LE, SampleS24_32BE)},
		{" s32le ", SampleS32LE},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSampleFormat(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseSampleFormat("s20le")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	var f SampleFormat
	require.NoError(t, f.UnmarshalText([]byte("s24le")))
	assert.Equal(t, SampleS24LE, f)
	assert.Error(t, f.UnmarshalText([]byte("bogus")))

	b, err := SampleS24_32LE.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "s24-32le", string(b))
}

func TestSampleSpec(t *testing.T) {
	spec := SampleSpec{Format: SampleS16LE, Rate: 44100, Channels: 2}
	assert.True(t, spec.Valid())
	assert.Equal(t, 4, spec.FrameSize())
	assert.Equal(t, uint64(1000000), spec.BytesToUsec(44100*4))
	assert.Equal(t, 10*time.Millisecond, spec.BytesToDuration(441*4))
	// Partial frames are ignored.
	assert.Equal(t, spec.BytesToUsec(4), spec.BytesToUsec(7))

	assert.False(t, SampleSpec{Format: SampleS16LE, Rate: 0, Channels: 2}.Valid())
	assert.False(t, SampleSpec{Format: SampleS16LE, Rate: 44100, Channels: MaxChannels + 1}.Valid())
	assert.False(t, SampleSpec{Rate: 44100, Channels: 2}.Valid())

	assert.Equal(t, byte(0x80), SampleU8.SilenceByte())
	assert.Equal(t, byte(0xd5), SampleALaw.SilenceByte())
	assert.Equal(t, byte(0xff), SampleULaw.SilenceByte())
	assert.Equal(t, byte(0), SampleS32BE.SilenceByte())
}

func TestParamsForSpec(t *testing.T) {
	tests := []struct {
		format          SampleFormat
		bits, bps       uint32
		signed, le      bool
		wantUnsupported bool
	}{
		{format: SampleU8, bits: 8, bps: 1, signed: false, le: true},
		{format: SampleS16LE, bits: 16, bps: 2, signed: true, le: true},
		{format: SampleS16BE, bits: 16, bps: 2, signed: true, le: false},
		{format: SampleS32LE, bits: 32, bps: 4, signed: true, le: true},
		{format: SampleS32BE, bits: 32, bps: 4, signed: true, le: false},
		{format: SampleS24LE, bits: 24, bps: 3, signed: true, le: true},
		{format: SampleS24BE, bits: 24, bps: 3, signed: true, le: false},
		{format: SampleS24_32LE, bits: 24, bps: 4, signed: true, le: true},
		{format: SampleS24_32BE, bits: 24, bps: 4, signed: true, le: false},
		{format: SampleALaw, wantUnsupported: true},
		{format: SampleULaw, wantUnsupported: true},
		{format: SampleFloat32LE, wantUnsupported: true},
		{format: SampleFloat32BE, wantUnsupported: true},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			p, err := paramsForSpec(SampleSpec{Format: tt.format, Rate: 48000, Channels: 2})
			if tt.wantUnsupported {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.bits, p.Bits)
			assert.Equal(t, tt.bps, p.BytesPerSample)
			assert.Equal(t, tt.signed, p.Signed)
			assert.Equal(t, tt.le, p.LittleEndian)
			assert.False(t, p.MSB)
			assert.Equal(t, uint32(48000), p.Rate)
			assert.Equal(t, uint32(2), p.Channels)
		})
	}
}

func TestParamsEncoding(t *testing.T) {
	base := Params{Bits: 24, BytesPerSample: 4, Signed: true, LittleEndian: true, Rate: 48000, Channels: 2}

	same := base
	same.Rate, same.Channels, same.BufferFrames = 44100, 6, 4096
	assert.True(t, base.sameEncoding(same))

	msb := base
	msb.MSB = true
	assert.False(t, base.sameEncoding(msb))

	u8 := Params{Bits: 8, BytesPerSample: 1}
	flipped := u8
	flipped.LittleEndian = true
	assert.True(t, u8.sameEncoding(flipped))

	assert.Equal(t, uint32(8), base.FrameSize())
	assert.Equal(t, "s24/4le 48000Hz 2ch buffer=0", base.String())
	assert.Equal(t, "writable|hangup", (EventWritable | EventHangup).String())
}
