package alsasink

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/sys/cpu"
)

// SampleFormat is a sample encoding.
type SampleFormat int

const (
	SampleFormatInvalid SampleFormat = iota
	SampleU8
	SampleALaw
	SampleULaw
	SampleS16LE
	SampleS16BE
	SampleFloat32LE
	SampleFloat32BE
	SampleS32LE
	SampleS32BE
	SampleS24LE
	SampleS24BE
	SampleS24_32LE
	SampleS24_32BE
)

var sampleFormatNames = map[SampleFormat]string{
	SampleU8:        "u8",
	SampleALaw:      "alaw",
	SampleULaw:      "ulaw",
	SampleS16LE:     "s16le",
	SampleS16BE:     "s16be",
	SampleFloat32LE: "float32le",
	SampleFloat32BE: "float32be",
	SampleS32LE:     "s32le",
	SampleS32BE:     "s32be",
	SampleS24LE:     "s24le",
	SampleS24BE:     "s24be",
	SampleS24_32LE:  "s24-32le",
	SampleS24_32BE:  "s24-32be",
}

// nativePairs maps the endian-neutral format stems to their little and big endian variants.
var nativePairs = map[string][2]SampleFormat{
	"s16":     {SampleS16LE, SampleS16BE},
	"float32": {SampleFloat32LE, SampleFloat32BE},
	"s32":     {SampleS32LE, SampleS32BE},
	"s24":     {SampleS24LE, SampleS24BE},
	"s24-32":  {SampleS24_32LE, SampleS24_32BE},
}

var formatAliases = map[string]string{
	"8":     "u8",
	"16":    "s16",
	"24":    "s24",
	"32":    "s32",
	"float": "float32",
	"mulaw": "ulaw",
}

// String returns the canonical name of the format.
func (f SampleFormat) String() string {
	if name, ok := sampleFormatNames[f]; ok {
		return name
	}

	return "invalid"
}

// ParseSampleFormat parses a format name. Besides the canonical names it accepts the native
// (ne) and reverse (re) endian suffixes, the bare stems and a few numeric aliases.
func ParseSampleFormat(s string) (SampleFormat, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if alias, ok := formatAliases[name]; ok {
		name = alias
	}

	for f, n := range sampleFormatNames {
		if n == name {
			return f, nil
		}
	}

	stem, native := name, true
	switch {
	case strings.HasSuffix(name, "ne"):
		stem = strings.TrimSuffix(name, "ne")
	case strings.HasSuffix(name, "re"):
		stem, native = strings.TrimSuffix(name, "re"), false
	}

	if pair, ok := nativePairs[stem]; ok {
		if cpu.IsBigEndian == native {
			return pair[1], nil
		}
		return pair[0], nil
	}

	return SampleFormatInvalid, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *SampleFormat) UnmarshalText(b []byte) error {
	v, err := ParseSampleFormat(string(b))
	if err != nil {
		return err
	}

	*f = v

	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (f SampleFormat) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// SampleSize returns the storage size of one sample in bytes, or 0 for an invalid format.
func (f SampleFormat) SampleSize() int {
	switch f {
	case SampleU8, SampleALaw, SampleULaw:
		return 1
	case SampleS16LE, SampleS16BE:
		return 2
	case SampleS24LE, SampleS24BE:
		return 3
	case SampleFloat32LE, SampleFloat32BE, SampleS32LE, SampleS32BE, SampleS24_32LE, SampleS24_32BE:
		return 4
	}

	return 0
}

// SilenceByte returns the byte value that encodes silence in this format.
func (f SampleFormat) SilenceByte() byte {
	switch f {
	case SampleU8:
		return 0x80
	case SampleALaw:
		return 0xd5
	case SampleULaw:
		return 0xff
	}

	return 0
}

func (f SampleFormat) bigEndian() bool {
	switch f {
	case SampleS16BE, SampleFloat32BE, SampleS32BE, SampleS24BE, SampleS24_32BE:
		return true
	}

	return false
}

const (
	// MaxChannels is the largest supported channel count.
	MaxChannels = 32
	// MaxRate is the largest supported sample rate.
	MaxRate = 48000 * 8
)

// SampleSpec describes a sample stream.
type SampleSpec struct {
	Format   SampleFormat
	Rate     uint32
	Channels uint8
}

// Valid reports whether the spec is usable.
func (s SampleSpec) Valid() bool {
	return s.Format.SampleSize() > 0 && s.Rate > 0 && s.Rate <= MaxRate && s.Channels > 0 && s.Channels <= MaxChannels
}

// FrameSize returns the size of one frame in bytes.
func (s SampleSpec) FrameSize() int {
	return s.Format.SampleSize() * int(s.Channels)
}

// BytesToUsec converts a byte count into microseconds of audio. Partial frames are ignored.
func (s SampleSpec) BytesToUsec(n uint64) uint64 {
	fs := uint64(s.FrameSize())
	if fs == 0 || s.Rate == 0 {
		return 0
	}

	return n / fs * 1000000 / uint64(s.Rate)
}

// BytesToDuration converts a byte count into a duration of audio.
func (s SampleSpec) BytesToDuration(n uint64) time.Duration {
	return time.Duration(s.BytesToUsec(n)) * time.Microsecond
}

// String returns a human-readable representation of the spec.
func (s SampleSpec) String() string {
	return fmt.Sprintf("%s %dch %dHz", s.Format, s.Channels, s.Rate)
}

// paramsForSpec maps a sample spec onto device parameters.
func paramsForSpec(spec SampleSpec) (Params, error) {
	p := Params{
		Signed:       true,
		LittleEndian: !spec.Format.bigEndian(),
		Rate:         spec.Rate,
		Channels:     uint32(spec.Channels),
	}

	switch spec.Format {
	case SampleU8:
		p.Bits, p.BytesPerSample, p.Signed = 8, 1, false
	case SampleS16LE, SampleS16BE:
		p.Bits, p.BytesPerSample = 16, 2
	case SampleS32LE, SampleS32BE:
		p.Bits, p.BytesPerSample = 32, 4
	case SampleS24LE, SampleS24BE:
		p.Bits, p.BytesPerSample = 24, 3
	case SampleS24_32LE, SampleS24_32BE:
		p.Bits, p.BytesPerSample, p.MSB = 24, 4, false
	default:
		return Params{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, spec.Format)
	}

	return p, nil
}
