package alsasink

import (
	"fmt"
)

// DefaultSinkName is the sink name used when none is configured.
const DefaultSinkName = "alsa-sink"

// Config holds the arguments of one module instance. Zero values select the core defaults.
type Config struct {
	SinkName       string       `mapstructure:"sink_name"`
	SinkProperties string       `mapstructure:"sink_properties"`
	Device         string       `mapstructure:"device"`
	Format         SampleFormat `mapstructure:"format"`
	Rate           uint32       `mapstructure:"rate"`
	Channels       uint8        `mapstructure:"channels"`
	ChannelMap     string       `mapstructure:"channel_map"`
	BufferFrames   uint32       `mapstructure:"buffer_frames"`
}

// Validate checks the arguments that can be checked without a device.
func (c Config) Validate() error {
	if c.Rate > MaxRate {
		return fmt.Errorf("%w: rate %d out of range", ErrInvalidConfig, c.Rate)
	}

	if c.Channels > MaxChannels {
		return fmt.Errorf("%w: %d channels out of range", ErrInvalidConfig, c.Channels)
	}

	if _, err := ParseProperties(c.SinkProperties); err != nil {
		return fmt.Errorf("invalid sink properties: %w", err)
	}

	return nil
}

// SampleSpec resolves the requested sample spec and channel map against the defaults. A
// configured channel map sets the channel count when none is given and must agree with it
// otherwise.
func (c Config) SampleSpec(def SampleSpec, defMap ChannelMap) (SampleSpec, ChannelMap, error) {
	spec := def
	if c.Format != SampleFormatInvalid {
		spec.Format = c.Format
	}
	if c.Rate != 0 {
		spec.Rate = c.Rate
	}
	if c.Channels != 0 {
		spec.Channels = c.Channels
	}

	var cmap ChannelMap
	if c.ChannelMap != "" {
		m, err := ParseChannelMap(c.ChannelMap)
		if err != nil {
			return SampleSpec{}, nil, err
		}
		if c.Channels == 0 {
			spec.Channels = uint8(len(m))
		}
		cmap = m
	}

	if !spec.Valid() {
		return SampleSpec{}, nil, fmt.Errorf("%w: invalid sample spec %s", ErrInvalidConfig, spec)
	}

	switch {
	case cmap != nil:
		if !cmap.Compatible(spec) {
			return SampleSpec{}, nil, fmt.Errorf("%w: channel map %s does not match %d channels", ErrInvalidConfig, cmap, spec.Channels)
		}
	case defMap.Compatible(spec):
		cmap = append(ChannelMap(nil), defMap...)
	default:
		cmap = DefaultChannelMap(int(spec.Channels))
	}

	return spec, cmap, nil
}
