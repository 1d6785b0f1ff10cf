package alsasink

import (
	"fmt"
	"strings"
)

// ChannelPosition names the speaker a channel is routed to.
type ChannelPosition int

const (
	PositionMono ChannelPosition = iota
	PositionFrontLeft
	PositionFrontRight
	PositionFrontCenter
	PositionRearCenter
	PositionRearLeft
	PositionRearRight
	PositionLFE
	PositionFrontLeftOfCenter
	PositionFrontRightOfCenter
	PositionSideLeft
	PositionSideRight
	PositionAux0
)

const (
	PositionTopCenter ChannelPosition = PositionAux0 + 32 + iota
	PositionTopFrontLeft
	PositionTopFrontRight
	PositionTopFrontCenter
	PositionTopRearLeft
	PositionTopRearRight
	PositionTopRearCenter
)

var positionNames = map[ChannelPosition]string{
	PositionMono:               "mono",
	PositionFrontLeft:          "front-left",
	PositionFrontRight:         "front-right",
	PositionFrontCenter:        "front-center",
	PositionRearCenter:         "rear-center",
	PositionRearLeft:           "rear-left",
	PositionRearRight:          "rear-right",
	PositionLFE:                "lfe",
	PositionFrontLeftOfCenter:  "front-left-of-center",
	PositionFrontRightOfCenter: "front-right-of-center",
	PositionSideLeft:           "side-left",
	PositionSideRight:          "side-right",
	PositionTopCenter:          "top-center",
	PositionTopFrontLeft:       "top-front-left",
	PositionTopFrontRight:      "top-front-right",
	PositionTopFrontCenter:     "top-front-center",
	PositionTopRearLeft:        "top-rear-left",
	PositionTopRearRight:       "top-rear-right",
	PositionTopRearCenter:      "top-rear-center",
}

var positionAliases = map[string]ChannelPosition{
	"left":      PositionFrontLeft,
	"right":     PositionFrontRight,
	"center":    PositionFrontCenter,
	"subwoofer": PositionLFE,
}

// String returns the canonical name of the position.
func (p ChannelPosition) String() string {
	if p >= PositionAux0 && p < PositionAux0+32 {
		return fmt.Sprintf("aux%d", p-PositionAux0)
	}

	if name, ok := positionNames[p]; ok {
		return name
	}

	return "invalid"
}

func parsePosition(s string) (ChannelPosition, bool) {
	if p, ok := positionAliases[s]; ok {
		return p, true
	}

	for p, name := range positionNames {
		if name == s {
			return p, true
		}
	}

	var n int
	if _, err := fmt.Sscanf(s, "aux%d", &n); err == nil && n >= 0 && n < 32 && s == fmt.Sprintf("aux%d", n) {
		return PositionAux0 + ChannelPosition(n), true
	}

	return 0, false
}

// ChannelMap assigns a position to each channel of a stream.
type ChannelMap []ChannelPosition

var (
	layoutStereo     = ChannelMap{PositionFrontLeft, PositionFrontRight}
	layoutSurround40 = ChannelMap{PositionFrontLeft, PositionFrontRight, PositionRearLeft, PositionRearRight}
	layoutSurround50 = append(layoutSurround40[:4:4], PositionFrontCenter)
	layoutSurround51 = append(layoutSurround50[:5:5], PositionLFE)
	layoutSurround71 = append(layoutSurround51[:6:6], PositionSideLeft, PositionSideRight)
)

var channelMapShorthands = map[string]ChannelMap{
	"mono":        {PositionMono},
	"stereo":      layoutStereo,
	"surround-21": {PositionFrontLeft, PositionFrontRight, PositionLFE},
	"surround-40": layoutSurround40,
	"surround-41": append(layoutSurround40[:4:4], PositionLFE),
	"surround-50": layoutSurround50,
	"surround-51": layoutSurround51,
	"surround-71": layoutSurround71,
}

// DefaultChannelMap returns the ALSA/OSS layout for the channel count. Counts without a
// standard layout get auxiliary positions.
func DefaultChannelMap(channels int) ChannelMap {
	var layout ChannelMap
	switch channels {
	case 1:
		layout = ChannelMap{PositionMono}
	case 2:
		layout = layoutStereo
	case 4:
		layout = layoutSurround40
	case 5:
		layout = layoutSurround50
	case 6:
		layout = layoutSurround51
	case 8:
		layout = layoutSurround71
	default:
		m := make(ChannelMap, channels)
		for i := range m {
			m[i] = PositionAux0 + ChannelPosition(i%32)
		}
		return m
	}

	return append(ChannelMap(nil), layout...)
}

// ParseChannelMap parses a comma-separated list of position names or a layout shorthand
// such as "stereo" or "surround-51".
func ParseChannelMap(s string) (ChannelMap, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if m, ok := channelMapShorthands[s]; ok {
		return append(ChannelMap(nil), m...), nil
	}

	parts := strings.Split(s, ",")
	if len(parts) > MaxChannels {
		return nil, fmt.Errorf("%w: channel map has %d positions", ErrInvalidConfig, len(parts))
	}

	m := make(ChannelMap, 0, len(parts))
	for _, part := range parts {
		p, ok := parsePosition(strings.TrimSpace(part))
		if !ok {
			return nil, fmt.Errorf("%w: unknown channel position %q", ErrInvalidConfig, part)
		}
		m = append(m, p)
	}

	return m, nil
}

// Compatible reports whether the map can describe a stream with the given spec.
func (m ChannelMap) Compatible(spec SampleSpec) bool {
	return len(m) > 0 && len(m) == int(spec.Channels)
}

// String returns the comma-separated position names.
func (m ChannelMap) String() string {
	names := make([]string, len(m))
	for i, p := range m {
		names[i] = p.String()
	}

	return strings.Join(names, ",")
}
