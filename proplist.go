package alsasink

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/jfreymuth/pulse/proto"
)

const (
	PropDeviceString      = "device.string"
	PropDeviceAPI         = "device.api"
	PropDeviceDescription = "device.description"
	PropDeviceAccessMode  = "device.access_mode"
)

// ParseProperties parses a whitespace separated list of key=value pairs. Values may be
// wrapped in single or double quotes, inside which a backslash escapes the next character.
func ParseProperties(s string) (proto.PropList, error) {
	props := proto.PropList{}
	r := []rune(s)

	for i := 0; i < len(r); {
		if unicode.IsSpace(r[i]) {
			i++
			continue
		}

		start := i
		for i < len(r) && r[i] != '=' && !unicode.IsSpace(r[i]) {
			i++
		}
		key := string(r[start:i])
		if i >= len(r) || r[i] != '=' {
			return nil, fmt.Errorf("%w: property %q has no value", ErrInvalidConfig, key)
		}
		if !validPropertyKey(key) {
			return nil, fmt.Errorf("%w: invalid property key %q", ErrInvalidConfig, key)
		}
		i++

		var value strings.Builder
		if i < len(r) && (r[i] == '"' || r[i] == '\'') {
			quote := r[i]
			i++
			closed := false
			for i < len(r) {
				c := r[i]
				i++
				if c == '\\' && i < len(r) {
					value.WriteRune(r[i])
					i++
					continue
				}
				if c == quote {
					closed = true
					break
				}
				value.WriteRune(c)
			}
			if !closed {
				return nil, fmt.Errorf("%w: unterminated quote in property %q", ErrInvalidConfig, key)
			}
		} else {
			for i < len(r) && !unicode.IsSpace(r[i]) {
				value.WriteRune(r[i])
				i++
			}
		}

		props[key] = proto.PropListString(value.String())
	}

	return props, nil
}

func validPropertyKey(key string) bool {
	if key == "" {
		return false
	}

	for _, c := range key {
		if c > unicode.MaxASCII || !(unicode.IsLetter(c) || unicode.IsDigit(c) || strings.ContainsRune("._-", c)) {
			return false
		}
	}

	return true
}

// propString returns the string value of key, or "" when it is unset.
func propString(props proto.PropList, key string) string {
	if v, ok := props[key]; ok {
		return v.String()
	}

	return ""
}

func mergeProperties(dst, src proto.PropList) {
	for k, v := range src {
		dst[k] = v
	}
}
