//go:build linux && (amd64 || arm64)

package alsa

import (
	"fmt"
	"unsafe"
)

// MixerCtl represents an individual mixer control handle.
type MixerCtl struct {
	mixer *Mixer
	info  sndCtlElemInfo
}

// Name returns the name of the control.
func (ctl *MixerCtl) Name() string {
	return cString(ctl.info.Id.Name[:])
}

// ID returns the numeric ID of the control.
func (ctl *MixerCtl) ID() uint32 {
	return ctl.info.Id.Numid
}

// Type returns the value type of the control.
func (ctl *MixerCtl) Type() MixerCtlType {
	return MixerCtlType(ctl.info.Typ)
}

// NumValues returns the number of values, usually one per channel.
func (ctl *MixerCtl) NumValues() uint32 {
	return ctl.info.Count
}

// Access returns the access flags of the control.
func (ctl *MixerCtl) Access() CtlAccessFlag {
	return CtlAccessFlag(ctl.info.Access)
}

// Writable reports whether the control is an integer control that can be read and written.
func (ctl *MixerCtl) Writable() bool {
	const rw = SNDRV_CTL_ELEM_ACCESS_READ | SNDRV_CTL_ELEM_ACCESS_WRITE

	return ctl.Type() == SNDRV_CTL_ELEM_TYPE_INTEGER && ctl.Access()&rw == rw && ctl.NumValues() > 0
}

// Range returns the minimum and maximum value of an integer control.
func (ctl *MixerCtl) Range() (int, int, error) {
	if ctl.Type() != SNDRV_CTL_ELEM_TYPE_INTEGER {
		return 0, 0, fmt.Errorf("control %q is not an integer control", ctl.Name())
	}

	in := (*integer)(unsafe.Pointer(&ctl.info.Value[0]))

	return int(in.Min), int(in.Max), nil
}

// Values reads the current values of an integer control.
func (ctl *MixerCtl) Values() ([]int, error) {
	if ctl.Type() != SNDRV_CTL_ELEM_TYPE_INTEGER {
		return nil, fmt.Errorf("control %q is not an integer control", ctl.Name())
	}

	v := sndCtlElemValue{Id: ctl.info.Id}
	if err := ioctl(ctl.mixer.Fd(), SNDRV_CTL_IOCTL_ELEM_READ, uintptr(unsafe.Pointer(&v))); err != nil {
		return nil, fmt.Errorf("ioctl ELEM_READ failed: %w", err)
	}

	n := min(int(ctl.NumValues()), len(v.Value))
	values := make([]int, n)
	for i := range values {
		values[i] = int(v.Value[i])
	}

	return values, nil
}

// SetValues writes the values of an integer control. Missing trailing values repeat the last one.
func (ctl *MixerCtl) SetValues(values ...int) error {
	if ctl.Type() != SNDRV_CTL_ELEM_TYPE_INTEGER {
		return fmt.Errorf("control %q is not an integer control", ctl.Name())
	}

	if len(values) == 0 {
		return fmt.Errorf("no values for control %q", ctl.Name())
	}

	lo, hi, _ := ctl.Range()

	v := sndCtlElemValue{Id: ctl.info.Id}
	n := min(int(ctl.NumValues()), len(v.Value))
	for i := 0; i < n; i++ {
		val := values[min(i, len(values)-1)]
		if val < lo || val > hi {
			return fmt.Errorf("value %d out of range [%d, %d] for control %q", val, lo, hi, ctl.Name())
		}

		v.Value[i] = clong(val)
	}

	if err := ioctl(ctl.mixer.Fd(), SNDRV_CTL_IOCTL_ELEM_WRITE, uintptr(unsafe.Pointer(&v))); err != nil {
		return fmt.Errorf("ioctl ELEM_WRITE failed: %w", err)
	}

	return nil
}
