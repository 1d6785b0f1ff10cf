//go:build linux && (amd64 || arm64)

package alsa

// sndMask is a bitmask for hardware parameters.
type sndMask struct {
	Bits [8]uint32
}

func (m *sndMask) test(bit uint32) bool {
	return bit < 256 && m.Bits[bit>>5]&(1<<(bit&31)) != 0
}

// sndInterval is a range of values for a hardware parameter.
type sndInterval struct {
	MinVal uint32
	MaxVal uint32
	Flags  uint32
}

// sndPcmInfo contains general information about a PCM device.
type sndPcmInfo struct {
	Device          uint32
	Subdevice       uint32
	Stream          int32
	Card            int32
	Id              [64]byte
	Name            [80]byte
	Subname         [32]byte
	DevClass        int32
	DevSubclass     int32
	SubdevicesCount uint32
	SubdevicesAvail uint32
	Sync            [16]byte
	Reserved        [64]byte
}

// sndCtlCardInfo contains general information about a sound card.
type sndCtlCardInfo struct {
	Card       int32
	Pad        int32
	Id         [16]byte
	Driver     [16]byte
	Name       [32]byte
	Longname   [80]byte
	Reserved_  [16]byte
	Mixername  [80]byte
	Components [128]byte
}

// sndCtlElemId identifies a single control element.
type sndCtlElemId struct {
	Numid     uint32
	Iface     int32
	Device    uint32
	Subdevice uint32
	Name      [44]byte
	Index     uint32
}

// sndCtlElemInfo contains metadata about a control element.
type sndCtlElemInfo struct {
	Id     sndCtlElemId
	Typ    int32
	Access uint32
	Count  uint32
	Owner  int32
	// C union, sized to its largest member.
	Value    [128]byte
	Reserved [64]byte
}

// sndCtlEvent is a notification read from the control device.
type sndCtlEvent struct {
	Typ  int32
	Elem sndCtlEventElement
}

type sndCtlEventElement struct {
	Mask uint32
	Id   sndCtlElemId
}

// integer is the integer member of the sndCtlElemInfo value union.
type integer struct {
	Min  clong
	Max  clong
	Step clong
}
