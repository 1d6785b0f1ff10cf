//go:build linux && (amd64 || arm64)

package alsa

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Layouts must match the kernel ABI.
var (
	_ [608]byte  = [unsafe.Sizeof(sndPcmHwParams{})]byte{}
	_ [136]byte  = [unsafe.Sizeof(sndPcmSwParams{})]byte{}
	_ [136]byte  = [unsafe.Sizeof(sndPcmSyncPtr{})]byte{}
	_ [24]byte   = [unsafe.Sizeof(sndXferi{})]byte{}
	_ [1224]byte = [unsafe.Sizeof(sndCtlElemValue{})]byte{}
	_ [80]byte   = [unsafe.Sizeof(sndCtlElemList{})]byte{}
)

// sndPcmUframesT is the C unsigned long used for frame counts.
type sndPcmUframesT = uint64

// clong is the C long type.
type clong = int64

// sndXferi is the argument of interleaved read/write ioctls.
type sndXferi struct {
	Result int // ssize_t
	Buf    uintptr
	Frames sndPcmUframesT
}

// sndPcmHwParams contains hardware parameters for a PCM device.
type sndPcmHwParams struct {
	Flags     uint32
	Masks     [3]sndMask
	Mres      [5]sndMask
	Intervals [12]sndInterval
	Ires      [9]sndInterval
	Rmask     uint32
	Cmask     uint32
	Info      uint32
	Msbits    uint32
	RateNum   uint32
	RateDen   uint32
	FifoSize  sndPcmUframesT
	Reserved  [64]byte
}

// sndPcmSwParams contains software parameters for a PCM device.
type sndPcmSwParams struct {
	TstampMode       int32
	PeriodStep       uint32
	SleepMin         uint32
	_                [4]byte
	AvailMin         sndPcmUframesT
	XferAlign        sndPcmUframesT
	StartThreshold   sndPcmUframesT
	StopThreshold    sndPcmUframesT
	SilenceThreshold sndPcmUframesT
	SilenceSize      sndPcmUframesT
	Boundary         sndPcmUframesT
	Proto            uint32
	TstampType       uint32
	Reserved         [56]byte
}

// sndPcmMmapStatus is the status half of sndPcmSyncPtr.
type sndPcmMmapStatus struct {
	State          int32
	Pad1           int32
	HwPtr          sndPcmUframesT
	Tstamp         unix.Timespec
	SuspendedState int32
	_              [4]byte
	AudioTstamp    unix.Timespec
}

// sndPcmMmapControl is the control half of sndPcmSyncPtr.
type sndPcmMmapControl struct {
	ApplPtr  sndPcmUframesT
	AvailMin sndPcmUframesT
}

// sndPcmSyncPtr is the argument of the SYNC_PTR ioctl. Both unions are 64 bytes.
type sndPcmSyncPtr struct {
	Flags uint32
	_     [4]byte
	S     struct {
		sndPcmMmapStatus
		_ [8]byte
	}
	C struct {
		sndPcmMmapControl
		_ [48]byte
	}
}

// sndCtlElemValue holds the value of a control element. The value union is long[128].
type sndCtlElemValue struct {
	Id       sndCtlElemId
	_        [8]byte
	Value    [128]clong
	Reserved [128]byte
}

// sndCtlElemList is used to enumerate control elements.
type sndCtlElemList struct {
	Offset   uint32
	Space    uint32
	Used     uint32
	Count    uint32
	Pids     uintptr
	Reserved [50]byte
}
