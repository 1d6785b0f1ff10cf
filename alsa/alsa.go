//go:build linux && (amd64 || arm64)

// Package alsa is the playback backend of alsasink. It drives /dev/snd PCM and control
// devices directly through the kernel ioctl interface, without the alsa-lib plugin layer.
package alsa

// PcmFormat is a sample format as defined by the SNDRV_PCM_FORMAT_* kernel constants.
type PcmFormat int32

const (
	SNDRV_PCM_FORMAT_INVALID  PcmFormat = -1
	SNDRV_PCM_FORMAT_S8       PcmFormat = 0
	SNDRV_PCM_FORMAT_U8       PcmFormat = 1
	SNDRV_PCM_FORMAT_S16_LE   PcmFormat = 2
	SNDRV_PCM_FORMAT_S16_BE   PcmFormat = 3
	SNDRV_PCM_FORMAT_S24_LE   PcmFormat = 6
	SNDRV_PCM_FORMAT_S24_BE   PcmFormat = 7
	SNDRV_PCM_FORMAT_S32_LE   PcmFormat = 10
	SNDRV_PCM_FORMAT_S32_BE   PcmFormat = 11
	SNDRV_PCM_FORMAT_FLOAT_LE PcmFormat = 14
	SNDRV_PCM_FORMAT_FLOAT_BE PcmFormat = 15
	SNDRV_PCM_FORMAT_MU_LAW   PcmFormat = 20
	SNDRV_PCM_FORMAT_A_LAW    PcmFormat = 21
	SNDRV_PCM_FORMAT_S24_3LE  PcmFormat = 32
	SNDRV_PCM_FORMAT_S24_3BE  PcmFormat = 33
)

var pcmFormatNames = map[PcmFormat]string{
	SNDRV_PCM_FORMAT_S8:       "S8",
	SNDRV_PCM_FORMAT_U8:       "U8",
	SNDRV_PCM_FORMAT_S16_LE:   "S16_LE",
	SNDRV_PCM_FORMAT_S16_BE:   "S16_BE",
	SNDRV_PCM_FORMAT_S24_LE:   "S24_LE",
	SNDRV_PCM_FORMAT_S24_BE:   "S24_BE",
	SNDRV_PCM_FORMAT_S32_LE:   "S32_LE",
	SNDRV_PCM_FORMAT_S32_BE:   "S32_BE",
	SNDRV_PCM_FORMAT_FLOAT_LE: "FLOAT_LE",
	SNDRV_PCM_FORMAT_FLOAT_BE: "FLOAT_BE",
	SNDRV_PCM_FORMAT_MU_LAW:   "MU_LAW",
	SNDRV_PCM_FORMAT_A_LAW:    "A_LAW",
	SNDRV_PCM_FORMAT_S24_3LE:  "S24_3LE",
	SNDRV_PCM_FORMAT_S24_3BE:  "S24_3BE",
}

// String returns the kernel name of the format.
func (f PcmFormat) String() string {
	if name, ok := pcmFormatNames[f]; ok {
		return name
	}

	return "INVALID"
}

// PhysicalBits returns the storage size of one sample in bits, so 24-bit samples in 32-bit
// containers return 32.
func (f PcmFormat) PhysicalBits() uint32 {
	switch f {
	case SNDRV_PCM_FORMAT_S32_LE, SNDRV_PCM_FORMAT_S32_BE, SNDRV_PCM_FORMAT_FLOAT_LE, SNDRV_PCM_FORMAT_FLOAT_BE,
		SNDRV_PCM_FORMAT_S24_LE, SNDRV_PCM_FORMAT_S24_BE:
		return 32
	case SNDRV_PCM_FORMAT_S24_3LE, SNDRV_PCM_FORMAT_S24_3BE:
		return 24
	case SNDRV_PCM_FORMAT_S16_LE, SNDRV_PCM_FORMAT_S16_BE:
		return 16
	case SNDRV_PCM_FORMAT_S8, SNDRV_PCM_FORMAT_U8, SNDRV_PCM_FORMAT_MU_LAW, SNDRV_PCM_FORMAT_A_LAW:
		return 8
	default:
		return 0
	}
}

// PcmState is the state of a PCM stream as defined by the SNDRV_PCM_STATE_* constants.
type PcmState int32

const (
	SNDRV_PCM_STATE_OPEN         PcmState = 0 // Stream is open.
	SNDRV_PCM_STATE_SETUP        PcmState = 1 // Stream has a setup.
	SNDRV_PCM_STATE_PREPARED     PcmState = 2 // Stream is ready to start.
	SNDRV_PCM_STATE_RUNNING      PcmState = 3 // Stream is running.
	SNDRV_PCM_STATE_XRUN         PcmState = 4 // Stream reached an underrun.
	SNDRV_PCM_STATE_DRAINING     PcmState = 5 // Stream is draining.
	SNDRV_PCM_STATE_PAUSED       PcmState = 6 // Stream is paused.
	SNDRV_PCM_STATE_SUSPENDED    PcmState = 7 // Hardware is suspended.
	SNDRV_PCM_STATE_DISCONNECTED PcmState = 8 // Hardware is disconnected.
)

var pcmStateNames = []string{"OPEN", "SETUP", "PREPARED", "RUNNING", "XRUN", "DRAINING", "PAUSED", "SUSPENDED", "DISCONNECTED"}

// String returns the kernel name of the state.
func (s PcmState) String() string {
	if s >= 0 && int(s) < len(pcmStateNames) {
		return pcmStateNames[s]
	}

	return "UNKNOWN"
}

// MixerCtlType is the value type of a mixer control.
type MixerCtlType int32

const (
	SNDRV_CTL_ELEM_TYPE_NONE       MixerCtlType = 0
	SNDRV_CTL_ELEM_TYPE_BOOLEAN    MixerCtlType = 1
	SNDRV_CTL_ELEM_TYPE_INTEGER    MixerCtlType = 2
	SNDRV_CTL_ELEM_TYPE_ENUMERATED MixerCtlType = 3
	SNDRV_CTL_ELEM_TYPE_BYTES      MixerCtlType = 4
	SNDRV_CTL_ELEM_TYPE_IEC958     MixerCtlType = 5
	SNDRV_CTL_ELEM_TYPE_INTEGER64  MixerCtlType = 6
)

// CtlAccessFlag holds the access permissions of a mixer control.
type CtlAccessFlag uint32

const (
	SNDRV_CTL_ELEM_ACCESS_READ  CtlAccessFlag = 1 << 0
	SNDRV_CTL_ELEM_ACCESS_WRITE CtlAccessFlag = 1 << 1
)

// Flags of snd_interval.
const (
	SNDRV_PCM_INTERVAL_OPENMIN = 1 << 0
	SNDRV_PCM_INTERVAL_OPENMAX = 1 << 1
	SNDRV_PCM_INTERVAL_INTEGER = 1 << 2
	SNDRV_PCM_INTERVAL_EMPTY   = 1 << 3
)

const (
	SNDRV_PCM_SYNC_PTR_HWSYNC    = 1 << 0
	SNDRV_PCM_SYNC_PTR_APPL      = 1 << 1
	SNDRV_PCM_SYNC_PTR_AVAIL_MIN = 1 << 2
)

const (
	SNDRV_PCM_ACCESS_RW_INTERLEAVED = 3
	SNDRV_PCM_SUBFORMAT_STD         = 0
	SNDRV_PCM_TSTAMP_ENABLE         = 1
)

// MixerEventType is the mask of a control element event.
type MixerEventType uint32

const (
	SNDRV_CTL_EVENT_ELEM = 0

	SNDRV_CTL_EVENT_MASK_VALUE  MixerEventType = 1 << 0
	SNDRV_CTL_EVENT_MASK_INFO   MixerEventType = 1 << 1
	SNDRV_CTL_EVENT_MASK_ADD    MixerEventType = 1 << 2
	SNDRV_CTL_EVENT_MASK_REMOVE MixerEventType = ^MixerEventType(0)
)

// MixerEvent is a notification from the control interface.
type MixerEvent struct {
	Type      MixerEventType
	ControlID uint32 // numid of the control that changed.
}

// PcmParam identifies a hardware parameter, as defined by the SNDRV_PCM_HW_PARAM_* constants.
type PcmParam int

const (
	SNDRV_PCM_HW_PARAM_ACCESS       PcmParam = 0
	SNDRV_PCM_HW_PARAM_FORMAT       PcmParam = 1
	SNDRV_PCM_HW_PARAM_SUBFORMAT    PcmParam = 2
	SNDRV_PCM_HW_PARAM_SAMPLE_BITS  PcmParam = 8
	SNDRV_PCM_HW_PARAM_FRAME_BITS   PcmParam = 9
	SNDRV_PCM_HW_PARAM_CHANNELS     PcmParam = 10
	SNDRV_PCM_HW_PARAM_RATE         PcmParam = 11
	SNDRV_PCM_HW_PARAM_PERIOD_TIME  PcmParam = 12
	SNDRV_PCM_HW_PARAM_PERIOD_SIZE  PcmParam = 13
	SNDRV_PCM_HW_PARAM_PERIOD_BYTES PcmParam = 14
	SNDRV_PCM_HW_PARAM_PERIODS      PcmParam = 15
	SNDRV_PCM_HW_PARAM_BUFFER_TIME  PcmParam = 16
	SNDRV_PCM_HW_PARAM_BUFFER_SIZE  PcmParam = 17
	SNDRV_PCM_HW_PARAM_BUFFER_BYTES PcmParam = 18
	SNDRV_PCM_HW_PARAM_TICK_TIME    PcmParam = 19
)
