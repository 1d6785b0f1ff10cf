package alsasink

import "errors"

var (
	// ErrDeviceOpen is returned when the device identifier is invalid or the device is busy or missing.
	ErrDeviceOpen = errors.New("cannot open device")
	// ErrUnsupportedFormat is returned for sample encodings the device path cannot carry.
	ErrUnsupportedFormat = errors.New("unsupported sample format")
	// ErrParameterNegotiation is returned when the device rejects the requested parameters.
	ErrParameterNegotiation = errors.New("parameter negotiation failed")
	// ErrPollFailure is returned when waiting on the poll set fails.
	ErrPollFailure = errors.New("poll failed")
	// ErrDeviceHangup reports that the device connection is gone.
	ErrDeviceHangup = errors.New("device hangup")
	// ErrInvalidConfig is returned for malformed module configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrUnknownMessage is returned by message handlers for codes they do not implement.
	ErrUnknownMessage = errors.New("unknown message")
	// ErrQueueClosed is returned when posting to or waiting on a closed message queue.
	ErrQueueClosed = errors.New("message queue closed")
)
