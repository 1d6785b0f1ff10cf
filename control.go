package alsasink

import (
	"fmt"
)

// ProcessMessage handles the sink's messages on the I/O goroutine. It drives the device from
// state changes and answers latency queries; everything else falls through to the sink.
func (m *Module) ProcessMessage(code MessageCode, data any, offset int64) (any, error) {
	switch code {
	case SinkMessageGetLatency:
		return m.sink.Spec().BytesToDuration(uint64(m.session.BufferSize())), nil

	case SinkMessageSetState:
		state, ok := data.(SinkState)
		if !ok {
			return nil, fmt.Errorf("%w: %s carries %T", ErrUnknownMessage, code, data)
		}
		if err := m.applyState(state); err != nil {
			return nil, err
		}

	case SinkMessageSetVolume:
		// The loop applies pending volume before its next write.
		return nil, nil
	}

	return m.sink.ProcessMessage(code, data, offset)
}

func (m *Module) applyState(state SinkState) error {
	switch state {
	case SinkSuspended:
		m.log.Debug("Suspending")
		return m.session.Stop()

	case SinkIdle, SinkRunning:
		return m.session.Start()

	default:
		m.log.Debugw("State change ignored", "state", state.String())
	}

	return nil
}

// deviceVolume is the sink's hardware volume getter.
func (m *Module) deviceVolume() ChannelVolumes {
	return m.volume.volume(int(m.sink.Spec().Channels))
}

// setDeviceVolume is the sink's hardware volume setter. It records the request and wakes the
// I/O goroutine, which applies it.
func (m *Module) setDeviceVolume(cv ChannelVolumes) {
	raw := m.volume.request(cv)
	if err := m.inq.Post(m, SinkMessageSetVolume, nil, int64(raw)); err != nil {
		m.log.Warnw("Cannot forward volume", "error", err)
	}
}
