package alsasink

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jfreymuth/pulse/proto"
	"go.uber.org/zap"
)

const moduleQueueSize = 32

// Module is one loaded sink instance with its device session and I/O goroutine.
type Module struct {
	log    *zap.SugaredLogger
	core   *Core
	config Config

	session  *Session
	volume   *volumeBridge
	sink     *Sink
	inq      *AsyncMsgQ
	poll     *Poll
	item     *PollItem
	pipeline renderPipeline

	started bool
	done    chan struct{}
	closed  chan struct{}

	closeMu   sync.Mutex
	closeOnce sync.Once
}

// Sink returns the module's sink.
func (m *Module) Sink() *Sink {
	return m.sink
}

// Config returns the arguments the module was loaded with.
func (m *Module) Config() Config {
	return m.config
}

// Closed returns a channel closed once the module has been torn down.
func (m *Module) Closed() <-chan struct{} {
	return m.closed
}

func (m *Module) load(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	session, err := OpenSession(m.core.open, cfg.Device, m.log)
	if err != nil {
		m.log.Errorw("Cannot open device", "device", cfg.Device, "error", err)
		return err
	}
	m.session = session

	spec, cmap, err := cfg.SampleSpec(m.core.DefaultSpec, m.core.DefaultMap)
	if err != nil {
		return fmt.Errorf("failed to parse sample specification: %w", err)
	}

	params, err := session.Negotiate(spec, cfg.BufferFrames)
	if err != nil {
		return err
	}

	spec.Rate = params.Rate
	if int(params.Channels) != int(spec.Channels) {
		spec.Channels = uint8(params.Channels)
		cmap = DefaultChannelMap(int(spec.Channels))
		m.log.Warnw("Channel map replaced", "map", cmap.String())
	}

	bufSize := session.BufferSize()
	m.pipeline = renderPipeline{size: bufSize}

	if m.item, err = m.poll.NewItem(session.DescriptorCount()); err != nil {
		return err
	}

	props := proto.PropList{
		PropDeviceString:      proto.PropListString(session.Name()),
		PropDeviceAPI:         proto.PropListString("alsa"),
		PropDeviceDescription: proto.PropListString(session.Description()),
		PropDeviceAccessMode:  proto.PropListString("serial"),
	}

	user, err := ParseProperties(cfg.SinkProperties)
	if err != nil {
		return fmt.Errorf("invalid sink properties: %w", err)
	}
	mergeProperties(props, user)

	name := cfg.SinkName
	if name == "" {
		name = DefaultSinkName
	}

	m.sink, err = NewSink(SinkNewData{
		Name:       name,
		Driver:     "alsasink",
		Spec:       spec,
		ChannelMap: cmap,
		Properties: props,
	}, m.log)
	if err != nil {
		return fmt.Errorf("failed to create sink: %w", err)
	}

	m.sink.SetMessageHandler(m)
	m.sink.SetMessageQueue(m.inq)
	m.sink.SetFixedLatency(spec.BytesToDuration(uint64(bufSize)))

	session.OnVolume(m.volume.onDeviceVolume)
	m.sink.SetVolumeCallbacks(m.deviceVolume, m.setDeviceVolume)
	m.sink.SetVolumeSteps(DeviceVolumeSteps)

	m.log.Infow("Using buffer", "bytes", bufSize, "latency", m.sink.FixedLatency())

	m.started = true
	go m.thread()

	return m.sink.Put()
}

// Close tears the module down in reverse order of construction. It is safe to call more than
// once and on a partially loaded module.
func (m *Module) Close() error {
	m.closeMu.Lock()
	defer m.closeMu.Unlock()

	var errs []error

	if m.sink != nil {
		if err := m.sink.Unlink(); err != nil {
			errs = append(errs, err)
		}
	}

	if m.started {
		if _, err := m.inq.Send(nil, MessageShutdown, nil, 0); err != nil {
			errs = append(errs, fmt.Errorf("stop thread: %w", err))
		}
		<-m.done
		m.started = false
	}

	if m.inq != nil {
		errs = append(errs, m.inq.Close())
	}

	m.pipeline.release()

	if m.item != nil {
		m.item.Free()
		m.item = nil
	}

	if m.session != nil {
		errs = append(errs, m.session.Close())
		m.session = nil
	}

	m.closeOnce.Do(func() {
		m.core.forget(m)
		close(m.closed)
	})

	return errors.Join(errs...)
}
