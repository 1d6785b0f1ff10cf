package alsasink

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jfreymuth/pulse/proto"
	"go.uber.org/zap"
)

// SinkState is the lifecycle state of a sink.
type SinkState int

const (
	SinkInvalid SinkState = iota
	SinkInit
	SinkIdle
	SinkRunning
	SinkSuspended
	SinkUnlinked
)

var sinkStateNames = map[SinkState]string{
	SinkInvalid:   "invalid",
	SinkInit:      "init",
	SinkIdle:      "idle",
	SinkRunning:   "running",
	SinkSuspended: "suspended",
	SinkUnlinked:  "unlinked",
}

// String returns the name of the state.
func (s SinkState) String() string {
	if name, ok := sinkStateNames[s]; ok {
		return name
	}

	return fmt.Sprintf("state(%d)", int(s))
}

// IsOpened reports whether the device should be producing audio in this state.
func (s SinkState) IsOpened() bool {
	return s == SinkIdle || s == SinkRunning
}

// IsLinked reports whether the sink is registered and reachable.
func (s SinkState) IsLinked() bool {
	return s == SinkIdle || s == SinkRunning || s == SinkSuspended
}

// SinkNewData describes a sink to create.
type SinkNewData struct {
	Name       string
	Driver     string
	Spec       SampleSpec
	ChannelMap ChannelMap
	Properties proto.PropList
}

// Sink is the host-side representation of a playback endpoint. State, latency and volume
// requests are forwarded to the I/O goroutine over the sink's message queue.
type Sink struct {
	log        *zap.SugaredLogger
	name       string
	driver     string
	spec       SampleSpec
	channelMap ChannelMap
	props      proto.PropList

	queue        *AsyncMsgQ
	handler      MessageObject
	fixedLatency time.Duration
	volumeSteps  int
	getVolume    func() ChannelVolumes
	setVolume    func(ChannelVolumes)

	mu         sync.Mutex
	state      SinkState
	realVolume ChannelVolumes

	// Owned by the I/O goroutine.
	renderer Renderer

	threadState     atomic.Int32
	rewindRequested atomic.Bool
}

// NewSink creates a sink in the init state rendering silence.
func NewSink(data SinkNewData, logger *zap.SugaredLogger) (*Sink, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	if data.Name == "" {
		return nil, fmt.Errorf("%w: sink name is empty", ErrInvalidConfig)
	}

	if !data.Spec.Valid() {
		return nil, fmt.Errorf("%w: invalid sample spec %s", ErrInvalidConfig, data.Spec)
	}

	if !data.ChannelMap.Compatible(data.Spec) {
		return nil, fmt.Errorf("%w: channel map %s does not match %d channels", ErrInvalidConfig, data.ChannelMap, data.Spec.Channels)
	}

	props := proto.PropList{}
	mergeProperties(props, data.Properties)

	s := &Sink{
		log:         logger.Named("sink"),
		name:        data.Name,
		driver:      data.Driver,
		spec:        data.Spec,
		channelMap:  append(ChannelMap(nil), data.ChannelMap...),
		props:       props,
		state:       SinkInit,
		volumeSteps: int(VolumeNorm) + 1,
		realVolume:  NewChannelVolumes(int(data.Spec.Channels), VolumeNorm),
		renderer:    NewSilenceRenderer(data.Spec),
	}
	s.handler = s
	s.threadState.Store(int32(SinkInit))

	return s, nil
}

// Name returns the sink name.
func (s *Sink) Name() string { return s.name }

// Driver returns the name of the module driving the sink.
func (s *Sink) Driver() string { return s.driver }

// Spec returns the sink's sample spec.
func (s *Sink) Spec() SampleSpec { return s.spec }

// ChannelMap returns a copy of the sink's channel map.
func (s *Sink) ChannelMap() ChannelMap { return append(ChannelMap(nil), s.channelMap...) }

// Properties returns a copy of the sink's property list.
func (s *Sink) Properties() proto.PropList {
	props := proto.PropList{}
	mergeProperties(props, s.props)

	return props
}

// Property returns the string value of a property.
func (s *Sink) Property(key string) string {
	return propString(s.props, key)
}

// FixedLatency returns the latency advertised by the sink.
func (s *Sink) FixedLatency() time.Duration { return s.fixedLatency }

// VolumeSteps returns the number of distinct volume levels the sink supports.
func (s *Sink) VolumeSteps() int { return s.volumeSteps }

// SetMessageQueue sets the queue control requests are sent on.
func (s *Sink) SetMessageQueue(q *AsyncMsgQ) { s.queue = q }

// SetMessageHandler sets the object that receives the sink's messages. Handlers forward codes
// they do not handle to the sink's ProcessMessage.
func (s *Sink) SetMessageHandler(h MessageObject) { s.handler = h }

// SetFixedLatency sets the advertised latency.
func (s *Sink) SetFixedLatency(d time.Duration) { s.fixedLatency = d }

// SetVolumeSteps sets the number of distinct volume levels.
func (s *Sink) SetVolumeSteps(n int) { s.volumeSteps = n }

// SetVolumeCallbacks installs the hardware volume accessors.
func (s *Sink) SetVolumeCallbacks(get func() ChannelVolumes, set func(ChannelVolumes)) {
	s.getVolume, s.setVolume = get, set
}

// State returns the control-side state.
func (s *Sink) State() SinkState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// ThreadState returns the state last applied by the I/O goroutine.
func (s *Sink) ThreadState() SinkState {
	return SinkState(s.threadState.Load())
}

// Put links the sink, moving it to the idle state.
func (s *Sink) Put() error {
	if s.queue == nil {
		return fmt.Errorf("%w: sink %s has no message queue", ErrInvalidConfig, s.name)
	}

	if err := s.SetState(SinkIdle); err != nil {
		return fmt.Errorf("put sink: %w", err)
	}

	s.log.Infow("Sink created", "name", s.name, "spec", s.spec.String(), "map", s.channelMap.String())

	return nil
}

// SetState changes the sink state. The change is applied on the I/O goroutine first and only
// recorded on the control side when that succeeds.
func (s *Sink) SetState(state SinkState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.setStateLocked(state)
}

func (s *Sink) setStateLocked(state SinkState) error {
	if s.state == state {
		return nil
	}

	if s.queue != nil {
		if _, err := s.queue.Send(s.handler, SinkMessageSetState, state, 0); err != nil {
			return fmt.Errorf("set state %s: %w", state, err)
		}
	}

	s.log.Debugw("State changed", "from", s.state.String(), "to", state.String())
	s.state = state

	return nil
}

// Suspend suspends or resumes the sink.
func (s *Sink) Suspend(suspend bool) error {
	if suspend {
		return s.SetState(SinkSuspended)
	}

	return s.SetState(SinkIdle)
}

// Latency queries the current latency from the I/O goroutine.
func (s *Sink) Latency() (time.Duration, error) {
	if s.queue == nil {
		return 0, nil
	}

	data, err := s.queue.Send(s.handler, SinkMessageGetLatency, nil, 0)
	if err != nil {
		return 0, fmt.Errorf("get latency: %w", err)
	}

	d, _ := data.(time.Duration)

	return d, nil
}

// Volume returns the per-channel volume, refreshed from the hardware when possible.
func (s *Sink) Volume() ChannelVolumes {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.getVolume != nil {
		s.realVolume = s.getVolume()
	}

	return append(ChannelVolumes(nil), s.realVolume...)
}

// SetVolume sets the per-channel volume. A single value is applied to every channel.
func (s *Sink) SetVolume(cv ChannelVolumes) error {
	channels := int(s.spec.Channels)
	switch len(cv) {
	case channels:
		cv = append(ChannelVolumes(nil), cv...)
	case 1:
		cv = NewChannelVolumes(channels, cv[0])
	default:
		return fmt.Errorf("%w: %d volumes for %d channels", ErrInvalidConfig, len(cv), channels)
	}

	s.mu.Lock()
	s.realVolume = cv
	set := s.setVolume
	s.mu.Unlock()

	if set != nil {
		set(cv)
	}

	return nil
}

// SetRenderer replaces the audio source. Once linked the swap happens on the I/O goroutine.
func (s *Sink) SetRenderer(r Renderer) error {
	if r == nil {
		r = NewSilenceRenderer(s.spec)
	}

	if s.queue == nil || !s.State().IsLinked() {
		s.renderer = r
		return nil
	}

	if _, err := s.queue.Send(s.handler, SinkMessageSetRenderer, r, 0); err != nil {
		return fmt.Errorf("set renderer: %w", err)
	}

	return nil
}

// RequestRewind asks the I/O goroutine to rewind the renderer before its next write cycle.
func (s *Sink) RequestRewind() {
	s.rewindRequested.Store(true)
}

// RewindRequested reports whether a rewind is pending.
func (s *Sink) RewindRequested() bool {
	return s.rewindRequested.Load()
}

// ProcessRewind services a pending rewind request of nbytes. Called on the I/O goroutine.
func (s *Sink) ProcessRewind(nbytes int) {
	s.rewindRequested.Store(false)

	if rw, ok := s.renderer.(Rewinder); ok && nbytes > 0 {
		rw.Rewind(nbytes)
	}
}

// Render returns exactly length bytes from the renderer, padding with silence or trimming as
// needed. Called on the I/O goroutine.
func (s *Sink) Render(length int) MemChunk {
	c := s.renderer.Render(length)
	if c.Block != nil && c.Length == length {
		return c
	}

	data := make([]byte, length)
	fillSilence(data, s.spec.Format.SilenceByte())
	if c.Block != nil {
		copy(data, c.Bytes())
		c.Release()
	}

	return MemChunk{Block: NewMemblock(data, nil), Length: length}
}

// Unlink detaches the sink. The I/O goroutine is told only if the sink was linked.
func (s *Sink) Unlink() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	linked := s.state.IsLinked()
	if !linked {
		s.state = SinkUnlinked
		return nil
	}

	err := s.setStateLocked(SinkUnlinked)
	s.state = SinkUnlinked

	return err
}

// ProcessMessage is the default handler for sink messages.
func (s *Sink) ProcessMessage(code MessageCode, data any, _ int64) (any, error) {
	switch code {
	case SinkMessageSetState:
		state, ok := data.(SinkState)
		if !ok {
			return nil, fmt.Errorf("%w: %s carries %T", ErrUnknownMessage, code, data)
		}
		s.threadState.Store(int32(state))
		return nil, nil

	case SinkMessageGetLatency:
		return time.Duration(0), nil

	case SinkMessageSetRenderer:
		r, ok := data.(Renderer)
		if !ok {
			return nil, fmt.Errorf("%w: %s carries %T", ErrUnknownMessage, code, data)
		}
		s.renderer = r
		return nil, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownMessage, code)
}
