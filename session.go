package alsasink

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// DefaultDevice is the device name used when none is configured.
const DefaultDevice = "default"

// Session owns an open device handle together with its negotiated parameters and running flag.
type Session struct {
	log    *zap.SugaredLogger
	name   string
	dev    Device
	params Params

	mu      sync.Mutex
	running bool
}

// OpenSession opens the named device. An empty name selects DefaultDevice.
func OpenSession(open Opener, name string, logger *zap.SugaredLogger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	if name == "" {
		name = DefaultDevice
	}

	dev, err := open(name)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrDeviceOpen, name, err)
	}

	if dev == nil {
		return nil, fmt.Errorf("%w %q", ErrDeviceOpen, name)
	}

	return &Session{log: logger.Named("session"), name: name, dev: dev}, nil
}

// Name returns the device name the session was opened with.
func (s *Session) Name() string {
	return s.name
}

// Description returns the device's own description, or its name.
func (s *Session) Description() string {
	if d, ok := s.dev.(describer); ok {
		if desc := d.Description(); desc != "" {
			return desc
		}
	}

	return s.name
}

// Negotiate requests parameters matching spec and returns what the device accepted. Rate and
// channel count changes are adopted with a warning; any encoding change is an error.
func (s *Session) Negotiate(spec SampleSpec, bufferFrames uint32) (Params, error) {
	want, err := paramsForSpec(spec)
	if err != nil {
		return Params{}, err
	}
	want.BufferFrames = bufferFrames

	if err := s.dev.SetParams(want); err != nil {
		return Params{}, fmt.Errorf("%w: set parameters: %w", ErrParameterNegotiation, err)
	}

	got, err := s.dev.Params()
	if err != nil {
		return Params{}, fmt.Errorf("%w: get parameters: %w", ErrParameterNegotiation, err)
	}

	if !got.sameEncoding(want) {
		return Params{}, fmt.Errorf("%w: requested %s, device chose %s", ErrParameterNegotiation, want, got)
	}

	if got.Rate == 0 || got.Rate > MaxRate || got.Channels == 0 || got.Channels > MaxChannels || got.BufferFrames == 0 {
		return Params{}, fmt.Errorf("%w: device chose unusable %s", ErrParameterNegotiation, got)
	}

	if got.Rate != want.Rate {
		s.log.Warnw("rate changed", "from", want.Rate, "to", got.Rate)
	}

	if got.Channels != want.Channels {
		s.log.Warnw("playback channels changed", "from", want.Channels, "to", got.Channels)
	}

	s.params = got
	s.log.Debugw("Parameters negotiated", "params", got.String())

	return got, nil
}

// Params returns the negotiated parameters.
func (s *Session) Params() Params {
	return s.params
}

// BufferSize returns the device buffer size in bytes.
func (s *Session) BufferSize() int {
	return int(s.params.BufferBytes())
}

// DescriptorCount returns the number of poll slots the device needs.
func (s *Session) DescriptorCount() int {
	return s.dev.NumDescriptors()
}

// PollDescriptors fills fds for the requested events.
func (s *Session) PollDescriptors(fds []unix.PollFd, events Events) int {
	return s.dev.PollDescriptors(fds, events)
}

// Revents decodes poll results.
func (s *Session) Revents(fds []unix.PollFd) Events {
	return s.dev.Revents(fds)
}

// Write writes to the device without blocking.
func (s *Session) Write(b []byte) (int, error) {
	return s.dev.Write(b)
}

// OnVolume registers the device volume callback.
func (s *Session) OnVolume(fn func(raw uint32)) {
	s.dev.OnVolume(fn)
}

// SetVolume sets the raw device volume.
func (s *Session) SetVolume(raw uint32) error {
	return s.dev.SetVolume(raw)
}

// Running reports whether the device has been started.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// Start starts the device unless it is already running.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if err := s.dev.Start(); err != nil {
		return fmt.Errorf("start device: %w", err)
	}

	s.running = true
	s.log.Debug("Device started")

	return nil
}

// Stop stops the device if it is running.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	if err := s.dev.Stop(); err != nil {
		return fmt.Errorf("stop device: %w", err)
	}

	s.running = false
	s.log.Debug("Device stopped")

	return nil
}

// Close releases the device. It is safe to call more than once.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dev == nil {
		return nil
	}

	var errs []error
	if s.running {
		s.running = false
		errs = append(errs, s.dev.Stop())
	}
	errs = append(errs, s.dev.Close())
	s.dev = nil

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close device: %w", err)
	}

	return nil
}
