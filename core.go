package alsasink

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
)

const coreQueueSize = 16

// Core loads modules and services their requests to be unloaded.
type Core struct {
	log   *zap.SugaredLogger
	open  Opener
	queue *AsyncMsgQ

	// DefaultSpec and DefaultMap apply to module arguments left unset.
	DefaultSpec SampleSpec
	DefaultMap  ChannelMap

	mu      sync.Mutex
	modules []*Module
}

// NewCore returns a core that opens devices with open.
func NewCore(open Opener, logger *zap.SugaredLogger) (*Core, error) {
	if open == nil {
		return nil, fmt.Errorf("%w: no device opener", ErrInvalidConfig)
	}

	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	q, err := NewAsyncMsgQ(coreQueueSize)
	if err != nil {
		return nil, fmt.Errorf("create core queue: %w", err)
	}

	return &Core{
		log:         logger.Named("core"),
		open:        open,
		queue:       q,
		DefaultSpec: SampleSpec{Format: SampleS16LE, Rate: 44100, Channels: 2},
		DefaultMap:  DefaultChannelMap(2),
	}, nil
}

// Load creates a module from cfg. On failure everything acquired so far is released.
func (c *Core) Load(cfg Config) (*Module, error) {
	m := &Module{
		log:    c.log.Named("module"),
		core:   c,
		config: cfg,
		volume: newVolumeBridge(),
		poll:   NewPoll(),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}

	inq, err := NewAsyncMsgQ(moduleQueueSize)
	if err != nil {
		return nil, fmt.Errorf("create module queue: %w", err)
	}
	m.inq = inq

	if err := m.load(cfg); err != nil {
		if cerr := m.Close(); cerr != nil {
			c.log.Warnw("Cleanup after failed load", "error", cerr)
		}
		return nil, err
	}

	c.mu.Lock()
	c.modules = append(c.modules, m)
	c.mu.Unlock()

	return m, nil
}

// Unload closes m.
func (c *Core) Unload(m *Module) error {
	return m.Close()
}

// Modules returns the loaded modules.
func (c *Core) Modules() []*Module {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.modules)
}

func (c *Core) forget(m *Module) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.modules = slices.DeleteFunc(c.modules, func(it *Module) bool { return it == m })
}

// ProcessMessage handles requests posted by module I/O goroutines.
func (c *Core) ProcessMessage(code MessageCode, data any, _ int64) (any, error) {
	switch code {
	case CoreMessageUnloadModule:
		m, ok := data.(*Module)
		if !ok {
			return nil, fmt.Errorf("%w: %s carries %T", ErrUnknownMessage, code, data)
		}
		c.log.Infow("Unloading module on request", "device", m.config.Device)
		err := c.Unload(m)
		if err != nil {
			c.log.Warnw("Unload finished with errors", "error", err)
		}
		return nil, err
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownMessage, code)
}

// Run services the core queue until ctx is done, then unloads every module.
func (c *Core) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return errors.Join(ctx.Err(), c.unloadAll())
		case msg := <-c.queue.C():
			c.queue.Drain()
			c.queue.Dispatch(msg)
		}
	}
}

func (c *Core) unloadAll() error {
	var errs []error
	for _, m := range c.Modules() {
		errs = append(errs, c.Unload(m))
	}

	return errors.Join(errs...)
}

// Close unloads every module and closes the core queue.
func (c *Core) Close() error {
	err := c.unloadAll()

	return errors.Join(err, c.queue.Close())
}
