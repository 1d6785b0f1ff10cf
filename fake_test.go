package alsasink

import (
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sys/unix"
)

// fakeDevice is a Device whose readiness is driven by pipes. A byte written with ready makes
// the next poll report writable; closing the write end with hangup reports a hangup. A second
// pipe carries volume events.
type fakeDevice struct {
	mu sync.Mutex

	readyR, readyW   int
	volumeR, volumeW int
	ndesc            int

	requested Params
	params    Params
	adjust    func(*Params)
	setErr    error
	getErr    error

	startErr   error
	stopErr    error
	writeLimit int
	writeErr   error
	writes     []int
	written    chan int

	starts, stops, closes int

	volumeCb   func(uint32)
	setVolumes []uint32
	pendingVol []uint32
}

func newFakeDevice(t *testing.T) *fakeDevice {
	t.Helper()

	var rp, vp [2]int
	if err := unix.Pipe2(rp[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		t.Fatal(err)
	}
	if err := unix.Pipe2(vp[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		t.Fatal(err)
	}

	d := &fakeDevice{
		readyR: rp[0], readyW: rp[1],
		volumeR: vp[0], volumeW: vp[1],
		ndesc:   2,
		written: make(chan int, 1024),
	}

	t.Cleanup(d.closeFds)

	return d
}

func (d *fakeDevice) closeFds() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, fd := range []*int{&d.readyR, &d.readyW, &d.volumeR, &d.volumeW} {
		if *fd >= 0 {
			_ = unix.Close(*fd)
			*fd = -1
		}
	}
}

func (d *fakeDevice) opener(name string) (Device, error) {
	return d, nil
}

// ready makes the device writable once.
func (d *fakeDevice) ready() {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, _ = unix.Write(d.readyW, []byte{1})
}

// hangup closes the readiness pipe's write end.
func (d *fakeDevice) hangup() {
	d.mu.Lock()
	defer d.mu.Unlock()

	_ = unix.Close(d.readyW)
	d.readyW = -1
}

// changeVolume simulates a volume change made outside the process.
func (d *fakeDevice) changeVolume(raw uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pendingVol = append(d.pendingVol, raw)
	_, _ = unix.Write(d.volumeW, []byte{1})
}

func (d *fakeDevice) counts() (starts, stops, closes int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.starts, d.stops, d.closes
}

func (d *fakeDevice) SetParams(p Params) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.requested = p
	if d.setErr != nil {
		return d.setErr
	}

	if p.BufferFrames == 0 {
		p.BufferFrames = 1024
	}
	if d.adjust != nil {
		d.adjust(&p)
	}
	d.params = p

	return nil
}

func (d *fakeDevice) Params() (Params, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.params, d.getErr
}

func (d *fakeDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.startErr != nil {
		return d.startErr
	}
	d.starts++

	return nil
}

func (d *fakeDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopErr != nil {
		return d.stopErr
	}
	d.stops++

	return nil
}

func (d *fakeDevice) Write(b []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := len(b)
	if d.writeLimit > 0 && n > d.writeLimit {
		n = d.writeLimit
	}
	if d.writeErr != nil {
		n = 0
	}

	d.writes = append(d.writes, n)
	select {
	case d.written <- n:
	default:
	}

	return n, d.writeErr
}

func (d *fakeDevice) NumDescriptors() int {
	return d.ndesc
}

func (d *fakeDevice) PollDescriptors(fds []unix.PollFd, events Events) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	fds[0] = unix.PollFd{Fd: int32(d.readyR), Events: unix.POLLIN}
	if d.ndesc > 1 {
		fds[1] = unix.PollFd{Fd: int32(d.volumeR), Events: unix.POLLIN}
	}

	return d.ndesc
}

func (d *fakeDevice) Revents(fds []unix.PollFd) Events {
	var ev Events

	re := fds[0].Revents
	if re&unix.POLLIN != 0 {
		var b [1]byte
		_, _ = unix.Read(d.readyR, b[:])
		ev |= EventWritable
	}
	if re&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
		ev |= EventHangup
	}

	if d.ndesc > 1 && fds[1].Revents&unix.POLLIN != 0 {
		var b [16]byte
		_, _ = unix.Read(d.volumeR, b[:])

		d.mu.Lock()
		vols, cb := d.pendingVol, d.volumeCb
		d.pendingVol = nil
		d.mu.Unlock()

		for _, v := range vols {
			if cb != nil {
				cb(v)
			}
		}
	}

	return ev
}

func (d *fakeDevice) OnVolume(fn func(raw uint32)) {
	d.mu.Lock()
	d.volumeCb = fn
	d.mu.Unlock()

	fn(MaxDeviceVolume)
}

func (d *fakeDevice) SetVolume(raw uint32) error {
	d.mu.Lock()
	d.setVolumes = append(d.setVolumes, raw)
	cb := d.volumeCb
	d.mu.Unlock()

	if cb != nil {
		cb(raw)
	}

	return nil
}

func (d *fakeDevice) volumesSet() []uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]uint32(nil), d.setVolumes...)
}

func (d *fakeDevice) Description() string {
	return "Fake Device"
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closes++
	if d.closes > 1 {
		return errors.New("fake device closed twice")
	}

	return nil
}

func observedLogger() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core).Sugar(), logs
}
