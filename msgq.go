package alsasink

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// MessageCode identifies a message.
type MessageCode int

const (
	// MessageShutdown with a nil object makes the receiving poll loop quit.
	MessageShutdown MessageCode = iota + 1
	SinkMessageGetLatency
	SinkMessageSetState
	SinkMessageSetVolume
	SinkMessageSetRenderer
	CoreMessageUnloadModule
)

var messageCodeNames = map[MessageCode]string{
	MessageShutdown:         "shutdown",
	SinkMessageGetLatency:   "get-latency",
	SinkMessageSetState:     "set-state",
	SinkMessageSetVolume:    "set-volume",
	SinkMessageSetRenderer:  "set-renderer",
	CoreMessageUnloadModule: "unload-module",
}

// String returns the name of the code.
func (c MessageCode) String() string {
	if name, ok := messageCodeNames[c]; ok {
		return name
	}

	return fmt.Sprintf("message(%d)", int(c))
}

// MessageObject handles messages addressed to it.
type MessageObject interface {
	ProcessMessage(code MessageCode, data any, offset int64) (any, error)
}

// Message is a queued request.
type Message struct {
	Object MessageObject
	Code   MessageCode
	Data   any
	Offset int64

	reply chan messageReply
}

type messageReply struct {
	data any
	err  error
}

// AsyncMsgQ is a message queue whose readiness can be waited on with poll. Every posted
// message writes one byte to a non-blocking pipe; the read end is exposed through Fd.
type AsyncMsgQ struct {
	ch     chan *Message
	done   chan struct{}
	mu     sync.RWMutex
	rfd    int
	wfd    int
	closed atomic.Bool
}

// NewAsyncMsgQ returns a queue holding up to size messages before Post blocks.
func NewAsyncMsgQ(size int) (*AsyncMsgQ, error) {
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("create wake-up pipe: %w", err)
	}

	return &AsyncMsgQ{
		ch:   make(chan *Message, size),
		done: make(chan struct{}),
		rfd:  p[0],
		wfd: p[1],
	}, nil
}

// Fd returns the descriptor that becomes readable when messages are queued.
func (q *AsyncMsgQ) Fd() int {
	return q.rfd
}

// C returns the channel messages are delivered on. Consumers that do not poll Fd read from it
// directly and should call Drain afterwards.
func (q *AsyncMsgQ) C() <-chan *Message {
	return q.ch
}

// Post queues a message without waiting for it to be processed.
func (q *AsyncMsgQ) Post(obj MessageObject, code MessageCode, data any, offset int64) error {
	return q.push(&Message{Object: obj, Code: code, Data: data, Offset: offset})
}

// Send queues a message and waits for the consumer's reply.
func (q *AsyncMsgQ) Send(obj MessageObject, code MessageCode, data any, offset int64) (any, error) {
	m := &Message{Object: obj, Code: code, Data: data, Offset: offset, reply: make(chan messageReply, 1)}
	if err := q.push(m); err != nil {
		return nil, err
	}

	r := <-m.reply

	return r.data, r.err
}

func (q *AsyncMsgQ) push(m *Message) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed.Load() {
		return ErrQueueClosed
	}

	select {
	case q.ch <- m:
	case <-q.done:
		return ErrQueueClosed
	}

	_, err := unix.Write(q.wfd, []byte{0})
	if err != nil && !errors.Is(err, unix.EAGAIN) {
		return fmt.Errorf("wake queue: %w", err)
	}

	return nil
}

// Get returns the next message without blocking.
func (q *AsyncMsgQ) Get() (*Message, bool) {
	select {
	case m := <-q.ch:
		return m, true
	default:
		return nil, false
	}
}

// Drain consumes pending wake-up bytes. It must be called before reading messages so that a
// message posted concurrently leaves the descriptor readable.
func (q *AsyncMsgQ) Drain() {
	var buf [64]byte
	for {
		n, err := unix.Read(q.rfd, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// Dispatch hands m to its object and acknowledges it.
func (q *AsyncMsgQ) Dispatch(m *Message) {
	var (
		data any
		err  error
	)

	if m.Object != nil {
		data, err = m.Object.ProcessMessage(m.Code, m.Data, m.Offset)
	}

	q.Done(m, data, err)
}

// Done acknowledges m, waking a sender waiting in Send.
func (q *AsyncMsgQ) Done(m *Message, data any, err error) {
	if m.reply != nil {
		m.reply <- messageReply{data: data, err: err}
	}
}

// WaitFor blocks until a message with code arrives, dispatching and acknowledging every
// message received meanwhile.
func (q *AsyncMsgQ) WaitFor(code MessageCode) {
	for m := range q.ch {
		q.Dispatch(m)
		if m.Code == code {
			return
		}
	}
}

// Close closes the wake-up pipe and fails every queued message with ErrQueueClosed. Posts
// blocked on a full queue return ErrQueueClosed.
func (q *AsyncMsgQ) Close() error {
	if q == nil {
		return nil
	}

	if q.closed.Swap(true) {
		return nil
	}
	close(q.done)

	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		m, ok := q.Get()
		if !ok {
			break
		}
		q.Done(m, nil, ErrQueueClosed)
	}

	return errors.Join(unix.Close(q.rfd), unix.Close(q.wfd))
}

// ThreadMQ pairs the queue a goroutine receives on with the queue it reports to.
type ThreadMQ struct {
	In  *AsyncMsgQ
	Out *AsyncMsgQ
}

// NewThreadMQ creates a receiving queue of size messages that reports to out.
func NewThreadMQ(out *AsyncMsgQ, size int) (*ThreadMQ, error) {
	in, err := NewAsyncMsgQ(size)
	if err != nil {
		return nil, err
	}

	return &ThreadMQ{In: in, Out: out}, nil
}

// Close closes the receiving queue. Out belongs to its creator.
func (t *ThreadMQ) Close() error {
	if t == nil {
		return nil
	}

	return t.In.Close()
}
