package alsasink

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type echoObject struct {
	seen []MessageCode
}

func (o *echoObject) ProcessMessage(code MessageCode, data any, offset int64) (any, error) {
	o.seen = append(o.seen, code)
	if code == SinkMessageGetLatency {
		return time.Duration(offset), nil
	}

	return data, nil
}

func readable(t *testing.T, fd int) bool {
	t.Helper()

	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 0)
	require.NoError(t, err)

	return n == 1 && fds[0].Revents&unix.POLLIN != 0
}

func TestAsyncMsgQ(t *testing.T) {
	q, err := NewAsyncMsgQ(4)
	require.NoError(t, err)
	defer q.Close()

	obj := &echoObject{}

	t.Run("Post", func(t *testing.T) {
		assert.False(t, readable(t, q.Fd()))

		require.NoError(t, q.Post(obj, SinkMessageSetVolume, nil, 0))
		assert.True(t, readable(t, q.Fd()))

		q.Drain()
		assert.False(t, readable(t, q.Fd()))

		m, ok := q.Get()
		require.True(t, ok)
		q.Dispatch(m)
		assert.Equal(t, []MessageCode{SinkMessageSetVolume}, obj.seen)

		_, ok = q.Get()
		assert.False(t, ok)
	})

	t.Run("Send", func(t *testing.T) {
		go func() {
			m := <-q.C()
			q.Dispatch(m)
		}()

		data, err := q.Send(obj, SinkMessageGetLatency, nil, int64(time.Millisecond))
		require.NoError(t, err)
		assert.Equal(t, time.Millisecond, data)
		q.Drain()
	})

	t.Run("WaitFor", func(t *testing.T) {
		obj.seen = nil
		done := make(chan struct{})
		go func() {
			q.WaitFor(MessageShutdown)
			close(done)
		}()

		data, err := q.Send(obj, SinkMessageSetState, SinkIdle, 0)
		require.NoError(t, err)
		assert.Equal(t, SinkIdle, data)

		_, err = q.Send(nil, MessageShutdown, nil, 0)
		require.NoError(t, err)

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("WaitFor did not return")
		}
		assert.Equal(t, []MessageCode{SinkMessageSetState}, obj.seen)
		q.Drain()
	})
}

func TestAsyncMsgQClose(t *testing.T) {
	q, err := NewAsyncMsgQ(4)
	require.NoError(t, err)

	require.NoError(t, q.Post(nil, SinkMessageSetState, nil, 0))

	reply := make(chan error, 1)
	m := &Message{Code: SinkMessageGetLatency, reply: make(chan messageReply, 1)}
	q.ch <- m
	go func() { reply <- (<-m.reply).err }()

	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	assert.True(t, errors.Is(<-reply, ErrQueueClosed))
	assert.ErrorIs(t, q.Post(nil, SinkMessageSetState, nil, 0), ErrQueueClosed)

	_, err = q.Send(nil, SinkMessageGetLatency, nil, 0)
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestAsyncMsgQCloseFull(t *testing.T) {
	q, err := NewAsyncMsgQ(1)
	require.NoError(t, err)

	require.NoError(t, q.Post(nil, SinkMessageSetState, nil, 0))

	blocked := make(chan error, 1)
	go func() {
		_, err := q.Send(nil, SinkMessageGetLatency, nil, 0)
		blocked <- err
	}()

	closed := make(chan error, 1)
	go func() {
		time.Sleep(20 * time.Millisecond)
		closed <- q.Close()
	}()

	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked behind a full queue")
	}

	select {
	case err := <-blocked:
		assert.ErrorIs(t, err, ErrQueueClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Send did not return after Close")
	}
}

func TestThreadMQ(t *testing.T) {
	out, err := NewAsyncMsgQ(1)
	require.NoError(t, err)
	defer out.Close()

	mq, err := NewThreadMQ(out, 1)
	require.NoError(t, err)
	assert.Same(t, out, mq.Out)
	assert.NotEqual(t, out.Fd(), mq.In.Fd())

	require.NoError(t, mq.Close())
	assert.ErrorIs(t, mq.In.Post(nil, MessageShutdown, nil, 0), ErrQueueClosed)
	require.NoError(t, out.Post(nil, MessageShutdown, nil, 0))
}
