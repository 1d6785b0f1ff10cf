package alsasink

import (
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sys/unix"
)

// PollItem is a group of descriptor slots owned by one user of a Poll.
type PollItem struct {
	poll *Poll
	fds  []unix.PollFd
}

// Fds returns the item's slots. Callers fill Fd and Events before Run and read Revents after.
func (i *PollItem) Fds() []unix.PollFd {
	return i.fds
}

// Free removes the item from its poll set.
func (i *PollItem) Free() {
	if i == nil || i.poll == nil {
		return
	}

	p := i.poll
	p.items = slices.DeleteFunc(p.items, func(it *PollItem) bool { return it == i })
	i.poll = nil
}

// Poll is a set of descriptor slots plus an optional message queue, waited on together.
// It is used from a single goroutine.
type Poll struct {
	items []*PollItem
	queue *AsyncMsgQ
	fds   []unix.PollFd
	quit  bool
}

// NewPoll returns an empty poll set.
func NewPoll() *Poll {
	return &Poll{}
}

// NewItem adds an item with n slots.
func (p *Poll) NewItem(n int) (*PollItem, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: poll item needs at least one slot, got %d", ErrInvalidConfig, n)
	}

	item := &PollItem{poll: p, fds: make([]unix.PollFd, n)}
	for j := range item.fds {
		item.fds[j].Fd = -1
	}
	p.items = append(p.items, item)

	return item, nil
}

// InstallQueue makes Run wait on q and process its messages.
func (p *Poll) InstallQueue(q *AsyncMsgQ) {
	p.queue = q
}

// Quit makes the next Run return without waiting.
func (p *Poll) Quit() {
	p.quit = true
}

// Run processes queued messages, waits without timeout until a slot or the queue is ready,
// copies the results back into the items and processes messages again. It returns false once
// a shutdown message has been received.
func (p *Poll) Run() (bool, error) {
	if p.processMessages(); p.quit {
		return false, nil
	}

	p.fds = p.fds[:0]
	for _, item := range p.items {
		p.fds = append(p.fds, item.fds...)
	}

	qi := -1
	if p.queue != nil {
		qi = len(p.fds)
		p.fds = append(p.fds, unix.PollFd{Fd: int32(p.queue.Fd()), Events: unix.POLLIN})
	}

	for {
		_, err := unix.Poll(p.fds, -1)
		if err == nil {
			break
		}
		if !errors.Is(err, unix.EINTR) {
			return true, fmt.Errorf("%w: %w", ErrPollFailure, err)
		}
	}

	off := 0
	for _, item := range p.items {
		for j := range item.fds {
			item.fds[j].Revents = p.fds[off+j].Revents
		}
		off += len(item.fds)
	}

	if qi >= 0 {
		re := p.fds[qi].Revents
		if re&(unix.POLLERR|unix.POLLNVAL) != 0 {
			return true, fmt.Errorf("%w: message queue descriptor error", ErrPollFailure)
		}
		if re&unix.POLLIN != 0 {
			p.processMessages()
		}
	}

	return !p.quit, nil
}

func (p *Poll) processMessages() {
	if p.queue == nil {
		return
	}

	p.queue.Drain()
	for {
		m, ok := p.queue.Get()
		if !ok {
			return
		}

		if m.Object == nil && m.Code == MessageShutdown {
			p.quit = true
			p.queue.Done(m, nil, nil)
			return
		}

		p.queue.Dispatch(m)
	}
}
