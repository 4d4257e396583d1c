// Package push tracks live client connections and delivers events to them.
//
// A Registry maps each user to at most one Channel. The Dispatcher encodes
// events as server-sent-event frames and hands them to the registry. Delivery
// is at-most-once: a channel that cannot take a frame immediately is treated
// as gone and removed.
package push

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrChannelClosed = errors.New("push: channel closed")
	ErrChannelFull   = errors.New("push: channel full")
)

// Channel is one live connection able to accept encoded frames.
type Channel interface {
	ID() string
	// Send queues frame without blocking. It fails when the channel is
	// closed or cannot take the frame right now.
	Send(frame []byte) error
	// Close is idempotent.
	Close() error
}

// compile-time check that *SSEChannel implements Channel
var _ Channel = (*SSEChannel)(nil)

// SSEChannel is the Channel behind one GET /api/sse/{userId} request.
// The handler goroutine drains Frames and writes them to the response;
// everybody else only ever calls Send or Close.
type SSEChannel struct {
	id     string
	frames chan []byte
	done   chan struct{}
	closed bool
	mu     sync.RWMutex
}

// NewSSEChannel creates a channel holding at most queueSize undelivered
// frames. A minimum of 1 is enforced.
func NewSSEChannel(queueSize int) *SSEChannel {
	return &SSEChannel{
		id:     uuid.NewString(),
		frames: make(chan []byte, max(queueSize, 1)),
		done:   make(chan struct{}),
	}
}

func (c *SSEChannel) ID() string {
	return c.id
}

func (c *SSEChannel) Send(frame []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrChannelClosed
	}

	select {
	case c.frames <- frame:
		return nil
	default:
		return ErrChannelFull
	}
}

func (c *SSEChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

// Frames yields queued frames in order. It is never closed; select on Done
// as well.
func (c *SSEChannel) Frames() <-chan []byte {
	return c.frames
}

// Done is closed once the channel has been closed.
func (c *SSEChannel) Done() <-chan struct{} {
	return c.done
}
