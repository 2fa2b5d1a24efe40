package registry

import (
	"errors"
	"sync"
)

var (
	// ErrSubscriberClosed is returned when sending to a closed subscriber.
	ErrSubscriberClosed = errors.New("subscriber closed")

	// ErrQueueFull is returned when the subscriber's outbound queue has no room.
	ErrQueueFull = errors.New("subscriber queue full")
)

// DefaultQueueSize bounds a subscriber's outbound queue when no size is given.
const DefaultQueueSize = 16

// Subscriber is one connected listener: a bounded outbound queue plus a
// liveness signal. The queue is never closed; consumers select on Done.
type Subscriber struct {
	id   string
	out  chan []byte
	done chan struct{}
	once sync.Once
}

// NewSubscriber creates an open subscriber with room for queueSize messages.
func NewSubscriber(id string, queueSize int) *Subscriber {
	if queueSize < 1 {
		queueSize = DefaultQueueSize
	}
	return &Subscriber{
		id:   id,
		out:  make(chan []byte, queueSize),
		done: make(chan struct{}),
	}
}

// ID returns the connection handle.
func (s *Subscriber) ID() string { return s.id }

// Send offers msg to the queue without blocking.
func (s *Subscriber) Send(msg []byte) error {
	select {
	case <-s.done:
		return ErrSubscriberClosed
	default:
	}

	select {
	case s.out <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Outbound is drained by the connection writer, in order.
func (s *Subscriber) Outbound() <-chan []byte { return s.out }

// Done is closed once the subscriber is closed.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

// Close marks the subscriber closed. Safe to call more than once.
func (s *Subscriber) Close() {
	s.once.Do(func() { close(s.done) })
}

// IsOpen reports whether Close has not been called yet.
func (s *Subscriber) IsOpen() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}
