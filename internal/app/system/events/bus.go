// internal/app/system/events/bus.go
package events

import (
	"context"
	"errors"
	"sync"
)

var ErrBusFull = errors.New("event bus is full")

// Bus is an in-process transport backed by a buffered channel. Events are
// lost on restart; use AMQP where that matters.
type Bus struct {
	mu     sync.RWMutex
	ch     chan Event
	closed bool
}

// NewBus returns a bus holding up to size undelivered events.
func NewBus(size int) *Bus {
	if size <= 0 {
		size = 256
	}
	return &Bus{ch: make(chan Event, size)}
}

// Publish enqueues e without blocking.
func (b *Bus) Publish(_ context.Context, e Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	select {
	case b.ch <- e:
		return nil
	default:
		return ErrBusFull
	}
}

// Subscribe returns a channel of queued events. Ack and Nack are no-ops.
// Only one subscriber should be active.
func (b *Bus) Subscribe(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-b.ch:
				if !ok {
					return
				}
				msg := Message{
					Event: e,
					Ack:   func() error { return nil },
					Nack:  func(bool) error { return nil },
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Check returns ErrClosed after Close and ErrBusFull while the queue is
// at capacity.
func (b *Bus) Check() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	if len(b.ch) == cap(b.ch) {
		return ErrBusFull
	}
	return nil
}

// Close stops accepting events and ends subscriptions once drained.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.ch)
	}
	return nil
}
