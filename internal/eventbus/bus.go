// Package eventbus provides an in-process fan-out publish/subscribe bus.
package eventbus

import (
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the channel capacity of each subscriber.
const DefaultBuffer = 16

// Bus is a type-safe publish/subscribe bus for events of type T. Delivery is
// non-blocking: a subscriber whose buffer is full misses the event.
type Bus[T any] struct {
	mu      sync.RWMutex
	buffer  int
	subs    []chan T
	closed  bool
	dropped atomic.Uint64
}

// New creates a Bus whose subscribers buffer up to buffer events. A
// non-positive buffer selects DefaultBuffer.
func New[T any](buffer int) *Bus[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus[T]{buffer: buffer}
}

// Publish sends e to every subscriber and returns how many received it.
func (b *Bus[T]) Publish(e T) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0
	}
	delivered := 0
	for _, ch := range b.subs {
		select {
		case ch <- e:
			delivered++
		default:
			b.dropped.Add(1)
		}
	}
	return delivered
}

// Dropped returns the number of deliveries skipped because a subscriber was full.
func (b *Bus[T]) Dropped() uint64 {
	return b.dropped.Load()
}

// Subscribe registers a subscriber. The channel is closed by Unsubscribe or Close.
func (b *Bus[T]) Subscribe() <-chan T {
	ch := make(chan T, b.buffer)
	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subs = append(b.subs, ch)
	}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus[T]) Unsubscribe(sub <-chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, ch := range b.subs {
		if ch == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// Close closes the bus and every subscriber channel. It is safe to call twice.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
