// Package queue provides the ordered mailbox that carries store
// notifications to a single subscriber.
//
// Every notification is a full snapshot, so when a slow subscriber lets the
// mailbox fill up the oldest pending item is dropped: the newest snapshot
// supersedes it and delivery order is preserved.
package queue

import (
	"context"
	"sync"
)

// Default queue configuration constants.
const (
	defaultCapacity = 64
)

// Queue is a bounded FIFO with drop-oldest overflow.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	closed   bool
	ready    chan struct{}
	onDrop   func()
}

// New creates a queue with configuration options.
func New[T any](opts ...Option) *Queue[T] {
	c := config{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(&c)
	}
	return &Queue[T]{
		items:    make([]T, 0, c.capacity),
		capacity: c.capacity,
		ready:    make(chan struct{}, 1),
		onDrop:   c.onDrop,
	}
}

// Enqueue appends v. It returns false only when the queue is closed.
func (q *Queue[T]) Enqueue(_ context.Context, v T) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	if len(q.items) >= q.capacity {
		var zero T
		q.items[0] = zero
		q.items = q.items[1:]
		if q.onDrop != nil {
			q.onDrop()
		}
	}
	q.items = append(q.items, v)
	select {
	case q.ready <- struct{}{}:
	default:
	}
	q.mu.Unlock()
	return true
}

// Dequeue blocks until an item is available. ok is false once the queue is
// closed and drained, or ctx is done.
func (q *Queue[T]) Dequeue(ctx context.Context) (v T, ok bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			v = q.items[0]
			var zero T
			q.items[0] = zero
			q.items = q.items[1:]
			q.mu.Unlock()
			return v, true
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return v, false
		}

		select {
		case <-ctx.Done():
			return v, false
		case <-q.ready:
		}
	}
}

func (q *Queue[T]) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops accepting items and wakes blocked consumers. Pending items
// can still be drained.
func (q *Queue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.ready)
	return nil
}

// Discard closes the queue and drops anything still pending.
func (q *Queue[T]) Discard() {
	_ = q.Close()
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}

func (q *Queue[T]) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
