// Package worker drains a mailbox on a dedicated goroutine and hands each
// item to a handler, one at a time and in arrival order.
package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/scorekeep/pkg/logger"
)

// Queue defines how the dispatcher receives items.
type Queue[T any] interface {
	Dequeue(ctx context.Context) (T, bool)
}

// Handler consumes one item.
type Handler[T any] func(ctx context.Context, item T)

// Dispatcher invokes its handler sequentially for every dequeued item.
type Dispatcher[T any] struct {
	queue   Queue[T]
	handler Handler[T]
	name    string

	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// New creates a dispatcher with configuration options.
func New[T any](q Queue[T], h Handler[T], opts ...Option) *Dispatcher[T] {
	cfg := options{name: "dispatcher"}
	for _, opt := range opts {
		opt(&cfg)
	}
	l := cfg.logger
	if l == nil {
		l = logger.Get().Named("worker")
	}
	return &Dispatcher[T]{
		queue:    q,
		handler:  h,
		name:     cfg.name,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   l.Named(cfg.name),
	}
}

// Start runs the dispatcher on its own goroutine.
func (d *Dispatcher[T]) Start(ctx context.Context) {
	go d.Run(ctx)
}

// Run processes items until ctx is canceled, Stop is called, or the queue
// is closed and drained.
func (d *Dispatcher[T]) Run(ctx context.Context) {
	defer close(d.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-d.shutdown:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		item, ok := d.queue.Dequeue(ctx)
		if !ok || d.stopped() {
			return
		}
		d.invoke(ctx, item)
	}
}

func (d *Dispatcher[T]) stopped() bool {
	select {
	case <-d.shutdown:
		return true
	default:
		return false
	}
}

func (d *Dispatcher[T]) invoke(ctx context.Context, item T) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error(ctx, "handler panicked", logger.Any("panic", r))
		}
	}()
	d.handler(ctx, item)
}

// Stop signals the dispatcher to exit without waiting. No item is handed to
// the handler once Stop returns, except one that is already in flight.
func (d *Dispatcher[T]) Stop() {
	d.stopOnce.Do(func() { close(d.shutdown) })
}

// Shutdown stops the dispatcher and waits for it to exit.
func (d *Dispatcher[T]) Shutdown(ctx context.Context) error {
	d.Stop()
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		d.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
