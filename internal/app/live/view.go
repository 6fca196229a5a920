// Package live keeps an owner's record list and statistics current by
// recomputing them from every full snapshot the record store pushes.
package live

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/scorekeep/internal/adapters/repository"
	"github.com/okian/scorekeep/internal/domain/model"
	"github.com/okian/scorekeep/internal/domain/stats"
	"github.com/okian/scorekeep/internal/identity"
	"github.com/okian/scorekeep/pkg/logger"
	"github.com/okian/scorekeep/pkg/metrics"
)

// Snapshot pairs a record list with the statistics computed from exactly
// that list. Version increases with every published snapshot.
type Snapshot struct {
	Records    []model.ScoreRecord `json:"records"`
	Statistics model.Statistics    `json:"statistics"`
	Version    uint64              `json:"version"`
}

// View is a live, per-owner aggregation. The store subscription is the
// only thing that changes what it publishes.
type View struct {
	store repository.Store
	owner identity.Identity

	mu       sync.RWMutex
	current  Snapshot
	started  bool
	closed   bool
	unsub    repository.Unsubscribe
	watchers map[uint64]chan Snapshot
	nextID   uint64
	done     chan struct{}
	ready    chan struct{}

	logger logger.Logger
}

// New creates a view for owner. Nothing is subscribed until Start.
func New(store repository.Store, owner identity.Identity, opts ...Option) *View {
	v := &View{
		store:    store,
		owner:    owner,
		current:  Snapshot{Records: []model.ScoreRecord{}},
		watchers: make(map[uint64]chan Snapshot),
		done:     make(chan struct{}),
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = logger.Get().Named("live")
	}
	v.logger = v.logger.With(logger.String("owner", owner.OwnerID))
	return v
}

// Start subscribes to the owner's records.
func (v *View) Start(ctx context.Context) error {
	if err := identity.Require(v.owner); err != nil {
		return err
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	if v.started {
		v.mu.Unlock()
		return ErrAlreadyStarted
	}
	v.started = true
	v.mu.Unlock()

	unsub, err := v.store.Subscribe(ctx, v.owner.OwnerID, v.apply)
	if err != nil {
		v.mu.Lock()
		v.started = false
		v.mu.Unlock()
		v.logger.Error(ctx, "subscribe failed", logger.Error(err))
		return fmt.Errorf("subscribe: %w", err)
	}

	v.mu.Lock()
	if v.closed {
		// Closed while subscribing.
		v.mu.Unlock()
		unsub()
		return ErrClosed
	}
	v.unsub = unsub
	v.mu.Unlock()

	metrics.AddActiveViews(1)
	v.logger.Debug(ctx, "live view started")
	return nil
}

// apply is the subscription callback: decode, order, aggregate, publish.
func (v *View) apply(raw repository.Snapshot) {
	start := time.Now()
	ctx := context.Background()

	records, skipped := decode(raw)
	for _, key := range skipped {
		metrics.RecordMalformedRecord()
		v.logger.Warn(ctx, "skipping malformed record", logger.String("id", key))
	}
	sortByDateDesc(records)
	summary := stats.Aggregate(records)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.current = Snapshot{
		Records:    records,
		Statistics: summary,
		Version:    v.current.Version + 1,
	}
	if v.current.Version == 1 {
		close(v.ready)
	}
	for _, ch := range v.watchers {
		offer(ch, v.current)
	}
	metrics.RecordRecompute(float64(time.Since(start).Microseconds()) / 1000)
}

// offer replaces whatever the watcher has not read yet with s.
func offer(ch chan Snapshot, s Snapshot) {
	select {
	case <-ch:
	default:
	}
	ch <- s
}

// Snapshot returns the latest published snapshot. Before the first
// delivery it is empty with Version 0. Callers must not modify Records.
func (v *View) Snapshot() Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current
}

// Ready waits for the first snapshot delivered by the store and returns the
// latest one.
func (v *View) Ready(ctx context.Context) (Snapshot, error) {
	select {
	case <-v.ready:
		return v.Snapshot(), nil
	case <-v.done:
		return Snapshot{}, ErrClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Watch returns a channel that receives the latest snapshot, starting with
// the current one. A slow reader only misses intermediate snapshots. The
// channel is closed when ctx is done or the view is closed.
func (v *View) Watch(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		close(ch)
		return ch
	}
	v.nextID++
	id := v.nextID
	v.watchers[id] = ch
	ch <- v.current
	v.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-v.done:
			return
		}
		v.mu.Lock()
		defer v.mu.Unlock()
		if w, ok := v.watchers[id]; ok {
			delete(v.watchers, id)
			close(w)
		}
	}()
	return ch
}

// Close tears down the subscription. It is idempotent and no snapshot is
// published after it returns.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	close(v.done)
	unsub := v.unsub
	v.unsub = nil
	for id, ch := range v.watchers {
		delete(v.watchers, id)
		close(ch)
	}
	v.mu.Unlock()

	if unsub != nil {
		unsub()
		metrics.AddActiveViews(-1)
		v.logger.Debug(context.Background(), "live view closed")
	}
}

// Done is closed once the view is closed.
func (v *View) Done() <-chan struct{} { return v.done }

// Owner returns the identity the view aggregates for.
func (v *View) Owner() identity.Identity { return v.owner }
