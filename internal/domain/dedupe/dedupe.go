// Package dedupe tracks idempotency keys so a retried submission returns the
// record created by the first attempt instead of writing a second one.
package dedupe

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Default deduper configuration constants.
const (
	defaultMaxSize = 50_000
)

// Deduper remembers, per owner, which idempotency keys produced which record.
type Deduper interface {
	// Reserve atomically claims key for owner. When the key was already
	// claimed it returns seen=true and the record id stored by Complete,
	// which is empty while the first attempt is still in flight.
	Reserve(ctx context.Context, ownerID, key string) (recordID string, seen bool)

	// Complete attaches the created record id to a reserved key.
	Complete(ctx context.Context, ownerID, key, recordID string)

	// Unrecord releases a reservation whose write failed, so the key can
	// be retried.
	Unrecord(ctx context.Context, ownerID, key string)

	Size() int
}

// lruDeduper bounds memory by evicting the least recently used keys.
type lruDeduper struct {
	cache *lru.Cache[string, string]
}

// NewInMemoryDeduper creates a deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) (Deduper, error) {
	c := config{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(&c)
	}
	cache, err := lru.New[string, string](c.maxSize)
	if err != nil {
		return nil, err
	}
	return &lruDeduper{cache: cache}, nil
}

func compose(ownerID, key string) string {
	return ownerID + "\x00" + key
}

// Reserve implements Deduper.
func (d *lruDeduper) Reserve(_ context.Context, ownerID, key string) (string, bool) {
	prev, seen, _ := d.cache.PeekOrAdd(compose(ownerID, key), "")
	return prev, seen
}

// Complete implements Deduper.
func (d *lruDeduper) Complete(_ context.Context, ownerID, key, recordID string) {
	d.cache.Add(compose(ownerID, key), recordID)
}

// Unrecord implements Deduper.
func (d *lruDeduper) Unrecord(_ context.Context, ownerID, key string) {
	d.cache.Remove(compose(ownerID, key))
}

// Size returns the number of tracked keys.
func (d *lruDeduper) Size() int {
	return d.cache.Len()
}
