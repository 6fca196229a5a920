// Package repository defines the record store contract and its memory,
// SQLite and Redis implementations.
package repository

import (
	"context"
	"encoding/json"

	"github.com/okian/scorekeep/internal/domain/model"
)

// Entry is one stored record: its store-assigned key and the raw persisted
// document. Raw is not guaranteed to be well formed.
type Entry struct {
	Key string
	Raw json.RawMessage
}

// Snapshot is the full record set of one owner in ascending key order.
// A nil Snapshot means the owner has no records.
type Snapshot []Entry

// Unsubscribe tears down a subscription. It is safe to call more than once.
type Unsubscribe func()

// Store persists score records per owner and pushes the complete record set
// to subscribers on every change.
type Store interface {
	// Subscribe delivers the current record set once and then again after
	// every change, in order, on a goroutine owned by the store.
	Subscribe(ctx context.Context, ownerID string, onChange func(Snapshot)) (Unsubscribe, error)

	// Write stores payload under a new key and returns that key.
	Write(ctx context.Context, ownerID string, payload model.Payload) (string, error)

	// Delete removes the record with the given key. Removing an absent
	// key succeeds.
	Delete(ctx context.Context, ownerID, recordID string) error

	// Close releases store resources and ends all subscriptions.
	Close() error
}

func clone(s Snapshot) Snapshot {
	if len(s) == 0 {
		return nil
	}
	out := make(Snapshot, len(s))
	copy(out, s)
	return out
}
