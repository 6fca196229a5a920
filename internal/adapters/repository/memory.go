package repository

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/scorekeep/internal/domain/model"
	"github.com/okian/scorekeep/pkg/logger"
)

// MemoryStore keeps records in process. Keys are UUIDv7 strings, so key
// order is creation order.
type MemoryStore struct {
	mu     sync.Mutex
	owners map[string]map[string]json.RawMessage
	closed bool

	hub    *hub
	logger logger.Logger
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	l := o.logger
	if l == nil {
		l = logger.Get().Named("memory-store")
	}
	return &MemoryStore{
		owners: make(map[string]map[string]json.RawMessage),
		hub:    newHub("memory", o.notifyBuffer),
		logger: l,
	}
}

// Subscribe implements Store.
func (s *MemoryStore) Subscribe(ctx context.Context, ownerID string, onChange func(Snapshot)) (Unsubscribe, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrInvalidOwner
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, persistErr("subscribe", ErrClosed)
	}
	return s.hub.add(ctx, ownerID, s.snapshotLocked(ownerID), onChange), nil
}

// Write implements Store.
func (s *MemoryStore) Write(ctx context.Context, ownerID string, payload model.Payload) (string, error) {
	if strings.TrimSpace(ownerID) == "" {
		return "", ErrInvalidOwner
	}
	doc, err := json.Marshal(payload)
	if err != nil {
		return "", persistErr("write", err)
	}
	key, err := uuid.NewV7()
	if err != nil {
		return "", persistErr("write", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", persistErr("write", ErrClosed)
	}
	if s.owners[ownerID] == nil {
		s.owners[ownerID] = make(map[string]json.RawMessage)
	}
	s.owners[ownerID][key.String()] = doc
	s.hub.publish(ctx, ownerID, s.snapshotLocked(ownerID))

	s.logger.Debug(ctx, "record written", logger.String("owner", ownerID), logger.String("id", key.String()))
	return key.String(), nil
}

// put stores a raw document under key, bypassing payload encoding, so
// documents that do not decode can be loaded too.
func (s *MemoryStore) put(ctx context.Context, ownerID, key string, raw json.RawMessage) error {
	if strings.TrimSpace(ownerID) == "" {
		return ErrInvalidOwner
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return persistErr("put", ErrClosed)
	}
	if s.owners[ownerID] == nil {
		s.owners[ownerID] = make(map[string]json.RawMessage)
	}
	s.owners[ownerID][key] = append(json.RawMessage(nil), raw...)
	s.hub.publish(ctx, ownerID, s.snapshotLocked(ownerID))
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, ownerID, recordID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return ErrInvalidOwner
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return persistErr("delete", ErrClosed)
	}
	records := s.owners[ownerID]
	if _, ok := records[recordID]; !ok {
		return nil
	}
	delete(records, recordID)
	if len(records) == 0 {
		delete(s.owners, ownerID)
	}
	s.hub.publish(ctx, ownerID, s.snapshotLocked(ownerID))
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.hub.closeAll()
	return nil
}

func (s *MemoryStore) count(ownerID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.owners[ownerID])
}

func (s *MemoryStore) snapshotLocked(ownerID string) Snapshot {
	records := s.owners[ownerID]
	if len(records) == 0 {
		return nil
	}
	out := make(Snapshot, 0, len(records))
	for k, raw := range records {
		out = append(out, Entry{Key: k, Raw: raw})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
