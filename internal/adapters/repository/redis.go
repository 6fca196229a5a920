package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/okian/scorekeep/internal/domain/model"
	"github.com/okian/scorekeep/pkg/logger"
	"github.com/okian/scorekeep/pkg/metrics"
)

// RedisStore keeps each owner's records in one hash and announces changes on
// a per-owner channel. Subscribers reload the hash on every announcement, so
// several processes can share one Redis and still see each other's writes.
type RedisStore struct {
	client     redis.UniversalClient
	ownsClient bool
	prefix     string
	maxRetries uint

	mu     sync.Mutex
	closed bool
	subs   map[uint64]context.CancelFunc
	nextID uint64

	logger logger.Logger
}

var _ Store = (*RedisStore)(nil)

// deleteScript removes one field and announces it in the same atomic step.
// Nothing is published when the field was already absent.
var deleteScript = redis.NewScript(`
if redis.call("HDEL", KEYS[1], ARGV[1]) == 1 then
	redis.call("PUBLISH", KEYS[2], ARGV[1])
	return 1
end
return 0
`)

// OpenRedis dials addr and verifies the connection.
func OpenRedis(ctx context.Context, ro *redis.Options, opts ...Option) (*RedisStore, error) {
	client := redis.NewClient(ro)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	s := NewRedisStore(client, opts...)
	s.ownsClient = true
	return s, nil
}

// NewRedisStore wraps an existing client. The caller keeps ownership of it.
func NewRedisStore(client redis.UniversalClient, opts ...Option) *RedisStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	l := o.logger
	if l == nil {
		l = logger.Get().Named("redis-store")
	}
	return &RedisStore{
		client:     client,
		prefix:     o.keyPrefix,
		maxRetries: o.maxRetries,
		subs:       make(map[uint64]context.CancelFunc),
		logger:     l,
	}
}

func (s *RedisStore) recordsKey(ownerID string) string {
	return s.prefix + "users:" + ownerID + ":scores"
}

func (s *RedisStore) changesChannel(ownerID string) string {
	return s.recordsKey(ownerID) + ":changed"
}

// Subscribe implements Store.
func (s *RedisStore) Subscribe(ctx context.Context, ownerID string, onChange func(Snapshot)) (Unsubscribe, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrInvalidOwner
	}
	if s.isClosed() {
		return nil, persistErr("subscribe", ErrClosed)
	}

	// Listen before the first load so no change between the two is missed.
	ps := s.client.Subscribe(ctx, s.changesChannel(ownerID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		metrics.RecordSubscriptionError("redis")
		return nil, persistErr("subscribe", err)
	}
	initial, err := s.load(ctx, ownerID)
	if err != nil {
		_ = ps.Close()
		metrics.RecordSubscriptionError("redis")
		return nil, persistErr("subscribe", err)
	}

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		_ = ps.Close()
		return nil, persistErr("subscribe", ErrClosed)
	}
	s.nextID++
	id := s.nextID
	s.subs[id] = cancel
	s.mu.Unlock()

	go s.listen(subCtx, ps, ownerID, initial, onChange)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			cancel()
		})
	}, nil
}

func (s *RedisStore) listen(ctx context.Context, ps *redis.PubSub, ownerID string, initial Snapshot, onChange func(Snapshot)) {
	defer func() { _ = ps.Close() }()

	deliver := func(snap Snapshot) {
		if ctx.Err() != nil {
			return
		}
		metrics.RecordNotification()
		onChange(snap)
	}
	deliver(initial)

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			// Every reload reads the whole hash, so queued announcements
			// are already covered by it.
			drain(ch)
			snap, err := s.reload(ctx, ownerID)
			if err != nil {
				if ctx.Err() == nil {
					metrics.RecordSubscriptionError("redis")
					s.logger.Error(ctx, "reload after change failed", logger.String("owner", ownerID), logger.Error(err))
				}
				continue
			}
			deliver(snap)
		}
	}
}

func drain(ch <-chan *redis.Message) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (s *RedisStore) reload(ctx context.Context, ownerID string) (Snapshot, error) {
	return backoff.Retry(ctx, func() (Snapshot, error) {
		snap, err := s.load(ctx, ownerID)
		if err != nil && ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return snap, err
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(s.maxRetries))
}

// Write implements Store.
func (s *RedisStore) Write(ctx context.Context, ownerID string, payload model.Payload) (string, error) {
	if strings.TrimSpace(ownerID) == "" {
		return "", ErrInvalidOwner
	}
	if s.isClosed() {
		return "", persistErr("write", ErrClosed)
	}
	doc, err := json.Marshal(payload)
	if err != nil {
		return "", persistErr("write", err)
	}
	key, err := uuid.NewV7()
	if err != nil {
		return "", persistErr("write", err)
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, s.recordsKey(ownerID), key.String(), doc)
		p.Publish(ctx, s.changesChannel(ownerID), key.String())
		return nil
	})
	if err != nil {
		return "", persistErr("write", err)
	}
	return key.String(), nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, ownerID, recordID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return ErrInvalidOwner
	}
	if s.isClosed() {
		return persistErr("delete", ErrClosed)
	}
	err := deleteScript.Run(ctx, s.client,
		[]string{s.recordsKey(ownerID), s.changesChannel(ownerID)}, recordID).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return persistErr("delete", err)
	}
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, cancel := range subs {
		cancel()
	}
	if s.ownsClient {
		return s.client.Close()
	}
	return nil
}

func (s *RedisStore) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *RedisStore) load(ctx context.Context, ownerID string) (Snapshot, error) {
	fields, err := s.client.HGetAll(ctx, s.recordsKey(ownerID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load records: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	out := make(Snapshot, 0, len(fields))
	for k, v := range fields {
		out = append(out, Entry{Key: k, Raw: json.RawMessage(v)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
