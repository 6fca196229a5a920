package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/scorekeep/internal/domain/model"
	"github.com/okian/scorekeep/pkg/logger"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS score_records (
	owner_id   TEXT    NOT NULL,
	record_id  TEXT    NOT NULL,
	doc        TEXT    NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (owner_id, record_id)
);`

// SQLiteStore persists records in a SQLite file. Subscriptions are served in
// process: every committed change reloads the owner's set and pushes it.
type SQLiteStore struct {
	sqlDB *sql.DB

	// mu orders commit-then-reload so subscribers never see an older set
	// after a newer one.
	mu     sync.Mutex
	closed bool

	hub    *hub
	clock  func() time.Time
	logger logger.Logger
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	l := o.logger
	if l == nil {
		l = logger.Get().Named("sqlite-store")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.ExecContext(ctx, sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{
		sqlDB:  sqlDB,
		hub:    newHub("sqlite", o.notifyBuffer),
		clock:  o.clock,
		logger: l,
	}, nil
}

// Subscribe implements Store.
func (s *SQLiteStore) Subscribe(ctx context.Context, ownerID string, onChange func(Snapshot)) (Unsubscribe, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrInvalidOwner
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, persistErr("subscribe", ErrClosed)
	}
	snap, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, persistErr("subscribe", err)
	}
	return s.hub.add(ctx, ownerID, snap, onChange), nil
}

// Write implements Store.
func (s *SQLiteStore) Write(ctx context.Context, ownerID string, payload model.Payload) (string, error) {
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
	if _, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO score_records (owner_id, record_id, doc, created_at) VALUES (?, ?, ?, ?)`,
		ownerID, key.String(), string(doc), s.clock().UTC().UnixMilli(),
	); err != nil {
		return "", persistErr("write", err)
	}
	s.notifyLocked(ctx, ownerID)
	return key.String(), nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, ownerID, recordID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return ErrInvalidOwner
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return persistErr("delete", ErrClosed)
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM score_records WHERE owner_id = ? AND record_id = ?`, ownerID, recordID)
	if err != nil {
		return persistErr("delete", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil
	}
	s.notifyLocked(ctx, ownerID)
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.hub.closeAll()
	return s.sqlDB.Close()
}

// notifyLocked pushes the committed set to subscribers. A failed reload is
// logged: the write itself already succeeded.
func (s *SQLiteStore) notifyLocked(ctx context.Context, ownerID string) {
	if s.hub.subscribers(ownerID) == 0 {
		return
	}
	snap, err := s.load(context.WithoutCancel(ctx), ownerID)
	if err != nil {
		s.logger.Error(ctx, "reload after change failed", logger.String("owner", ownerID), logger.Error(err))
		return
	}
	s.hub.publish(ctx, ownerID, snap)
}

func (s *SQLiteStore) load(ctx context.Context, ownerID string) (Snapshot, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT record_id, doc FROM score_records WHERE owner_id = ? ORDER BY record_id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out Snapshot
	for rows.Next() {
		var key, doc string
		if err := rows.Scan(&key, &doc); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, Entry{Key: key, Raw: json.RawMessage(doc)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}
