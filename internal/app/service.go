// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/okian/scorekeep/internal/adapters/catalog"
	"github.com/okian/scorekeep/internal/adapters/repository"
	"github.com/okian/scorekeep/internal/app/live"
	"github.com/okian/scorekeep/internal/domain/dedupe"
	"github.com/okian/scorekeep/internal/domain/display"
	"github.com/okian/scorekeep/internal/domain/model"
	"github.com/okian/scorekeep/internal/domain/submission"
	"github.com/okian/scorekeep/internal/domain/types"
	"github.com/okian/scorekeep/internal/identity"
	"github.com/okian/scorekeep/pkg/logger"
	"github.com/okian/scorekeep/pkg/metrics"
)

// Service implements the API dependencies for score tracking.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	catalog   catalog.Source
	validator *submission.Validator
	deduper   dedupe.Deduper
	formatter display.Formatter

	// Live views shared by every reader of the same owner.
	views map[string]*viewRef

	// Configuration
	storeKind  string
	dedupeSize int
	locale     string
	clock      func() time.Time

	// State
	started bool

	// Logging
	logger logger.Logger
}

type viewRef struct {
	view *live.View
	refs int
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStoreKind labels the store in stats output.
func WithStoreKind(kind string) Option {
	return func(s *Service) {
		if kind != "" {
			s.storeKind = kind
		}
	}
}

// WithDedupeSize sets how many idempotency keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLocale sets the locale used to render scores and dates.
func WithLocale(locale string) Option {
	return func(s *Service) {
		if locale != "" {
			s.locale = locale
		}
	}
}

// WithClock overrides the time source used to fill missing dates.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service over a record store and a catalog source.
func New(store repository.Store, src catalog.Source, opts ...Option) *Service {
	s := &Service{
		store:      store,
		catalog:    src,
		views:      make(map[string]*viewRef),
		storeKind:  "memory",
		dedupeSize: 50000,
		locale:     display.DefaultLocale,
		clock:      time.Now,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	deduper, err := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	if err != nil {
		return err
	}
	s.deduper = deduper
	s.validator = submission.NewValidator(submission.WithClock(s.clock))
	s.formatter = display.New(s.locale)

	s.started = true
	s.logger.Info(ctx, "score service started",
		logger.String("store", s.storeKind),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.String("locale", s.formatter.Locale()),
	)
	return nil
}

// Stop closes every live view and the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping score service...")

	for owner, ref := range s.views {
		ref.view.Close()
		delete(s.views, owner)
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing store failed", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(context.Background(), "score service stopped")
}

// Submit validates req, writes it and returns the new record id. A repeated
// idempotency key returns the id of the first successful write instead.
func (s *Service) Submit(ctx context.Context, owner identity.Identity, req types.SubmitRequest) (types.SubmitResponse, error) {
	if !s.isStarted() {
		return types.SubmitResponse{}, ErrNotStarted
	}

	entries, err := s.catalog.Fetch(ctx)
	if err != nil {
		metrics.RecordSubmission("catalog_unavailable")
		return types.SubmitResponse{}, err
	}

	payload, err := s.validator.Validate(submission.Candidate{
		Selection: catalog.Lookup(entries, req.GameID),
		Score:     req.Score,
		Date:      req.Date,
	}, owner)
	if err != nil {
		metrics.RecordSubmission(Outcome(err))
		return types.SubmitResponse{}, err
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" {
		if id, seen := s.deduper.Reserve(ctx, owner.OwnerID, key); seen {
			if id == "" {
				return types.SubmitResponse{}, ErrDuplicateInFlight
			}
			metrics.RecordSubmissionDuplicate()
			return types.SubmitResponse{ID: id, Duplicate: true}, nil
		}
	}

	id, err := s.store.Write(ctx, owner.OwnerID, payload)
	if err != nil {
		if key != "" {
			s.deduper.Unrecord(ctx, owner.OwnerID, key)
		}
		metrics.RecordSubmission(Outcome(err))
		s.logger.Error(ctx, "score write failed",
			logger.String("owner", owner.OwnerID),
			logger.Error(err),
		)
		return types.SubmitResponse{}, err
	}
	if key != "" {
		s.deduper.Complete(ctx, owner.OwnerID, key, id)
	}

	metrics.RecordSubmission(metrics.OutcomeSuccess)
	s.logger.Debug(ctx, "score submitted",
		logger.String("owner", owner.OwnerID),
		logger.String("id", id),
		logger.String("game", payload.Game),
		logger.Int("score", payload.Score),
	)
	return types.SubmitResponse{ID: id}, nil
}

// Delete removes one record. Success only means the store acknowledged it;
// live views change when the store notifies them.
func (s *Service) Delete(ctx context.Context, owner identity.Identity, recordID string) error {
	if err := identity.Require(owner); err != nil {
		return err
	}
	if strings.TrimSpace(recordID) == "" {
		return ErrInvalidRecordID
	}
	if err := s.store.Delete(ctx, owner.OwnerID, recordID); err != nil {
		metrics.RecordDeletion(metrics.OutcomeFailure)
		s.logger.Error(ctx, "score delete failed",
			logger.String("owner", owner.OwnerID),
			logger.String("id", recordID),
			logger.Error(err),
		)
		return err
	}
	metrics.RecordDeletion(metrics.OutcomeSuccess)
	return nil
}

// View returns the shared live view for owner, starting it on first use.
// Every successful View must be paired with a Release.
func (s *Service) View(ctx context.Context, owner identity.Identity) (*live.View, error) {
	if err := identity.Require(owner); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	if ref, ok := s.views[owner.OwnerID]; ok {
		ref.refs++
		return ref.view, nil
	}

	v := live.New(s.store, owner, live.WithLogger(s.logger.Named("live")))
	if err := v.Start(ctx); err != nil {
		return nil, err
	}
	s.views[owner.OwnerID] = &viewRef{view: v, refs: 1}
	return v, nil
}

// Release drops one reference to owner's view and closes it after the last.
func (s *Service) Release(owner identity.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := s.views[owner.OwnerID]
	if !ok {
		return
	}
	ref.refs--
	if ref.refs <= 0 {
		ref.view.Close()
		delete(s.views, owner.OwnerID)
	}
}

// Scores returns owner's current records and statistics, rendered.
func (s *Service) Scores(ctx context.Context, owner identity.Identity) (types.ScoresView, error) {
	v, err := s.View(ctx, owner)
	if err != nil {
		return types.ScoresView{}, err
	}
	defer s.Release(owner)

	snap, err := v.Ready(ctx)
	if err != nil {
		return types.ScoresView{}, err
	}
	return s.Render(snap), nil
}

// Render formats a live snapshot for presentation.
func (s *Service) Render(snap live.Snapshot) types.ScoresView {
	s.mu.RLock()
	f := s.formatter
	s.mu.RUnlock()
	return types.ScoresView{
		Records:    f.Records(snap.Records, snap.Statistics.HighestScore),
		Statistics: f.Statistics(snap.Statistics),
		Version:    snap.Version,
		Locale:     f.Locale(),
	}
}

// Catalog returns the catalog entries matching query. An unavailable
// catalog yields an empty list.
func (s *Service) Catalog(ctx context.Context, query string) []model.GameCatalogEntry {
	entries, err := s.catalog.Fetch(ctx)
	if err != nil {
		s.logger.Warn(ctx, "catalog unavailable, serving empty catalog", logger.Error(err))
		return []model.GameCatalogEntry{}
	}
	return catalog.Search(entries, query)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"store":       s.storeKind,
		"dedupeSize":  s.dedupeSize,
		"activeViews": len(s.views),
	}
	if s.started {
		stats["locale"] = s.formatter.Locale()
		stats["dedupeEntries"] = s.deduper.Size()
	}
	if sized, ok := s.catalog.(interface{ Len() int }); ok {
		stats["catalogEntries"] = sized.Len()
	}
	return stats
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Outcome maps an error to the stable label used in metrics and API errors.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, submission.ErrMissingSelection):
		return "missing_selection"
	case errors.Is(err, submission.ErrEmptyScore):
		return "empty_score"
	case errors.Is(err, submission.ErrInvalidScoreFormat):
		return "invalid_score_format"
	case errors.Is(err, submission.ErrScoreOutOfRange):
		return "score_out_of_range"
	case errors.Is(err, identity.ErrNotAuthenticated):
		return "not_authenticated"
	case errors.Is(err, repository.ErrPersistence):
		return "persistence_error"
	case errors.Is(err, catalog.ErrCatalogUnavailable):
		return "catalog_unavailable"
	case errors.Is(err, ErrDuplicateInFlight):
		return "duplicate_in_flight"
	default:
		return metrics.OutcomeFailure
	}
}
