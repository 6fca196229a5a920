// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/scorekeep/internal/adapters/catalog"
	"github.com/okian/scorekeep/internal/adapters/repository"
	service "github.com/okian/scorekeep/internal/app"
	"github.com/okian/scorekeep/internal/app/live"
	"github.com/okian/scorekeep/internal/domain/model"
	"github.com/okian/scorekeep/internal/domain/submission"
	"github.com/okian/scorekeep/internal/domain/types"
	"github.com/okian/scorekeep/internal/identity"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Submit(ctx context.Context, owner identity.Identity, req types.SubmitRequest) (types.SubmitResponse, error)
	Delete(ctx context.Context, owner identity.Identity, recordID string) error
	Scores(ctx context.Context, owner identity.Identity) (types.ScoresView, error)

	// View and Release bracket a live subscription.
	View(ctx context.Context, owner identity.Identity) (*live.View, error)
	Release(owner identity.Identity)
	Render(snap live.Snapshot) types.ScoresView

	Catalog(ctx context.Context, query string) []model.GameCatalogEntry
}

// Authenticator attaches the caller's identity to the request context.
type Authenticator interface {
	Middleware(next http.Handler) http.Handler
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	catalogHandler *CatalogHandler
	scoresHandler  *ScoresHandler
	liveHandler    *LiveHandler

	auth    Authenticator
	limiter *RateLimiter
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, auth Authenticator, limiter *RateLimiter) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		catalogHandler: NewCatalogHandler(deps),
		scoresHandler:  NewScoresHandler(deps),
		liveHandler:    NewLiveHandler(deps),
		auth:           auth,
		limiter:        limiter,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /catalog", MetricsMiddleware(s.catalogHandler.HandleGetCatalog, "catalog"))

	submit := http.Handler(http.HandlerFunc(s.scoresHandler.HandlePostScore))
	if s.limiter != nil {
		submit = s.limiter.Handler(submit)
	}
	mux.Handle("POST /scores", s.owned(submit, "scores"))
	mux.Handle("GET /scores", s.owned(http.HandlerFunc(s.scoresHandler.HandleGetScores), "scores"))
	mux.Handle("DELETE /scores/{id}", s.owned(http.HandlerFunc(s.scoresHandler.HandleDeleteScore), "scores"))
	mux.Handle("GET /scores/live", s.owned(http.HandlerFunc(s.liveHandler.HandleLive), "live"))
}

// owned authenticates, rejects anonymous callers and records metrics.
func (s *Server) owned(next http.Handler, endpoint string) http.Handler {
	h := RequireOwner(next)
	if s.auth != nil {
		h = s.auth.Middleware(h)
	}
	return MetricsMiddleware(h.ServeHTTP, endpoint)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps a service error to its status and stable code.
func writeFailure(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := service.Outcome(err)
	switch {
	case submission.IsValidation(err):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, identity.ErrNotAuthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, repository.ErrPersistence):
		status = http.StatusBadGateway
	case errors.Is(err, catalog.ErrCatalogUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, service.ErrDuplicateInFlight):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidRecordID), errors.Is(err, ErrBadRequest):
		status, code = http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, ErrRateLimited):
		status, code = http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, live.ErrClosed):
		status, code = http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		status, code = http.StatusGatewayTimeout, "timeout"
	}
	writeError(w, status, code, err)
}
