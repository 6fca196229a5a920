package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/okian/scorekeep/internal/domain/types"
	"github.com/okian/scorekeep/internal/identity"
)

// Request body limit for submissions.
const maxSubmitBytes = 16 << 10

// ScoresDependencies defines the interface for score operations.
type ScoresDependencies interface {
	Submit(ctx context.Context, owner identity.Identity, req types.SubmitRequest) (types.SubmitResponse, error)
	Delete(ctx context.Context, owner identity.Identity, recordID string) error
	Scores(ctx context.Context, owner identity.Identity) (types.ScoresView, error)
}

// ScoresHandler handles score requests.
type ScoresHandler struct {
	deps ScoresDependencies
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps ScoresDependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

// submitBody accepts the score as a JSON string or number so the validator
// sees what the client typed.
type submitBody struct {
	GameID string          `json:"game_id"`
	Score  json.RawMessage `json:"score"`
	Date   string          `json:"date"`
}

func (b submitBody) scoreText() string {
	raw := strings.TrimSpace(string(b.Score))
	if raw == "" || raw == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(b.Score, &s); err == nil {
		return s
	}
	return raw
}

// HandlePostScore handles POST /scores requests.
func (h *ScoresHandler) HandlePostScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_score"

	var body submitBody
	dec := json.NewDecoder(io.LimitReader(r.Body, maxSubmitBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.Submit(r.Context(), identity.FromContext(r.Context()), types.SubmitRequest{
		GameID:         body.GameID,
		Score:          body.scoreText(),
		Date:           body.Date,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

// HandleGetScores handles GET /scores requests.
func (h *ScoresHandler) HandleGetScores(w http.ResponseWriter, r *http.Request) {
	view, err := h.deps.Scores(r.Context(), identity.FromContext(r.Context()))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleDeleteScore handles DELETE /scores/{id} requests. A 204 means the
// store acknowledged the delete; live views follow on their own.
func (h *ScoresHandler) HandleDeleteScore(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Delete(r.Context(), identity.FromContext(r.Context()), r.PathValue("id")); err != nil {
		writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
