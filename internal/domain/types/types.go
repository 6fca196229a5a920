// Package types contains the request and response shapes shared by the
// service and its transports.
package types

import "github.com/okian/scorekeep/internal/domain/display"

// SubmitRequest is a score submission as received from a client. Score is
// kept as text so the validator sees exactly what was typed.
type SubmitRequest struct {
	GameID         string `json:"game_id"`
	Score          string `json:"score"`
	Date           string `json:"date,omitempty"`
	IdempotencyKey string `json:"-"`
}

// SubmitResponse carries the key the store assigned.
type SubmitResponse struct {
	ID        string `json:"id"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// ScoresView is a rendered live snapshot.
type ScoresView struct {
	Records    []display.Record `json:"records"`
	Statistics display.Summary  `json:"statistics"`
	Version    uint64           `json:"version"`
	Locale     string           `json:"locale"`
}
