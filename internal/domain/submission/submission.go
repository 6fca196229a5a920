// Package submission validates and normalizes a candidate score before it is
// handed to the record store.
package submission

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/okian/scorekeep/internal/domain/model"
	"github.com/okian/scorekeep/internal/identity"
)

// Candidate is raw user input for one score.
type Candidate struct {
	// Selection is the chosen catalog entry; nil when nothing was chosen.
	Selection *model.GameCatalogEntry
	// Score is the score exactly as typed.
	Score string
	// Date is stored verbatim; empty means today.
	Date string
}

// Validator turns candidates into persistable payloads.
type Validator struct {
	now func() time.Time
}

// Option applies a configuration option to the Validator.
type Option func(*Validator)

// WithClock sets the time source used to fill an empty date.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// NewValidator creates a Validator.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks c in a fixed order (selection, presence, format, range,
// then owner) and returns the normalized payload. It has no side effects.
func (v *Validator) Validate(c Candidate, owner identity.Identity) (model.Payload, error) {
	if c.Selection == nil || strings.TrimSpace(c.Selection.Title) == "" {
		return model.Payload{}, ErrMissingSelection
	}

	score, err := ParseScore(c.Score)
	if err != nil {
		return model.Payload{}, err
	}

	if err := identity.Require(owner); err != nil {
		return model.Payload{}, err
	}

	date := c.Date
	if strings.TrimSpace(date) == "" {
		date = v.now().Format(model.DateLayout)
	}

	return model.Payload{
		Game:      c.Selection.Title,
		Score:     score,
		Date:      date,
		UserID:    owner.OwnerID,
		GameImage: c.Selection.ImageURI,
	}, nil
}

// ParseScore parses raw score input and enforces the accepted range.
func ParseScore(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrEmptyScore
	}
	if strings.HasPrefix(raw, "+") {
		return 0, ErrInvalidScoreFormat
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, ErrScoreOutOfRange
		}
		return 0, ErrInvalidScoreFormat
	}
	if n < model.MinScore || n > model.MaxScore {
		return 0, ErrScoreOutOfRange
	}
	return n, nil
}
