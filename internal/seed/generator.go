package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/scorekeep/internal/domain/model"
	"github.com/okian/scorekeep/pkg/logger"
)

// Generator produces random submissions for catalog games.
type Generator struct {
	rng   *rand.Rand
	games []model.GameCatalogEntry
	now   func() time.Time
}

// NewGenerator creates a generator over games. A zero seed is replaced by
// the current time.
func NewGenerator(games []model.GameCatalogEntry, seed uint64, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	if seed == 0 {
		seed = uint64(now().UnixNano())
	}
	return &Generator{
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), //nolint:gosec // fixtures, not secrets
		games: games,
		now:   now,
	}
}

// Next returns one submission with a score in range and a date within the
// last DateSpreadDays days.
func (g *Generator) Next() Score {
	game := g.games[g.rng.IntN(len(g.games))]
	day := g.now().AddDate(0, 0, -g.rng.IntN(DateSpreadDays))
	return Score{
		GameID:         game.ID,
		Game:           game.Title,
		Score:          g.rng.IntN(model.MaxScore + 1),
		Date:           day.Format(model.DateLayout),
		IdempotencyKey: uuid.NewString(),
	}
}

// generateScores creates n submissions.
func generateScores(ctx context.Context, config *Config, games []model.GameCatalogEntry, stats *Stats) ([]Score, error) {
	if len(games) == 0 {
		return nil, ErrEmptyCatalog
	}
	logger.Get().Info(ctx, "generating scores", logger.Int("numScores", config.NumScores), logger.Int("games", len(games)))

	g := NewGenerator(games, config.Seed, nil)
	scores := make([]Score, config.NumScores)
	for i := range scores {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during generation: %w", err)
		}
		scores[i] = g.Next()
	}

	stats.Generated = len(scores)
	return scores, nil
}
