package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/scorekeep/internal/identity"
	"github.com/okian/scorekeep/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// verifyInterval is the pause between statistic reads during verification.
var verifyInterval = 200 * time.Millisecond

// Run mints a token for config.Owner, submits config.NumScores random scores
// and checks the owner's statistics grew accordingly.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	l := logger.Get().Named("seed")

	l.Info(ctx, "starting scorekeep seeding",
		logger.String("baseURL", config.BaseURL),
		logger.String("owner", config.Owner),
		logger.Int("scores", config.NumScores),
		logger.Int("workers", config.Workers))

	issuer, err := identity.NewIssuer(config.Secret, identity.WithIssuerName(config.Issuer))
	if err != nil {
		return stats, fmt.Errorf("create token issuer: %w", err)
	}
	token, err := issuer.Issue(identity.New(config.Owner), TokenTTL)
	if err != nil {
		return stats, fmt.Errorf("issue token: %w", err)
	}
	client := NewClient(config.BaseURL, token, config.Timeout, config.MaxRetries)

	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	games, err := client.Catalog(ctx)
	if err != nil {
		return stats, fmt.Errorf("catalog retrieval failed: %w", err)
	}

	before, err := client.Statistics(ctx)
	if err != nil {
		return stats, fmt.Errorf("baseline statistics failed: %w", err)
	}
	stats.GamesBefore = before.TotalGames

	scores, err := generateScores(ctx, config, games, stats)
	if err != nil {
		return stats, fmt.Errorf("score generation failed: %w", err)
	}

	submitScores(ctx, config, client, scores, stats)

	if err := verifyResults(ctx, client, stats, verifyInterval); err != nil {
		return stats, err
	}

	if config.OutputFile != "" {
		if err := saveScores(config.OutputFile, scores); err != nil {
			l.Warn(ctx, "failed to save scores to file", logger.Error(err))
		} else {
			l.Info(ctx, "scores saved to file", logger.String("filename", config.OutputFile))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// saveScores writes the submitted scores as a JSON array.
func saveScores(filename string, scores []Score) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	type row struct {
		Score
		Game string `json:"game"`
	}
	rows := make([]row, len(scores))
	for i, s := range scores {
		rows[i] = row{Score: s, Game: s.Game}
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal scores: %w", err)
	}
	return os.WriteFile(filename, append(data, '\n'), filePermission)
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, scoresPerSecond float64

	submitted := stats.Created + stats.Duplicate + stats.Failed
	if submitted > 0 {
		successRate = float64(stats.Created) / float64(submitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		scoresPerSecond = float64(submitted) / stats.Duration.Seconds()
	}

	logger.Get().Named("seed").Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("created", stats.Created),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed),
		logger.Int("gamesBefore", stats.GamesBefore),
		logger.Int("gamesAfter", stats.GamesAfter),
		logger.String("mostPlayedGame", stats.MostPlayedGame),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("scoresPerSecond", scoresPerSecond))
}
