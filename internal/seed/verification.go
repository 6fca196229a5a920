package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/scorekeep/pkg/logger"
)

// verifyResults polls GET /scores until totalGames reflects every created
// score. Duplicates add nothing.
func verifyResults(ctx context.Context, client *Client, stats *Stats, interval time.Duration) error {
	l := logger.Get().Named("seed")
	want := stats.GamesBefore + stats.Created

	for attempt := 1; attempt <= VerifyAttempts; attempt++ {
		s, err := client.Statistics(ctx)
		if err != nil {
			return fmt.Errorf("read statistics: %w", err)
		}
		stats.GamesAfter = s.TotalGames
		stats.HighestAfter = s.HighestScore
		stats.MostPlayedGame = s.MostPlayedGame

		if s.TotalGames == want {
			l.Info(ctx, "verification passed",
				logger.Int("totalGames", s.TotalGames),
				logger.Int("highestScore", s.HighestScore),
				logger.String("mostPlayedGame", s.MostPlayedGame))
			return nil
		}
		l.Debug(ctx, "statistics not settled yet",
			logger.Int("attempt", attempt),
			logger.Int("totalGames", s.TotalGames),
			logger.Int("want", want))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return fmt.Errorf("%w: totalGames is %d, want %d", ErrVerification, stats.GamesAfter, want)
}
