// Package stats derives summary statistics from a sequence of score records.
//
// Aggregate is a pure, total function: it performs no I/O, never fails and
// returns identical output for identical input.
package stats

import (
	"github.com/okian/scorekeep/internal/domain/model"
)

const meterFull = 100.0

// Aggregate computes Statistics over records in the order given.
//
// TotalScore, HighestScore, AverageScore and TotalGames do not depend on
// order. MostPlayedGame is the title with the strictly greatest count; among
// titles tied for that count, the one seen first in records wins.
func Aggregate(records []model.ScoreRecord) model.Statistics {
	if len(records) == 0 {
		return model.Statistics{}
	}

	var (
		total   int64
		highest = records[0].Score
		counts  = make(map[string]int, len(records))
		order   = make([]string, 0, len(records))
	)
	for _, r := range records {
		total += int64(r.Score)
		if r.Score > highest {
			highest = r.Score
		}
		if _, seen := counts[r.Game]; !seen {
			order = append(order, r.Game)
		}
		counts[r.Game]++
	}

	return model.Statistics{
		TotalScore:     total,
		HighestScore:   highest,
		AverageScore:   float64(total) / float64(len(records)),
		TotalGames:     len(records),
		MostPlayedGame: mostPlayed(order, counts),
	}
}

// mostPlayed walks titles in first-seen order and keeps the first one to
// reach the maximum count.
func mostPlayed(order []string, counts map[string]int) string {
	best, bestCount := "", 0
	for _, title := range order {
		if c := counts[title]; c > bestCount {
			best, bestCount = title, c
		}
	}
	return best
}

// Meter returns score as a percentage of highest, clamped to [0, 100].
// An empty set has no highest score, so the meter is 0.
func Meter(score, highest int) float64 {
	if highest <= 0 || score <= 0 {
		return 0
	}
	pct := float64(score) / float64(highest) * meterFull
	if pct > meterFull {
		return meterFull
	}
	return pct
}
