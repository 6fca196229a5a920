package seed

import "time"

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Secret     string        // Shared token secret of the service
	Issuer     string        // Token issuer expected by the service
	Owner      string        // Owner the scores are written for
	NumScores  int           // Number of scores to submit
	Workers    int           // Number of concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	MaxRetries uint          // Attempts per request on 429 or 5xx
	OutputFile string        // Optional JSON dump of submitted scores
	Seed       uint64        // Random seed; 0 picks one from the clock
}

// Score is one submission sent to POST /scores.
type Score struct {
	GameID         string `json:"game_id"`
	Game           string `json:"-"`
	Score          int    `json:"score"`
	Date           string `json:"date"`
	IdempotencyKey string `json:"-"`
}

// Stats holds run statistics.
type Stats struct {
	Generated      int
	Created        int
	Duplicate      int
	Failed         int
	GamesBefore    int
	GamesAfter     int
	HighestAfter   int
	MostPlayedGame string
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}
