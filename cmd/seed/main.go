package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/scorekeep/internal/seed"
	"github.com/okian/scorekeep/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumScores  = 50
	defaultWorkers    = 4
	defaultTimeout    = 10 * time.Second
	defaultRetries    = 8
	defaultRunTimeout = 5 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		secret     = flag.String("secret", os.Getenv("SCOREKEEP_AUTH_SECRET"), "Token secret shared with the service")
		issuer     = flag.String("issuer", "scorekeep", "Token issuer expected by the service")
		owner      = flag.String("owner", "seed-user", "Owner id the scores are written for")
		numScores  = flag.Int("scores", defaultNumScores, "Number of scores to submit")
		workers    = flag.Int("workers", defaultWorkers, "Number of concurrent submitters")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		retries    = flag.Uint("retries", defaultRetries, "Attempts per request on 429 or 5xx")
		seedValue  = flag.Uint64("seed", 0, "Random seed, 0 for time based")
		outputFile = flag.String("output", "", "Write the submitted scores to this JSON file")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seed.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &seed.Config{
		BaseURL:    *baseURL,
		Secret:     *secret,
		Issuer:     *issuer,
		Owner:      *owner,
		NumScores:  *numScores,
		Workers:    *workers,
		Timeout:    *timeout,
		MaxRetries: *retries,
		OutputFile: *outputFile,
		Seed:       *seedValue,
	}

	if _, err := seed.Run(ctx, config); err != nil {
		logger.Get().Error(ctx, "seeding failed", logger.Error(err))
		os.Exit(1)
	}
}
