package seed

import "os"

// ShowHelp prints usage information for the seed tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`scorekeep seed tool
===================

Posts random scores for one owner through the scorekeep HTTP API and checks
that the owner's statistics grew by the number of created records.

Usage:
  go run ./cmd/seed [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -secret string
        Token secret shared with the service (default $SCOREKEEP_AUTH_SECRET)
  -issuer string
        Token issuer expected by the service (default "scorekeep")
  -owner string
        Owner id the scores are written for (default "seed-user")
  -scores int
        Number of scores to submit (default 50)
  -workers int
        Number of concurrent submitters (default 4)
  -timeout duration
        HTTP request timeout (default 10s)
  -retries uint
        Attempts per request on 429 or 5xx (default 8)
  -seed uint
        Random seed, 0 for time based (default 0)
  -output string
        Write the submitted scores to this JSON file
  -help
        Show this help message

Examples:
  SCOREKEEP_AUTH_SECRET=dev go run ./cmd/seed -scores 200
  go run ./cmd/seed -secret dev -owner alice -seed 42 -output alice.json
`)
}
