package seed

import "time"

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	TokenTTL             = time.Hour
	DateSpreadDays       = 30
	VerifyAttempts       = 10
	PercentageMultiplier = 100
)

// Submission outcomes.
const (
	resultCreated   = "created"
	resultDuplicate = "duplicate"
	resultFailed    = "failed"
)
