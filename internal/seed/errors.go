package seed

import "errors"

// Sentinel errors for seeding runs.
var (
	ErrEmptyCatalog   = errors.New("catalog has no games")
	ErrUnexpectedCode = errors.New("unexpected status code")
	ErrVerification   = errors.New("verification failed")
)
