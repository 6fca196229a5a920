package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted        = errors.New("service not started")
	ErrInvalidRecordID   = errors.New("record id is required")
	ErrDuplicateInFlight = errors.New("a submission with this idempotency key is still in progress")
)
