package live

import "errors"

// Sentinel kinds for live view errors.
var (
	ErrClosed         = errors.New("live view is closed")
	ErrAlreadyStarted = errors.New("live view already started")
)
