package identity

import "errors"

// Sentinel errors for identity checks.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrInvalidToken     = errors.New("invalid token")
	ErrNoSecret         = errors.New("token secret is not configured")
)
