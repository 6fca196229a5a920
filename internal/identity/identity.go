// Package identity carries the authenticated owner explicitly through every
// owner-scoped operation instead of reading it from ambient state.
package identity

import (
	"context"
	"strings"
)

// Identity names the owner partition an operation reads or writes.
type Identity struct {
	OwnerID string
}

// New returns an Identity for ownerID with surrounding whitespace removed.
func New(ownerID string) Identity {
	return Identity{OwnerID: strings.TrimSpace(ownerID)}
}

// IsZero reports whether no owner is established.
func (i Identity) IsZero() bool { return i.OwnerID == "" }

// Require returns ErrNotAuthenticated when no owner is established.
func Require(i Identity) error {
	if i.IsZero() {
		return ErrNotAuthenticated
	}
	return nil
}

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity attached by WithIdentity, or the zero
// Identity when there is none.
func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(ctxKey{}).(Identity)
	return id
}
