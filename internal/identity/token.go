package identity

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const bearerPrefix = "bearer "

// Verifier validates HS256 bearer tokens whose subject is the owner id.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// Issuer mints tokens accepted by a Verifier built from the same secret.
type Issuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// TokenOption configures a Verifier or Issuer.
type TokenOption func(*tokenConfig)

type tokenConfig struct {
	issuer string
	now    func() time.Time
}

// WithIssuerName sets the iss claim written by an Issuer and required by a Verifier.
func WithIssuerName(name string) TokenOption {
	return func(c *tokenConfig) { c.issuer = strings.TrimSpace(name) }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) TokenOption {
	return func(c *tokenConfig) {
		if now != nil {
			c.now = now
		}
	}
}

func buildConfig(opts []TokenOption) tokenConfig {
	c := tokenConfig{now: time.Now}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// NewVerifier returns a Verifier for secret.
func NewVerifier(secret string, opts ...TokenOption) (*Verifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrNoSecret
	}
	c := buildConfig(opts)
	return &Verifier{secret: []byte(secret), issuer: c.issuer, now: c.now}, nil
}

// NewIssuer returns an Issuer for secret.
func NewIssuer(secret string, opts ...TokenOption) (*Issuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrNoSecret
	}
	c := buildConfig(opts)
	return &Issuer{secret: []byte(secret), issuer: c.issuer, now: c.now}, nil
}

// Issue signs a token for owner that expires after ttl.
func (i *Issuer) Issue(owner Identity, ttl time.Duration) (string, error) {
	if err := Require(owner); err != nil {
		return "", err
	}
	now := i.now()
	claims := jwt.RegisteredClaims{
		Subject:   owner.OwnerID,
		Issuer:    i.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses token and returns the owner it names.
func (v *Verifier) Verify(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrNotAuthenticated
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("%w: expired", ErrInvalidToken)
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id := New(claims.Subject)
	if id.IsZero() {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return id, nil
}

// Middleware attaches the identity named by a valid Authorization bearer
// token to the request context. Requests without a valid token pass through
// unauthenticated; owner-scoped handlers reject them.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token, ok := BearerToken(r); ok {
			if id, err := v.Verify(token); err == nil {
				r = r.WithContext(WithIdentity(r.Context(), id))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// BearerToken extracts the token from the Authorization header. Browsers
// cannot set headers on websocket upgrades, so the access_token query
// parameter is accepted as a fallback.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) > len(bearerPrefix) && strings.EqualFold(h[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(h[len(bearerPrefix):]), true
	}
	if t := r.URL.Query().Get("access_token"); t != "" {
		return t, true
	}
	return "", false
}
