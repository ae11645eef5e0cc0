package domain

import (
	"context"
	"time"
)

// Claims is the verified identity carried by a session token.
type Claims struct {
	SubjectID string
	Role      string
	ExpiresAt time.Time
}

type claimsKey struct{}

// WithClaims returns a copy of ctx carrying the verified claims.
func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFromContext returns the claims placed by WithClaims, if any.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(Claims)
	return c, ok
}
