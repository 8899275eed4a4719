// Package http provides HTTP handlers and middleware for the authentication
// endpoints.
package http

import (
	"context"

	authDomain "github.com/allisson/authd/internal/auth/domain"
)

// claimsKey is a context key type for storing verified access token claims.
type claimsKey struct{}

// WithClaims stores verified access token claims in the context. Called by
// the authentication middleware after successful token validation.
func WithClaims(ctx context.Context, claims *authDomain.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// GetClaims retrieves verified access token claims from the context.
// Returns (claims, true) if present, or (nil, false) if no claims were set.
func GetClaims(ctx context.Context) (*authDomain.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*authDomain.Claims)
	return claims, ok
}
