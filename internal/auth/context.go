package auth

import (
	"context"
	"errors"

	"github.com/volaticloud/pulse/internal/jwks"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

const userContextKey contextKey = "user"

// UserContext is the authenticated caller extracted from a verified
// bearer token, stored in the request context by Middleware.
type UserContext = jwks.Claims

// SetUserContext stores user information in the context.
func SetUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// GetUserContext retrieves user information from the context.
// Returns an error if no user context is found (unauthenticated request).
func GetUserContext(ctx context.Context) (*UserContext, error) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	if !ok || user == nil {
		return nil, errors.New("no user context found - request is not authenticated")
	}
	return user, nil
}

// MustGetUserContext retrieves user information from the context.
// Panics if no user context is found.
func MustGetUserContext(ctx context.Context) *UserContext {
	user, err := GetUserContext(ctx)
	if err != nil {
		panic("MustGetUserContext called on unauthenticated request")
	}
	return user
}
