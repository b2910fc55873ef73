package auth

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/volaticloud/pulse/internal/jwks"
	"github.com/volaticloud/pulse/internal/logger"
)

// Middleware is an HTTP middleware that validates bearer tokens against
// internal/jwks and stores the resulting claims for downstream handlers,
// replacing the teacher's Keycloak-specific AuthMiddleware with one
// backed by the generic jwks.Verifier.
type Middleware struct {
	verifier *jwks.Verifier
	optional bool
}

// NewMiddleware creates a new authentication middleware. When optional
// is true, requests without an Authorization header proceed
// unauthenticated rather than being rejected.
func NewMiddleware(verifier *jwks.Verifier, optional bool) *Middleware {
	return &Middleware{verifier: verifier, optional: optional}
}

// Handler returns the HTTP middleware handler.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			m.unauthorized(w, "missing Authorization header")
			return
		}

		token := extractBearerToken(authHeader)
		if token == "" {
			m.unauthorized(w, "invalid Authorization header format (expected: Bearer <token>)")
			return
		}

		claims, err := m.verifier.Verify(ctx, token)
		if err != nil {
			logger.GetLogger(ctx).Warn("auth: token verification failed", zap.Error(err))
			m.unauthorized(w, "invalid or expired token")
			return
		}

		ctx = SetUserContext(ctx, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(authHeader string) string {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

func (m *Middleware) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error": "` + message + `"}`))
}

// RequireAuth builds a middleware that always requires authentication.
func RequireAuth(verifier *jwks.Verifier) func(http.Handler) http.Handler {
	return NewMiddleware(verifier, false).Handler
}

// OptionalAuth builds a middleware that allows unauthenticated requests
// through with no user context attached.
func OptionalAuth(verifier *jwks.Verifier) func(http.Handler) http.Handler {
	return NewMiddleware(verifier, true).Handler
}
