package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/volaticloud/pulse/internal/auth"
	"github.com/volaticloud/pulse/internal/logger"
	"github.com/volaticloud/pulse/internal/tenant"
)

// tenantIDFromRequest reads the caller's tenant_id off the claims
// auth.Middleware attached to the request context. Router guarantees
// every /customer/* route runs behind auth.RequireAuth first, so the
// user context is always present here.
func tenantIDFromRequest(r *http.Request) string {
	user := auth.MustGetUserContext(r.Context())
	return user.TenantID
}

// writeJSON encodes v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeAPIError maps a tenant/database error to an HTTP response, never
// leaking query text or schema detail to the client; the underlying
// error is logged at the point of failure instead.
func writeAPIError(w http.ResponseWriter, r *http.Request, err error) {
	logger.GetLogger(r.Context()).Error("api: request failed", zap.Error(err))

	switch {
	case errors.Is(err, tenant.ErrNoTenantContext):
		http.Error(w, "no tenant bound to this request", http.StatusForbidden)
	case errors.Is(err, tenant.ErrOperatorNotAuthorized):
		http.Error(w, "operator role required", http.StatusForbidden)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// requireOperatorRole rejects requests whose verified claims don't carry
// the operator realm role, and marks the context authorized for
// tenant.WithOperator otherwise. Must run after auth.RequireAuth.
func requireOperatorRole(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := auth.GetUserContext(r.Context())
		if err != nil || !user.IsOperator() {
			http.Error(w, `{"error": "operator role required"}`, http.StatusForbidden)
			return
		}
		ctx := tenant.WithOperatorAuthorization(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
