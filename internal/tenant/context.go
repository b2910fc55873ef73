package tenant

import (
	"context"
	"errors"
)

// ErrNoTenantContext is returned when tenant-scoped work is attempted
// without a bound tenant, or when the database reports a row-level-
// security violation consistent with a missing session setting. It is
// deliberately generic — the caller logs the underlying detail and
// returns this sentinel's message to the client, never leaking query
// or schema detail in the response body.
var ErrNoTenantContext = errors.New("tenant: no tenant bound to this request")

// operatorAuthorizedKey marks a context as explicitly authorized to run
// with the bypass operator role. Only operator-surface middleware sets
// this; WithOperator refuses to run without it.
type operatorAuthorizedKey struct{}

// tenantIDKey carries the resolved tenant_id alongside a context, for
// logging and for callers that need the value without re-deriving it
// from the request.
type tenantIDKey struct{}

// WithOperatorAuthorization marks ctx as authorized to use the operator
// bypass role. Set only by middleware that has independently verified an
// operator-scoped credential (spec.md §4.1's operator role).
func WithOperatorAuthorization(ctx context.Context) context.Context {
	return context.WithValue(ctx, operatorAuthorizedKey{}, true)
}

func isOperatorAuthorized(ctx context.Context) bool {
	v, _ := ctx.Value(operatorAuthorizedKey{}).(bool)
	return v
}

// ErrOperatorNotAuthorized is returned by WithOperator when the context
// was never marked authorized by operator middleware.
var ErrOperatorNotAuthorized = errors.New("tenant: operator role requires explicit authorization")

// withTenantIDValue returns a context carrying tenantID for logging.
func withTenantIDValue(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey{}, tenantID)
}

// TenantIDFromContext returns the tenant_id a prior WithTenant call bound
// to ctx, if any.
func TenantIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(tenantIDKey{}).(string)
	return v, ok
}
