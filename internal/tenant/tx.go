package tenant

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/volaticloud/pulse/internal/logger"
	"go.uber.org/zap"
)

// appRole is the Postgres role tenant-scoped connections run as. It must
// own no BYPASSRLS attribute; row-level-security policies apply to it
// unconditionally.
const appRole = "app_role"

// operatorRole is the Postgres role used for operator-surface requests.
// It is granted BYPASSRLS in the migration that creates it, which is why
// WithOperator requires an explicit, middleware-set authorization marker.
const operatorRole = "app_operator"

// WithTenant opens a transaction scoped to tenantID: it sets the session
// role to appRole and binds app.tenant_id via a parameterized
// pg_catalog.set_config call (never string-interpolated into SQL), runs
// fn, and commits or rolls back. Panics inside fn roll back and
// re-propagate, mirroring internal/db's WithTx discipline.
func WithTenant(ctx context.Context, pool *Pool, tenantID string, fn func(ctx context.Context, tx *sql.Tx) error) error {
	if tenantID == "" {
		return ErrNoTenantContext
	}

	tx, err := pool.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("tenant: begin tx: %w", err)
	}

	defer func() {
		if v := recover(); v != nil {
			//nolint:errcheck // rollback on panic is best-effort
			tx.Rollback()
			panic(v)
		}
	}()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET ROLE %s", appRole)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("tenant: set role: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "SELECT pg_catalog.set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("tenant: bind tenant_id: %w", err)
	}

	ctx = withTenantIDValue(ctx, tenantID)

	if err := fn(ctx, tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			logger.GetLogger(ctx).Error("tenant: rollback after fn error failed",
				zap.String("tenant_id", tenantID), zap.Error(rerr))
		}
		return classifyRLSError(err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tenant: commit: %w", err)
	}

	return nil
}

// WithOperator opens a transaction using the bypass operator role. It
// refuses to run unless ctx was marked by WithOperatorAuthorization —
// the one-way gate that keeps tenant-scoped code paths from accidentally
// acquiring cross-tenant access.
func WithOperator(ctx context.Context, pool *Pool, fn func(ctx context.Context, tx *sql.Tx) error) error {
	if !isOperatorAuthorized(ctx) {
		return ErrOperatorNotAuthorized
	}

	tx, err := pool.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("tenant: begin operator tx: %w", err)
	}

	defer func() {
		if v := recover(); v != nil {
			//nolint:errcheck // rollback on panic is best-effort
			tx.Rollback()
			panic(v)
		}
	}()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET ROLE %s", operatorRole)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("tenant: set operator role: %w", err)
	}

	if err := fn(ctx, tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			logger.GetLogger(ctx).Error("tenant: operator rollback after fn error failed", zap.Error(rerr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tenant: operator commit: %w", err)
	}

	return nil
}

// classifyRLSError maps a Postgres row-level-security policy violation
// (raised when app.tenant_id is unset or stale under appRole) to
// ErrNoTenantContext so callers get a stable sentinel regardless of the
// exact wire error text, per spec.md §4.1's failure semantics.
func classifyRLSError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "row-level security policy") {
		return fmt.Errorf("%w: %v", ErrNoTenantContext, err)
	}
	return err
}
