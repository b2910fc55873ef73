package timeseries

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/volaticloud/pulse/internal/logger"
	"github.com/volaticloud/pulse/internal/tenant"
)

// RetentionConfig holds the age cutoffs for the two sweep targets.
// Quarantine retention is shorter than telemetry retention per
// spec.md §3.
type RetentionConfig struct {
	TelemetryMaxAge  time.Duration
	QuarantineMaxAge time.Duration
	SweepInterval    time.Duration
}

// DefaultRetentionConfig matches the defaults implied by spec.md §3 and
// §4.6: telemetry and quarantine are read-side retention concerns, not
// enforced by the database itself.
func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		TelemetryMaxAge:  30 * 24 * time.Hour,
		QuarantineMaxAge: 7 * 24 * time.Hour,
		SweepInterval:    1 * time.Hour,
	}
}

// RunRetentionSweep ticks every cfg.SweepInterval and, using the
// operator bypass role, deletes telemetry and quarantine rows older
// than their configured cutoffs across all tenants. It mirrors the
// teacher's usage.Aggregator.CleanupOldSamples shape generalized to two
// tables and an operator-scoped (cross-tenant) delete, and runs until
// ctx is cancelled.
func RunRetentionSweep(ctx context.Context, pool *tenant.Pool, cfg RetentionConfig) {
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	opCtx := tenant.WithOperatorAuthorization(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepOnce(opCtx, pool, cfg)
		}
	}
}

func sweepOnce(ctx context.Context, pool *tenant.Pool, cfg RetentionConfig) {
	log := logger.GetLogger(ctx)

	err := tenant.WithOperator(ctx, pool, func(ctx context.Context, tx *sql.Tx) error {
		telemetryCutoff := time.Now().Add(-cfg.TelemetryMaxAge)
		res, err := tx.ExecContext(ctx, "DELETE FROM "+telemetryTable+" WHERE time < $1", telemetryCutoff)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			log.Info("timeseries: retention sweep deleted telemetry rows", zap.Int64("rows", n))
		}

		quarantineCutoff := time.Now().Add(-cfg.QuarantineMaxAge)
		res, err = tx.ExecContext(ctx, "DELETE FROM "+quarantineTable+" WHERE time < $1", quarantineCutoff)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			log.Info("timeseries: retention sweep deleted quarantine rows", zap.Int64("rows", n))
		}

		return nil
	})
	if err != nil {
		log.Error("timeseries: retention sweep failed", zap.Error(err))
	}
}
