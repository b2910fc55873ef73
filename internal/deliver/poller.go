package deliver

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/volaticloud/pulse/internal/logger"
	"github.com/volaticloud/pulse/internal/tenant"
)

// PollerConfig holds the retry-sweep cadence.
type PollerConfig struct {
	Interval   time.Duration
	BatchLimit int
}

// DefaultPollerConfig sweeps every 15 seconds rather than sub-second:
// this sweep only picks up jobs whose backoff has already elapsed, so
// sub-second polling buys nothing.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{Interval: 15 * time.Second, BatchLimit: 100}
}

// Poller periodically re-dispatches NotificationJobs whose
// next_attempt_at has elapsed, mirroring internal/alert/batcher.go's
// ticker/stop/done shutdown shape.
type Poller struct {
	worker   *Worker
	pool     *tenant.Pool
	cfg      PollerConfig
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewPoller constructs a Poller.
func NewPoller(worker *Worker, pool *tenant.Pool, cfg PollerConfig) *Poller {
	return &Poller{
		worker:   worker,
		pool:     pool,
		cfg:      cfg,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins the sweep loop in a goroutine.
func (p *Poller) Start(ctx context.Context) {
	go p.run(ctx)
}

// Stop signals the sweep loop to exit and waits for it to finish.
func (p *Poller) Stop() {
	close(p.stopChan)
	<-p.doneChan
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.doneChan)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	log := logger.GetLogger(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.sweepOnce(ctx, log)
		}
	}
}

func (p *Poller) sweepOnce(ctx context.Context, log *zap.Logger) {
	tenantIDs, err := listTenantIDs(ctx, p.pool)
	if err != nil {
		log.Error("deliver: list tenants failed, skipping sweep", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		ids, err := p.dueJobs(ctx, tenantID)
		if err != nil {
			log.Error("deliver: list due retries failed", zap.String("tenant_id", tenantID), zap.Error(err))
			continue
		}
		for _, jobID := range ids {
			if err := p.worker.ProcessDueRetry(ctx, tenantID, jobID); err != nil {
				log.Error("deliver: retry failed", zap.String("tenant_id", tenantID), zap.String("job_id", jobID), zap.Error(err))
			}
		}
	}
}

func (p *Poller) dueJobs(ctx context.Context, tenantID string) ([]string, error) {
	var ids []string
	err := tenant.WithTenant(ctx, p.pool, tenantID, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		ids, err = claimDueRetries(ctx, tx, tenantID, time.Now(), p.cfg.BatchLimit)
		return err
	})
	return ids, err
}

// listTenantIDs enumerates the distinct tenants with at least one
// device, under the operator bypass role — the same query
// internal/evaluate.Scheduler uses, duplicated here rather than
// exported across packages to keep internal/deliver's dependency on
// internal/evaluate at zero.
func listTenantIDs(ctx context.Context, pool *tenant.Pool) ([]string, error) {
	var ids []string
	err := tenant.WithOperator(tenant.WithOperatorAuthorization(ctx), pool, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT DISTINCT tenant_id FROM devices WHERE deleted_at IS NULL`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	return ids, err
}
