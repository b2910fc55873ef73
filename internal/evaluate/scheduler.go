package evaluate

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/volaticloud/pulse/internal/bus"
	"github.com/volaticloud/pulse/internal/logger"
	"github.com/volaticloud/pulse/internal/tenant"
)

// SchedulerConfig holds the tick cadence. PollInterval defaults to 30
// seconds, spec.md §4.3's stated default.
type SchedulerConfig struct {
	PollInterval time.Duration
	Tick         TickConfig
}

// DefaultSchedulerConfig returns spec.md §4.3's stated defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		PollInterval: 30 * time.Second,
		Tick:         DefaultTickConfig(),
	}
}

// Scheduler runs one evaluation tick per PollInterval, serially per
// process, across every known tenant. Multiple replicas of this
// scheduler may run concurrently without coordination because alert
// updates use the atomic per-fingerprint primitives in alertstore.go;
// this mirrors the teacher's internal/alert.Batcher ticker/stop/done
// shutdown discipline, generalized from a single flush target to a
// per-tenant fan-out.
type Scheduler struct {
	pool     *tenant.Pool
	bus      bus.Bus
	cfg      SchedulerConfig
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewScheduler constructs a Scheduler.
func NewScheduler(pool *tenant.Pool, eventBus bus.Bus, cfg SchedulerConfig) *Scheduler {
	return &Scheduler{
		pool:     pool,
		bus:      eventBus,
		cfg:      cfg,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins the tick loop in a goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	go s.run(ctx)
}

// Stop signals the tick loop to exit and waits for it to finish.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	<-s.doneChan
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	log := logger.GetLogger(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runOnce(ctx, log)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, log *zap.Logger) {
	tenantIDs, err := listTenantIDs(ctx, s.pool)
	if err != nil {
		log.Error("evaluate: list tenants failed, skipping tick", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		if err := RunTick(ctx, s.pool, s.bus, tenantID, s.cfg.Tick); err != nil {
			log.Error("evaluate: tick failed", zap.String("tenant_id", tenantID), zap.Error(err))
		}
	}
}

// listTenantIDs enumerates the distinct tenants with at least one
// device, under the operator bypass role (the scheduler itself has no
// single tenant to scope to). This is the one place in this package
// that runs outside tenant.WithTenant.
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
