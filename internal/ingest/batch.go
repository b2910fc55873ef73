package ingest

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/volaticloud/pulse/internal/bus"
	"github.com/volaticloud/pulse/internal/enum"
	"github.com/volaticloud/pulse/internal/logger"
	"github.com/volaticloud/pulse/internal/metrics"
	"github.com/volaticloud/pulse/internal/tenant"
	"github.com/volaticloud/pulse/internal/timeseries"
)

// maxFlushAttempts bounds the capped retry spec.md §4.2 requires for
// batch persistence: once the initial flush fails, this many retries
// run before a tenant's pending records are quarantined with
// persistence_failed rather than retried
// indefinitely, since an indefinite retry would hold the telemetry
// table write path hostage to one tenant's outage.
const maxFlushAttempts = 3

// Writer buffers accepted records behind internal/tenant.BatchWriter
// and, once a tenant's batch has actually committed, publishes one bus
// message per record on the TELEMETRY subject. It retains its own copy
// of pending records (rather than relying on the BatchWriter's
// internal state) because publication needs the per-record device_id,
// which BatchWriter's generic tenant.Row shape does not expose.
type Writer struct {
	pool *tenant.Pool
	bus  bus.Bus
	bw   *tenant.BatchWriter

	mu      sync.Mutex
	pending map[string][]timeseries.TelemetryRecord
}

// NewWriter constructs a Writer.
func NewWriter(pool *tenant.Pool, eventBus bus.Bus) *Writer {
	w := &Writer{
		pool:    pool,
		bus:     eventBus,
		pending: make(map[string][]timeseries.TelemetryRecord),
	}
	w.bw = tenant.NewBatchWriter(pool, timeseries.InsertTelemetryBatch)
	return w
}

// Add buffers one accepted record. It never blocks on I/O.
func (w *Writer) Add(rec timeseries.TelemetryRecord) {
	row, err := rec.ToRow()
	if err != nil {
		// Metrics-marshal failures here are a bug in the caller (the
		// record already passed envelope validation); there is no
		// sensible quarantine target for a record that can't even be
		// serialized, so it is dropped and logged.
		logger.GetLogger(context.Background()).Error("ingest: encode telemetry row failed, dropping",
			zap.String("tenant_id", rec.TenantID), zap.String("device_id", rec.DeviceID), zap.Error(err))
		return
	}
	w.bw.Add(row)

	w.mu.Lock()
	w.pending[rec.TenantID] = append(w.pending[rec.TenantID], rec)
	w.mu.Unlock()
}

// Len returns the number of buffered records across every tenant.
func (w *Writer) Len() int {
	return w.bw.Len()
}

// Flush drains the buffer, inserting each tenant's batch and, on
// success, publishing one TELEMETRY message per record. A tenant whose
// insert fails is retried up to maxFlushAttempts with exponential
// backoff before its records are quarantined with persistence_failed.
func (w *Writer) Flush(ctx context.Context) {
	if w.Len() == 0 {
		return
	}

	start := time.Now()
	errs := w.bw.Flush(ctx)
	metrics.IngestBatchWriteSeconds.Observe(time.Since(start).Seconds())

	w.mu.Lock()
	drained := w.pending
	w.pending = make(map[string][]timeseries.TelemetryRecord)
	w.mu.Unlock()

	log := logger.GetLogger(ctx)

	for tenantID, records := range drained {
		if err, failed := errs[tenantID]; failed {
			w.retryOrQuarantine(ctx, tenantID, records, err)
			continue
		}
		for _, rec := range records {
			metrics.IngestMessagesTotal.WithLabelValues(tenantID, "accepted").Inc()
			if perr := w.bus.Publish(ctx, bus.TelemetrySubject(rec.TenantID, rec.DeviceID), rec); perr != nil {
				log.Error("ingest: publish telemetry event failed", zap.String("tenant_id", tenantID),
					zap.String("device_id", rec.DeviceID), zap.Error(perr))
			}
		}
	}
}

// retryOrQuarantine re-attempts InsertTelemetryBatch for one tenant's
// failed batch up to maxFlushAttempts times, and quarantines every
// record in the batch if every attempt fails.
func (w *Writer) retryOrQuarantine(ctx context.Context, tenantID string, records []timeseries.TelemetryRecord, firstErr error) {
	log := logger.GetLogger(ctx)
	log.Error("ingest: batch flush failed, entering retry", zap.String("tenant_id", tenantID),
		zap.Int("records", len(records)), zap.Error(firstErr))

	rows := make([]tenant.Row, 0, len(records))
	for _, rec := range records {
		if row, err := rec.ToRow(); err == nil {
			rows = append(rows, row)
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxFlushAttempts; attempt++ {
		lastErr = tenant.WithTenant(ctx, w.pool, tenantID, func(ctx context.Context, tx *sql.Tx) error {
			return timeseries.InsertTelemetryBatch(ctx, tx, tenantID, rows)
		})
		if lastErr == nil {
			for _, rec := range records {
				metrics.IngestMessagesTotal.WithLabelValues(tenantID, "accepted").Inc()
				if perr := w.bus.Publish(ctx, bus.TelemetrySubject(rec.TenantID, rec.DeviceID), rec); perr != nil {
					log.Error("ingest: publish telemetry event failed after retry", zap.String("tenant_id", tenantID), zap.Error(perr))
				}
			}
			return
		}
		if attempt < maxFlushAttempts {
			time.Sleep(bo.NextBackOff())
		}
	}

	log.Error("ingest: batch flush exhausted retries, quarantining", zap.String("tenant_id", tenantID),
		zap.Int("records", len(records)), zap.Error(lastErr))
	w.quarantineBatch(ctx, tenantID, records)
}

// quarantineBatch writes one QuarantineEvent per record that could not
// be persisted, each in its own short transaction so one bad row
// doesn't block the rest.
func (w *Writer) quarantineBatch(ctx context.Context, tenantID string, records []timeseries.TelemetryRecord) {
	log := logger.GetLogger(ctx)
	for _, rec := range records {
		metrics.IngestMessagesTotal.WithLabelValues(tenantID, string(enum.ReasonPersistenceFailed)).Inc()

		err := tenant.WithTenant(ctx, w.pool, tenantID, func(ctx context.Context, tx *sql.Tx) error {
			return quarantineTelemetryRecord(ctx, tx, rec)
		})
		if err != nil {
			log.Error("ingest: quarantine write failed, record dropped", zap.String("tenant_id", tenantID),
				zap.String("device_id", rec.DeviceID), zap.Error(err))
		}
	}
}
