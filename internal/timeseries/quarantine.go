package timeseries

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/volaticloud/pulse/internal/enum"
	"github.com/volaticloud/pulse/internal/tenant"
)

// QuarantineEvent is written for every rejected ingest (spec.md §3). Its
// retention is shorter than telemetry's, enforced by its own retention
// sweep rather than a shared one, since the two tables have different
// age cutoffs.
type QuarantineEvent struct {
	Time            time.Time
	TenantID        string
	DeviceID        string
	Topic           string
	ReasonCode      enum.QuarantineReason
	Payload         []byte
	EnvelopeVersion string
}

const quarantineTable = "quarantine_events"

var quarantineColumns = []string{
	"time", "tenant_id", "device_id", "topic", "reason_code", "payload", "envelope_version",
}

// ToRow adapts a QuarantineEvent into a tenant.Row for use with
// tenant.BatchWriter, whose FlushFunc is InsertQuarantineBatch below.
func (e QuarantineEvent) ToRow() tenant.Row {
	return tenant.Row{
		TenantID: e.TenantID,
		Cols:     []interface{}{e.Time, e.TenantID, e.DeviceID, e.Topic, string(e.ReasonCode), e.Payload, e.EnvelopeVersion},
	}
}

// InsertQuarantineBatch bulk-inserts quarantine rows for one tenant via
// pq.CopyIn, mirroring InsertTelemetryBatch. It satisfies
// tenant.FlushFunc.
func InsertQuarantineBatch(ctx context.Context, tx *sql.Tx, tenantID string, rows []tenant.Row) error {
	if len(rows) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(quarantineTable, quarantineColumns...))
	if err != nil {
		return fmt.Errorf("timeseries: prepare quarantine copy-in: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.Cols...); err != nil {
			return fmt.Errorf("timeseries: copy-in quarantine row: %w", err)
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("timeseries: flush quarantine copy-in: %w", err)
	}

	return nil
}

// InsertQuarantineSingle writes one quarantine row directly, bypassing
// the batch writer. The ingest pipeline uses this for records it
// already rejected before they ever reached a batch buffer (e.g.
// bad_credentials, unknown_device), where the normal flush path is
// never entered.
func InsertQuarantineSingle(ctx context.Context, tx *sql.Tx, e QuarantineEvent) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (time, tenant_id, device_id, topic, reason_code, payload, envelope_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, quarantineTable),
		e.Time, e.TenantID, e.DeviceID, e.Topic, string(e.ReasonCode), e.Payload, e.EnvelopeVersion)
	if err != nil {
		return fmt.Errorf("timeseries: insert quarantine event: %w", err)
	}
	return nil
}
