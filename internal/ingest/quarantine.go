package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/volaticloud/pulse/internal/enum"
	"github.com/volaticloud/pulse/internal/tenant"
	"github.com/volaticloud/pulse/internal/timeseries"
)

// quarantineTelemetryRecord writes a QuarantineEvent for a record that
// passed validation but could not be persisted, re-marshalling its
// metrics map as the quarantine payload so an operator can inspect
// what was lost.
func quarantineTelemetryRecord(ctx context.Context, tx *sql.Tx, rec timeseries.TelemetryRecord) error {
	payload, err := json.Marshal(rec.Metrics)
	if err != nil {
		payload = []byte(`{}`)
	}
	return timeseries.InsertQuarantineSingle(ctx, tx, timeseries.QuarantineEvent{
		Time:            rec.Time,
		TenantID:        rec.TenantID,
		DeviceID:        rec.DeviceID,
		Topic:           "",
		ReasonCode:      enum.ReasonPersistenceFailed,
		Payload:         payload,
		EnvelopeVersion: rec.EnvelopeVersion,
	})
}

// quarantineRejected writes a QuarantineEvent for a record rejected
// before it ever reached the batch writer (bad credentials, unknown
// device, schema errors, clock skew, duplicate seq, rate limiting, or
// oversized payload), in its own short-lived transaction per spec.md
// §4.2.
func quarantineRejected(ctx context.Context, pool *tenant.Pool, tenantID, deviceID, topic string, reason enum.QuarantineReason, rawPayload []byte, envelopeVersion string) error {
	return tenant.WithTenant(ctx, pool, tenantID, func(ctx context.Context, tx *sql.Tx) error {
		return timeseries.InsertQuarantineSingle(ctx, tx, timeseries.QuarantineEvent{
			Time:            time.Now(),
			TenantID:        tenantID,
			DeviceID:        deviceID,
			Topic:           topic,
			ReasonCode:      reason,
			Payload:         rawPayload,
			EnvelopeVersion: envelopeVersion,
		})
	})
}
