package route

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/volaticloud/pulse/internal/enum"
)

// EnqueueResult reports whether Enqueue actually inserted a job.
type EnqueueResult struct {
	JobID    string
	Enqueued bool
}

// Enqueue implements spec.md §4.4 step 4: a deterministic-key idempotent
// insert. Replayed ALERTS events (redelivery after a crash) land on the
// same (alert_id, channel_id, deliver_on_event) key and the second
// insert does nothing, so the router never double-enqueues.
func Enqueue(ctx context.Context, tx *sql.Tx, tenantID, alertID, channelID string, deliverOn enum.DeliverOnEvent) (EnqueueResult, error) {
	row := tx.QueryRowContext(ctx, `
		INSERT INTO notification_jobs (tenant_id, alert_id, channel_id, deliver_on_event, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, alert_id, channel_id, deliver_on_event) DO NOTHING
		RETURNING id
	`, tenantID, alertID, channelID, deliverOn, enum.JobStatusPending)

	var jobID string
	if err := row.Scan(&jobID); err != nil {
		if err == sql.ErrNoRows {
			return EnqueueResult{}, nil
		}
		return EnqueueResult{}, fmt.Errorf("route: enqueue job for alert %s channel %s: %w", alertID, channelID, err)
	}
	return EnqueueResult{JobID: jobID, Enqueued: true}, nil
}
