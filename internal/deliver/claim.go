package deliver

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/volaticloud/pulse/internal/enum"
)

// claimedJob is the subset of a NotificationJob row the worker needs
// once it has won the CAS claim.
type claimedJob struct {
	ID             string
	AlertID        string
	ChannelID      string
	DeliverOnEvent enum.DeliverOnEvent
	Attempts       int
}

// claimJob implements the PENDING→PROCESSING compare-and-swap: a
// single UPDATE ... WHERE status='PENDING' RETURNING id affects zero
// rows if another worker already claimed it or it isn't due yet,
// which this function reports as (claimedJob{}, false, nil) rather
// than an error.
func claimJob(ctx context.Context, tx *sql.Tx, tenantID, jobID string, now time.Time) (claimedJob, bool, error) {
	row := tx.QueryRowContext(ctx, `
		UPDATE notification_jobs
		SET status = $1
		WHERE tenant_id = $2 AND id = $3 AND status = $4
		  AND (next_attempt_at IS NULL OR next_attempt_at <= $5)
		RETURNING id, alert_id, channel_id, deliver_on_event, attempts
	`, enum.JobStatusProcessing, tenantID, jobID, enum.JobStatusPending, now)

	var job claimedJob
	if err := row.Scan(&job.ID, &job.AlertID, &job.ChannelID, &job.DeliverOnEvent, &job.Attempts); err != nil {
		if err == sql.ErrNoRows {
			return claimedJob{}, false, nil
		}
		return claimedJob{}, false, fmt.Errorf("deliver: claim job %s: %w", jobID, err)
	}
	return job, true, nil
}

// claimDueRetries returns every job eligible for the poller's retry
// sweep: PENDING with attempts > 0 (it has already failed once and is
// waiting out its backoff) and next_attempt_at due.
func claimDueRetries(ctx context.Context, tx *sql.Tx, tenantID string, now time.Time, limit int) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM notification_jobs
		WHERE tenant_id = $1 AND status = $2 AND attempts > 0
		  AND next_attempt_at IS NOT NULL AND next_attempt_at <= $3
		ORDER BY next_attempt_at ASC
		LIMIT $4
	`, tenantID, enum.JobStatusPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("deliver: query due retries: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("deliver: scan due retry: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
