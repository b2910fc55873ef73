package deliver

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/volaticloud/pulse/internal/enum"
)

// recordAttempt appends an append-only NotificationAttempt row for
// one delivery try.
func recordAttempt(ctx context.Context, tx *sql.Tx, tenantID, jobID string, attemptNo int, ok bool, transportStatus string, latencyMs int64, sendErr error) error {
	var errText sql.NullString
	if sendErr != nil {
		errText = sql.NullString{String: sendErr.Error(), Valid: true}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO notification_attempts (tenant_id, job_id, attempt_no, ok, transport_status, latency_ms, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, tenantID, jobID, attemptNo, ok, transportStatus, latencyMs, errText)
	if err != nil {
		return fmt.Errorf("deliver: record attempt for job %s: %w", jobID, err)
	}
	return nil
}

// completeJob marks a job COMPLETED after a successful send.
func completeJob(ctx context.Context, tx *sql.Tx, tenantID, jobID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE notification_jobs SET status = $1, next_attempt_at = NULL
		WHERE tenant_id = $2 AND id = $3
	`, enum.JobStatusCompleted, tenantID, jobID)
	if err != nil {
		return fmt.Errorf("deliver: complete job %s: %w", jobID, err)
	}
	return nil
}

// rescheduleJob moves a job back to PENDING with a future
// next_attempt_at after a retryable failure, ack-and-schedule per
// spec.md §9.
func rescheduleJob(ctx context.Context, tx *sql.Tx, tenantID, jobID string, attempts int, lastErr error, delay time.Duration) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE notification_jobs
		SET status = $1, attempts = $2, last_error = $3, next_attempt_at = now() + $4 * interval '1 second'
		WHERE tenant_id = $5 AND id = $6
	`, enum.JobStatusPending, attempts, lastErr.Error(), delay.Seconds(), tenantID, jobID)
	if err != nil {
		return fmt.Errorf("deliver: reschedule job %s: %w", jobID, err)
	}
	return nil
}

// failJob marks a job permanently FAILED. Callers write the
// corresponding DeadLetter row separately so the two stay in one
// transaction.
func failJob(ctx context.Context, tx *sql.Tx, tenantID, jobID string, attempts int, lastErr error) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE notification_jobs SET status = $1, attempts = $2, last_error = $3, next_attempt_at = NULL
		WHERE tenant_id = $4 AND id = $5
	`, enum.JobStatusFailed, attempts, lastErr.Error(), tenantID, jobID)
	if err != nil {
		return fmt.Errorf("deliver: fail job %s: %w", jobID, err)
	}
	return nil
}

// writeDeadLetter inserts the dead-letter audit row for a permanently
// failed job.
func writeDeadLetter(ctx context.Context, tx *sql.Tx, tenantID, jobID, alertID, channelID string, attempts int, lastErr error) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO dead_letters (tenant_id, job_id, alert_id, channel_id, attempts, last_error)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, tenantID, jobID, alertID, channelID, attempts, lastErr.Error())
	if err != nil {
		return fmt.Errorf("deliver: write dead letter for job %s: %w", jobID, err)
	}
	return nil
}
