package deliver

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/volaticloud/pulse/internal/deliver/channel"
	"github.com/volaticloud/pulse/internal/events"
	"github.com/volaticloud/pulse/internal/metrics"
	"github.com/volaticloud/pulse/internal/tenant"
)

// Worker claims and delivers NotificationJobs. One Worker instance is
// shared by every goroutine processing ROUTES messages and every tick
// of the retry poller.
type Worker struct {
	pool        *tenant.Pool
	mqttClients mqttClients
}

// NewWorker constructs a Worker. clients maps a broker identifier
// (matched against a channel's config "broker" field) to an
// already-connected paho client; internal/deliver's entrypoint owns
// the client lifecycle.
func NewWorker(pool *tenant.Pool, clients mqttClients) *Worker {
	return &Worker{pool: pool, mqttClients: clients}
}

// ProcessRouteJob claims and delivers the job named by a RouteJob,
// per spec.md §4.5. Claiming happens in its own short transaction so
// the outbound network call never holds a row lock; recording the
// outcome happens in a second transaction afterward.
func (w *Worker) ProcessRouteJob(ctx context.Context, job events.RouteJob) error {
	return w.process(ctx, job.TenantID, job.JobID, job.ResolvedRecipient)
}

// ProcessDueRetry claims and delivers a job the retry poller found
// ready, with no resolved recipient override (the original channel
// config recipients apply).
func (w *Worker) ProcessDueRetry(ctx context.Context, tenantID, jobID string) error {
	return w.process(ctx, tenantID, jobID, "")
}

func (w *Worker) process(ctx context.Context, tenantID, jobID, resolvedRecipient string) error {
	var (
		claimed   claimedJob
		claimedOK bool
		chRow     channelRow
		alert     alertRow
	)

	err := tenant.WithTenant(ctx, w.pool, tenantID, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		claimed, claimedOK, err = claimJob(ctx, tx, tenantID, jobID, time.Now())
		if err != nil || !claimedOK {
			return err
		}

		chRow, err = loadChannelRow(ctx, tx, tenantID, claimed.ChannelID)
		if err != nil {
			return err
		}
		alert, err = loadAlertRow(ctx, tx, tenantID, claimed.AlertID)
		return err
	})
	if err != nil {
		return err
	}
	if !claimedOK {
		return nil
	}

	ch, buildErr := buildChannel(chRow, w.mqttClients)
	if buildErr != nil {
		return w.recordOutcome(ctx, tenantID, claimed, 0, buildErr, true)
	}

	staticRecipients := stringSliceField(subConfig(chRow.Config, "email"), "recipients")
	msg := buildMessage(alert, claimed.DeliverOnEvent, resolvedRecipient, staticRecipients)

	start := time.Now()
	sendErr := ch.Send(ctx, msg)
	latency := time.Since(start)
	metrics.DeliveryChannelLatencySeconds.WithLabelValues(string(chRow.Type)).Observe(latency.Seconds())

	return w.recordOutcome(ctx, tenantID, claimed, latency.Milliseconds(), sendErr, isPermanent(sendErr))
}

func (w *Worker) recordOutcome(ctx context.Context, tenantID string, claimed claimedJob, latencyMs int64, sendErr error, permanent bool) error {
	attemptNo := claimed.Attempts + 1

	return tenant.WithTenant(ctx, w.pool, tenantID, func(ctx context.Context, tx *sql.Tx) error {
		if err := recordAttempt(ctx, tx, tenantID, claimed.ID, attemptNo, sendErr == nil, "", latencyMs, sendErr); err != nil {
			return err
		}

		if sendErr == nil {
			return completeJob(ctx, tx, tenantID, claimed.ID)
		}

		if permanent || attemptNo >= maxAttempts {
			metrics.DeliveryJobsFailedTotal.WithLabelValues(tenantID).Inc()
			metrics.DeliveryDLQTotal.Inc()
			if err := failJob(ctx, tx, tenantID, claimed.ID, attemptNo, sendErr); err != nil {
				return err
			}
			return writeDeadLetter(ctx, tx, tenantID, claimed.ID, claimed.AlertID, claimed.ChannelID, attemptNo, sendErr)
		}

		return rescheduleJob(ctx, tx, tenantID, claimed.ID, attemptNo, sendErr, retryDelay(attemptNo))
	})
}

// isPermanent reports whether sendErr was wrapped as a
// channel.PermanentError by the channel implementation.
func isPermanent(sendErr error) bool {
	if sendErr == nil {
		return false
	}
	var permErr *channel.PermanentError
	return errors.As(sendErr, &permErr)
}

func stringSliceField(m map[string]interface{}, key string) []string {
	raw, ok := m[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
