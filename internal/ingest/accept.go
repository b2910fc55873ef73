package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/volaticloud/pulse/internal/enum"
	"github.com/volaticloud/pulse/internal/metrics"
	"github.com/volaticloud/pulse/internal/tenant"
	"github.com/volaticloud/pulse/internal/timeseries"
)

// Pipeline is the shared accept path both the HTTP handler and the
// MQTT subscriber funnel through, so the two transports share one
// validation, rate-limit, dedup, and persistence discipline rather
// than duplicating it (spec.md §4.2's stated rationale for why the
// MQTT path is not a second bulk-write path of record).
type Pipeline struct {
	pool    *tenant.Pool
	limiter *RateLimiter
	dedup   *Deduper
	queue   *Queue

	// skipTouch disables the best-effort devices.last_seen_at update;
	// it exists only so package tests can exercise Accept's success
	// path without also mocking that side query.
	skipTouch bool
}

// NewPipeline constructs a Pipeline with the given rate limit and
// queue depth, defaulting both to spec.md §4.2's stated values when
// zero.
func NewPipeline(pool *tenant.Pool, writer *Writer, ratePerSecond float64, burst, queueDepth int) *Pipeline {
	if ratePerSecond == 0 {
		ratePerSecond = DefaultRatePerSecond
	}
	if burst == 0 {
		burst = DefaultBurst
	}
	return &Pipeline{
		pool:    pool,
		limiter: NewRateLimiter(ratePerSecond, burst),
		dedup:   NewDeduper(),
		queue:   NewQueue(queueDepth, writer),
	}
}

// Start begins the queue's background flush loop.
func (p *Pipeline) Start(ctx context.Context, flushInterval time.Duration) {
	if flushInterval == 0 {
		flushInterval = DefaultFlushInterval
	}
	p.queue.Start(ctx, flushInterval)
}

// Stop flushes any buffered records and stops the queue loop.
func (p *Pipeline) Stop(ctx context.Context) {
	p.queue.Stop(ctx)
}

// Accept runs one envelope through validation, per-device rate
// limiting, duplicate-seq detection, and device authentication, then
// either enqueues it for persistence or quarantines it. rawPayload and
// topic are only used for the quarantine record (topic is empty for
// the HTTP path); tokenID/secret identify the presented device
// credential.
func (p *Pipeline) Accept(ctx context.Context, tenantID, deviceID, topic string, env Envelope, rawPayload []byte, tokenID, secret string) error {
	now := time.Now()

	if len(rawPayload) > maxPayloadBytes {
		return p.rejectAndQuarantine(ctx, tenantID, deviceID, topic, env, rawPayload, reject(enum.ReasonPayloadTooLarge, "payload exceeds maximum size"))
	}

	if err := validate(env, deviceID, now); err != nil {
		rej, _ := err.(rejection)
		return p.rejectAndQuarantine(ctx, tenantID, deviceID, topic, env, rawPayload, rej)
	}

	if !p.limiter.Allow(tenantID, deviceID) {
		return p.rejectAndQuarantine(ctx, tenantID, deviceID, topic, env, rawPayload, reject(enum.ReasonRateLimited, "per-device rate limit exceeded"))
	}

	if env.Seq != nil && p.dedup.IsDuplicate(tenantID, deviceID, *env.Seq, now) {
		return p.rejectAndQuarantine(ctx, tenantID, deviceID, topic, env, rawPayload, reject(enum.ReasonDuplicateSeq, fmt.Sprintf("duplicate seq %d within dedup window", *env.Seq)))
	}

	if tokenID != "" {
		if err := authenticateDevice(ctx, p.pool, tenantID, deviceID, tokenID, secret); err != nil {
			reason := enum.ReasonBadCredentials
			if errors.Is(err, ErrUnknownDevice) {
				reason = enum.ReasonUnknownDevice
			}
			return p.rejectAndQuarantine(ctx, tenantID, deviceID, topic, env, rawPayload, reject(reason, err.Error()))
		}
	}

	version := env.Version
	if version == "" {
		version = currentEnvelopeVersion
	}

	rec := timeseries.TelemetryRecord{
		Time:            time.Unix(0, int64(env.TS*float64(time.Second))),
		TenantID:        tenantID,
		DeviceID:        deviceID,
		Sequence:        env.Seq,
		Metrics:         env.Metrics,
		EnvelopeVersion: version,
	}

	if !p.queue.TryEnqueue(rec) {
		return p.rejectAndQuarantine(ctx, tenantID, deviceID, topic, env, rawPayload, reject(enum.ReasonRateLimited, "ingest queue saturated"))
	}

	if !p.skipTouch {
		go p.touchLastSeenAsync(tenantID, deviceID, now)
	}

	return nil
}

// touchLastSeenAsync updates devices.last_seen_at off the request
// path; ingest ack never waits on it, and a failure here is logged,
// not propagated, since the record itself is already safely queued.
func (p *Pipeline) touchLastSeenAsync(tenantID, deviceID string, at time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = tenant.WithTenant(ctx, p.pool, tenantID, func(ctx context.Context, tx *sql.Tx) error {
		return touchLastSeen(ctx, tx, tenantID, deviceID, at)
	})
}

func (p *Pipeline) rejectAndQuarantine(ctx context.Context, tenantID, deviceID, topic string, env Envelope, rawPayload []byte, rej rejection) error {
	metrics.IngestMessagesTotal.WithLabelValues(tenantID, string(rej.reason)).Inc()

	version := env.Version
	if version == "" {
		version = currentEnvelopeVersion
	}
	if qerr := quarantineRejected(ctx, p.pool, tenantID, deviceID, topic, rej.reason, rawPayload, version); qerr != nil {
		return fmt.Errorf("ingest: quarantine %s: %w (original: %s)", rej.reason, qerr, rej.detail)
	}
	return rej
}
