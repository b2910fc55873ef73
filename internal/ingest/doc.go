// Package ingest is the entry point for telemetry from both the HTTP
// and MQTT paths (spec.md §4.2). Both paths converge on Accept, which
// validates the envelope, enforces a per-device rate limit, and hands
// accepted records to a bounded in-process queue that a background
// writer drains into internal/tenant.BatchWriter. Rejected records are
// quarantined via internal/timeseries rather than silently dropped.
//
// Grounded on the teacher's internal/alert/batcher.go for the
// buffer-then-flush shape and internal/pubsub.RedisPubSub for the
// bounded-channel, drop-with-backpressure discipline.
package ingest
