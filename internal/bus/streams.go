package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// StreamNames are the three durable streams spec.md §4.6 requires.
const (
	StreamTelemetry = "TELEMETRY"
	StreamAlerts    = "ALERTS"
	StreamRoutes    = "ROUTES"
)

// streamConfigs returns the stream definitions with the retention age
// and size limits spec.md §4.6 names literally.
func streamConfigs() []jetstream.StreamConfig {
	return []jetstream.StreamConfig{
		{
			Name:      StreamTelemetry,
			Subjects:  []string{TelemetryWildcard},
			Retention: jetstream.LimitsPolicy,
			MaxAge:    1 * time.Hour,
			MaxBytes:  1 << 30, // 1 GB
		},
		{
			Name:      StreamAlerts,
			Subjects:  []string{AlertsWildcard},
			Retention: jetstream.LimitsPolicy,
			MaxAge:    1 * time.Hour,
			MaxBytes:  1 << 30,
		},
		{
			Name:      StreamRoutes,
			Subjects:  []string{RoutesWildcard},
			Retention: jetstream.LimitsPolicy,
			MaxAge:    24 * time.Hour,
			MaxBytes:  512 << 20, // 512 MB
		},
	}
}

// EnsureStreams creates or updates the TELEMETRY, ALERTS, and ROUTES
// streams. It is idempotent and safe to call from every process on
// startup (cmd/ingest, cmd/evaluate, cmd/route, cmd/deliver each call
// it so no single process owns stream provisioning).
func EnsureStreams(ctx context.Context, js jetstream.JetStream) error {
	for _, cfg := range streamConfigs() {
		if _, err := js.CreateOrUpdateStream(ctx, cfg); err != nil {
			return fmt.Errorf("bus: ensure stream %s: %w", cfg.Name, err)
		}
	}
	return nil
}

// ConsumerConfig names the durable consumer a process binds to, with
// the explicit-ack, max-deliver=3, configurable max-pending discipline
// spec.md §4.2 and §4.6 require of every bus consumer.
type ConsumerConfig struct {
	Stream        string
	Durable       string
	FilterSubject string
	MaxDeliver    int
	MaxAckPending int
}

// DefaultMaxDeliver and DefaultMaxAckPending match spec.md §4.2's
// stated defaults for the ingest-workers consumer; other consumers
// (evaluator, router, delivery) reuse the same defaults unless a
// caller overrides them.
const (
	DefaultMaxDeliver    = 3
	DefaultMaxAckPending = 1000
)

func (c ConsumerConfig) toJetstream() jetstream.ConsumerConfig {
	maxDeliver := c.MaxDeliver
	if maxDeliver == 0 {
		maxDeliver = DefaultMaxDeliver
	}
	maxAckPending := c.MaxAckPending
	if maxAckPending == 0 {
		maxAckPending = DefaultMaxAckPending
	}
	return jetstream.ConsumerConfig{
		Durable:       c.Durable,
		FilterSubject: c.FilterSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    maxDeliver,
		MaxAckPending: maxAckPending,
	}
}
