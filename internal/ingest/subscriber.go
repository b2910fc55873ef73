package ingest

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/volaticloud/pulse/internal/bus"
	"github.com/volaticloud/pulse/internal/logger"
	"github.com/volaticloud/pulse/internal/timeseries"
)

// ConsumerDurable is the durable consumer name bound to the TELEMETRY
// stream, per spec.md §4.2. Nothing in this package itself consumes
// this stream — the writer publishes to it after a successful flush
// — and no code in this repository calls SubscribeAccepted;
// internal/opsweb reads internal/pubsub topics, not this stream.
const ConsumerDurable = "ingest-workers"

// SubscribeAccepted binds ConsumerDurable to the TELEMETRY stream and
// delivers every accepted timeseries.TelemetryRecord to handler.
func SubscribeAccepted(ctx context.Context, eventBus bus.Bus, handler func(context.Context, timeseries.TelemetryRecord)) (func(), error) {
	cfg := bus.ConsumerConfig{
		Stream:        bus.StreamTelemetry,
		Durable:       ConsumerDurable,
		FilterSubject: bus.TelemetryWildcard,
	}
	return eventBus.Subscribe(ctx, cfg, func(ctx context.Context, msg bus.Message) {
		log := logger.GetLogger(ctx)
		var rec timeseries.TelemetryRecord
		if err := json.Unmarshal(msg.Data(), &rec); err != nil {
			log.Error("ingest: malformed telemetry event, dropping", zap.String("subject", msg.Subject()), zap.Error(err))
			_ = msg.Ack()
			return
		}
		handler(ctx, rec)
		_ = msg.Ack()
	})
}
