package deliver

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/volaticloud/pulse/internal/bus"
	"github.com/volaticloud/pulse/internal/events"
	"github.com/volaticloud/pulse/internal/logger"
)

// ConsumerDurable is the durable consumer name every delivery worker
// replica binds to on the ROUTES stream.
const ConsumerDurable = "deliver-worker"

// Subscribe binds the delivery worker's durable consumer and
// processes every delivered RouteJob until ctx is cancelled or the
// returned cleanup func is called.
func Subscribe(ctx context.Context, eventBus bus.Bus, w *Worker) (func(), error) {
	cfg := bus.ConsumerConfig{
		Stream:        bus.StreamRoutes,
		Durable:       ConsumerDurable,
		FilterSubject: bus.RoutesWildcard,
	}

	return eventBus.Subscribe(ctx, cfg, func(ctx context.Context, msg bus.Message) {
		log := logger.GetLogger(ctx)

		var job events.RouteJob
		if err := json.Unmarshal(msg.Data(), &job); err != nil {
			log.Error("deliver: malformed route job, dropping", zap.String("subject", msg.Subject()), zap.Error(err))
			_ = msg.Ack()
			return
		}

		if err := w.ProcessRouteJob(ctx, job); err != nil {
			log.Error("deliver: processing route job failed, will redeliver",
				zap.String("tenant_id", job.TenantID), zap.String("job_id", job.JobID), zap.Error(err))
			_ = msg.Nak()
			return
		}

		_ = msg.Ack()
	})
}
