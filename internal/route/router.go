package route

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/volaticloud/pulse/internal/bus"
	"github.com/volaticloud/pulse/internal/events"
	"github.com/volaticloud/pulse/internal/logger"
	"github.com/volaticloud/pulse/internal/tenant"
)

// ConsumerDurable is the durable consumer name every router replica
// binds to on the ALERTS stream.
const ConsumerDurable = "route-worker"

// Subscribe binds the router's durable consumer and processes every
// delivered alert event until ctx is cancelled or the returned cleanup
// func is called.
func Subscribe(ctx context.Context, eventBus bus.Bus, pool *tenant.Pool) (func(), error) {
	cfg := bus.ConsumerConfig{
		Stream:        bus.StreamAlerts,
		Durable:       ConsumerDurable,
		FilterSubject: bus.AlertsWildcard,
	}

	return eventBus.Subscribe(ctx, cfg, func(ctx context.Context, msg bus.Message) {
		log := logger.GetLogger(ctx)

		var ev events.AlertEvent
		if err := json.Unmarshal(msg.Data(), &ev); err != nil {
			log.Error("route: malformed alert event, dropping", zap.String("subject", msg.Subject()), zap.Error(err))
			// A permanently malformed payload can never succeed; ack so
			// it doesn't block redelivery of everything behind it.
			_ = msg.Ack()
			return
		}

		if err := HandleAlertEvent(ctx, pool, eventBus, ev); err != nil {
			log.Error("route: handling alert event failed, will redeliver",
				zap.String("tenant_id", ev.TenantID), zap.String("alert_id", ev.AlertID), zap.Error(err))
			_ = msg.Nak()
			return
		}

		_ = msg.Ack()
	})
}

// HandleAlertEvent implements spec.md §4.4's full contract for one
// event: load rules, filter, resolve channel + recipient, enqueue,
// publish. A database failure aborts and propagates (the caller does
// not ack; JetStream redelivers). A single malformed rule (missing
// channel, bad schedule reference) is logged and skipped so the event
// still reaches the remaining rules; per-rule failures never reach the
// caller as an error once the transaction has committed, since by then
// the other rules' jobs are already enqueued and published and a Nak
// would only force a redelivery that reruns routeToRule for every rule
// again (channel resolution and on-call lookups are not idempotent).
func HandleAlertEvent(ctx context.Context, pool *tenant.Pool, eventBus bus.Bus, ev events.AlertEvent) error {
	log := logger.GetLogger(ctx)
	var accepted []events.RouteJob
	var ruleErrs *multierror.Error

	err := tenant.WithTenant(ctx, pool, ev.TenantID, func(ctx context.Context, tx *sql.Tx) error {
		rules, err := LoadEnabledRoutingRules(ctx, tx, ev.TenantID)
		if err != nil {
			return fmt.Errorf("route: load rules: %w", err)
		}

		for _, rule := range rules {
			if !rule.Matches(ev) {
				continue
			}

			job, err := routeToRule(ctx, tx, ev, rule)
			if err != nil {
				ruleErrs = multierror.Append(ruleErrs, fmt.Errorf("rule %s: %w", rule.ID, err))
				log.Error("route: malformed routing rule, continuing",
					zap.String("tenant_id", ev.TenantID), zap.String("rule_id", rule.ID), zap.Error(err))
				continue
			}
			if job != nil {
				accepted = append(accepted, *job)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	for _, job := range accepted {
		if perr := eventBus.Publish(ctx, bus.RoutesSubject(job.TenantID), job); perr != nil {
			log.Error("route: publish route job failed", zap.String("tenant_id", job.TenantID), zap.Error(perr))
		}
	}

	if ruleErrs.ErrorOrNil() != nil {
		log.Error("route: some routing rules failed, continuing",
			zap.String("tenant_id", ev.TenantID), zap.String("alert_id", ev.AlertID), zap.Error(ruleErrs))
	}

	return nil
}

func routeToRule(ctx context.Context, tx *sql.Tx, ev events.AlertEvent, rule RoutingRule) (*events.RouteJob, error) {
	ch, err := loadChannel(ctx, tx, ev.TenantID, rule.ChannelID)
	if err != nil {
		return nil, err
	}

	recipient, err := resolveRecipient(ctx, tx, ev.TenantID, ch, ev.OccurredAt)
	if err != nil {
		return nil, err
	}

	result, err := Enqueue(ctx, tx, ev.TenantID, ev.AlertID, ch.ID, ev.Event)
	if err != nil {
		return nil, err
	}
	if !result.Enqueued {
		return nil, nil
	}

	return &events.RouteJob{
		TenantID:          ev.TenantID,
		JobID:             result.JobID,
		AlertID:           ev.AlertID,
		ChannelID:         ch.ID,
		DeliverOnEvent:    ev.Event,
		ResolvedRecipient: recipient,
	}, nil
}
