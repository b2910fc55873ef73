package evaluate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/volaticloud/pulse/internal/bus"
	"github.com/volaticloud/pulse/internal/enum"
	"github.com/volaticloud/pulse/internal/events"
	"github.com/volaticloud/pulse/internal/logger"
	"github.com/volaticloud/pulse/internal/metrics"
	"github.com/volaticloud/pulse/internal/tenant"
	"github.com/volaticloud/pulse/internal/timeseries"
)

// TickConfig bundles the windows and intervals a tick needs.
type TickConfig struct {
	Status         StatusConfig
	RollupWindow   time.Duration
	EscalationNow  time.Time // override for tests; zero means time.Now()
}

// DefaultTickConfig mirrors spec.md §4.3's stated defaults.
func DefaultTickConfig() TickConfig {
	return TickConfig{
		Status:       DefaultStatusConfig(),
		RollupWindow: 10 * time.Minute,
	}
}

func (c TickConfig) now() time.Time {
	if c.EscalationNow.IsZero() {
		return time.Now()
	}
	return c.EscalationNow
}

// RunTick evaluates one tenant's devices and rules, per spec.md §4.3.
// It runs entirely inside one tenant.WithTenant transaction; a failure
// reaching the store aborts the whole tick and the caller should retry
// on the next tick (no alert state is cached across ticks except the
// read-only rule list, which RunTick re-reads every call). Per-rule
// evaluation failures are caught, logged, and do not abort the tick;
// they are returned as a non-fatal *multierror.Error.
func RunTick(ctx context.Context, pool *tenant.Pool, eventBus bus.Bus, tenantID string, cfg TickConfig) error {
	log := logger.GetLogger(ctx)
	var pending []events.AlertEvent
	var ruleErrs *multierror.Error

	err := tenant.WithTenant(ctx, pool, tenantID, func(ctx context.Context, tx *sql.Tx) error {
		rollups, err := timeseries.FetchLatestRollup(ctx, tx, tenantID, cfg.RollupWindow)
		if err != nil {
			return fmt.Errorf("evaluate: fetch rollup: %w", err)
		}

		rules, err := LoadEnabledRules(ctx, tx, tenantID)
		if err != nil {
			return fmt.Errorf("evaluate: load rules: %w", err)
		}

		now := cfg.now()

		for _, d := range rollups {
			ev, err := evaluateHeartbeat(ctx, tx, tenantID, d, now, cfg.Status)
			if err != nil {
				return fmt.Errorf("evaluate: heartbeat for device %s: %w", d.DeviceID, err)
			}
			pending = append(pending, ev...)

			for _, rule := range rules {
				metrics.EvaluatorRulesEvaluatedTotal.WithLabelValues(tenantID).Inc()

				ev, err := evaluateRule(ctx, tx, tenantID, rule, d, now)
				if err != nil {
					ruleErrs = multierror.Append(ruleErrs, fmt.Errorf("rule %s device %s: %w", rule.ID, d.DeviceID, err))
					log.Error("evaluate: rule evaluation failed, continuing",
						zap.String("tenant_id", tenantID), zap.String("device_id", d.DeviceID),
						zap.String("rule_id", rule.ID), zap.Error(err))
					continue
				}
				pending = append(pending, ev...)
			}
		}

		escalated, err := evaluateEscalations(ctx, tx, tenantID, now)
		if err != nil {
			return fmt.Errorf("evaluate: escalations: %w", err)
		}
		pending = append(pending, escalated...)

		return nil
	})
	if err != nil {
		return err
	}

	for _, ev := range pending {
		if ev.Event == enum.DeliverOnOpened {
			metrics.EvaluatorAlertsCreatedTotal.WithLabelValues(tenantID).Inc()
		}
		if perr := eventBus.Publish(ctx, bus.AlertsSubject(tenantID), ev); perr != nil {
			log.Error("evaluate: publish alert event failed", zap.String("tenant_id", tenantID), zap.Error(perr))
		}
	}

	return ruleErrs.ErrorOrNil()
}

// evaluateHeartbeat implements spec.md §4.3 step 2 and 3.
func evaluateHeartbeat(ctx context.Context, tx *sql.Tx, tenantID string, d timeseries.LatestRollup, now time.Time, statusCfg StatusConfig) ([]events.AlertEvent, error) {
	status := ComputeStatus(d.LastSeenAt, now, statusCfg)
	fingerprint := HeartbeatFingerprint(d.DeviceID)

	if status == enum.DeviceStatusStale || status == enum.DeviceStatusOffline {
		result, err := OpenOrUpdate(ctx, tx, tenantID, fingerprint, AlertFields{
			DeviceID:   d.DeviceID,
			SiteID:     d.SiteID,
			AlertType:  enum.AlertTypeNoHeartbeat,
			Severity:   3,
			Confidence: 1.0,
			Summary:    fmt.Sprintf("device %s has not reported telemetry (%s)", d.DeviceID, status),
			Details:    map[string]interface{}{"status": string(status), "last_seen_at": d.LastSeenAt},
		}, now)
		if err != nil {
			return nil, err
		}
		if result.JustOpened {
			return []events.AlertEvent{{
				TenantID: tenantID, AlertID: result.AlertID, AlertType: enum.AlertTypeNoHeartbeat,
				Severity: 3, SiteID: d.SiteID, DeviceID: d.DeviceID, Event: enum.DeliverOnOpened, OccurredAt: now,
			}}, nil
		}
		return nil, nil
	}

	result, err := Close(ctx, tx, tenantID, fingerprint)
	if err != nil {
		return nil, err
	}
	if result.JustClosed {
		return []events.AlertEvent{{
			TenantID: tenantID, AlertID: result.AlertID, AlertType: enum.AlertTypeNoHeartbeat,
			Severity: 3, SiteID: d.SiteID, DeviceID: d.DeviceID, Event: enum.DeliverOnClosed, OccurredAt: now,
		}}, nil
	}
	return nil, nil
}

// evaluateRule implements spec.md §4.3 step 4.
func evaluateRule(ctx context.Context, tx *sql.Tx, tenantID string, rule Rule, d timeseries.LatestRollup, now time.Time) ([]events.AlertEvent, error) {
	fingerprint := RuleFingerprint(rule.ID, d.DeviceID)

	fires, observed, missing, err := ruleFires(ctx, tx, tenantID, rule, d)
	if err != nil {
		return nil, err
	}
	if missing {
		result, err := Close(ctx, tx, tenantID, fingerprint)
		if err != nil {
			return nil, err
		}
		return closedEvent(tenantID, result, d, rule.Severity, now), nil
	}

	if fires {
		summary := fmt.Sprintf("%s (%v) %s %v", rule.MetricName, observed, rule.Operator, rule.Threshold)
		result, err := OpenOrUpdate(ctx, tx, tenantID, fingerprint, AlertFields{
			DeviceID:   d.DeviceID,
			SiteID:     d.SiteID,
			AlertType:  enum.AlertTypeThreshold,
			Severity:   rule.Severity,
			Confidence: 1.0,
			Summary:    summary,
			Details: map[string]interface{}{
				"rule_id": rule.ID, "metric_name": rule.MetricName,
				"observed_value": observed, "operator": string(rule.Operator), "threshold": rule.Threshold,
			},
			RuleID: rule.ID,
		}, now)
		if err != nil {
			return nil, err
		}
		if result.JustOpened {
			return []events.AlertEvent{{
				TenantID: tenantID, AlertID: result.AlertID, AlertType: enum.AlertTypeThreshold,
				Severity: rule.Severity, SiteID: d.SiteID, DeviceID: d.DeviceID, Event: enum.DeliverOnOpened, OccurredAt: now,
			}}, nil
		}
		return nil, nil
	}

	result, err := Close(ctx, tx, tenantID, fingerprint)
	if err != nil {
		return nil, err
	}
	return closedEvent(tenantID, result, d, rule.Severity, now), nil
}

// closedEvent builds the CLOSED event for a threshold rule's alert,
// carrying the rule's severity so routing rules filtering on
// severity ≥ min_severity (spec.md §4.4) see it the same way they see
// the OPENED event for the same alert.
func closedEvent(tenantID string, result CloseResult, d timeseries.LatestRollup, severity int, now time.Time) []events.AlertEvent {
	if !result.JustClosed {
		return nil
	}
	return []events.AlertEvent{{
		TenantID: tenantID, AlertID: result.AlertID, AlertType: enum.AlertTypeThreshold,
		Severity: severity, SiteID: d.SiteID, DeviceID: d.DeviceID, Event: enum.DeliverOnClosed, OccurredAt: now,
	}}
}

// ruleFires evaluates spec.md §4.3 step 4's two branches. missing is
// true when the metric is absent from the latest rollup (duration==0)
// or from every sample in the window (duration>0), in which case the
// caller closes rather than evaluates.
func ruleFires(ctx context.Context, tx *sql.Tx, tenantID string, rule Rule, d timeseries.LatestRollup) (fires bool, observed float64, missing bool, err error) {
	if !rule.MatchesSite(d.SiteID) {
		return false, 0, true, nil
	}

	if rule.DurationSeconds == 0 {
		raw, ok := d.Metrics[rule.MetricName]
		if !ok {
			return false, 0, true, nil
		}
		value, ok := toFloat(raw)
		if !ok {
			return false, 0, true, nil
		}
		return rule.Operator.Evaluate(value, rule.Threshold), value, false, nil
	}

	counts, err := timeseries.CountThresholdWindow(ctx, tx, tenantID, d.DeviceID, rule.MetricName, rule.PredicateSQL(), time.Duration(rule.DurationSeconds)*time.Second)
	if err != nil {
		return false, 0, false, err
	}
	if counts.Total == 0 {
		return false, 0, true, nil
	}
	// Fire only when every sample present breaches (failing_count == 0
	// means no sample satisfied the predicate's negation, i.e. every
	// sample satisfied the predicate).
	return counts.Failing == 0, rule.Threshold, false, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// evaluateEscalations implements spec.md §4.3 step 5.
func evaluateEscalations(ctx context.Context, tx *sql.Tx, tenantID string, now time.Time) ([]events.AlertEvent, error) {
	candidates, err := FetchEscalationCandidates(ctx, tx, tenantID, now)
	if err != nil {
		return nil, err
	}

	var out []events.AlertEvent
	for _, c := range candidates {
		if !c.RuleID.Valid {
			continue
		}
		policyID, err := ruleEscalationPolicy(ctx, tx, tenantID, c.RuleID.String)
		if err != nil || policyID == "" {
			continue
		}

		delayMinutes, ok, err := NextEscalationLevel(ctx, tx, tenantID, policyID, c.EscalationLevel)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		newLevel := c.EscalationLevel + 1
		nextAt := now.Add(time.Duration(delayMinutes) * time.Minute)
		if err := AdvanceEscalation(ctx, tx, tenantID, c.ID, newLevel, nextAt); err != nil {
			return nil, err
		}

		var siteID string
		if c.SiteID.Valid {
			siteID = c.SiteID.String
		}
		out = append(out, events.AlertEvent{
			TenantID: tenantID, AlertID: c.ID, AlertType: c.AlertType, Severity: c.Severity,
			SiteID: siteID, DeviceID: c.DeviceID, Event: enum.DeliverOnEscalated, OccurredAt: now,
		})
	}
	return out, nil
}

func ruleEscalationPolicy(ctx context.Context, tx *sql.Tx, tenantID, ruleID string) (string, error) {
	row := tx.QueryRowContext(ctx, `SELECT escalation_policy_id FROM alert_rules WHERE tenant_id = $1 AND id = $2`, tenantID, ruleID)
	var policyID sql.NullString
	if err := row.Scan(&policyID); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	if !policyID.Valid {
		return "", nil
	}
	return policyID.String, nil
}
