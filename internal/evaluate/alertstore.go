package evaluate

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/volaticloud/pulse/internal/enum"
)

// AlertFields is the mutable content of an open_or_update call: the
// values that should be current on the row whether it is being created
// for the first time or refreshed on an existing OPEN/ACKNOWLEDGED row.
type AlertFields struct {
	DeviceID   string
	SiteID     string // empty means NULL
	AlertType  enum.AlertType
	Severity   int
	Confidence float64
	Summary    string
	Details    map[string]interface{}
	RuleID     string // empty means NULL (e.g. the heartbeat alert)
}

// OpenOrUpdateResult reports whether this call caused the alert to
// transition into existence, so the caller emits an OPENED event
// exactly once.
type OpenOrUpdateResult struct {
	AlertID   string
	JustOpened bool
}

// OpenOrUpdate implements spec.md §4.3's alert lifecycle primitive: it
// inserts a row with status=OPEN if no OPEN/ACKNOWLEDGED row exists for
// (tenant, fingerprint); otherwise it updates the latest such row's
// severity/confidence/summary/details in place. The uniqueness
// guarantee comes from a partial unique index on
// (tenant_id, fingerprint) WHERE status IN ('OPEN','ACKNOWLEDGED'),
// defined in the hand-written migration SQL (ent cannot express a
// partial index predicate; see internal/ent/schema/alert.go).
//
// When f.RuleID's rule has an escalation policy, the new row's
// next_escalation_at is seeded to now plus the policy's first level
// delay, the same delay AdvanceEscalation computes for every
// subsequent level via NextEscalationLevel; otherwise escalation
// scheduling (spec.md §4.3 step 5) could never select a freshly opened
// alert, since next_escalation_at would stay NULL forever.
func OpenOrUpdate(ctx context.Context, tx *sql.Tx, tenantID, fingerprint string, f AlertFields, now time.Time) (OpenOrUpdateResult, error) {
	details, err := json.Marshal(f.Details)
	if err != nil {
		return OpenOrUpdateResult{}, fmt.Errorf("evaluate: marshal alert details: %w", err)
	}

	var siteID interface{}
	if f.SiteID != "" {
		siteID = f.SiteID
	}
	var ruleID interface{}
	if f.RuleID != "" {
		ruleID = f.RuleID
	}

	var nextEscalationAt interface{}
	if f.RuleID != "" {
		policyID, err := ruleEscalationPolicy(ctx, tx, tenantID, f.RuleID)
		if err != nil {
			return OpenOrUpdateResult{}, fmt.Errorf("evaluate: resolve escalation policy for rule %s: %w", f.RuleID, err)
		}
		if policyID != "" {
			delayMinutes, ok, err := NextEscalationLevel(ctx, tx, tenantID, policyID, 0)
			if err != nil {
				return OpenOrUpdateResult{}, fmt.Errorf("evaluate: resolve first escalation level for policy %s: %w", policyID, err)
			}
			if ok {
				nextEscalationAt = now.Add(time.Duration(delayMinutes) * time.Minute)
			}
		}
	}

	// The partial unique index on (tenant_id, fingerprint) WHERE
	// status IN ('OPEN','ACKNOWLEDGED') is what makes this ON CONFLICT
	// target well-defined: at most one active row per fingerprint can
	// conflict at a time. next_escalation_at is intentionally left out
	// of the DO UPDATE SET list: an already-open alert's escalation
	// clock is advanced only by AdvanceEscalation, not by a refresh of
	// its severity/summary.
	row := tx.QueryRowContext(ctx, `
		INSERT INTO alerts (
			tenant_id, device_id, site_id, alert_type, fingerprint, status,
			severity, confidence, summary, details, escalation_level,
			opened_at, rule_id, next_escalation_at
		) VALUES (
			$1, $2, $3, $4, $5, 'OPEN',
			$6, $7, $8, $9, 0,
			now(), $10, $11
		)
		ON CONFLICT (tenant_id, fingerprint) WHERE status IN ('OPEN', 'ACKNOWLEDGED')
		DO UPDATE SET
			severity = EXCLUDED.severity,
			confidence = EXCLUDED.confidence,
			summary = EXCLUDED.summary,
			details = EXCLUDED.details
		RETURNING id, (xmax = 0) AS just_opened
	`,
		tenantID, f.DeviceID, siteID, string(f.AlertType), fingerprint,
		f.Severity, f.Confidence, f.Summary, details, ruleID, nextEscalationAt,
	)

	var result OpenOrUpdateResult
	if err := row.Scan(&result.AlertID, &result.JustOpened); err != nil {
		return OpenOrUpdateResult{}, fmt.Errorf("evaluate: open_or_update %s: %w", fingerprint, err)
	}
	return result, nil
}

// CloseResult reports whether the close call actually closed a row, so
// the caller emits a CLOSED event exactly once.
type CloseResult struct {
	AlertID     string
	JustClosed  bool
}

// Close implements spec.md §4.3's close primitive: it sets
// status=CLOSED and closed_at on the current OPEN/ACKNOWLEDGED row for
// (tenant, fingerprint); no-op if none exists.
func Close(ctx context.Context, tx *sql.Tx, tenantID, fingerprint string) (CloseResult, error) {
	row := tx.QueryRowContext(ctx, `
		UPDATE alerts
		SET status = 'CLOSED', closed_at = $3
		WHERE tenant_id = $1 AND fingerprint = $2 AND status IN ('OPEN', 'ACKNOWLEDGED')
		RETURNING id
	`, tenantID, fingerprint, time.Now())

	var id string
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return CloseResult{}, nil
		}
		return CloseResult{}, fmt.Errorf("evaluate: close %s: %w", fingerprint, err)
	}
	return CloseResult{AlertID: id, JustClosed: true}, nil
}

// openAlert is an active alert row relevant to escalation scheduling.
// It carries AlertType/Severity/SiteID/DeviceID alongside the
// escalation bookkeeping fields so evaluateEscalations can publish a
// fully populated events.AlertEvent (spec.md §4.4 filters routing
// rules on both severity and alert_type).
type openAlert struct {
	ID               string
	RuleID           sql.NullString
	EscalationLevel  int
	NextEscalationAt sql.NullTime
	AlertType        enum.AlertType
	Severity         int
	SiteID           sql.NullString
	DeviceID         string
}

// FetchEscalationCandidates returns every open alert whose linked rule
// has an escalation policy and whose next_escalation_at has passed, per
// spec.md §4.3 step 5.
func FetchEscalationCandidates(ctx context.Context, tx *sql.Tx, tenantID string, now time.Time) ([]openAlert, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT a.id, a.rule_id, a.escalation_level, a.next_escalation_at,
		       a.alert_type, a.severity, a.site_id, a.device_id
		FROM alerts a
		JOIN alert_rules r ON r.id = a.rule_id
		WHERE a.tenant_id = $1
		  AND a.status IN ('OPEN', 'ACKNOWLEDGED')
		  AND r.escalation_policy_id IS NOT NULL
		  AND a.next_escalation_at IS NOT NULL
		  AND a.next_escalation_at <= $2
	`, tenantID, now)
	if err != nil {
		return nil, fmt.Errorf("evaluate: fetch escalation candidates: %w", err)
	}
	defer rows.Close()

	var out []openAlert
	for rows.Next() {
		var a openAlert
		if err := rows.Scan(&a.ID, &a.RuleID, &a.EscalationLevel, &a.NextEscalationAt,
			&a.AlertType, &a.Severity, &a.SiteID, &a.DeviceID); err != nil {
			return nil, fmt.Errorf("evaluate: scan escalation candidate: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AdvanceEscalation bumps an alert's escalation_level and sets its next
// next_escalation_at, per spec.md §4.3 step 5.
func AdvanceEscalation(ctx context.Context, tx *sql.Tx, tenantID, alertID string, newLevel int, nextAt time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE alerts
		SET escalation_level = $3, next_escalation_at = $4
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, alertID, newLevel, nextAt)
	if err != nil {
		return fmt.Errorf("evaluate: advance escalation for alert %s: %w", alertID, err)
	}
	return nil
}
