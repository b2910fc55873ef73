package evaluate

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/volaticloud/pulse/internal/enum"
)

// Rule is the subset of an AlertRule row the evaluator needs per tick.
type Rule struct {
	ID                 string
	MetricName         string
	Operator           enum.RuleOperator
	Threshold          float64
	Severity           int
	DurationSeconds    int
	SiteIDs            []string
	EscalationPolicyID sql.NullString
}

// LoadEnabledRules returns every enabled, non-deleted rule for a
// tenant, per spec.md §4.3 step 4 ("load enabled rules per tenant,
// cached per tick"); the caller is responsible for the per-tick cache,
// this call always reads current state.
func LoadEnabledRules(ctx context.Context, tx *sql.Tx, tenantID string) ([]Rule, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, metric_name, operator, threshold, severity, duration_seconds,
		       site_ids, escalation_policy_id
		FROM alert_rules
		WHERE tenant_id = $1 AND enabled = true AND deleted_at IS NULL
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("evaluate: load enabled rules: %w", err)
	}
	defer rows.Close()

	var out []Rule
	for rows.Next() {
		var (
			r       Rule
			siteIDs []byte
		)
		if err := rows.Scan(&r.ID, &r.MetricName, &r.Operator, &r.Threshold, &r.Severity,
			&r.DurationSeconds, &siteIDs, &r.EscalationPolicyID); err != nil {
			return nil, fmt.Errorf("evaluate: scan alert rule: %w", err)
		}
		if len(siteIDs) > 0 {
			if err := json.Unmarshal(siteIDs, &r.SiteIDs); err != nil {
				return nil, fmt.Errorf("evaluate: unmarshal rule %s site_ids: %w", r.ID, err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MatchesSite reports whether a rule applies to a device's site. An
// empty SiteIDs list is a wildcard (applies to every site), per
// spec.md §4.3 step 4.
func (r Rule) MatchesSite(siteID string) bool {
	if len(r.SiteIDs) == 0 {
		return true
	}
	for _, s := range r.SiteIDs {
		if s == siteID {
			return true
		}
	}
	return false
}

// PredicateSQL builds the boolean SQL expression timeseries.CountThresholdWindow
// substitutes into its window query, using the "value" placeholder
// timeseries.withValueAlias rewrites against the stored metric.
func (r Rule) PredicateSQL() string {
	var op string
	switch r.Operator {
	case enum.RuleOperatorGT:
		op = ">"
	case enum.RuleOperatorGE:
		op = ">="
	case enum.RuleOperatorLT:
		op = "<"
	case enum.RuleOperatorLE:
		op = "<="
	default:
		op = "="
	}
	return fmt.Sprintf("value %s %v", op, r.Threshold)
}
