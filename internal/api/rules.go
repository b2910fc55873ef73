package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/volaticloud/pulse/internal/enum"
	"github.com/volaticloud/pulse/internal/tenant"
)

// ruleResponse is the wire shape for an AlertRule row, mirroring
// internal/evaluate.Rule's columns plus the identity/audit fields a
// management surface needs that the evaluator's read path doesn't.
type ruleResponse struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	MetricName         string   `json:"metric_name"`
	Operator           string   `json:"operator"`
	Threshold          float64  `json:"threshold"`
	Severity           int      `json:"severity"`
	DurationSeconds    int      `json:"duration_seconds"`
	SiteIDs            []string `json:"site_ids,omitempty"`
	Enabled            bool     `json:"enabled"`
	EscalationPolicyID string   `json:"escalation_policy_id,omitempty"`
}

type createRuleRequest struct {
	Name               string   `json:"name"`
	MetricName         string   `json:"metric_name"`
	Operator           string   `json:"operator"`
	Threshold          float64  `json:"threshold"`
	Severity           int      `json:"severity"`
	DurationSeconds    int      `json:"duration_seconds"`
	SiteIDs            []string `json:"site_ids,omitempty"`
	EscalationPolicyID string   `json:"escalation_policy_id,omitempty"`
}

// listRules handles GET /customer/rules: every non-deleted AlertRule
// for the caller's tenant, enabled or not (unlike
// internal/evaluate.LoadEnabledRules, which only needs the enabled
// subset for ticking).
func listRules(pool *tenant.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := tenantIDFromRequest(r)
		var out []ruleResponse

		err := tenant.WithTenant(r.Context(), pool, tenantID, func(ctx context.Context, tx *sql.Tx) error {
			rows, err := tx.QueryContext(ctx, `
				SELECT id, name, metric_name, operator, threshold, severity, duration_seconds,
				       site_ids, enabled, COALESCE(escalation_policy_id::text, '')
				FROM alert_rules
				WHERE tenant_id = $1 AND deleted_at IS NULL
				ORDER BY created_at DESC
			`, tenantID)
			if err != nil {
				return fmt.Errorf("api: list rules: %w", err)
			}
			defer rows.Close()

			for rows.Next() {
				var (
					rr      ruleResponse
					siteIDs []byte
				)
				if err := rows.Scan(&rr.ID, &rr.Name, &rr.MetricName, &rr.Operator, &rr.Threshold,
					&rr.Severity, &rr.DurationSeconds, &siteIDs, &rr.Enabled, &rr.EscalationPolicyID); err != nil {
					return fmt.Errorf("api: scan rule: %w", err)
				}
				if len(siteIDs) > 0 {
					_ = json.Unmarshal(siteIDs, &rr.SiteIDs)
				}
				out = append(out, rr)
			}
			return rows.Err()
		})
		if err != nil {
			writeAPIError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, out)
	}
}

// createRule handles POST /customer/rules.
func createRule(pool *tenant.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := tenantIDFromRequest(r)

		var req createRuleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}
		if req.Name == "" || req.MetricName == "" {
			http.Error(w, "name and metric_name are required", http.StatusBadRequest)
			return
		}
		op := enum.RuleOperator(req.Operator)
		if !isValidRuleOperator(op) {
			http.Error(w, "invalid operator", http.StatusBadRequest)
			return
		}

		id := uuid.New().String()
		siteIDs, err := json.Marshal(req.SiteIDs)
		if err != nil {
			http.Error(w, "invalid site_ids", http.StatusBadRequest)
			return
		}

		err = tenant.WithTenant(r.Context(), pool, tenantID, func(ctx context.Context, tx *sql.Tx) error {
			var escalationPolicyID interface{}
			if req.EscalationPolicyID != "" {
				escalationPolicyID = req.EscalationPolicyID
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO alert_rules
					(id, tenant_id, name, metric_name, operator, threshold, severity,
					 duration_seconds, site_ids, enabled, escalation_policy_id, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, true, $10, now(), now())
			`, id, tenantID, req.Name, req.MetricName, string(op), req.Threshold, req.Severity,
				req.DurationSeconds, siteIDs, escalationPolicyID)
			return err
		})
		if err != nil {
			writeAPIError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, ruleResponse{
			ID: id, Name: req.Name, MetricName: req.MetricName, Operator: string(op),
			Threshold: req.Threshold, Severity: req.Severity, DurationSeconds: req.DurationSeconds,
			SiteIDs: req.SiteIDs, Enabled: true, EscalationPolicyID: req.EscalationPolicyID,
		})
	}
}

func isValidRuleOperator(op enum.RuleOperator) bool {
	for _, v := range op.Values() {
		if v == string(op) {
			return true
		}
	}
	return false
}
