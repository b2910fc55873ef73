package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/volaticloud/pulse/internal/tenant"
)

// operatorRuleResponse is a cross-tenant view of an AlertRule: the
// operator surface exists for support staff to see what every tenant
// has configured, so tenant_id rides along instead of being implied by
// request scope.
type operatorRuleResponse struct {
	TenantID   string `json:"tenant_id"`
	ID         string `json:"id"`
	Name       string `json:"name"`
	MetricName string `json:"metric_name"`
	Enabled    bool   `json:"enabled"`
}

// listRulesAcrossTenants handles GET /operator/rules: every non-deleted
// AlertRule across every tenant, enabled or not (each row carries its
// enabled flag), for operator-role support tooling.
// Uses tenant.WithOperator rather than WithTenant since there is no
// single tenant to scope the query to.
func listRulesAcrossTenants(pool *tenant.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var out []operatorRuleResponse

		err := tenant.WithOperator(r.Context(), pool, func(ctx context.Context, tx *sql.Tx) error {
			rows, err := tx.QueryContext(ctx, `
				SELECT tenant_id, id, name, metric_name, enabled
				FROM alert_rules
				WHERE deleted_at IS NULL
				ORDER BY tenant_id, created_at DESC
			`)
			if err != nil {
				return fmt.Errorf("api: list rules across tenants: %w", err)
			}
			defer rows.Close()

			for rows.Next() {
				var rr operatorRuleResponse
				if err := rows.Scan(&rr.TenantID, &rr.ID, &rr.Name, &rr.MetricName, &rr.Enabled); err != nil {
					return fmt.Errorf("api: scan operator rule: %w", err)
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
