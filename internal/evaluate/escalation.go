package evaluate

import (
	"context"
	"database/sql"
	"fmt"
)

// NextEscalationLevel returns the delay, in minutes, configured for
// policyID's level (level+1), and whether such a level exists. When it
// doesn't (the alert is already at the highest configured level), the
// caller leaves next_escalation_at alone.
func NextEscalationLevel(ctx context.Context, tx *sql.Tx, tenantID, policyID string, level int) (delayMinutes int, ok bool, err error) {
	row := tx.QueryRowContext(ctx, `
		SELECT delay_minutes
		FROM escalation_levels
		WHERE tenant_id = $1 AND policy_id = $2 AND level = $3
	`, tenantID, policyID, level+1)

	if err := row.Scan(&delayMinutes); err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("evaluate: next escalation level for policy %s: %w", policyID, err)
	}
	return delayMinutes, true, nil
}
