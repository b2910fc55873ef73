package deliver

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/volaticloud/pulse/internal/deliver/channel"
	"github.com/volaticloud/pulse/internal/enum"
)

// alertRow is the subset of an Alert row a delivery message is built
// from.
type alertRow struct {
	Severity int
	Summary  string
	Details  map[string]interface{}
}

func loadAlertRow(ctx context.Context, tx *sql.Tx, tenantID, alertID string) (alertRow, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT severity, summary, details FROM alerts WHERE tenant_id = $1 AND id = $2
	`, tenantID, alertID)

	var (
		a          alertRow
		detailsRaw []byte
	)
	if err := row.Scan(&a.Severity, &a.Summary, &detailsRaw); err != nil {
		return alertRow{}, fmt.Errorf("deliver: load alert %s: %w", alertID, err)
	}
	if len(detailsRaw) > 0 {
		if err := json.Unmarshal(detailsRaw, &a.Details); err != nil {
			return alertRow{}, fmt.Errorf("deliver: unmarshal alert %s details: %w", alertID, err)
		}
	}
	return a, nil
}

// buildMessage turns one alert into a channel.Message, preferring the
// router's resolved on-call recipient over a channel's static
// recipient list when one was provided.
func buildMessage(alert alertRow, deliverOn enum.DeliverOnEvent, resolvedRecipient string, staticRecipients []string) channel.Message {
	recipients := staticRecipients
	if resolvedRecipient != "" {
		recipients = []string{resolvedRecipient}
	}

	return channel.Message{
		Subject:    fmt.Sprintf("[%s] %s", deliverOn, alert.Summary),
		Body:       alert.Summary,
		Recipients: recipients,
		Metadata:   alert.Details,
	}
}
