package route

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/volaticloud/pulse/internal/enum"
	"github.com/volaticloud/pulse/internal/oncall"
)

// Channel is the subset of a NotificationChannel row the router needs
// to resolve a recipient before enqueueing a job.
type Channel struct {
	ID     string
	Type   enum.ChannelType
	Config map[string]interface{}
}

func loadChannel(ctx context.Context, tx *sql.Tx, tenantID, channelID string) (Channel, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, type, config FROM notification_channels
		WHERE tenant_id = $1 AND id = $2 AND enabled = true AND deleted_at IS NULL
	`, tenantID, channelID)

	var (
		ch        Channel
		configRaw []byte
	)
	if err := row.Scan(&ch.ID, &ch.Type, &configRaw); err != nil {
		return Channel{}, fmt.Errorf("route: load channel %s: %w", channelID, err)
	}
	if len(configRaw) > 0 {
		if err := json.Unmarshal(configRaw, &ch.Config); err != nil {
			return Channel{}, fmt.Errorf("route: unmarshal channel %s config: %w", channelID, err)
		}
	}
	return ch, nil
}

// resolveRecipient implements spec.md §4.4 step 3: when an email
// channel's config names an on-call schedule, resolve the current
// responder at the event's occurrence time rather than the routing
// instant, so replayed or delayed delivery doesn't change who gets
// paged. Channels with no schedule reference resolve to no override;
// internal/deliver falls back to the channel's own static recipient.
func resolveRecipient(ctx context.Context, tx *sql.Tx, tenantID string, ch Channel, at time.Time) (string, error) {
	if ch.Type != enum.ChannelTypeEmail {
		return "", nil
	}

	scheduleID, _ := ch.Config["oncall_schedule_id"].(string)
	if scheduleID == "" {
		return "", nil
	}

	responder, err := oncall.Resolve(ctx, tx, tenantID, scheduleID, at)
	if err != nil {
		return "", fmt.Errorf("route: resolve on-call schedule %s for channel %s: %w", scheduleID, ch.ID, err)
	}
	return responder, nil
}
