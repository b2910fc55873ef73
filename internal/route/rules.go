package route

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/volaticloud/pulse/internal/events"
)

// RoutingRule is the subset of a NotificationRoutingRule row the router
// needs to filter one alert event, per spec.md §4.4 step 2.
type RoutingRule struct {
	ID             string
	MinSeverity    int
	AlertType      sql.NullString
	SiteIDs        []string
	DevicePrefixes []string
	DeliverOn      []string
	ChannelID      string
}

// LoadEnabledRoutingRules returns every routing rule belonging to an
// enabled, non-deleted channel, ordered by priority ascending then
// created_at ascending, per spec.md §4.4 step 1.
func LoadEnabledRoutingRules(ctx context.Context, tx *sql.Tx, tenantID string) ([]RoutingRule, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT r.id, r.min_severity, r.alert_type, r.site_ids, r.device_prefixes, r.deliver_on, r.channel_id
		FROM notification_routing_rules r
		JOIN notification_channels c ON c.id = r.channel_id AND c.tenant_id = r.tenant_id
		WHERE r.tenant_id = $1 AND c.enabled = true AND c.deleted_at IS NULL
		ORDER BY r.priority ASC, r.created_at ASC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("route: load routing rules: %w", err)
	}
	defer rows.Close()

	var out []RoutingRule
	for rows.Next() {
		var r RoutingRule
		var siteIDsRaw, prefixesRaw, deliverOnRaw []byte
		if err := rows.Scan(&r.ID, &r.MinSeverity, &r.AlertType, &siteIDsRaw, &prefixesRaw, &deliverOnRaw, &r.ChannelID); err != nil {
			return nil, fmt.Errorf("route: scan routing rule: %w", err)
		}
		if err := unmarshalIfPresent(siteIDsRaw, &r.SiteIDs); err != nil {
			return nil, fmt.Errorf("route: unmarshal rule %s site_ids: %w", r.ID, err)
		}
		if err := unmarshalIfPresent(prefixesRaw, &r.DevicePrefixes); err != nil {
			return nil, fmt.Errorf("route: unmarshal rule %s device_prefixes: %w", r.ID, err)
		}
		if err := unmarshalIfPresent(deliverOnRaw, &r.DeliverOn); err != nil {
			return nil, fmt.Errorf("route: unmarshal rule %s deliver_on: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func unmarshalIfPresent(raw []byte, dst *[]string) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// Matches implements spec.md §4.4 step 2's filter set.
func (r RoutingRule) Matches(ev events.AlertEvent) bool {
	if ev.Severity < r.MinSeverity {
		return false
	}
	if r.AlertType.Valid && r.AlertType.String != string(ev.AlertType) {
		return false
	}
	if len(r.SiteIDs) > 0 && !contains(r.SiteIDs, ev.SiteID) {
		return false
	}
	if len(r.DevicePrefixes) > 0 && !hasAnyPrefix(r.DevicePrefixes, ev.DeviceID) {
		return false
	}
	if !contains(r.DeliverOn, string(ev.Event)) {
		return false
	}
	return true
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func hasAnyPrefix(prefixes []string, v string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(v, p) {
			return true
		}
	}
	return false
}
