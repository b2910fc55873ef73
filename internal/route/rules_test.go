package route

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volaticloud/pulse/internal/enum"
	"github.com/volaticloud/pulse/internal/events"
)

func TestRoutingRule_Matches(t *testing.T) {
	base := RoutingRule{
		MinSeverity: 3,
		DeliverOn:   []string{string(enum.DeliverOnOpened)},
	}

	tests := []struct {
		name string
		rule RoutingRule
		ev   events.AlertEvent
		want bool
	}{
		{
			name: "below min severity",
			rule: base,
			ev:   events.AlertEvent{Severity: 2, Event: enum.DeliverOnOpened},
			want: false,
		},
		{
			name: "meets min severity and deliver_on",
			rule: base,
			ev:   events.AlertEvent{Severity: 3, Event: enum.DeliverOnOpened},
			want: true,
		},
		{
			name: "deliver_on not requested",
			rule: base,
			ev:   events.AlertEvent{Severity: 5, Event: enum.DeliverOnClosed},
			want: false,
		},
		{
			name: "alert type filter mismatch",
			rule: RoutingRule{MinSeverity: 0, AlertType: sql.NullString{String: "THRESHOLD", Valid: true}, DeliverOn: []string{string(enum.DeliverOnOpened)}},
			ev:   events.AlertEvent{Severity: 5, AlertType: enum.AlertTypeNoHeartbeat, Event: enum.DeliverOnOpened},
			want: false,
		},
		{
			name: "site filter excludes",
			rule: RoutingRule{MinSeverity: 0, SiteIDs: []string{"site-a"}, DeliverOn: []string{string(enum.DeliverOnOpened)}},
			ev:   events.AlertEvent{Severity: 5, SiteID: "site-b", Event: enum.DeliverOnOpened},
			want: false,
		},
		{
			name: "device prefix matches",
			rule: RoutingRule{MinSeverity: 0, DevicePrefixes: []string{"sensor-"}, DeliverOn: []string{string(enum.DeliverOnOpened)}},
			ev:   events.AlertEvent{Severity: 5, DeviceID: "sensor-42", Event: enum.DeliverOnOpened},
			want: true,
		},
		{
			name: "device prefix excludes",
			rule: RoutingRule{MinSeverity: 0, DevicePrefixes: []string{"sensor-"}, DeliverOn: []string{string(enum.DeliverOnOpened)}},
			ev:   events.AlertEvent{Severity: 5, DeviceID: "gateway-1", Event: enum.DeliverOnOpened},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule.Matches(tt.ev))
		})
	}
}

func TestLoadEnabledRoutingRules(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "min_severity", "alert_type", "site_ids", "device_prefixes", "deliver_on", "channel_id"}).
		AddRow("rule-1", 3, nil, []byte(`["site-a"]`), nil, []byte(`["OPENED"]`), "chan-1").
		AddRow("rule-2", 0, "THRESHOLD", nil, []byte(`["sensor-"]`), []byte(`["OPENED","CLOSED"]`), "chan-2")

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT r.id, r.min_severity").WithArgs("tenant-1").WillReturnRows(rows)

	tx, err := db.Begin()
	require.NoError(t, err)

	rules, err := LoadEnabledRoutingRules(context.Background(), tx, "tenant-1")
	require.NoError(t, err)
	require.Len(t, rules, 2)

	assert.Equal(t, "rule-1", rules[0].ID)
	assert.Equal(t, []string{"site-a"}, rules[0].SiteIDs)
	assert.False(t, rules[0].AlertType.Valid)

	assert.Equal(t, "rule-2", rules[1].ID)
	assert.True(t, rules[1].AlertType.Valid)
	assert.Equal(t, "THRESHOLD", rules[1].AlertType.String)
	assert.Equal(t, []string{"sensor-"}, rules[1].DevicePrefixes)

	require.NoError(t, mock.ExpectationsWereMet())
}
