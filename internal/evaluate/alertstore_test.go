package evaluate

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volaticloud/pulse/internal/enum"
)

func TestOpenOrUpdate_NoRuleID_SeedsNoEscalationAndJustOpened(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO alerts").
		WithArgs("tenant-1", "device-1", "site-a", string(enum.AlertTypeNoHeartbeat), "fp-1",
			3, 1.0, "summary", sqlmock.AnyArg(), nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "just_opened"}).AddRow("alert-1", true))

	tx, err := db.Begin()
	require.NoError(t, err)

	result, err := OpenOrUpdate(context.Background(), tx, "tenant-1", "fp-1", AlertFields{
		DeviceID: "device-1", SiteID: "site-a", AlertType: enum.AlertTypeNoHeartbeat,
		Severity: 3, Confidence: 1.0, Summary: "summary", Details: map[string]interface{}{"status": "STALE"},
	}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "alert-1", result.AlertID)
	assert.True(t, result.JustOpened)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenOrUpdate_RuleWithEscalationPolicy_SeedsNextEscalationAt(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	nextAt := now.Add(15 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT escalation_policy_id FROM alert_rules").
		WithArgs("tenant-1", "rule-1").
		WillReturnRows(sqlmock.NewRows([]string{"escalation_policy_id"}).AddRow("policy-1"))
	mock.ExpectQuery("SELECT delay_minutes FROM escalation_levels").
		WithArgs("tenant-1", "policy-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"delay_minutes"}).AddRow(15))
	mock.ExpectQuery("INSERT INTO alerts").
		WithArgs("tenant-1", "device-1", "site-a", string(enum.AlertTypeThreshold), "fp-2",
			4, 1.0, "summary", sqlmock.AnyArg(), "rule-1", nextAt).
		WillReturnRows(sqlmock.NewRows([]string{"id", "just_opened"}).AddRow("alert-2", true))

	tx, err := db.Begin()
	require.NoError(t, err)

	result, err := OpenOrUpdate(context.Background(), tx, "tenant-1", "fp-2", AlertFields{
		DeviceID: "device-1", SiteID: "site-a", AlertType: enum.AlertTypeThreshold,
		Severity: 4, Confidence: 1.0, Summary: "summary", Details: map[string]interface{}{},
		RuleID: "rule-1",
	}, now)
	require.NoError(t, err)
	assert.Equal(t, "alert-2", result.AlertID)
	assert.True(t, result.JustOpened)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenOrUpdate_RuleWithoutEscalationPolicy_LeavesNextEscalationAtNil(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT escalation_policy_id FROM alert_rules").
		WithArgs("tenant-1", "rule-1").
		WillReturnRows(sqlmock.NewRows([]string{"escalation_policy_id"}).AddRow(nil))
	mock.ExpectQuery("INSERT INTO alerts").
		WithArgs("tenant-1", "device-1", "site-a", string(enum.AlertTypeThreshold), "fp-3",
			2, 1.0, "summary", sqlmock.AnyArg(), "rule-1", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "just_opened"}).AddRow("alert-3", false))

	tx, err := db.Begin()
	require.NoError(t, err)

	result, err := OpenOrUpdate(context.Background(), tx, "tenant-1", "fp-3", AlertFields{
		DeviceID: "device-1", SiteID: "site-a", AlertType: enum.AlertTypeThreshold,
		Severity: 2, Confidence: 1.0, Summary: "summary", Details: map[string]interface{}{},
		RuleID: "rule-1",
	}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "alert-3", result.AlertID)
	assert.False(t, result.JustOpened)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClose_JustClosed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE alerts").
		WithArgs("tenant-1", "fp-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("alert-1"))

	tx, err := db.Begin()
	require.NoError(t, err)

	result, err := Close(context.Background(), tx, "tenant-1", "fp-1")
	require.NoError(t, err)
	assert.True(t, result.JustClosed)
	assert.Equal(t, "alert-1", result.AlertID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClose_NoOpWhenNoActiveRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE alerts").
		WithArgs("tenant-1", "fp-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	tx, err := db.Begin()
	require.NoError(t, err)

	result, err := Close(context.Background(), tx, "tenant-1", "fp-1")
	require.NoError(t, err)
	assert.False(t, result.JustClosed)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchEscalationCandidates_CarriesAlertFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT a.id, a.rule_id, a.escalation_level, a.next_escalation_at").
		WithArgs("tenant-1", now).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "rule_id", "escalation_level", "next_escalation_at",
			"alert_type", "severity", "site_id", "device_id",
		}).AddRow("alert-1", "rule-1", 0, now, string(enum.AlertTypeThreshold), 4, "site-a", "device-1"))

	tx, err := db.Begin()
	require.NoError(t, err)

	candidates, err := FetchEscalationCandidates(context.Background(), tx, "tenant-1", now)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "alert-1", candidates[0].ID)
	assert.Equal(t, enum.AlertTypeThreshold, candidates[0].AlertType)
	assert.Equal(t, 4, candidates[0].Severity)
	assert.Equal(t, "site-a", candidates[0].SiteID.String)
	assert.Equal(t, "device-1", candidates[0].DeviceID)

	require.NoError(t, mock.ExpectationsWereMet())
}
