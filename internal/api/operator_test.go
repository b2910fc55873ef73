package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/volaticloud/pulse/internal/tenant"
)

func TestListRulesAcrossTenants_RequiresOperatorAuthorization(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	pool := &tenant.Pool{DB: db}
	req := httptest.NewRequest(http.MethodGet, "/operator/rules", nil)
	w := httptest.NewRecorder()

	listRulesAcrossTenants(pool)(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestListRulesAcrossTenants_ReturnsRowsFromEveryTenant(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("SET ROLE").WillReturnResult(sqlmock.NewResult(0, 0))
	rows := sqlmock.NewRows([]string{"tenant_id", "id", "name", "metric_name", "enabled"}).
		AddRow("tenant-1", "rule-1", "High CPU", "cpu_pct", true).
		AddRow("tenant-2", "rule-2", "Low disk", "disk_free_pct", true)
	mock.ExpectQuery("FROM alert_rules").WillReturnRows(rows)
	mock.ExpectCommit()

	pool := &tenant.Pool{DB: db}
	req := httptest.NewRequest(http.MethodGet, "/operator/rules", nil)
	req = req.WithContext(tenant.WithOperatorAuthorization(req.Context()))
	w := httptest.NewRecorder()

	listRulesAcrossTenants(pool)(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got []operatorRuleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	require.Equal(t, "tenant-1", got[0].TenantID)
	require.Equal(t, "tenant-2", got[1].TenantID)
	require.NoError(t, mock.ExpectationsWereMet())
}
