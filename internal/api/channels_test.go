package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/volaticloud/pulse/internal/tenant"
)

func TestListChannels_ReturnsTenantScopedRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("SET ROLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SELECT pg_catalog.set_config").WillReturnResult(sqlmock.NewResult(0, 0))
	rows := sqlmock.NewRows([]string{"id", "name", "type", "config", "enabled"}).
		AddRow("chan-1", "ops-webhook", "webhook", []byte(`{"url":"https://example.test"}`), true)
	mock.ExpectQuery("FROM notification_channels").WithArgs("tenant-1").WillReturnRows(rows)
	mock.ExpectCommit()

	pool := &tenant.Pool{DB: db}
	req := httptest.NewRequest(http.MethodGet, "/customer/channels", nil)
	req = withAuthedTenant(req, "tenant-1")
	w := httptest.NewRecorder()

	listChannels(pool)(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got []channelResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	require.Equal(t, "webhook", got[0].Type)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateChannel_RejectsInvalidType(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	pool := &tenant.Pool{DB: db}
	body := bytes.NewBufferString(`{"name":"test","type":"carrier-pigeon"}`)
	req := httptest.NewRequest(http.MethodPost, "/customer/channels", body)
	req = withAuthedTenant(req, "tenant-1")
	w := httptest.NewRecorder()

	createChannel(pool)(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateChannel_InsertsAndReturnsChannel(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("SET ROLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SELECT pg_catalog.set_config").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO notification_channels").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	pool := &tenant.Pool{DB: db}
	body := bytes.NewBufferString(`{"name":"ops-webhook","type":"webhook","config":{"url":"https://example.test"}}`)
	req := httptest.NewRequest(http.MethodPost, "/customer/channels", body)
	req = withAuthedTenant(req, "tenant-1")
	w := httptest.NewRecorder()

	createChannel(pool)(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var got channelResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, "ops-webhook", got.Name)
	require.True(t, got.Enabled)
	require.NoError(t, mock.ExpectationsWereMet())
}
