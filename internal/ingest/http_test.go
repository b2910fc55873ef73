package ingest

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestTelemetryHandler_AcceptsValidEnvelope(t *testing.T) {
	p, mock := newTestPipeline(t)
	mock.MatchExpectationsInOrder(false)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("SET ROLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SELECT pg_catalog.set_config").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT secret_hash, revoked_at, device_id FROM device_credentials").
		WillReturnRows(sqlmock.NewRows([]string{"secret_hash", "revoked_at", "device_id"}).
			AddRow(string(hash), nil, "cred-device-uuid"))
	mock.ExpectQuery("SELECT device_id FROM devices").
		WillReturnRows(sqlmock.NewRows([]string{"device_id"}).AddRow("dev-1"))
	mock.ExpectCommit()

	r := Router(p)

	now := time.Now()
	body := []byte(`{"ts":` + strconv.FormatInt(now.Unix(), 10) + `,"device_id":"dev-1","metrics":{"temp":21.5}}`)
	req := httptest.NewRequest(http.MethodPost, "/ingest/v1/tenant/tenant-1/device/dev-1/telemetry", bytes.NewReader(body))
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("tok:secret")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestTelemetryHandler_MissingCredentialsRejected(t *testing.T) {
	p, _ := newTestPipeline(t)
	r := Router(p)

	body := []byte(`{"ts":1,"device_id":"dev-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/ingest/v1/tenant/tenant-1/device/dev-1/telemetry", bytes.NewReader(body))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTelemetryHandler_MalformedBodyRejected(t *testing.T) {
	p, _ := newTestPipeline(t)
	r := Router(p)

	req := httptest.NewRequest(http.MethodPost, "/ingest/v1/tenant/tenant-1/device/dev-1/telemetry", bytes.NewReader([]byte("not json")))
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("tok:secret")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
