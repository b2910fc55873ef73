package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/volaticloud/pulse/internal/tenant"
)

type fakeVerifierHealth struct {
	healthy bool
}

func (f *fakeVerifierHealth) Healthy() bool { return f.healthy }

func TestHealthHandler_AlwaysOK(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	healthHandler()(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestReadyHandler_OKWhenPoolAndVerifierHealthy(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing()

	deps := Dependencies{Pool: &tenant.Pool{DB: db}, Verifier: &fakeVerifierHealth{healthy: true}}
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()

	readyHandler(deps)(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestReadyHandler_UnavailableWhenVerifierUnhealthy(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing()

	deps := Dependencies{Pool: &tenant.Pool{DB: db}, Verifier: &fakeVerifierHealth{healthy: false}}
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()

	readyHandler(deps)(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReadyHandler_UnavailableWhenExtraCheckFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing()

	deps := Dependencies{Pool: &tenant.Pool{DB: db}}
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()

	failingCheck := func(ctx context.Context) error { return errors.New("bus unreachable") }
	readyHandler(deps, failingCheck)(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
