package deliver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/volaticloud/pulse/internal/enum"
	"github.com/volaticloud/pulse/internal/events"
	"github.com/volaticloud/pulse/internal/tenant"
)

func TestWorker_ProcessRouteJob_SuccessCompletesJob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	pool := &tenant.Pool{DB: db}
	worker := NewWorker(pool, nil)

	// claim transaction
	mock.ExpectBegin()
	mock.ExpectExec("SET ROLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SELECT pg_catalog.set_config").WithArgs("tenant-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("UPDATE notification_jobs").
		WillReturnRows(sqlmock.NewRows([]string{"id", "alert_id", "channel_id", "deliver_on_event", "attempts"}).
			AddRow("job-1", "alert-1", "chan-1", enum.DeliverOnOpened, 0))
	mock.ExpectQuery("SELECT id, type, config FROM notification_channels").
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "config"}).
			AddRow("chan-1", enum.ChannelTypeWebhook, []byte(`{"webhook":{"url":"`+server.URL+`"}}`)))
	mock.ExpectQuery("SELECT severity, summary, details FROM alerts").
		WillReturnRows(sqlmock.NewRows([]string{"severity", "summary", "details"}).
			AddRow(5, "device offline", nil))
	mock.ExpectCommit()

	// outcome transaction
	mock.ExpectBegin()
	mock.ExpectExec("SET ROLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SELECT pg_catalog.set_config").WithArgs("tenant-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO notification_attempts").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE notification_jobs SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	job := events.RouteJob{TenantID: "tenant-1", JobID: "job-1", AlertID: "alert-1", ChannelID: "chan-1", DeliverOnEvent: enum.DeliverOnOpened}

	err = worker.ProcessRouteJob(context.Background(), job)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorker_ProcessRouteJob_NotClaimedIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	pool := &tenant.Pool{DB: db}
	worker := NewWorker(pool, nil)

	mock.ExpectBegin()
	mock.ExpectExec("SET ROLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SELECT pg_catalog.set_config").WithArgs("tenant-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("UPDATE notification_jobs").
		WillReturnRows(sqlmock.NewRows([]string{"id", "alert_id", "channel_id", "deliver_on_event", "attempts"}))
	mock.ExpectCommit()

	job := events.RouteJob{TenantID: "tenant-1", JobID: "job-1"}
	err = worker.ProcessRouteJob(context.Background(), job)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
