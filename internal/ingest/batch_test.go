package ingest

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volaticloud/pulse/internal/bus"
	"github.com/volaticloud/pulse/internal/tenant"
	"github.com/volaticloud/pulse/internal/timeseries"
)

func TestWriter_FlushPublishesOnSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("SET ROLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SELECT pg_catalog.set_config").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare("COPY \"telemetry\"")
	mock.ExpectExec("COPY \"telemetry\"").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("COPY \"telemetry\"").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	memBus := bus.NewMemoryBus()
	received := make(chan struct{}, 1)
	_, err = memBus.Subscribe(context.Background(), bus.ConsumerConfig{FilterSubject: bus.TelemetrySubject("tenant-1", "dev-1")}, func(ctx context.Context, msg bus.Message) {
		received <- struct{}{}
		_ = msg.Ack()
	})
	require.NoError(t, err)

	w := NewWriter(&tenant.Pool{DB: db}, memBus)
	w.Add(timeseries.TelemetryRecord{Time: time.Now(), TenantID: "tenant-1", DeviceID: "dev-1", EnvelopeVersion: "1", Metrics: map[string]interface{}{"temp": 20.0}})
	w.Flush(context.Background())

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("expected telemetry publish after successful flush")
	}

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWriter_FlushNoopWhenEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	w := NewWriter(&tenant.Pool{DB: db}, bus.NewMemoryBus())
	w.Flush(context.Background())

	assert.Equal(t, 0, w.Len())
	require.NoError(t, mock.ExpectationsWereMet())
}
