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
)

func newTestPipeline(t *testing.T) (*Pipeline, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	pool := &tenant.Pool{DB: db}
	writer := NewWriter(pool, bus.NewMemoryBus())
	p := NewPipeline(pool, writer, 100, 100, DefaultQueueDepth)
	p.skipTouch = true
	return p, mock
}

func TestAccept_ValidRecordEnqueues(t *testing.T) {
	p, _ := newTestPipeline(t)

	now := time.Now()
	env := Envelope{TS: float64(now.Unix()), DeviceID: "dev-1", Metrics: map[string]interface{}{"temp": 21.5}}

	err := p.Accept(context.Background(), "tenant-1", "dev-1", "", env, []byte(`{}`), "", "")
	assert.NoError(t, err)
	assert.Equal(t, 1, len(p.queue.ch))
}

func TestAccept_ClockSkewQuarantines(t *testing.T) {
	p, mock := newTestPipeline(t)

	mock.ExpectBegin()
	mock.ExpectExec("SET ROLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SELECT pg_catalog.set_config").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO quarantine_events").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	skewed := time.Now().Add(-time.Hour)
	env := Envelope{TS: float64(skewed.Unix()), DeviceID: "dev-1"}

	err := p.Accept(context.Background(), "tenant-1", "dev-1", "", env, []byte(`{}`), "", "")
	assert.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccept_RateLimitedQuarantines(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	pool := &tenant.Pool{DB: db}
	writer := NewWriter(pool, bus.NewMemoryBus())
	p := NewPipeline(pool, writer, 1, 1, DefaultQueueDepth)
	p.skipTouch = true

	now := time.Now()
	env := Envelope{TS: float64(now.Unix()), DeviceID: "dev-1"}

	mock.ExpectBegin()
	mock.ExpectExec("SET ROLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SELECT pg_catalog.set_config").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO quarantine_events").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, p.Accept(context.Background(), "tenant-1", "dev-1", "", env, []byte(`{}`), "", ""))

	env2 := Envelope{TS: float64(now.Add(time.Second).Unix()), DeviceID: "dev-1"}
	err = p.Accept(context.Background(), "tenant-1", "dev-1", "", env2, []byte(`{}`), "", "")
	assert.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
