package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/volaticloud/pulse/internal/bus"
	"github.com/volaticloud/pulse/internal/tenant"
	"github.com/volaticloud/pulse/internal/timeseries"
)

func TestQueue_TryEnqueueRespectsDepth(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	writer := NewWriter(&tenant.Pool{DB: db}, bus.NewMemoryBus())
	q := NewQueue(1, writer)

	assert.True(t, q.TryEnqueue(timeseries.TelemetryRecord{TenantID: "t1", DeviceID: "d1"}))
	assert.False(t, q.TryEnqueue(timeseries.TelemetryRecord{TenantID: "t1", DeviceID: "d2"}))
}

func TestQueue_DefaultDepthAppliedWhenZero(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	writer := NewWriter(&tenant.Pool{DB: db}, bus.NewMemoryBus())
	q := NewQueue(0, writer)
	assert.Equal(t, DefaultQueueDepth, cap(q.ch))
}
