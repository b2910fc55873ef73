package route

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volaticloud/pulse/internal/enum"
)

func TestEnqueue_Inserted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO notification_jobs").
		WithArgs("tenant-1", "alert-1", "chan-1", enum.DeliverOnOpened, enum.JobStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("job-1"))

	tx, err := db.Begin()
	require.NoError(t, err)

	result, err := Enqueue(context.Background(), tx, "tenant-1", "alert-1", "chan-1", enum.DeliverOnOpened)
	require.NoError(t, err)
	assert.True(t, result.Enqueued)
	assert.Equal(t, "job-1", result.JobID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnqueue_ConflictSkipsSilently(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO notification_jobs").
		WithArgs("tenant-1", "alert-1", "chan-1", enum.DeliverOnOpened, enum.JobStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	tx, err := db.Begin()
	require.NoError(t, err)

	result, err := Enqueue(context.Background(), tx, "tenant-1", "alert-1", "chan-1", enum.DeliverOnOpened)
	require.NoError(t, err)
	assert.False(t, result.Enqueued)
	assert.Empty(t, result.JobID)

	require.NoError(t, mock.ExpectationsWereMet())
}
