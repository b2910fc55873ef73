package deliver

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volaticloud/pulse/internal/enum"
)

func TestClaimJob_Claimed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE notification_jobs").
		WithArgs(enum.JobStatusProcessing, "tenant-1", "job-1", enum.JobStatusPending, now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "alert_id", "channel_id", "deliver_on_event", "attempts"}).
			AddRow("job-1", "alert-1", "chan-1", enum.DeliverOnOpened, 0))

	tx, err := db.Begin()
	require.NoError(t, err)

	job, ok, err := claimJob(context.Background(), tx, "tenant-1", "job-1", now)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alert-1", job.AlertID)
	assert.Equal(t, 0, job.Attempts)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimJob_AlreadyClaimedReturnsFalse(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE notification_jobs").
		WithArgs(enum.JobStatusProcessing, "tenant-1", "job-1", enum.JobStatusPending, now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "alert_id", "channel_id", "deliver_on_event", "attempts"}))

	tx, err := db.Begin()
	require.NoError(t, err)

	_, ok, err := claimJob(context.Background(), tx, "tenant-1", "job-1", now)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}
