package route

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volaticloud/pulse/internal/enum"
)

func TestLoadChannel(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, type, config FROM notification_channels").
		WithArgs("tenant-1", "chan-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "config"}).
			AddRow("chan-1", enum.ChannelTypeEmail, []byte(`{"oncall_schedule_id":"sched-1"}`)))

	tx, err := db.Begin()
	require.NoError(t, err)

	ch, err := loadChannel(context.Background(), tx, "tenant-1", "chan-1")
	require.NoError(t, err)
	assert.Equal(t, enum.ChannelTypeEmail, ch.Type)
	assert.Equal(t, "sched-1", ch.Config["oncall_schedule_id"])

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveRecipient_NonEmailChannelSkipsResolution(t *testing.T) {
	ch := Channel{ID: "chan-1", Type: enum.ChannelTypeWebhook}
	recipient, err := resolveRecipient(context.Background(), nil, "tenant-1", ch, time.Now())
	require.NoError(t, err)
	assert.Empty(t, recipient)
}

func TestResolveRecipient_EmailWithoutScheduleSkipsResolution(t *testing.T) {
	ch := Channel{ID: "chan-1", Type: enum.ChannelTypeEmail, Config: map[string]interface{}{}}
	recipient, err := resolveRecipient(context.Background(), nil, "tenant-1", ch, time.Now())
	require.NoError(t, err)
	assert.Empty(t, recipient)
}
