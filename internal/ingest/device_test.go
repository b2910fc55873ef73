package ingest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthenticate_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT secret_hash, revoked_at, device_id FROM device_credentials").
		WithArgs("tenant-1", "tok-1").
		WillReturnRows(sqlmock.NewRows([]string{"secret_hash", "revoked_at", "device_id"}).
			AddRow(string(hash), nil, "cred-device-uuid"))
	mock.ExpectQuery("SELECT device_id FROM devices").
		WithArgs("tenant-1", "cred-device-uuid").
		WillReturnRows(sqlmock.NewRows([]string{"device_id"}).AddRow("dev-1"))

	tx, err := db.Begin()
	require.NoError(t, err)

	err = Authenticate(context.Background(), tx, "tenant-1", "dev-1", "tok-1", "s3cret")
	assert.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthenticate_WrongSecret(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT secret_hash, revoked_at, device_id FROM device_credentials").
		WillReturnRows(sqlmock.NewRows([]string{"secret_hash", "revoked_at", "device_id"}).
			AddRow(string(hash), nil, "cred-device-uuid"))

	tx, err := db.Begin()
	require.NoError(t, err)

	err = Authenticate(context.Background(), tx, "tenant-1", "dev-1", "tok-1", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestAuthenticate_UnknownToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT secret_hash, revoked_at, device_id FROM device_credentials").
		WillReturnError(sql.ErrNoRows)

	tx, err := db.Begin()
	require.NoError(t, err)

	err = Authenticate(context.Background(), tx, "tenant-1", "dev-1", "tok-1", "s3cret")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestAuthenticate_RevokedCredential(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT secret_hash, revoked_at, device_id FROM device_credentials").
		WillReturnRows(sqlmock.NewRows([]string{"secret_hash", "revoked_at", "device_id"}).
			AddRow(string(hash), time.Now(), "cred-device-uuid"))

	tx, err := db.Begin()
	require.NoError(t, err)

	err = Authenticate(context.Background(), tx, "tenant-1", "dev-1", "tok-1", "s3cret")
	assert.ErrorIs(t, err, ErrBadCredentials)
}
