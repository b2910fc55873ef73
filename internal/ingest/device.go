package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/volaticloud/pulse/internal/enum"
	"github.com/volaticloud/pulse/internal/tenant"
)

// ErrBadCredentials is returned by Authenticate when the presented
// secret does not match the stored hash, or the credential is revoked
// or unknown.
var ErrBadCredentials = errors.New("ingest: bad credentials")

// ErrUnknownDevice is returned when the device itself (as opposed to
// its credential) is not found for the tenant.
var ErrUnknownDevice = errors.New("ingest: unknown device")

// Authenticate verifies a presented (tokenID, secret) pair against the
// device_credentials table and confirms the device it belongs to
// matches deviceID, within a tenant-scoped transaction. It returns
// ErrBadCredentials for any credential mismatch and ErrUnknownDevice
// when the device row itself is missing, so callers can quarantine
// with the correct reason code per spec.md §4.2.
func Authenticate(ctx context.Context, tx *sql.Tx, tenantID, deviceID, tokenID, secret string) error {
	var (
		secretHash string
		revokedAt  sql.NullTime
		credDevice string
	)
	row := tx.QueryRowContext(ctx, `
		SELECT secret_hash, revoked_at, device_id
		FROM device_credentials
		WHERE tenant_id = $1 AND token_id = $2
	`, tenantID, tokenID)
	if err := row.Scan(&secretHash, &revokedAt, &credDevice); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBadCredentials
		}
		return fmt.Errorf("ingest: load device credential: %w", err)
	}

	if revokedAt.Valid {
		return ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(secretHash), []byte(secret)); err != nil {
		return ErrBadCredentials
	}

	var natural string
	row = tx.QueryRowContext(ctx, `
		SELECT device_id FROM devices
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	`, tenantID, credDevice)
	if err := row.Scan(&natural); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUnknownDevice
		}
		return fmt.Errorf("ingest: load device for credential: %w", err)
	}
	if natural != deviceID {
		return ErrBadCredentials
	}

	return nil
}

// touchLastSeen updates a device's last_seen_at, best-effort: ingest
// ack never depends on it succeeding.
func touchLastSeen(ctx context.Context, tx *sql.Tx, tenantID, deviceID string, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE devices SET last_seen_at = $3, status = $4
		WHERE tenant_id = $1 AND device_id = $2 AND deleted_at IS NULL
	`, tenantID, deviceID, at, string(enum.DeviceStatusOnline))
	return err
}

// authenticateDevice runs Authenticate inside its own short-lived
// WithTenant transaction, for callers (the HTTP handler) that
// authenticate before opening the transaction the accepted record
// itself will be batched under.
func authenticateDevice(ctx context.Context, pool *tenant.Pool, tenantID, deviceID, tokenID, secret string) error {
	return tenant.WithTenant(ctx, pool, tenantID, func(ctx context.Context, tx *sql.Tx) error {
		return Authenticate(ctx, tx, tenantID, deviceID, tokenID, secret)
	})
}
