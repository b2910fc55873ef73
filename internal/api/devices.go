package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/volaticloud/pulse/internal/enum"
	"github.com/volaticloud/pulse/internal/tenant"
	"github.com/volaticloud/pulse/internal/utils"
)

// deviceResponse is the wire shape for a Device row.
type deviceResponse struct {
	ID          string  `json:"id"`
	DeviceID    string  `json:"device_id"`
	DisplayName string  `json:"display_name"`
	DeviceType  string  `json:"device_type,omitempty"`
	SiteID      string  `json:"site_id,omitempty"`
	Status      string  `json:"status"`
	LastSeenAt  *string `json:"last_seen_at,omitempty"`
}

type createDeviceRequest struct {
	DeviceID    string `json:"device_id"`
	DisplayName string `json:"display_name"`
	DeviceType  string `json:"device_type,omitempty"`
	SiteID      string `json:"site_id,omitempty"`
}

// createDeviceResponse carries the one-time plaintext secret alongside
// the provisioned device and credential identifiers; internal/ingest's
// Authenticate only ever sees secret_hash again after this response.
type createDeviceResponse struct {
	Device   deviceResponse `json:"device"`
	TokenID  string         `json:"token_id"`
	Secret   string         `json:"secret"`
	ClientID string         `json:"client_id"`
}

// listDevices handles GET /customer/devices.
func listDevices(pool *tenant.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := tenantIDFromRequest(r)
		var out []deviceResponse

		err := tenant.WithTenant(r.Context(), pool, tenantID, func(ctx context.Context, tx *sql.Tx) error {
			rows, err := tx.QueryContext(ctx, `
				SELECT id, device_id, display_name, COALESCE(device_type, ''),
				       COALESCE(site_id, ''), status, last_seen_at
				FROM devices
				WHERE tenant_id = $1 AND deleted_at IS NULL
				ORDER BY created_at DESC
			`, tenantID)
			if err != nil {
				return fmt.Errorf("api: list devices: %w", err)
			}
			defer rows.Close()

			for rows.Next() {
				var (
					dr         deviceResponse
					lastSeenAt sql.NullTime
				)
				if err := rows.Scan(&dr.ID, &dr.DeviceID, &dr.DisplayName, &dr.DeviceType,
					&dr.SiteID, &dr.Status, &lastSeenAt); err != nil {
					return fmt.Errorf("api: scan device: %w", err)
				}
				if lastSeenAt.Valid {
					formatted := lastSeenAt.Time.Format("2006-01-02T15:04:05Z07:00")
					dr.LastSeenAt = &formatted
				}
				out = append(out, dr)
			}
			return rows.Err()
		})
		if err != nil {
			writeAPIError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, out)
	}
}

// createDevice handles POST /customer/devices: provisions a Device row
// plus its first DeviceCredential in one transaction, and returns the
// generated secret once. The secret is never recoverable afterward —
// only secret_hash is persisted, matching internal/ingest.Authenticate's
// expectations.
func createDevice(pool *tenant.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := tenantIDFromRequest(r)

		var req createDeviceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}
		if req.DeviceID == "" || req.DisplayName == "" {
			http.Error(w, "device_id and display_name are required", http.StatusBadRequest)
			return
		}

		tokenID, err := utils.GenerateSecureToken(16)
		if err != nil {
			writeAPIError(w, r, fmt.Errorf("api: generate token id: %w", err))
			return
		}
		secret, err := utils.GenerateSecurePassword()
		if err != nil {
			writeAPIError(w, r, fmt.Errorf("api: generate device secret: %w", err))
			return
		}
		secretHash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
		if err != nil {
			writeAPIError(w, r, fmt.Errorf("api: hash device secret: %w", err))
			return
		}

		deviceRowID := uuid.New().String()
		credentialID := uuid.New().String()

		var siteID interface{}
		if req.SiteID != "" {
			siteID = req.SiteID
		}
		var deviceType interface{}
		if req.DeviceType != "" {
			deviceType = req.DeviceType
		}

		err = tenant.WithTenant(r.Context(), pool, tenantID, func(ctx context.Context, tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO devices
					(id, tenant_id, device_id, display_name, device_type, site_id, status, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
			`, deviceRowID, tenantID, req.DeviceID, req.DisplayName, deviceType, siteID,
				string(enum.DeviceStatusProvisioned)); err != nil {
				return fmt.Errorf("api: insert device: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				INSERT INTO device_credentials
					(id, tenant_id, token_id, secret_hash, device_id, created_at)
				VALUES ($1, $2, $3, $4, $5, now())
			`, credentialID, tenantID, tokenID, string(secretHash), deviceRowID); err != nil {
				return fmt.Errorf("api: insert device credential: %w", err)
			}

			return nil
		})
		if err != nil {
			writeAPIError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, createDeviceResponse{
			Device: deviceResponse{
				ID: deviceRowID, DeviceID: req.DeviceID, DisplayName: req.DisplayName,
				DeviceType: req.DeviceType, SiteID: req.SiteID, Status: string(enum.DeviceStatusProvisioned),
			},
			TokenID: tokenID,
			Secret:  secret,
		})
	}
}
