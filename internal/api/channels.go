package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/volaticloud/pulse/internal/enum"
	"github.com/volaticloud/pulse/internal/tenant"
)

// channelResponse mirrors internal/route.Channel's columns, plus the
// name and enabled flag the router's read path doesn't need but a
// management surface does.
type channelResponse struct {
	ID      string                 `json:"id"`
	Name    string                 `json:"name"`
	Type    string                 `json:"type"`
	Config  map[string]interface{} `json:"config,omitempty"`
	Enabled bool                   `json:"enabled"`
}

type createChannelRequest struct {
	Name   string                 `json:"name"`
	Type   string                 `json:"type"`
	Config map[string]interface{} `json:"config,omitempty"`
}

// listChannels handles GET /customer/channels.
func listChannels(pool *tenant.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := tenantIDFromRequest(r)
		var out []channelResponse

		err := tenant.WithTenant(r.Context(), pool, tenantID, func(ctx context.Context, tx *sql.Tx) error {
			rows, err := tx.QueryContext(ctx, `
				SELECT id, name, type, config, enabled
				FROM notification_channels
				WHERE tenant_id = $1 AND deleted_at IS NULL
				ORDER BY created_at DESC
			`, tenantID)
			if err != nil {
				return fmt.Errorf("api: list channels: %w", err)
			}
			defer rows.Close()

			for rows.Next() {
				var (
					cr        channelResponse
					configRaw []byte
				)
				if err := rows.Scan(&cr.ID, &cr.Name, &cr.Type, &configRaw, &cr.Enabled); err != nil {
					return fmt.Errorf("api: scan channel: %w", err)
				}
				if len(configRaw) > 0 {
					_ = json.Unmarshal(configRaw, &cr.Config)
				}
				out = append(out, cr)
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

// createChannel handles POST /customer/channels.
func createChannel(pool *tenant.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := tenantIDFromRequest(r)

		var req createChannelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}
		if req.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}
		ct := enum.ChannelType(req.Type)
		if !isValidChannelType(ct) {
			http.Error(w, "invalid channel type", http.StatusBadRequest)
			return
		}

		id := uuid.New().String()
		configRaw, err := json.Marshal(req.Config)
		if err != nil {
			http.Error(w, "invalid config", http.StatusBadRequest)
			return
		}

		err = tenant.WithTenant(r.Context(), pool, tenantID, func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO notification_channels (id, tenant_id, name, type, config, enabled, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, true, now(), now())
			`, id, tenantID, req.Name, string(ct), configRaw)
			return err
		})
		if err != nil {
			writeAPIError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, channelResponse{
			ID: id, Name: req.Name, Type: string(ct), Config: req.Config, Enabled: true,
		})
	}
}

func isValidChannelType(ct enum.ChannelType) bool {
	for _, v := range ct.Values() {
		if v == string(ct) {
			return true
		}
	}
	return false
}
