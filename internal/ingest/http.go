package ingest

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/volaticloud/pulse/internal/logger"
)

// outerRatePerMinute and outerRateBurstWindow bound the coarse per-IP
// limiter in front of the per-device token bucket. This is defense in
// depth against a single source hammering many device_ids, not a
// substitute for the per-device limiter in ratelimit.go.
const (
	outerRatePerMinute   = 600
	outerRateBurstWindow = time.Minute
)

// Router builds the chi router exposing the ingest HTTP path,
// replicating the teacher's exact middleware stack from
// cmd/server/main.go.
func Router(pipeline *Pipeline) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Compress(5))
	r.Use(httprate.LimitByIP(outerRatePerMinute, outerRateBurstWindow))

	r.Post("/ingest/v1/tenant/{tenant}/device/{device}/telemetry", telemetryHandler(pipeline))

	return r
}

func telemetryHandler(pipeline *Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logger.GetLogger(ctx)

		tenantID := chi.URLParam(r, "tenant")
		deviceID := chi.URLParam(r, "device")

		body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes+1))
		if err != nil {
			writeRejection(w, http.StatusBadRequest, "schema_invalid")
			return
		}

		var env Envelope
		if len(body) > maxPayloadBytes {
			writeRejection(w, http.StatusRequestEntityTooLarge, "payload_too_large")
			return
		}
		if err := json.Unmarshal(body, &env); err != nil {
			writeRejection(w, http.StatusBadRequest, "schema_invalid")
			return
		}

		tokenID, secret, ok := bearerCredential(r)
		if !ok {
			writeRejection(w, http.StatusUnauthorized, "bad_credentials")
			return
		}

		if err := pipeline.Accept(ctx, tenantID, deviceID, "", env, body, tokenID, secret); err != nil {
			var rej rejection
			if errors.As(err, &rej) {
				status := http.StatusBadRequest
				if rej.reason == "rate_limited" {
					status = http.StatusTooManyRequests
				} else if rej.reason == "bad_credentials" || rej.reason == "unknown_device" {
					status = http.StatusUnauthorized
				}
				writeRejection(w, status, string(rej.reason))
				return
			}
			log.Error("ingest: accept failed", zap.String("tenant_id", tenantID), zap.String("device_id", deviceID), zap.Error(err))
			writeRejection(w, http.StatusInternalServerError, "internal_error")
			return
		}

		w.WriteHeader(http.StatusAccepted)
	}
}

// bearerCredential extracts a device's (token_id, secret) pair from
// either an Authorization: Bearer base64(token_id:secret) header (the
// provision-token form spec.md §4.2 names) or HTTP Basic auth.
func bearerCredential(r *http.Request) (tokenID, secret string, ok bool) {
	if user, pass, basicOK := r.BasicAuth(); basicOK {
		return user, pass, true
	}

	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", "", false
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, prefix))
	if err != nil {
		return "", "", false
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func writeRejection(w http.ResponseWriter, status int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"rejection_reason": reason})
}
