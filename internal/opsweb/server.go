// Package opsweb serves a small live-status feed over WebSocket: it
// relays whatever is published on the caller's pubsub.TenantOpsTopic.
// No package in this repository publishes to that topic. It replaces the
// teacher's gqlgen subscription transport (internal/graph/websocket.go)
// with a plain WebSocket loop, since no GraphQL schema is carried.
package opsweb

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/volaticloud/pulse/internal/auth"
	"github.com/volaticloud/pulse/internal/logger"
	"github.com/volaticloud/pulse/internal/pubsub"
)

// Config controls the WebSocket upgrader's origin policy and keepalive
// cadence, mirroring the teacher's WebSocketConfig shape.
type Config struct {
	AllowedOrigins        []string
	KeepAlivePingInterval time.Duration
}

// DefaultConfig matches the teacher's subscription transport default.
func DefaultConfig() Config {
	return Config{KeepAlivePingInterval: 15 * time.Second}
}

// Handler streams a tenant's ops feed to an authenticated WebSocket
// client. Mount it behind auth.RequireAuth so r.Context() already
// carries the caller's jwks.Claims.
func Handler(bus pubsub.PubSub, cfg Config) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return isDevMode(cfg.AllowedOrigins)
			}
			for _, allowed := range cfg.AllowedOrigins {
				if allowed == origin {
					return true
				}
			}
			return false
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.GetLogger(r.Context())

		user := auth.MustGetUserContext(r.Context())

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("opsweb: websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		topic := pubsub.TenantOpsTopic(user.TenantID)
		msgCh, cleanup := bus.Subscribe(r.Context(), topic)
		defer cleanup()

		ticker := time.NewTicker(cfg.KeepAlivePingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case msg, ok := <-msgCh:
				if !ok {
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					log.Debug("opsweb: write failed, closing connection", zap.Error(err))
					return
				}
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}
}

// isDevMode mirrors the teacher's same-named helper: an empty or
// localhost-only allow-list means every origin is accepted.
func isDevMode(allowedOrigins []string) bool {
	if len(allowedOrigins) == 0 {
		return true
	}
	for _, origin := range allowedOrigins {
		if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
			return true
		}
	}
	return false
}
