package api

import (
	"context"
	"net/http"
	"time"

	"github.com/volaticloud/pulse/internal/pubsub"
	"github.com/volaticloud/pulse/internal/tenant"
)

// Dependencies bundles what the health/readiness and CRUD handlers need
// to answer a request. Router wires one Dependencies into every route.
type Dependencies struct {
	Pool     *tenant.Pool
	Verifier AuthVerifier
	// OpsBus backs the live-status WebSocket feed at /customer/ops/feed.
	// Only Router (not HealthRouter) mounts that route, so workers that
	// never construct a pubsub.PubSub can leave this nil.
	OpsBus pubsub.PubSub
}

// AuthVerifier is the subset of *jwks.Verifier the api package depends
// on, kept as an interface so tests don't need a real JWKS endpoint.
type AuthVerifier interface {
	Healthy() bool
}

// healthHandler always answers 200: it reports the process is running,
// not that it is ready to serve traffic.
func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// readyHandler checks the database pool and, if configured, the JWKS
// verifier's recent reachability, per spec.md §6's stated /ready
// contract: bus connection, pool Ping, batch writer running-flag. The
// bus and batch-writer flags are supplied per-process (cmd/ingest wires
// its own queue's liveness); this handler always checks the pool, which
// every process shares.
func readyHandler(deps Dependencies, extraChecks ...func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if deps.Pool != nil {
			if err := deps.Pool.DB.PingContext(ctx); err != nil {
				writeNotReady(w, "database unreachable")
				return
			}
		}
		if deps.Verifier != nil && !deps.Verifier.Healthy() {
			writeNotReady(w, "identity provider unreachable")
			return
		}
		for _, check := range extraChecks {
			if err := check(ctx); err != nil {
				writeNotReady(w, err.Error())
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}
}

func writeNotReady(w http.ResponseWriter, reason string) {
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte(reason))
}
