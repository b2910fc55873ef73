package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/volaticloud/pulse/internal/auth"
	"github.com/volaticloud/pulse/internal/jwks"
	"github.com/volaticloud/pulse/internal/metrics"
	"github.com/volaticloud/pulse/internal/opsweb"
)

// customerRateLimit and customerRateWindow bound the per-IP limiter on
// the management surface, a coarser version of the same
// go-chi/httprate guard internal/ingest.Router puts in front of the
// telemetry path.
const (
	customerRateLimit  = 100
	customerRateWindow = time.Hour
)

// HealthRouter builds a chi router exposing only /health, /ready, and
// /metrics: the surface every process in spec.md §6 carries regardless
// of whether it also exposes the customer/operator management routes.
// cmd/evaluate, cmd/route, and cmd/deliver mount this alone; cmd/api
// mounts the fuller Router below.
func HealthRouter(deps Dependencies, extraReadyChecks ...func(context.Context) error) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler())
	r.Get("/ready", readyHandler(deps, extraReadyChecks...))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return r
}

// Router builds the chi router for the customer/operator management
// surface, following the teacher's cmd/server/main.go middleware stack
// (request logging, recoverer, request ID, real IP, gzip, CORS) with
// GraphQL's playground/query routes replaced by the thin REST surface
// spec.md §6 names and a per-IP go-chi/httprate limit on every /customer
// and /operator route, reads and writes alike. verifier
// must be non-nil: this router is only meant for the process that
// terminates customer/operator requests, which requires JWKS
// configuration to start at all.
func Router(deps Dependencies, verifier *jwks.Verifier, extraReadyChecks ...func(context.Context) error) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler())
	r.Get("/ready", readyHandler(deps, extraReadyChecks...))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/customer", func(cr chi.Router) {
		cr.Use(auth.RequireAuth(verifier))
		cr.Use(httprate.LimitByIP(customerRateLimit, customerRateWindow))

		cr.Get("/rules", listRules(deps.Pool))
		cr.Post("/rules", createRule(deps.Pool))
		cr.Get("/channels", listChannels(deps.Pool))
		cr.Post("/channels", createChannel(deps.Pool))
		cr.Get("/devices", listDevices(deps.Pool))
		cr.Post("/devices", createDevice(deps.Pool))

		if deps.OpsBus != nil {
			cr.Get("/ops/feed", opsweb.Handler(deps.OpsBus, opsweb.DefaultConfig()))
		}
	})

	r.Route("/operator", func(or chi.Router) {
		or.Use(auth.RequireAuth(verifier))
		or.Use(requireOperatorRole)
		or.Use(httprate.LimitByIP(customerRateLimit, customerRateWindow))

		or.Get("/rules", listRulesAcrossTenants(deps.Pool))
	})

	return r
}
