package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/urfave/cli/v2"

	"github.com/redis/go-redis/v9"

	"github.com/volaticloud/pulse/internal/api"
	"github.com/volaticloud/pulse/internal/db"
	"github.com/volaticloud/pulse/internal/ent"
	"github.com/volaticloud/pulse/internal/jwks"
	"github.com/volaticloud/pulse/internal/logger"
	"github.com/volaticloud/pulse/internal/pubsub"
	"github.com/volaticloud/pulse/internal/tenant"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "pulse-api",
		Usage:   "Serve the customer and operator management API over HTTP",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "0.0.0.0", EnvVars: []string{"PULSE_HOST"}},
			&cli.IntFlag{Name: "port", Value: 8000, EnvVars: []string{"PULSE_PORT"}},
			&cli.StringFlag{Name: "database", Required: true, EnvVars: []string{"PULSE_DATABASE"}},
			&cli.StringFlag{Name: "oidc-issuer", Required: true, EnvVars: []string{"PULSE_OIDC_ISSUER"}},
			&cli.StringFlag{Name: "oidc-jwks-url", EnvVars: []string{"PULSE_OIDC_JWKS_URL"}},
			&cli.StringFlag{Name: "oidc-audience", EnvVars: []string{"PULSE_OIDC_AUDIENCE"}},
			&cli.StringFlag{Name: "redis-url", EnvVars: []string{"PULSE_REDIS_URL"},
				Usage: "redis address backing the ops live-status feed across replicas; unset uses an in-process feed"},
		},
		Action: runAPI,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runAPI(c *cli.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx, zlog := logger.PrepareLogger(ctx)
	defer func() { _ = zlog.Sync() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		zlog.Info("api: shutdown signal received, cleaning up")
		cancel()
	}()

	dsn := c.String("database")
	entClient, err := ent.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed opening connection to postgres: %w", err)
	}
	defer entClient.Close()
	if err := entClient.Schema.Create(ctx); err != nil {
		return fmt.Errorf("failed creating schema resources: %w", err)
	}

	pool, err := tenant.NewPool(tenant.PoolConfig{DSN: dsn})
	if err != nil {
		return fmt.Errorf("failed opening tenant pool: %w", err)
	}
	defer pool.Close()
	if err := db.RunMigrations(ctx, pool.DB); err != nil {
		return fmt.Errorf("failed applying sql migrations: %w", err)
	}

	verifier, err := jwks.NewVerifier(ctx, jwks.Config{
		IssuerURL: c.String("oidc-issuer"),
		JWKSURL:   c.String("oidc-jwks-url"),
		Audience:  c.String("oidc-audience"),
	})
	if err != nil {
		return fmt.Errorf("failed constructing jwks verifier: %w", err)
	}
	defer verifier.Close()

	opsBus, opsBusDescription := newOpsBus(c.String("redis-url"))
	defer opsBus.Close()

	host, port := c.String("host"), c.Int("port")
	addr := fmt.Sprintf("%s:%d", host, port)
	deps := api.Dependencies{Pool: pool, Verifier: verifier, OpsBus: opsBus}

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      api.Router(deps, verifier),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("✓ Database: postgres\n")
	log.Printf("✓ OIDC issuer: %s\n", c.String("oidc-issuer"))
	log.Printf("✓ Ops feed: %s\n", opsBusDescription)
	log.Printf("✓ Customer surface: http://%s/customer\n", addr)
	log.Printf("✓ Operator surface: http://%s/operator\n", addr)
	log.Printf("✓ Health check: http://%s/health\n", addr)
	log.Printf("🚀 pulse-api ready at http://%s\n", addr)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api: server error: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("api: shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("api: server shutdown error: %v", err)
	}

	log.Println("api: stopped")
	return nil
}

// newOpsBus picks the ops live-status feed's transport: Redis when a
// URL is configured, so every cmd/api replica sees the same feed,
// otherwise an in-process fan-out sufficient for a single replica.
func newOpsBus(redisURL string) (pubsub.PubSub, string) {
	if redisURL == "" {
		return pubsub.NewMemoryPubSub(), "in-process (single replica)"
	}
	client := redis.NewClient(&redis.Options{Addr: redisURL})
	return pubsub.NewRedisPubSub(client), fmt.Sprintf("redis at %s", redisURL)
}
