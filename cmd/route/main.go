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

	"github.com/volaticloud/pulse/internal/api"
	"github.com/volaticloud/pulse/internal/bus"
	"github.com/volaticloud/pulse/internal/db"
	"github.com/volaticloud/pulse/internal/ent"
	"github.com/volaticloud/pulse/internal/logger"
	"github.com/volaticloud/pulse/internal/route"
	"github.com/volaticloud/pulse/internal/tenant"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "pulse-route",
		Usage:   "Resolve firing alerts to notification channels and enqueue delivery jobs",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "0.0.0.0", EnvVars: []string{"PULSE_HOST"}},
			&cli.IntFlag{Name: "port", Value: 8082, EnvVars: []string{"PULSE_PORT"}},
			&cli.StringFlag{Name: "database", Required: true, EnvVars: []string{"PULSE_DATABASE"}},
			&cli.StringFlag{Name: "nats-url", Value: "nats://127.0.0.1:4222", EnvVars: []string{"PULSE_NATS_URL"}},
		},
		Action: runRoute,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runRoute(c *cli.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx, zlog := logger.PrepareLogger(ctx)
	defer func() { _ = zlog.Sync() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		zlog.Info("route: shutdown signal received, cleaning up")
		cancel()
	}()

	dsn := c.String("database")
	client, err := ent.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed opening connection to postgres: %w", err)
	}
	defer client.Close()
	if err := client.Schema.Create(ctx); err != nil {
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

	eventBus, err := bus.Connect(ctx, c.String("nats-url"))
	if err != nil {
		return fmt.Errorf("failed connecting to nats: %w", err)
	}
	defer eventBus.Close()

	unsubscribe, err := route.Subscribe(ctx, eventBus, pool)
	if err != nil {
		return fmt.Errorf("failed subscribing to alert events: %w", err)
	}
	defer unsubscribe()

	busReadyCheck := func(ctx context.Context) error {
		if !eventBus.Healthy() {
			return fmt.Errorf("nats connection not healthy")
		}
		return nil
	}

	host, port := c.String("host"), c.Int("port")
	addr := fmt.Sprintf("%s:%d", host, port)
	deps := api.Dependencies{Pool: pool}

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      api.HealthRouter(deps, busReadyCheck),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("✓ Database: postgres\n")
	log.Printf("✓ NATS: %s\n", c.String("nats-url"))
	log.Printf("✓ Durable consumer: %s\n", route.ConsumerDurable)
	log.Printf("✓ Health check: http://%s/health\n", addr)
	log.Printf("🚀 pulse-route ready at http://%s\n", addr)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("route: server error: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("route: shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("route: server shutdown error: %v", err)
	}

	log.Println("route: stopped")
	return nil
}
