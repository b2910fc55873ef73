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
	"github.com/volaticloud/pulse/internal/evaluate"
	"github.com/volaticloud/pulse/internal/logger"
	"github.com/volaticloud/pulse/internal/tenant"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "pulse-evaluate",
		Usage:   "Evaluate alert rules against telemetry on a fixed poll cadence",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "0.0.0.0", EnvVars: []string{"PULSE_HOST"}},
			&cli.IntFlag{Name: "port", Value: 8081, EnvVars: []string{"PULSE_PORT"}},
			&cli.StringFlag{Name: "database", Required: true, EnvVars: []string{"PULSE_DATABASE"}},
			&cli.StringFlag{Name: "nats-url", Value: "nats://127.0.0.1:4222", EnvVars: []string{"PULSE_NATS_URL"}},
			&cli.DurationFlag{Name: "poll-interval", EnvVars: []string{"PULSE_EVALUATE_POLL_INTERVAL"}},
		},
		Action: runEvaluate,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runEvaluate(c *cli.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx, zlog := logger.PrepareLogger(ctx)
	defer func() { _ = zlog.Sync() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		zlog.Info("evaluate: shutdown signal received, cleaning up")
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

	cfg := evaluate.DefaultSchedulerConfig()
	if interval := c.Duration("poll-interval"); interval > 0 {
		cfg.PollInterval = interval
	}

	scheduler := evaluate.NewScheduler(pool, eventBus, cfg)
	scheduler.Start(ctx)
	defer scheduler.Stop()

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
	log.Printf("✓ Poll interval: %v\n", cfg.PollInterval)
	log.Printf("✓ Health check: http://%s/health\n", addr)
	log.Printf("🚀 pulse-evaluate ready at http://%s\n", addr)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("evaluate: server error: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("evaluate: shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("evaluate: server shutdown error: %v", err)
	}

	log.Println("evaluate: stopped")
	return nil
}
