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

	mqttlib "github.com/eclipse/paho.mqtt.golang"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/urfave/cli/v2"

	"github.com/volaticloud/pulse/internal/api"
	"github.com/volaticloud/pulse/internal/bus"
	"github.com/volaticloud/pulse/internal/db"
	"github.com/volaticloud/pulse/internal/ent"
	"github.com/volaticloud/pulse/internal/ingest"
	"github.com/volaticloud/pulse/internal/logger"
	"github.com/volaticloud/pulse/internal/tenant"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "pulse-ingest",
		Usage:   "Accept telemetry over HTTP and MQTT and persist it to the timeseries store",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "0.0.0.0", EnvVars: []string{"PULSE_HOST"}},
			&cli.IntFlag{Name: "port", Value: 8080, EnvVars: []string{"PULSE_PORT"}},
			&cli.StringFlag{Name: "database", Required: true, EnvVars: []string{"PULSE_DATABASE"}},
			&cli.StringFlag{Name: "nats-url", Value: "nats://127.0.0.1:4222", EnvVars: []string{"PULSE_NATS_URL"}},
			&cli.StringFlag{Name: "mqtt-broker", EnvVars: []string{"PULSE_MQTT_BROKER"}},
			&cli.StringFlag{Name: "mqtt-client-id", Value: "pulse-ingest", EnvVars: []string{"PULSE_MQTT_CLIENT_ID"}},
			&cli.Float64Flag{Name: "rate-per-second", EnvVars: []string{"PULSE_INGEST_RATE_PER_SECOND"}},
			&cli.IntFlag{Name: "rate-burst", EnvVars: []string{"PULSE_INGEST_RATE_BURST"}},
			&cli.IntFlag{Name: "queue-depth", Value: ingest.DefaultQueueDepth, EnvVars: []string{"PULSE_INGEST_QUEUE_DEPTH"}},
		},
		Action: runIngest,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runIngest(c *cli.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx, zlog := logger.PrepareLogger(ctx)
	defer func() { _ = zlog.Sync() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		zlog.Info("ingest: shutdown signal received, cleaning up")
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

	writer := ingest.NewWriter(pool, eventBus)
	pipeline := ingest.NewPipeline(pool, writer, c.Float64("rate-per-second"), c.Int("rate-burst"), c.Int("queue-depth"))
	pipeline.Start(ctx, ingest.DefaultFlushInterval)
	defer pipeline.Stop(context.Background())

	var unsubscribeMQTT func()
	if broker := c.String("mqtt-broker"); broker != "" {
		opts := mqttlib.NewClientOptions().
			AddBroker(broker).
			SetClientID(c.String("mqtt-client-id")).
			SetAutoReconnect(true)
		mqttClient := mqttlib.NewClient(opts)
		token := mqttClient.Connect()
		if !token.WaitTimeout(10 * time.Second) {
			return fmt.Errorf("failed connecting to mqtt broker %s: timed out", broker)
		}
		if token.Error() != nil {
			return fmt.Errorf("failed connecting to mqtt broker %s: %w", broker, token.Error())
		}
		unsubscribeMQTT, err = ingest.SubscribeMQTT(ctx, mqttClient, pipeline)
		if err != nil {
			return fmt.Errorf("failed subscribing to mqtt: %w", err)
		}
		defer unsubscribeMQTT()
		defer mqttClient.Disconnect(250)
		zlog.Info("ingest: mqtt transport connected")
	}

	host, port := c.String("host"), c.Int("port")
	addr := fmt.Sprintf("%s:%d", host, port)

	deps := api.Dependencies{Pool: pool}

	busReadyCheck := func(ctx context.Context) error {
		if !eventBus.Healthy() {
			return fmt.Errorf("nats connection not healthy")
		}
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/ingest/v1/", ingest.Router(pipeline))
	mux.Handle("/", api.HealthRouter(deps, busReadyCheck))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	zlog.Info("ingest: ready")
	log.Printf("✓ Database: postgres\n")
	log.Printf("✓ NATS: %s\n", c.String("nats-url"))
	log.Printf("✓ Ingest HTTP endpoint: http://%s/ingest/v1/tenant/{tenant}/device/{device}/telemetry\n", addr)
	log.Printf("✓ Health check: http://%s/health\n", addr)
	log.Printf("🚀 pulse-ingest ready at http://%s\n", addr)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ingest: server error: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("ingest: shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("ingest: server shutdown error: %v", err)
	}

	log.Println("ingest: stopped")
	return nil
}
