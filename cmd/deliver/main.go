package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	mqttlib "github.com/eclipse/paho.mqtt.golang"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/urfave/cli/v2"

	"github.com/volaticloud/pulse/internal/api"
	"github.com/volaticloud/pulse/internal/bus"
	"github.com/volaticloud/pulse/internal/db"
	"github.com/volaticloud/pulse/internal/deliver"
	"github.com/volaticloud/pulse/internal/ent"
	"github.com/volaticloud/pulse/internal/logger"
	"github.com/volaticloud/pulse/internal/tenant"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "pulse-deliver",
		Usage:   "Deliver routed notification jobs to their channels and retry the ones that fail",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "0.0.0.0", EnvVars: []string{"PULSE_HOST"}},
			&cli.IntFlag{Name: "port", Value: 8083, EnvVars: []string{"PULSE_PORT"}},
			&cli.StringFlag{Name: "database", Required: true, EnvVars: []string{"PULSE_DATABASE"}},
			&cli.StringFlag{Name: "nats-url", Value: "nats://127.0.0.1:4222", EnvVars: []string{"PULSE_NATS_URL"}},
			&cli.StringSliceFlag{Name: "mqtt-broker", EnvVars: []string{"PULSE_DELIVER_MQTT_BROKERS"},
				Usage: "mqtt broker URL a channel's config may reference; repeatable"},
			&cli.DurationFlag{Name: "retry-interval", EnvVars: []string{"PULSE_DELIVER_RETRY_INTERVAL"}},
			&cli.IntFlag{Name: "retry-batch-limit", EnvVars: []string{"PULSE_DELIVER_RETRY_BATCH_LIMIT"}},
		},
		Action: runDeliver,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runDeliver(c *cli.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx, zlog := logger.PrepareLogger(ctx)
	defer func() { _ = zlog.Sync() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		zlog.Info("deliver: shutdown signal received, cleaning up")
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

	mqttClients, disconnectMQTT, err := dialMQTTBrokers(c.StringSlice("mqtt-broker"))
	if err != nil {
		return err
	}
	defer disconnectMQTT()

	worker := deliver.NewWorker(pool, mqttClients)

	unsubscribe, err := deliver.Subscribe(ctx, eventBus, worker)
	if err != nil {
		return fmt.Errorf("failed subscribing to route jobs: %w", err)
	}
	defer unsubscribe()

	pollerCfg := deliver.DefaultPollerConfig()
	if interval := c.Duration("retry-interval"); interval > 0 {
		pollerCfg.Interval = interval
	}
	if limit := c.Int("retry-batch-limit"); limit > 0 {
		pollerCfg.BatchLimit = limit
	}
	poller := deliver.NewPoller(worker, pool, pollerCfg)
	poller.Start(ctx)
	defer poller.Stop()

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
	log.Printf("✓ MQTT brokers connected: %d\n", len(mqttClients))
	log.Printf("✓ Durable consumer: %s\n", deliver.ConsumerDurable)
	log.Printf("✓ Retry sweep interval: %v\n", pollerCfg.Interval)
	log.Printf("✓ Health check: http://%s/health\n", addr)
	log.Printf("🚀 pulse-deliver ready at http://%s\n", addr)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("deliver: server error: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("deliver: shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("deliver: server shutdown error: %v", err)
	}

	log.Println("deliver: stopped")
	return nil
}

// dialMQTTBrokers connects one paho client per broker URL and returns
// the map keyed by that same URL, the key buildChannel looks up from a
// channel's "mqtt.broker" config field. The returned func disconnects
// every client it opened, even if a later broker in the list fails.
func dialMQTTBrokers(brokers []string) (map[string]mqttlib.Client, func(), error) {
	clients := make(map[string]mqttlib.Client, len(brokers))

	disconnectAll := func() {
		for _, client := range clients {
			client.Disconnect(250)
		}
	}

	for _, broker := range brokers {
		broker = strings.TrimSpace(broker)
		if broker == "" {
			continue
		}

		opts := mqttlib.NewClientOptions().
			AddBroker(broker).
			SetClientID(fmt.Sprintf("pulse-deliver-%s", sanitizeClientIDSuffix(broker))).
			SetAutoReconnect(true)
		mqttClient := mqttlib.NewClient(opts)

		token := mqttClient.Connect()
		if !token.WaitTimeout(10 * time.Second) {
			disconnectAll()
			return nil, func() {}, fmt.Errorf("failed connecting to mqtt broker %s: timed out", broker)
		}
		if token.Error() != nil {
			disconnectAll()
			return nil, func() {}, fmt.Errorf("failed connecting to mqtt broker %s: %w", broker, token.Error())
		}

		clients[broker] = mqttClient
	}

	return clients, disconnectAll, nil
}

func sanitizeClientIDSuffix(broker string) string {
	replacer := strings.NewReplacer("://", "-", ":", "-", "/", "-", ".", "-")
	return replacer.Replace(broker)
}
