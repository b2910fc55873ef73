package channel

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// publishTimeout bounds how long Send waits for the broker to
// acknowledge a publish, matching spec.md §5's 10-second external-call
// budget for delivery channels.
const publishTimeout = 10 * time.Second

// MQTTConfig holds an mqtt channel's per-tenant configuration.
type MQTTConfig struct {
	Client mqtt.Client
	Topic  string
	QoS    byte
	Retain bool
}

// MQTTChannel publishes the alert as a retained or transient message
// on a tenant-configured topic, sharing the same paho client package
// internal/ingest uses for device-originated telemetry.
type MQTTChannel struct {
	cfg MQTTConfig
}

// NewMQTTChannel constructs an MQTTChannel over an already-connected
// client; internal/deliver owns one shared client per broker rather
// than one per channel.
func NewMQTTChannel(cfg MQTTConfig) (*MQTTChannel, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("mqtt channel: client is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("mqtt channel: topic is required")
	}
	return &MQTTChannel{cfg: cfg}, nil
}

// Type implements Channel.
func (c *MQTTChannel) Type() Type { return TypeMQTT }

// Send implements Channel.
func (c *MQTTChannel) Send(ctx context.Context, msg Message) error {
	if !c.cfg.Client.IsConnected() {
		return fmt.Errorf("mqtt channel: client not connected")
	}

	payload := msg.Body
	if payload == "" {
		payload = msg.Subject
	}

	token := c.cfg.Client.Publish(c.cfg.Topic, c.cfg.QoS, c.cfg.Retain, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt channel: publish to %s timed out", c.cfg.Topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt channel: publish to %s failed: %w", c.cfg.Topic, err)
	}
	return nil
}

// Test implements Channel.
func (c *MQTTChannel) Test(ctx context.Context, recipient string) error {
	return c.Send(ctx, Message{
		Subject: "Pulse notification channel test",
		Body:    "This MQTT channel is configured correctly.",
	})
}
