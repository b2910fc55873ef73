package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/volaticloud/pulse/internal/enum"
	"github.com/volaticloud/pulse/internal/logger"
)

// topicFilter subscribes to every tenant/device combination's
// telemetry, heartbeat, and shadow messages. Device authentication for
// the MQTT path happens at the broker (an ACL hook backed by
// DeviceCredential, spec.md §4.2) rather than per message here, since
// this subscriber is itself a privileged internal client of the
// broker, not a stand-in for it.
const topicFilter = "telemetry/+/+/+"

const subscribeTimeout = 10 * time.Second

var errSubscribeTimeout = errors.New("ingest: mqtt subscribe timed out")

// SubscribeMQTT attaches the ingest pipeline to an already-connected
// paho client, following the same Accept path as the HTTP handler.
// The returned func unsubscribes and may be called during shutdown.
func SubscribeMQTT(ctx context.Context, client mqtt.Client, pipeline *Pipeline) (func(), error) {
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		handleMQTTMessage(ctx, pipeline, msg.Topic(), msg.Payload())
	}

	token := client.Subscribe(topicFilter, 1, handler)
	if !token.WaitTimeout(subscribeTimeout) {
		return nil, errSubscribeTimeout
	}
	if err := token.Error(); err != nil {
		return nil, err
	}

	return func() {
		client.Unsubscribe(topicFilter)
	}, nil
}

func handleMQTTMessage(ctx context.Context, pipeline *Pipeline, topic string, payload []byte) {
	log := logger.GetLogger(ctx)

	tenantID, deviceID, msgType, ok := parseTopic(topic)
	if !ok {
		log.Error("ingest: malformed mqtt topic, dropping", zap.String("topic", topic))
		return
	}

	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		if qerr := quarantineRejected(ctx, pipeline.pool, tenantID, deviceID, topic, enum.ReasonSchemaInvalid, payload, ""); qerr != nil {
			log.Error("ingest: quarantine malformed mqtt payload failed", zap.String("topic", topic), zap.Error(qerr))
		}
		return
	}
	if env.MsgType == "" {
		env.MsgType = msgType
	}
	if env.DeviceID == "" {
		env.DeviceID = deviceID
	}

	if err := pipeline.Accept(ctx, tenantID, deviceID, topic, env, payload, "", ""); err != nil {
		log.Debug("ingest: mqtt message rejected", zap.String("topic", topic), zap.Error(err))
	}
}

// parseTopic splits "telemetry/<tenant>/<device>/<msgtype>" into its
// segments.
func parseTopic(topic string) (tenantID, deviceID string, msgType enum.EnvelopeMsgType, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != "telemetry" {
		return "", "", "", false
	}
	return parts[1], parts[2], enum.EnvelopeMsgType(parts[3]), true
}
