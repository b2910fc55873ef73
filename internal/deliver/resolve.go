package deliver

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	mqttlib "github.com/eclipse/paho.mqtt.golang"

	"github.com/volaticloud/pulse/internal/deliver/channel"
	"github.com/volaticloud/pulse/internal/enum"
	"github.com/volaticloud/pulse/internal/secrets"
)

// channelRow is the NotificationChannel data the worker needs to
// build a concrete channel.Channel.
type channelRow struct {
	ID     string
	Type   enum.ChannelType
	Config map[string]interface{}
}

func loadChannelRow(ctx context.Context, tx *sql.Tx, tenantID, channelID string) (channelRow, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, type, config FROM notification_channels
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	`, tenantID, channelID)

	var (
		ch        channelRow
		configRaw []byte
	)
	if err := row.Scan(&ch.ID, &ch.Type, &configRaw); err != nil {
		return channelRow{}, fmt.Errorf("deliver: load channel %s: %w", channelID, err)
	}

	if len(configRaw) > 0 {
		if err := json.Unmarshal(configRaw, &ch.Config); err != nil {
			return channelRow{}, fmt.Errorf("deliver: unmarshal channel %s config: %w", channelID, err)
		}
	}
	if err := secrets.DecryptFields(ch.Config, secrets.ChannelSecretConfigPaths); err != nil {
		return channelRow{}, fmt.Errorf("deliver: decrypt channel %s config: %w", channelID, err)
	}
	return ch, nil
}

// mqttClients is shared across channel resolutions rather than dialed
// per message; internal/deliver's cmd entrypoint owns one connected
// client per configured broker and passes this map in.
type mqttClients map[string]mqttlib.Client

// buildChannel constructs the concrete channel.Channel for a row,
// pulling typed settings out of the nested config sub-object named
// after the channel type, matching internal/secrets.ChannelSecretConfigPaths'
// dot-path layout ("webhook.signingKey", "email.apiKey", and so on).
func buildChannel(row channelRow, clients mqttClients) (channel.Channel, error) {
	switch row.Type {
	case enum.ChannelTypeWebhook:
		sub := subConfig(row.Config, "webhook")
		return channel.NewWebhookChannel(channel.WebhookConfig{
			URL:        stringField(sub, "url"),
			SigningKey: stringField(sub, "signingKey"),
			Headers:    stringMapField(sub, "headers"),
		})

	case enum.ChannelTypeEmail:
		sub := subConfig(row.Config, "email")
		return channel.NewEmailChannel(channel.EmailConfig{
			APIKey:    stringField(sub, "apiKey"),
			FromEmail: stringField(sub, "fromEmail"),
			FromName:  stringField(sub, "fromName"),
		})

	case enum.ChannelTypeSNMP:
		sub := subConfig(row.Config, "snmp")
		return channel.NewSNMPChannel(channel.SNMPConfig{
			Address:   stringField(sub, "address"),
			Community: stringField(sub, "community"),
			OIDPrefix: stringField(sub, "oidPrefix"),
		})

	case enum.ChannelTypeMQTT:
		sub := subConfig(row.Config, "mqtt")
		broker := stringField(sub, "broker")
		client, ok := clients[broker]
		if !ok {
			return nil, fmt.Errorf("deliver: no connected mqtt client for broker %q", broker)
		}
		return channel.NewMQTTChannel(channel.MQTTConfig{
			Client: client,
			Topic:  stringField(sub, "topic"),
			QoS:    byte(intField(sub, "qos")),
			Retain: boolField(sub, "retain"),
		})

	default:
		return nil, fmt.Errorf("deliver: unknown channel type %q", row.Type)
	}
}

func subConfig(config map[string]interface{}, key string) map[string]interface{} {
	v, ok := config[key].(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return v
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func boolField(m map[string]interface{}, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func intField(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func stringMapField(m map[string]interface{}, key string) map[string]string {
	raw, ok := m[key].(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
