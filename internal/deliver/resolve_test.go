package deliver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volaticloud/pulse/internal/deliver/channel"
	"github.com/volaticloud/pulse/internal/enum"
)

func TestBuildChannel_Webhook(t *testing.T) {
	row := channelRow{
		Type: enum.ChannelTypeWebhook,
		Config: map[string]interface{}{
			"webhook": map[string]interface{}{
				"url":        "https://example.com/hook",
				"signingKey": "secret",
			},
		},
	}

	ch, err := buildChannel(row, nil)
	require.NoError(t, err)
	assert.Equal(t, channel.TypeWebhook, ch.Type())
}

func TestBuildChannel_MQTTMissingClientErrors(t *testing.T) {
	row := channelRow{
		Type: enum.ChannelTypeMQTT,
		Config: map[string]interface{}{
			"mqtt": map[string]interface{}{
				"broker": "primary",
				"topic":  "alerts/out",
			},
		},
	}

	_, err := buildChannel(row, mqttClients{})
	assert.Error(t, err)
}

func TestBuildChannel_UnknownTypeErrors(t *testing.T) {
	row := channelRow{Type: enum.ChannelType("carrier-pigeon")}
	_, err := buildChannel(row, nil)
	assert.Error(t, err)
}

func TestStringMapField(t *testing.T) {
	m := map[string]interface{}{
		"headers": map[string]interface{}{
			"Authorization": "Bearer xyz",
			"X-Custom":      "value",
		},
	}
	headers := stringMapField(m, "headers")
	assert.Equal(t, "Bearer xyz", headers["Authorization"])
	assert.Equal(t, "value", headers["X-Custom"])
}

func TestIntField_FromFloat64(t *testing.T) {
	m := map[string]interface{}{"qos": float64(2)}
	assert.Equal(t, 2, intField(m, "qos"))
}
