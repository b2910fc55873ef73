package timeseries

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/volaticloud/pulse/internal/enum"
)

func TestQuarantineEvent_ToRow(t *testing.T) {
	event := QuarantineEvent{
		TenantID:        "tenant-acme",
		DeviceID:        "dev-1",
		Topic:           "devices/dev-1/telemetry",
		ReasonCode:      enum.ReasonRateLimited,
		Payload:         []byte(`{"ts":1}`),
		EnvelopeVersion: "1",
	}

	row := event.ToRow()
	assert.Equal(t, "tenant-acme", row.TenantID)
	assert.Equal(t, "rate_limited", row.Cols[4])
	assert.Equal(t, []byte(`{"ts":1}`), row.Cols[5])
}
