package timeseries

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelemetryRecord_ToRow(t *testing.T) {
	seq := int64(42)
	rec := TelemetryRecord{
		TenantID:        "tenant-acme",
		DeviceID:        "dev-1",
		SiteID:          "site-a",
		Sequence:        &seq,
		Metrics:         map[string]interface{}{"temp_c": 41.2},
		EnvelopeVersion: "1",
	}

	row, err := rec.ToRow()
	require.NoError(t, err)
	assert.Equal(t, "tenant-acme", row.TenantID)
	require.Len(t, row.Cols, 7)
	assert.Equal(t, "dev-1", row.Cols[2])
	assert.Equal(t, "site-a", row.Cols[3])
	assert.Equal(t, int64(42), row.Cols[4])
	assert.JSONEq(t, `{"temp_c":41.2}`, string(row.Cols[5].([]byte)))
	assert.Equal(t, "1", row.Cols[6])
}

func TestTelemetryRecord_ToRow_NilSequence(t *testing.T) {
	rec := TelemetryRecord{
		TenantID:        "tenant-acme",
		DeviceID:        "dev-1",
		Metrics:         map[string]interface{}{},
		EnvelopeVersion: "1",
	}

	row, err := rec.ToRow()
	require.NoError(t, err)
	assert.Nil(t, row.Cols[4])
}

func TestWithValueAlias_ReplacesBareWord(t *testing.T) {
	got := withValueAlias("value > 40")
	assert.Equal(t, "(metrics->>$3)::numeric > 40", got)
}

func TestWithValueAlias_DoesNotMatchInsideIdentifier(t *testing.T) {
	got := withValueAlias("observed_value > 40")
	assert.Equal(t, "observed_value > 40", got)
}

func TestWithValueAlias_MultipleOccurrences(t *testing.T) {
	got := withValueAlias("value > 0 AND value < 100")
	assert.Equal(t, "(metrics->>$3)::numeric > 0 AND (metrics->>$3)::numeric < 100", got)
}
