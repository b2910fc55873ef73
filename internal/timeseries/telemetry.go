package timeseries

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/lib/pq"

	"github.com/volaticloud/pulse/internal/tenant"
)

// TelemetryRecord is one accepted envelope, as persisted by the batch
// writer. It is never managed through ent: spec.md §3 calls it
// append-only and partitioned by time, with a bulk write path that
// bypasses row-by-row ORM inserts.
type TelemetryRecord struct {
	Time            time.Time
	TenantID        string
	DeviceID        string
	SiteID          string // empty if the device carries no site
	Sequence        *int64 // nil if the envelope carried no seq
	Metrics         map[string]interface{}
	EnvelopeVersion string
}

// telemetryTable and its column order must match the CopyIn statement
// below and the migration that creates the hypertable-style telemetry
// table (internal/timeseries's companion migration SQL).
const telemetryTable = "telemetry"

var telemetryColumns = []string{
	"time", "tenant_id", "device_id", "site_id", "seq", "metrics", "envelope_version",
}

// ToRow adapts a TelemetryRecord into a tenant.Row for use with
// tenant.BatchWriter, whose FlushFunc is InsertTelemetryBatch below.
func (r TelemetryRecord) ToRow() (tenant.Row, error) {
	metrics, err := json.Marshal(r.Metrics)
	if err != nil {
		return tenant.Row{}, fmt.Errorf("timeseries: marshal metrics: %w", err)
	}

	var seq interface{}
	if r.Sequence != nil {
		seq = *r.Sequence
	}

	return tenant.Row{
		TenantID: r.TenantID,
		Cols:     []interface{}{r.Time, r.TenantID, r.DeviceID, r.SiteID, seq, metrics, r.EnvelopeVersion},
	}, nil
}

// InsertTelemetryBatch bulk-inserts rows for one tenant using
// pq.CopyIn. It is the sole bulk path to the telemetry table per
// spec.md §4.2; nothing else writes to this table. It satisfies
// tenant.FlushFunc and is meant to be passed directly to
// tenant.NewBatchWriter.
func InsertTelemetryBatch(ctx context.Context, tx *sql.Tx, tenantID string, rows []tenant.Row) error {
	if len(rows) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(telemetryTable, telemetryColumns...))
	if err != nil {
		return fmt.Errorf("timeseries: prepare copy-in: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.Cols...); err != nil {
			return fmt.Errorf("timeseries: copy-in row: %w", err)
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("timeseries: flush copy-in: %w", err)
	}

	return nil
}

// LatestRollup is the per-device snapshot the evaluation engine fetches
// once per tick: the most recent metrics map and when it was observed.
type LatestRollup struct {
	DeviceID   string
	SiteID     string
	LastSeenAt time.Time
	Metrics    map[string]interface{}
}

// FetchLatestRollup returns the latest metrics map and last-seen time
// for every device with a telemetry row within window, per spec.md
// §4.3 step 1. It reads only rows visible under the tenant-scoped role;
// tenantID narrows the query further for index selectivity.
func FetchLatestRollup(ctx context.Context, tx *sql.Tx, tenantID string, window time.Duration) ([]LatestRollup, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT DISTINCT ON (device_id) device_id, site_id, time, metrics
		FROM telemetry
		WHERE tenant_id = $1 AND time >= $2
		ORDER BY device_id, time DESC
	`, tenantID, time.Now().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("timeseries: query rollup: %w", err)
	}
	defer rows.Close()

	var out []LatestRollup
	for rows.Next() {
		var (
			deviceID string
			siteID   sql.NullString
			seenAt   time.Time
			raw      []byte
		)
		if err := rows.Scan(&deviceID, &siteID, &seenAt, &raw); err != nil {
			return nil, fmt.Errorf("timeseries: scan rollup row: %w", err)
		}
		metrics := map[string]interface{}{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &metrics); err != nil {
				return nil, fmt.Errorf("timeseries: unmarshal rollup metrics: %w", err)
			}
		}
		out = append(out, LatestRollup{DeviceID: deviceID, SiteID: siteID.String, LastSeenAt: seenAt, Metrics: metrics})
	}
	return out, rows.Err()
}

// ThresholdWindowCounts answers spec.md §4.3 step 4's duration>0 branch:
// how many samples in the trailing window have the metric present at
// all (total), and how many of those violate the predicate (failing).
// The caller fires the rule only when total > 0 and failing == 0 (every
// sample present breaches).
type ThresholdWindowCounts struct {
	Total   int
	Failing int
}

// CountThresholdWindow runs predicateSQL as a boolean expression over
// the numeric value extracted from metrics->>metricName, e.g.
// "value > 40". predicateSQL is built from a fixed, enum-validated
// operator set (internal/enum.RuleOperator) by the caller, never from
// untrusted input, so it is safe to interpolate into the query text.
func CountThresholdWindow(ctx context.Context, tx *sql.Tx, tenantID, deviceID, metricName, predicateSQL string, since time.Duration) (ThresholdWindowCounts, error) {
	query := fmt.Sprintf(`
		SELECT
			count(*) FILTER (WHERE metrics ? $3) AS total,
			count(*) FILTER (WHERE metrics ? $3 AND NOT (%s)) AS failing
		FROM telemetry
		WHERE tenant_id = $1 AND device_id = $2 AND time >= $4
	`, withValueAlias(predicateSQL))

	row := tx.QueryRowContext(ctx, query, tenantID, deviceID, metricName, time.Now().Add(-since))

	var counts ThresholdWindowCounts
	if err := row.Scan(&counts.Total, &counts.Failing); err != nil {
		return ThresholdWindowCounts{}, fmt.Errorf("timeseries: count threshold window: %w", err)
	}
	return counts, nil
}

// valuePlaceholder matches the bare word "value" in a predicate
// expression, e.g. "value > 40", without matching it inside a longer
// identifier.
var valuePlaceholder = regexp.MustCompile(`\bvalue\b`)

// withValueAlias rewrites the caller-supplied "value" placeholder into
// the jsonb metric extraction expression used against the metrics
// column, so predicate builders can write e.g. "value > 40" without
// knowing the storage representation.
func withValueAlias(predicateSQL string) string {
	return valuePlaceholder.ReplaceAllLiteralString(predicateSQL, "(metrics->>$3)::numeric")
}
