package oncall

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ErrNoResponder is returned when a schedule has no override covering
// at and no layer with at least one responder configured.
var ErrNoResponder = fmt.Errorf("oncall: no responder resolves for this schedule at this time")

// Resolve returns the effective responder for scheduleID at instant at,
// per spec.md §3: the newest override window covering at wins; absent
// one, the highest-position layer with a configured responder list
// wins, evaluated in the schedule's timezone.
func Resolve(ctx context.Context, tx *sql.Tx, tenantID, scheduleID string, at time.Time) (string, error) {
	tz, err := scheduleTimezone(ctx, tx, tenantID, scheduleID)
	if err != nil {
		return "", err
	}
	at = at.In(tz)

	if responder, ok, err := overrideResponder(ctx, tx, tenantID, scheduleID, at); err != nil {
		return "", err
	} else if ok {
		return responder, nil
	}

	layers, err := scheduleLayers(ctx, tx, tenantID, scheduleID)
	if err != nil {
		return "", err
	}

	for _, l := range layers {
		if responder, ok := l.currentResponder(at); ok {
			return responder, nil
		}
	}

	return "", ErrNoResponder
}

func scheduleTimezone(ctx context.Context, tx *sql.Tx, tenantID, scheduleID string) (*time.Location, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT timezone FROM oncall_schedules WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL
	`, tenantID, scheduleID)

	var tzName string
	if err := row.Scan(&tzName); err != nil {
		return nil, fmt.Errorf("oncall: load schedule %s: %w", scheduleID, err)
	}

	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("oncall: load timezone %q: %w", tzName, err)
	}
	return loc, nil
}

// overrideResponder returns the responder of the override window
// covering at with the latest starts_at, if any ("newest wins").
func overrideResponder(ctx context.Context, tx *sql.Tx, tenantID, scheduleID string, at time.Time) (string, bool, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT responder
		FROM oncall_overrides
		WHERE tenant_id = $1 AND schedule_id = $2 AND starts_at <= $3 AND ends_at > $3
		ORDER BY starts_at DESC
		LIMIT 1
	`, tenantID, scheduleID, at)

	var responder string
	if err := row.Scan(&responder); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("oncall: query overrides for schedule %s: %w", scheduleID, err)
	}
	return responder, true, nil
}

func scheduleLayers(ctx context.Context, tx *sql.Tx, tenantID, scheduleID string) ([]layer, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT position, responders, rotation_type, rotation_start
		FROM oncall_layers
		WHERE tenant_id = $1 AND schedule_id = $2
		ORDER BY position DESC
	`, tenantID, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("oncall: query layers for schedule %s: %w", scheduleID, err)
	}
	defer rows.Close()

	var out []layer
	for rows.Next() {
		var (
			l             layer
			respondersRaw []byte
		)
		if err := rows.Scan(&l.Position, &respondersRaw, &l.RotationType, &l.RotationStart); err != nil {
			return nil, fmt.Errorf("oncall: scan layer row: %w", err)
		}
		responders, err := unmarshalResponders(respondersRaw)
		if err != nil {
			return nil, fmt.Errorf("oncall: unmarshal responders for schedule %s: %w", scheduleID, err)
		}
		l.Responders = responders
		out = append(out, l)
	}
	return out, rows.Err()
}
