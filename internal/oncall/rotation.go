package oncall

import (
	"encoding/json"
	"time"
)

// layer is the raw row shape read from oncall_layers.
type layer struct {
	Position      int
	Responders    []string
	RotationType  string
	RotationStart time.Time
}

// rotationPeriod maps a layer's rotation_type keyword to a cadence.
// Unrecognized keywords fall back to weekly, the schema's own default.
func rotationPeriod(rotationType string) time.Duration {
	switch rotationType {
	case "daily":
		return 24 * time.Hour
	case "weekly":
		return 7 * 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

// currentResponder returns who is up in l's rotation at loc-local at.
// Elapsed time since rotation_start, in whole periods, indexes into
// Responders, wrapping around; floorDiv handles at occurring before
// rotation_start (a negative elapsed) without going out of bounds.
func (l layer) currentResponder(at time.Time) (string, bool) {
	if len(l.Responders) == 0 {
		return "", false
	}

	period := rotationPeriod(l.RotationType)
	elapsed := at.Sub(l.RotationStart)
	periods := floorDiv(int64(elapsed), int64(period))

	n := int64(len(l.Responders))
	idx := periods % n
	if idx < 0 {
		idx += n
	}
	return l.Responders[idx], true
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func unmarshalResponders(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var responders []string
	if err := json.Unmarshal(raw, &responders); err != nil {
		return nil, err
	}
	return responders, nil
}
