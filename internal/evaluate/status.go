package evaluate

import (
	"time"

	"github.com/volaticloud/pulse/internal/enum"
)

// StatusConfig holds the staleness windows spec.md §4.3 step 2 names.
type StatusConfig struct {
	OnlineWindow time.Duration
	StaleWindow  time.Duration
}

// DefaultStatusConfig matches spec.md's stated defaults: ONLINE within
// 2 minutes, STALE within 10 minutes, OFFLINE beyond that.
func DefaultStatusConfig() StatusConfig {
	return StatusConfig{
		OnlineWindow: 2 * time.Minute,
		StaleWindow:  10 * time.Minute,
	}
}

// ComputeStatus derives a device's current status from how long ago it
// was last seen, relative to now.
func ComputeStatus(lastSeenAt, now time.Time, cfg StatusConfig) enum.DeviceStatus {
	age := now.Sub(lastSeenAt)
	switch {
	case age <= cfg.OnlineWindow:
		return enum.DeviceStatusOnline
	case age <= cfg.StaleWindow:
		return enum.DeviceStatusStale
	default:
		return enum.DeviceStatusOffline
	}
}
