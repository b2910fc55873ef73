package bus

import "fmt"

// Subject-building helpers for the three streams spec.md §4.6 names.
// Every subject is tenant-scoped so a consumer can filter to one
// tenant's traffic with a subject like "alerts.<tenant>", or the
// wildcard "telemetry.<tenant>.>" for telemetry.

// TelemetrySubject is where the ingestion pipeline publishes one
// message per accepted record, after a successful batch flush
// (spec.md §4.2).
func TelemetrySubject(tenantID, deviceID string) string {
	return fmt.Sprintf("telemetry.%s.%s", tenantID, deviceID)
}

// TelemetryWildcard matches every telemetry subject, for stream
// binding.
const TelemetryWildcard = "telemetry.>"

// AlertsSubject is where the evaluation engine publishes lifecycle
// events (OPENED, ACKNOWLEDGED, CLOSED, ESCALATED) and where the
// notification router subscribes (spec.md §4.3, §4.4).
func AlertsSubject(tenantID string) string {
	return fmt.Sprintf("alerts.%s", tenantID)
}

// AlertsWildcard matches every alerts subject.
const AlertsWildcard = "alerts.>"

// RoutesSubject is where the notification router publishes
// NotificationJobs and where the delivery worker subscribes
// (spec.md §4.4, §4.5).
func RoutesSubject(tenantID string) string {
	return fmt.Sprintf("routes.%s", tenantID)
}

// RoutesWildcard matches every routes subject.
const RoutesWildcard = "routes.>"
