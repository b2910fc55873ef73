// Package events defines the wire shape of messages carried on the
// ALERTS and ROUTES subjects (internal/bus), shared between the
// packages that produce and consume them so neither has to guess the
// other's JSON shape.
package events

import (
	"time"

	"github.com/volaticloud/pulse/internal/enum"
)

// AlertEvent is published by internal/evaluate on the ALERTS subject
// for every lifecycle transition, and consumed by internal/route, per
// spec.md §4.4's stated contract fields. OccurredAt is the tick's
// evaluation instant, carried so the router can resolve an on-call
// schedule's effective responder "at the event time" (spec.md §4.4
// step 3) rather than at whatever later instant the router happens to
// process the message.
type AlertEvent struct {
	TenantID   string              `json:"tenant_id"`
	AlertID    string              `json:"alert_id"`
	AlertType  enum.AlertType      `json:"alert_type"`
	Severity   int                 `json:"severity"`
	SiteID     string              `json:"site_id,omitempty"`
	DeviceID   string              `json:"device_id"`
	Event      enum.DeliverOnEvent `json:"event"`
	OccurredAt time.Time           `json:"occurred_at"`
}

// RouteJob is published by internal/route on the ROUTES subject after
// enqueuing a NotificationJob, per spec.md §4.4 step 5. The delivery
// worker subscribes to this to know a new job is ready without polling
// the jobs table. ResolvedRecipient carries the on-call responder
// internal/route already resolved for channels that reference a
// schedule, so internal/deliver does not need to re-resolve it (and
// risk resolving against a different instant than the routing decision
// was made at).
type RouteJob struct {
	TenantID          string              `json:"tenant_id"`
	JobID             string              `json:"job_id"`
	AlertID           string              `json:"alert_id"`
	ChannelID         string              `json:"channel_id"`
	DeliverOnEvent    enum.DeliverOnEvent `json:"deliver_on_event"`
	ResolvedRecipient string              `json:"resolved_recipient,omitempty"`
}
