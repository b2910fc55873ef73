package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"github.com/google/uuid"

	entmixin "github.com/volaticloud/pulse/internal/ent/mixin"
	"github.com/volaticloud/pulse/internal/enum"
)

// NotificationJob holds the schema definition for a queued delivery job.
//
// Invariant: (alert_id, channel_id, deliver_on_event) is unique — enqueue
// is idempotent per lifecycle event, enforced by a unique index here
// (unlike Alert's partial index, this one has no predicate so a plain
// ENT unique index composite suffices).
type NotificationJob struct {
	ent.Schema
}

// Fields of the NotificationJob.
func (NotificationJob) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.UUID("alert_id", uuid.UUID{}).
			Immutable(),
		field.UUID("channel_id", uuid.UUID{}).
			Immutable(),
		field.Enum("deliver_on_event").
			GoType(enum.DeliverOnEvent("")).
			Immutable(),
		field.Enum("status").
			GoType(enum.JobStatus("")).
			Default(string(enum.JobStatusPending)),
		field.Int("attempts").
			Default(0),
		field.String("last_error").
			Optional().
			Nillable(),
		field.Time("next_attempt_at").
			Optional().
			Nillable().
			Comment("Ack-and-schedule retry: when PENDING, the worker poller skips rows until this time"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the NotificationJob.
func (NotificationJob) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("alert", Alert.Type).
			Ref("jobs").
			Field("alert_id").
			Unique().
			Required().
			Immutable(),
		edge.To("attempts_log", NotificationAttempt.Type),
	}
}

// Indexes of the NotificationJob.
func (NotificationJob) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "alert_id", "channel_id", "deliver_on_event").Unique(),
		index.Fields("tenant_id", "status"),
		index.Fields("tenant_id", "status", "next_attempt_at"),
	}
}

// Mixin of the NotificationJob.
func (NotificationJob) Mixin() []ent.Mixin {
	return []ent.Mixin{
		entmixin.TenantMixin{},
	}
}
