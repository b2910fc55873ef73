package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"github.com/google/uuid"

	entmixin "github.com/volaticloud/pulse/internal/ent/mixin"
)

// NotificationAttempt holds the schema definition for a single append-only
// delivery attempt against a NotificationJob.
type NotificationAttempt struct {
	ent.Schema
}

// Fields of the NotificationAttempt.
func (NotificationAttempt) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.Int("attempt_no").
			Min(1).
			Immutable(),
		field.Bool("ok").
			Immutable(),
		field.String("transport_status").
			Optional().
			Immutable().
			Comment("Transport-level status, e.g. HTTP status code or SNMP error-status"),
		field.Int64("latency_ms").
			Immutable(),
		field.String("error").
			Optional().
			Nillable().
			Immutable(),
		field.UUID("job_id", uuid.UUID{}).
			Immutable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the NotificationAttempt.
func (NotificationAttempt) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("job", NotificationJob.Type).
			Ref("attempts_log").
			Field("job_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the NotificationAttempt.
func (NotificationAttempt) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "job_id", "attempt_no").Unique(),
	}
}

// Mixin of the NotificationAttempt.
func (NotificationAttempt) Mixin() []ent.Mixin {
	return []ent.Mixin{
		entmixin.TenantMixin{},
	}
}
