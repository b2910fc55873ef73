package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"github.com/google/uuid"

	entmixin "github.com/volaticloud/pulse/internal/ent/mixin"
)

// DeadLetter holds the schema definition for a permanently failed delivery
// job. replayed_at is a nullable marker column; internal/deliver only
// writes DeadLetter rows and has no path that re-enqueues a
// NotificationJob from one.
type DeadLetter struct {
	ent.Schema
}

// Fields of the DeadLetter.
func (DeadLetter) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.UUID("job_id", uuid.UUID{}).
			Immutable(),
		field.UUID("alert_id", uuid.UUID{}).
			Immutable(),
		field.UUID("channel_id", uuid.UUID{}).
			Immutable(),
		field.Int("attempts").
			Immutable(),
		field.String("last_error").
			Immutable(),
		field.Time("failed_at").
			Default(time.Now).
			Immutable(),
		field.Time("replayed_at").
			Optional().
			Nillable(),
	}
}

// Indexes of the DeadLetter.
func (DeadLetter) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "job_id"),
		index.Fields("tenant_id", "failed_at"),
	}
}

// Mixin of the DeadLetter.
func (DeadLetter) Mixin() []ent.Mixin {
	return []ent.Mixin{
		entmixin.TenantMixin{},
	}
}
