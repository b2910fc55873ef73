package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"github.com/google/uuid"

	entmixin "github.com/volaticloud/pulse/internal/ent/mixin"
)

// OnCallOverride holds the schema definition for an explicit time-windowed
// override of an OnCallSchedule's rotation. The newest override covering a
// given instant wins over the layer rotation.
type OnCallOverride struct {
	ent.Schema
}

// Fields of the OnCallOverride.
func (OnCallOverride) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.String("responder").
			NotEmpty(),
		field.Time("starts_at"),
		field.Time("ends_at"),
		field.UUID("schedule_id", uuid.UUID{}).
			Immutable(),
	}
}

// Edges of the OnCallOverride.
func (OnCallOverride) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("schedule", OnCallSchedule.Type).
			Ref("overrides").
			Field("schedule_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the OnCallOverride.
func (OnCallOverride) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "schedule_id", "starts_at"),
	}
}

// Mixin of the OnCallOverride.
func (OnCallOverride) Mixin() []ent.Mixin {
	return []ent.Mixin{
		entmixin.TenantMixin{},
	}
}
