package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"github.com/google/uuid"

	entmixin "github.com/volaticloud/pulse/internal/ent/mixin"
)

// OnCallLayer holds the schema definition for one ordered rotation layer
// within an OnCallSchedule.
type OnCallLayer struct {
	ent.Schema
}

// Fields of the OnCallLayer.
func (OnCallLayer) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.Int("position").
			Min(0).
			Comment("Stacking order; higher positions are layered over lower ones"),
		field.JSON("responders", []string{}).
			Comment("Ordered list of responder identifiers participating in the rotation"),
		field.String("rotation_type").
			Default("weekly").
			Comment("Rotation cadence keyword, e.g. daily, weekly"),
		field.Time("rotation_start").
			Comment("Anchor instant the rotation's first handoff is computed from"),
		field.UUID("schedule_id", uuid.UUID{}).
			Immutable(),
	}
}

// Edges of the OnCallLayer.
func (OnCallLayer) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("schedule", OnCallSchedule.Type).
			Ref("layers").
			Field("schedule_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the OnCallLayer.
func (OnCallLayer) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "schedule_id", "position"),
	}
}

// Mixin of the OnCallLayer.
func (OnCallLayer) Mixin() []ent.Mixin {
	return []ent.Mixin{
		entmixin.TenantMixin{},
	}
}
