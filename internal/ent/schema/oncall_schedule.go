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

// OnCallSchedule holds the schema definition for a named on-call schedule.
// The effective responder at a point in time is computed from its layers
// overlaid by any applicable overrides; see internal/oncall.
type OnCallSchedule struct {
	ent.Schema
}

// Fields of the OnCallSchedule.
func (OnCallSchedule) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.String("name").
			NotEmpty(),
		field.String("timezone").
			Default("UTC").
			Comment("IANA timezone name the rotation is evaluated in"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Edges of the OnCallSchedule.
func (OnCallSchedule) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("layers", OnCallLayer.Type),
		edge.To("overrides", OnCallOverride.Type),
	}
}

// Indexes of the OnCallSchedule.
func (OnCallSchedule) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id"),
	}
}

// Mixin of the OnCallSchedule.
func (OnCallSchedule) Mixin() []ent.Mixin {
	return []ent.Mixin{
		entmixin.TenantMixin{},
		entmixin.SoftDeleteMixin{},
	}
}
