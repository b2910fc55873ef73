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

// EscalationPolicy holds the schema definition for an ordered escalation
// policy referenced by AlertRules.
type EscalationPolicy struct {
	ent.Schema
}

// Fields of the EscalationPolicy.
func (EscalationPolicy) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.String("name").
			NotEmpty(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Edges of the EscalationPolicy.
func (EscalationPolicy) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("levels", EscalationLevel.Type),
	}
}

// Indexes of the EscalationPolicy.
func (EscalationPolicy) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id"),
	}
}

// Mixin of the EscalationPolicy.
func (EscalationPolicy) Mixin() []ent.Mixin {
	return []ent.Mixin{
		entmixin.TenantMixin{},
		entmixin.SoftDeleteMixin{},
	}
}
