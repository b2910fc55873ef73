package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"github.com/google/uuid"

	entmixin "github.com/volaticloud/pulse/internal/ent/mixin"
)

// EscalationLevel holds the schema definition for one ordered level (1..5)
// within an EscalationPolicy.
type EscalationLevel struct {
	ent.Schema
}

// Fields of the EscalationLevel.
func (EscalationLevel) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.Int("level").
			Min(1).
			Max(5).
			Comment("Ordinal position within the policy"),
		field.Int("delay_minutes").
			Min(0),
		field.JSON("targets", []map[string]interface{}{}).
			Optional().
			Comment("Notification targets: {\"kind\":\"email\",\"address\":...} | {\"kind\":\"webhook\",\"channel_id\":...} | {\"kind\":\"oncall\",\"schedule_id\":...}"),
		field.UUID("policy_id", uuid.UUID{}).
			Immutable(),
	}
}

// Edges of the EscalationLevel.
func (EscalationLevel) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("policy", EscalationPolicy.Type).
			Ref("levels").
			Field("policy_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the EscalationLevel.
func (EscalationLevel) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "policy_id", "level").Unique(),
	}
}

// Mixin of the EscalationLevel.
func (EscalationLevel) Mixin() []ent.Mixin {
	return []ent.Mixin{
		entmixin.TenantMixin{},
	}
}
