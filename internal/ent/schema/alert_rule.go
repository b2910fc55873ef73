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

// AlertRule holds the schema definition for a threshold alert rule.
type AlertRule struct {
	ent.Schema
}

// Fields of the AlertRule.
func (AlertRule) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.String("name").
			NotEmpty(),
		field.String("metric_name").
			NotEmpty(),
		field.Enum("operator").
			GoType(enum.RuleOperator("")),
		field.Float("threshold"),
		field.Int("severity").
			Min(1).
			Max(5).
			Default(3),
		field.Int("duration_seconds").
			Min(0).
			Default(0).
			Comment("0 fires on first breaching sample; >0 requires the breach to hold for a window"),
		field.JSON("site_ids", []string{}).
			Optional().
			Comment("Optional site filter; empty means all sites"),
		field.Bool("enabled").
			Default(true),
		field.UUID("escalation_policy_id", uuid.UUID{}).
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Edges of the AlertRule.
func (AlertRule) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("alerts", Alert.Type),
		edge.To("escalation_policy", EscalationPolicy.Type).
			Field("escalation_policy_id").
			Unique(),
	}
}

// Indexes of the AlertRule.
func (AlertRule) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "enabled"),
		index.Fields("tenant_id", "metric_name"),
	}
}

// Mixin of the AlertRule.
func (AlertRule) Mixin() []ent.Mixin {
	return []ent.Mixin{
		entmixin.TenantMixin{},
		entmixin.SoftDeleteMixin{},
	}
}
