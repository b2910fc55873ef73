package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"github.com/google/uuid"

	entmixin "github.com/volaticloud/pulse/internal/ent/mixin"
)

// NotificationRoutingRule holds the schema definition for a rule matching
// alert lifecycle events to a NotificationChannel.
type NotificationRoutingRule struct {
	ent.Schema
}

// Fields of the NotificationRoutingRule.
func (NotificationRoutingRule) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.Int("min_severity").
			Min(1).
			Max(5).
			Default(1),
		field.String("alert_type").
			Optional().
			Nillable().
			Comment("Optional alert_type filter; unset matches any type"),
		field.JSON("site_ids", []string{}).
			Optional(),
		field.JSON("device_prefixes", []string{}).
			Optional().
			Comment("Optional device_id prefix filters; empty matches any device"),
		field.JSON("deliver_on", []string{}).
			Comment("Subset of OPENED/ACKNOWLEDGED/CLOSED/ESCALATED this rule fires on"),
		field.Int("priority").
			Default(0),
		field.UUID("channel_id", uuid.UUID{}),
		field.Time("created_at").
			Default(time.Now).
			Immutable().
			Comment("Tie-breaker for priority ordering, spec.md §4.4"),
	}
}

// Edges of the NotificationRoutingRule.
func (NotificationRoutingRule) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("channel", NotificationChannel.Type).
			Ref("routing_rules").
			Field("channel_id").
			Unique().
			Required().
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the NotificationRoutingRule.
func (NotificationRoutingRule) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "channel_id"),
		index.Fields("tenant_id", "priority", "created_at"),
	}
}

// Mixin of the NotificationRoutingRule.
func (NotificationRoutingRule) Mixin() []ent.Mixin {
	return []ent.Mixin{
		entmixin.TenantMixin{},
	}
}
