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

// Alert holds the schema definition for a derived alert instance.
//
// Invariant: at most one row with status in (OPEN, ACKNOWLEDGED) may exist
// per (tenant_id, fingerprint). Enforced by a partial unique index; see
// the migration that creates it, not this schema (ENT cannot express a
// partial index predicate directly).
type Alert struct {
	ent.Schema
}

// Fields of the Alert.
func (Alert) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.UUID("device_id", uuid.UUID{}),
		field.String("site_id").
			Optional().
			Nillable(),
		field.Enum("alert_type").
			GoType(enum.AlertType("")),
		field.String("fingerprint").
			NotEmpty().
			Immutable().
			Comment("Deterministic dedup key, e.g. RULE:<rule_id>:<device_id>"),
		field.Enum("status").
			GoType(enum.AlertStatus("")).
			Default(string(enum.AlertStatusOpen)),
		field.Int("severity").
			Min(1).
			Max(5),
		field.Float("confidence").
			Min(0).
			Max(1).
			Default(1),
		field.String("summary").
			NotEmpty(),
		field.JSON("details", map[string]interface{}{}).
			Optional(),
		field.Int("escalation_level").
			Default(0),
		field.Time("next_escalation_at").
			Optional().
			Nillable(),
		field.Time("opened_at").
			Default(time.Now).
			Immutable(),
		field.Time("closed_at").
			Optional().
			Nillable(),
		field.UUID("rule_id", uuid.UUID{}).
			Optional().
			Nillable().
			Immutable(),
	}
}

// Edges of the Alert.
func (Alert) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("rule", AlertRule.Type).
			Ref("alerts").
			Field("rule_id").
			Unique().
			Immutable(),
		edge.To("jobs", NotificationJob.Type),
	}
}

// Indexes of the Alert.
func (Alert) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "fingerprint"),
		index.Fields("tenant_id", "device_id"),
		index.Fields("tenant_id", "status"),
		index.Fields("tenant_id", "next_escalation_at"),
	}
}

// Mixin of the Alert.
func (Alert) Mixin() []ent.Mixin {
	return []ent.Mixin{
		entmixin.TenantMixin{},
	}
}
