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
	"github.com/volaticloud/pulse/internal/secrets"
)

// NotificationChannel holds the schema definition for a delivery transport
// (webhook, snmp, email, mqtt) configured by a tenant.
type NotificationChannel struct {
	ent.Schema
}

// Fields of the NotificationChannel.
func (NotificationChannel) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.String("name").
			NotEmpty(),
		field.Enum("type").
			GoType(enum.ChannelType("")),
		field.JSON("config", map[string]interface{}{}).
			Optional().
			Sensitive().
			Comment("Channel-specific config; secret dot-paths are encrypted at rest, see internal/secrets"),
		field.Bool("enabled").
			Default(true),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Edges of the NotificationChannel.
func (NotificationChannel) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("routing_rules", NotificationRoutingRule.Type),
	}
}

// Indexes of the NotificationChannel.
func (NotificationChannel) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "type"),
	}
}

// Hooks of the NotificationChannel.
func (NotificationChannel) Hooks() []ent.Hook {
	return []ent.Hook{
		secrets.EncryptHook("config", secrets.ChannelSecretConfigPaths),
	}
}

// Mixin of the NotificationChannel.
func (NotificationChannel) Mixin() []ent.Mixin {
	return []ent.Mixin{
		entmixin.TenantMixin{},
		entmixin.SoftDeleteMixin{},
	}
}
