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

// Device holds the schema definition for a provisioned IoT device.
type Device struct {
	ent.Schema
}

// Fields of the Device.
func (Device) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.String("device_id").
			NotEmpty().
			Immutable().
			Comment("Tenant-scoped natural device identifier used on the wire"),
		field.String("display_name").
			NotEmpty(),
		field.String("device_type").
			Optional().
			Comment("Free-form type/model identifier, e.g. 'sensor-v2'"),
		field.String("site_id").
			Optional().
			Nillable(),
		field.Float("lat").
			Optional().
			Nillable(),
		field.Float("lon").
			Optional().
			Nillable(),
		field.Enum("status").
			GoType(enum.DeviceStatus("")).
			Default(string(enum.DeviceStatusProvisioned)),
		field.Time("last_seen_at").
			Optional().
			Nillable(),
		field.String("template_id").
			Optional().
			Nillable().
			Comment("Optional reference to a provisioning template"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Edges of the Device.
func (Device) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("credentials", DeviceCredential.Type),
	}
}

// Indexes of the Device.
func (Device) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "device_id").Unique(),
		index.Fields("tenant_id", "status"),
		index.Fields("tenant_id", "site_id"),
	}
}

// Mixin of the Device.
func (Device) Mixin() []ent.Mixin {
	return []ent.Mixin{
		entmixin.TenantMixin{},
		entmixin.SoftDeleteMixin{},
	}
}
