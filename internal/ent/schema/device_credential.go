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

// DeviceCredential holds the schema definition for a device authentication
// credential. The raw secret is never stored — only a salted hash.
type DeviceCredential struct {
	ent.Schema
}

// Fields of the DeviceCredential.
func (DeviceCredential) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable(),
		field.String("token_id").
			NotEmpty().
			Immutable().
			Comment("Public identifier presented alongside the secret, e.g. as an MQTT username"),
		field.String("secret_hash").
			Sensitive().
			NotEmpty().
			Comment("Salted hash of the device secret; the raw value is never persisted"),
		field.String("client_id").
			Optional().
			Comment("Transport-level client identifier, e.g. MQTT client_id"),
		field.Time("revoked_at").
			Optional().
			Nillable().
			Comment("Revocation timestamp. Revocation never deletes the row."),
		field.UUID("device_id", uuid.UUID{}).
			Immutable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the DeviceCredential.
func (DeviceCredential) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("device", Device.Type).
			Ref("credentials").
			Field("device_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the DeviceCredential.
func (DeviceCredential) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id", "device_id"),
		index.Fields("tenant_id", "token_id").Unique(),
	}
}

// Mixin of the DeviceCredential.
func (DeviceCredential) Mixin() []ent.Mixin {
	return []ent.Mixin{
		entmixin.TenantMixin{},
	}
}
