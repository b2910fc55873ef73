package mixin

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"entgo.io/ent/schema/mixin"
)

// TenantMixin adds the tenant_id field that every row owned by a single
// tenant carries. tenant_id is an opaque string, not a foreign key to any
// tenant table owned by this service — tenants are administered by an
// external collaborator (spec.md §1). The column backs the row-level-
// security policies applied in migrations (`USING (tenant_id =
// current_setting('app.tenant_id', true))`); ENT itself does not enforce
// isolation, the database does. See internal/tenant.
type TenantMixin struct {
	mixin.Schema
}

// Fields returns the tenant_id field.
func (TenantMixin) Fields() []ent.Field {
	return []ent.Field{
		field.String("tenant_id").
			NotEmpty().
			Immutable().
			Comment("Owning tenant. Enforced at the database layer via row-level security, not here."),
	}
}

// Indexes returns the tenant_id index shared by every tenant-scoped entity.
// Individual schemas add composite indexes that lead with tenant_id for
// their own query patterns.
func (TenantMixin) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("tenant_id"),
	}
}
