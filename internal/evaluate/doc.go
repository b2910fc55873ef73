// Package evaluate implements the evaluation engine: spec.md §4.3's
// cooperative, tick-driven scheduler that derives device status, opens
// and closes heartbeat and threshold alerts, and advances escalations.
//
// Every tick runs entirely as raw SQL inside one internal/tenant.WithTenant
// transaction per tenant, including the alert-rule reads. This is a
// deliberate departure from the rest of the codebase's preference for
// the generated ent client: ent's client owns its own transaction
// lifecycle (client.Tx(ctx)), which does not compose with a *sql.Tx
// already opened and role-switched by tenant.WithTenant. Mixing the two
// disciplines inside one tick would mean the alert-rule read runs under
// a different role/session than the alert write, defeating the point
// of the per-tenant transaction. One discipline, used throughout,
// avoids that.
package evaluate
