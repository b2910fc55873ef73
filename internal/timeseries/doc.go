// Package timeseries is the bulk-path repository for telemetry and
// quarantine records. Both are high-volume and append-only; unlike the
// ent-managed entities in internal/ent/schema, they are never read or
// written through ent. They are written in batches via pq.CopyIn and
// read with a small set of hand-parameterized SQL queries that the
// evaluation engine uses to compute device status and rule violations.
//
// Every method here expects to run inside a transaction already bound
// to a tenant by internal/tenant.WithTenant; none of them set
// app.tenant_id themselves; tenant_id is still passed explicitly as a
// query bind parameter, since row-level security narrows what a query
// can see but does not narrow what a caller must still ask for.
package timeseries
