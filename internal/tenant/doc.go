// Package tenant binds every database connection to a tenant before any
// query runs against it. Isolation is enforced by Postgres row-level
// security policies, not by application-level filtering: every
// tenant-scoped table has a policy of the form
//
//	USING (tenant_id = current_setting('app.tenant_id', true))
//
// and is created with FORCE ROW LEVEL SECURITY so even the table owner
// is subject to the policy. This package's job is to get the session
// settings right on every connection a transaction runs on, and nothing
// more — it does not itself filter rows.
package tenant
