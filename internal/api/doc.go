// Package api is the minimal HTTP surface spec.md §6 describes as
// surrounding, non-primary functionality: /health, /ready, /metrics, and
// a thin /customer and /operator REST surface over the rule, channel,
// and device rows the evaluation, routing and ingest engines read. It is
// intentionally small — each handler runs one short raw-SQL statement
// set of its own under tenant.WithTenant (tenant.WithOperator for
// /operator), not a second business-logic layer.
package api
