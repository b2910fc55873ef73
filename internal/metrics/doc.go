// Package metrics is the process-wide Prometheus registry shared by
// every cmd/ entrypoint. It exposes one package-level Registry plus the
// named counters, gauges, and histograms spec.md names explicitly
// (ingest_messages_total, evaluator_rules_evaluated_total,
// delivery_jobs_failed_total, and so on), served at /metrics with no
// authentication (spec.md §4.6 — access is restricted by network, not
// by this service).
package metrics
