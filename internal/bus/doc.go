// Package bus wraps NATS JetStream as the at-least-once event bus that
// connects the ingestion pipeline, evaluation engine, notification
// router, and delivery worker. It mirrors the shape of internal/pubsub's
// PubSub interface (Publish/Subscribe/Close) but adds the durability
// spec.md §4.6 requires: named streams with age/size retention, durable
// consumers with explicit ack, max-deliver, and max-pending.
//
// internal/pubsub's Redis implementation is kept for a narrower purpose
// (the internal ops-status websocket feed, internal/opsweb) precisely
// because its at-most-once semantics are unsuitable here: a dropped
// ALERTS message must be redelivered, a dropped ops-status tick is fine
// to miss.
package bus
