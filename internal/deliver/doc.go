// Package deliver implements the delivery worker (spec.md §4.5): it
// subscribes to the ROUTES subject, claims a NotificationJob with a
// single CAS update, dispatches it through the channel named by
// internal/deliver/channel, and records the outcome. Retryable
// failures are acked and rescheduled via next_attempt_at rather than
// left for JetStream redelivery, so backoff timing lives in the row
// and not in the consumer's redelivery policy. Grounded on
// internal/alert/channel (Channel interface, SendGridChannel) and
// internal/alert/batcher.go's ticker/stop/done shutdown shape.
package deliver
