package bus

import (
	"context"
)

// Message is one delivered bus message. Handlers must call Ack or Nak
// exactly once; an un-acked message is redelivered up to a consumer's
// MaxDeliver, after which JetStream stops attempting redelivery.
type Message interface {
	// Subject is the concrete subject the message was published on.
	Subject() string
	// Data is the raw message payload.
	Data() []byte
	// Ack acknowledges successful processing.
	Ack() error
	// Nak signals the message should be redelivered.
	Nak() error
}

// Handler processes one delivered message.
type Handler func(ctx context.Context, msg Message)

// Bus is the at-least-once publish/subscribe contract every pipeline
// stage depends on. Implementations must be safe for concurrent use.
type Bus interface {
	// Publish serializes payload as JSON and publishes it on subject.
	// Publish failures are best-effort from the caller's point of view
	// per spec.md §4.2: they must be counted, not treated as fatal to
	// the operation that produced the message.
	Publish(ctx context.Context, subject string, payload interface{}) error

	// Subscribe binds a durable consumer (per cfg) and delivers
	// messages to handler until ctx is cancelled or the returned
	// cleanup func is called.
	Subscribe(ctx context.Context, cfg ConsumerConfig, handler Handler) (func(), error)

	// Close drains in-flight work and closes the underlying
	// connection.
	Close() error
}
