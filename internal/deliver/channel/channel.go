// Package channel implements the delivery transports a
// NotificationChannel can name: webhook, snmp, email, mqtt. The
// Channel interface is kept in the shape of
// internal/alert/channel.Channel; each implementation here replaces
// the teacher's email-only SendGridChannel with one of spec.md §3's
// four channel types.
package channel

import (
	"context"
)

// Message is one rendered notification ready for delivery, the
// channel-agnostic payload internal/deliver builds from an Alert and
// hands to whichever Channel a NotificationJob targets.
type Message struct {
	Subject    string
	Body       string
	HTMLBody   string
	Recipients []string
	Metadata   map[string]interface{}
}

// Channel defines the interface for alert delivery mechanisms, kept
// verbatim in shape from the teacher's internal/alert/channel.Channel.
type Channel interface {
	// Type returns the channel type (webhook, snmp, email, mqtt).
	Type() Type

	// Send delivers the message through this channel. A returned error
	// is classified by internal/deliver as retryable or permanent via
	// IsPermanent.
	Send(ctx context.Context, msg Message) error

	// Test validates the channel configuration by sending a test
	// message to the given recipient.
	Test(ctx context.Context, recipient string) error
}

// Type identifies a channel's transport, mirroring enum.ChannelType
// without importing internal/enum into the leaf channel
// implementations.
type Type string

const (
	TypeWebhook Type = "webhook"
	TypeSNMP    Type = "snmp"
	TypeEmail   Type = "email"
	TypeMQTT    Type = "mqtt"
)

// PermanentError wraps a delivery failure that must not be retried —
// a 4xx response other than 408/429, or a transport error the
// channel itself knows can never succeed (bad recipient address,
// malformed OID). internal/deliver checks errors.As for this type to
// decide between ack-and-schedule and dead-letter.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err as a PermanentError.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}
