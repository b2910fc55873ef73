package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// JetStreamBus is the production Bus implementation.
type JetStreamBus struct {
	nc *nats.Conn
	js jetstream.JetStream

	mu      sync.Mutex
	closers []func()
}

// Connect dials NATS at url and wraps it in a JetStreamBus with the
// three streams ensured to exist.
func Connect(ctx context.Context, url string, opts ...nats.Option) (*JetStreamBus, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("bus: connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("bus: jetstream: %w", err)
	}

	if err := EnsureStreams(ctx, js); err != nil {
		nc.Close()
		return nil, err
	}

	return &JetStreamBus{nc: nc, js: js}, nil
}

// Publish implements Bus.
func (b *JetStreamBus) Publish(ctx context.Context, subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("bus: marshal payload for %s: %w", subject, err)
	}
	if _, err := b.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("bus: publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe implements Bus. It creates or reuses a durable consumer
// scoped to cfg.Stream and runs handler for each delivered message
// until the context passed to Subscribe ends or the returned cleanup
// func is invoked.
func (b *JetStreamBus) Subscribe(ctx context.Context, cfg ConsumerConfig, handler Handler) (func(), error) {
	stream, err := b.js.Stream(ctx, cfg.Stream)
	if err != nil {
		return nil, fmt.Errorf("bus: bind stream %s: %w", cfg.Stream, err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, cfg.toJetstream())
	if err != nil {
		return nil, fmt.Errorf("bus: create consumer %s: %w", cfg.Durable, err)
	}

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		handler(ctx, jetstreamMessage{msg})
	})
	if err != nil {
		return nil, fmt.Errorf("bus: consume %s: %w", cfg.Durable, err)
	}

	stop := func() { consumeCtx.Stop() }
	context.AfterFunc(ctx, stop)

	b.mu.Lock()
	b.closers = append(b.closers, stop)
	b.mu.Unlock()

	return stop, nil
}

// Healthy reports whether the underlying NATS connection is currently
// connected, for /ready handlers that need to surface bus reachability
// per spec.md §6's stated contract.
func (b *JetStreamBus) Healthy() bool {
	return b.nc.IsConnected()
}

// Close implements Bus: it stops every active subscription and drains
// the underlying connection.
func (b *JetStreamBus) Close() error {
	b.mu.Lock()
	closers := b.closers
	b.closers = nil
	b.mu.Unlock()

	for _, stop := range closers {
		stop()
	}

	return b.nc.Drain()
}

// jetstreamMessage adapts jetstream.Msg to the narrower Message
// interface the rest of this module depends on, so callers never take
// a direct dependency on the nats.go package.
type jetstreamMessage struct {
	msg jetstream.Msg
}

func (m jetstreamMessage) Subject() string { return m.msg.Subject() }
func (m jetstreamMessage) Data() []byte    { return m.msg.Data() }
func (m jetstreamMessage) Ack() error      { return m.msg.Ack() }
func (m jetstreamMessage) Nak() error      { return m.msg.Nak() }
