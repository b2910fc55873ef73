// Package pubsub provides a publish-subscribe interface for the ops
// live-status feed internal/opsweb serves over WebSocket.
//
// # Overview
//
// This is a small fan-out layer sitting alongside the NATS JetStream
// event bus (internal/bus): JetStream is the durable, at-least-once
// pipeline between ingest/evaluate/route/deliver, while this package
// is a best-effort broadcast to whatever ops dashboards happen to be
// connected right now. MemoryPubSub covers a single-instance
// deployment; RedisPubSub fans events out across replicas of
// cmd/api.
//
// # Usage
//
// Initialize the pub/sub client:
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	ps := pubsub.NewRedisPubSub(redisClient)
//
// Publish an event:
//
//	err := ps.Publish(ctx, pubsub.TenantOpsTopic(tenantID), &pubsub.TelemetryTickEvent{
//		Type:     pubsub.EventTypeTelemetryTick,
//		TenantID: tenantID,
//		DeviceID: deviceID,
//	})
//
// Subscribe to events:
//
//	ch, unsub := ps.Subscribe(ctx, pubsub.TenantOpsTopic(tenantID))
//	defer unsub()
//	for msg := range ch {
//		var event pubsub.TelemetryTickEvent
//		json.Unmarshal(msg, &event)
//		// handle event
//	}
//
// # Topics
//
// See topics.go: ops:tenant:{id} for a tenant's aggregate feed,
// ops:device:{tenantID}:{deviceID} for a single device's activity.
//
// # Event Types
//
// See events.go: TelemetryTickEvent, AlertFiredEvent,
// AlertResolvedEvent, DeliveryResultEvent.
package pubsub
