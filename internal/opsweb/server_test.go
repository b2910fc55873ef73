package opsweb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/volaticloud/pulse/internal/auth"
	"github.com/volaticloud/pulse/internal/jwks"
	"github.com/volaticloud/pulse/internal/pubsub"
)

func withTenant(h http.HandlerFunc, tenantID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := auth.SetUserContext(r.Context(), &jwks.Claims{Subject: "user-1", TenantID: tenantID})
		h(w, r.WithContext(ctx))
	}
}

func TestHandler_StreamsPublishedEventToTenantSubscriber(t *testing.T) {
	bus := pubsub.NewMemoryPubSub()
	defer bus.Close()

	srv := httptest.NewServer(withTenant(Handler(bus, Config{KeepAlivePingInterval: time.Hour}), "tenant-a"))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give the server goroutine a moment to subscribe before publishing.
	time.Sleep(50 * time.Millisecond)

	event := pubsub.TelemetryTickEvent{
		Type:     pubsub.EventTypeTelemetryTick,
		TenantID: "tenant-a",
		DeviceID: "device-1",
		Metric:   "temperature",
		Value:    21.5,
	}
	if err := bus.Publish(context.Background(), pubsub.TenantOpsTopic("tenant-a"), event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}

	var received pubsub.TelemetryTickEvent
	if err := json.Unmarshal(data, &received); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if received.DeviceID != "device-1" {
		t.Errorf("expected device-1, got %s", received.DeviceID)
	}
}

func TestHandler_DoesNotDeliverOtherTenantsEvents(t *testing.T) {
	bus := pubsub.NewMemoryPubSub()
	defer bus.Close()

	srv := httptest.NewServer(withTenant(Handler(bus, Config{KeepAlivePingInterval: time.Hour}), "tenant-a"))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	time.Sleep(50 * time.Millisecond)

	if err := bus.Publish(context.Background(), pubsub.TenantOpsTopic("tenant-b"), pubsub.TelemetryTickEvent{DeviceID: "device-2"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, err = conn.ReadMessage()
	if err == nil {
		t.Fatal("expected no message to be delivered for a different tenant's topic")
	}
}
