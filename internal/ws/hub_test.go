package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, orderID string) *Client {
	return &Client{
		hub:     hub,
		orderID: orderID,
		send:    make(chan []byte, 256),
	}
}

func runHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestHubRegistration(t *testing.T) {
	hub := runHub(t)
	client := mockClient(hub, "TZM1")

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.rooms["TZM1"] == nil {
		t.Fatal("order room not created")
	}
	if !hub.rooms["TZM1"][client] {
		t.Fatal("client not registered in order room")
	}
}

func TestHubCleanupEmptyRoom(t *testing.T) {
	hub := runHub(t)
	client1 := mockClient(hub, "TZM1")
	client2 := mockClient(hub, "TZM1")

	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	if n := hub.Watchers("TZM1"); n != 2 {
		t.Fatalf("expected 2 watchers, got %d", n)
	}

	hub.unregister <- client1
	time.Sleep(10 * time.Millisecond)
	if n := hub.Watchers("TZM1"); n != 1 {
		t.Fatalf("expected 1 watcher after first unregister, got %d", n)
	}

	hub.unregister <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if hub.rooms["TZM1"] != nil {
		t.Fatal("room should be deleted when last client unregisters")
	}
}

func TestBroadcastToOrderIsolation(t *testing.T) {
	hub := runHub(t)
	watching := []*Client{mockClient(hub, "TZM1"), mockClient(hub, "TZM1")}
	other := mockClient(hub, "TZM2")

	for _, c := range append(watching, other) {
		hub.register <- c
	}
	time.Sleep(10 * time.Millisecond)

	payload := json.RawMessage(`{"orderId":"TZM1","progress":67}`)
	hub.BroadcastToOrder("TZM1", Event{Type: EventOrderUpdated, Payload: payload})

	for i, c := range watching {
		select {
		case msg := <-c.send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("client%d: unmarshal: %v", i+1, err)
			}
			if received.Type != EventOrderUpdated || string(received.Payload) != string(payload) {
				t.Errorf("client%d: got %s %s", i+1, received.Type, received.Payload)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("client%d did not receive message", i+1)
		}
	}

	select {
	case <-other.send:
		t.Fatal("watcher of another order should not receive message")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastToUnwatchedOrder(t *testing.T) {
	hub := runHub(t)
	client := mockClient(hub, "TZM1")
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastToOrder("nobody-watches", Event{Type: EventOrderUpdated, Payload: json.RawMessage(`{}`)})

	select {
	case <-client.send:
		t.Fatal("client should not receive message for different order")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubRunStopsOnCancel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	client := mockClient(hub, "TZM1")
	hub.register <- client
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if _, ok := <-client.send; ok {
		t.Fatal("client send channel should be closed on shutdown")
	}
}

func TestServeWS(t *testing.T) {
	hub := runHub(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(hub, "TZM1", w, r)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for hub.Watchers("TZM1") == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	hub.BroadcastToOrder("TZM1", Event{Type: EventOrderUpdated, Payload: json.RawMessage(`{"isPaid":true}`)})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var received Event
	if err := json.Unmarshal(msg, &received); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if received.Type != EventOrderUpdated || string(received.Payload) != `{"isPaid":true}` {
		t.Errorf("got %s %s", received.Type, received.Payload)
	}
}
