package ws

import (
	"encoding/json"
	"testing"
	"time"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, username string) *Client {
	return &Client{
		hub:      hub,
		username: username,
		send:     make(chan []byte, 256),
	}
}

func TestHubRegistration(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	client := mockClient(hub, "aziza")
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if !hub.clients[client] {
		t.Fatal("client not registered")
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	client := mockClient(hub, "aziza")
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if len(hub.clients) != 0 {
		t.Fatal("client not removed after unregister")
	}
}

func TestBroadcastReachesAllClients(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	clients := []*Client{
		mockClient(hub, "aziza"),
		mockClient(hub, "bek"),
		mockClient(hub, "dilnoza"),
	}
	for _, c := range clients {
		hub.register <- c
	}
	time.Sleep(10 * time.Millisecond)

	hub.Broadcast(Event{
		Type:    EventOrderStatusChanged,
		Payload: json.RawMessage(`{"order_code":"A1B2C3D4E5F6","status":"READY"}`),
	})

	for i, c := range clients {
		select {
		case msg := <-c.send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("client%d: unmarshal: %v", i+1, err)
			}
			if received.Type != EventOrderStatusChanged {
				t.Errorf("client%d: type = %s, want %s", i+1, received.Type, EventOrderStatusChanged)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("client%d did not receive message", i+1)
		}
	}
}

func TestSlowClientIsEvicted(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	// A send buffer of zero means the first broadcast already finds the
	// client unable to receive.
	slow := &Client{hub: hub, username: "stalled", send: make(chan []byte)}
	hub.register <- slow
	time.Sleep(10 * time.Millisecond)

	hub.Broadcast(Event{Type: EventOrderCreated, Payload: json.RawMessage(`{}`)})
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if len(hub.clients) != 0 {
		t.Fatal("stalled client should have been evicted")
	}
}

func TestNewEvent(t *testing.T) {
	event := NewEvent(EventTableUpdated, map[string]interface{}{
		"number": 4,
		"status": "FREE",
	})
	if event.Type != EventTableUpdated {
		t.Fatalf("type = %s, want %s", event.Type, EventTableUpdated)
	}

	var payload struct {
		Number int    `json:"number"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Number != 4 || payload.Status != "FREE" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestNewEventUnmarshalableFallsBackToNull(t *testing.T) {
	event := NewEvent(EventOrderPaid, make(chan int))
	if string(event.Payload) != "null" {
		t.Fatalf("payload = %s, want null", event.Payload)
	}
}
