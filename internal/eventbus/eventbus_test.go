package eventbus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

func newTestSubscriber(t *testing.T, bus *Bus, room string) (*websocket.Conn, func()) {
	t.Helper()
	var unregister func()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		unregister = bus.Register(room, conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	time.Sleep(20 * time.Millisecond) // let the server-side Register land
	return conn, func() {
		if unregister != nil {
			unregister()
		}
		conn.Close()
	}
}

func TestPublishDeliversToRoomSubscriber(t *testing.T) {
	bus := New(nil)
	conn, cleanup := newTestSubscriber(t, bus, ClientRoom("acme"))
	defer cleanup()

	bus.Publish(ClientRoom("acme"), Event{EventType: EventAPISaved, Timestamp: time.Now(), ClientID: "acme"})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var got map[string]any
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("expected to receive the published event: %v", err)
	}
	if got["eventType"] != EventAPISaved {
		t.Fatalf("got %v, want %v", got["eventType"], EventAPISaved)
	}
}

func TestPublishDoesNotCrossRooms(t *testing.T) {
	bus := New(nil)
	conn, cleanup := newTestSubscriber(t, bus, ClientRoom("acme"))
	defer cleanup()

	bus.Publish(ClientRoom("other"), Event{EventType: EventAPISaved, Timestamp: time.Now(), ClientID: "other"})

	conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	var got map[string]any
	err := conn.ReadJSON(&got)
	if err == nil {
		t.Fatal("expected no message to cross rooms")
	}
}

func TestRoomNameHelpers(t *testing.T) {
	if ClientRoom("x") != "client_x" {
		t.Fatalf("got %q", ClientRoom("x"))
	}
	if LegacyClientRoom("x") != "client-x" {
		t.Fatalf("got %q", LegacyClientRoom("x"))
	}
	if SummariesRoom("x") != "summaries-x" {
		t.Fatalf("got %q", SummariesRoom("x"))
	}
}
