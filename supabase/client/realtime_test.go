package client

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

// =============================================================================
// Realtime Tests (against an in-process Phoenix server)
// =============================================================================

type phoenixFrame struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref"`
	JoinRef string          `json:"join_ref,omitempty"`
}

// fakeRealtimeServer accepts one websocket connection and records the frames
// the client sends. Outbound frames are pushed through send.
type fakeRealtimeServer struct {
	server   *httptest.Server
	received chan phoenixFrame
	send     chan any
}

func newFakeRealtimeServer(t *testing.T) *fakeRealtimeServer {
	t.Helper()

	f := &fakeRealtimeServer{
		received: make(chan phoenixFrame, 16),
		send:     make(chan any, 16),
	}

	upgrader := websocket.Upgrader{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		go func() {
			for msg := range f.send {
				if err := conn.WriteJSON(msg); err != nil {
					return
				}
			}
		}()

		for {
			var frame phoenixFrame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			f.received <- frame
		}
	}))
	t.Cleanup(f.server.Close)

	return f
}

func (f *fakeRealtimeServer) awaitFrame(t *testing.T, event string) phoenixFrame {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case frame := <-f.received:
			if frame.Event == event {
				return frame
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s frame", event)
		}
	}
}

func newConnectedRealtime(t *testing.T, f *fakeRealtimeServer) *RealtimeClient {
	t.Helper()

	rc := NewRealtimeClient(f.server.URL, "anon-key")
	if err := rc.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	t.Cleanup(func() { _ = rc.Disconnect() })
	return rc
}

func TestRealtime_URLConversion(t *testing.T) {
	rc := NewRealtimeClient("https://proj.supabase.co", "key")
	if !strings.HasPrefix(rc.url, "wss://proj.supabase.co/realtime/v1/websocket") {
		t.Errorf("url = %s", rc.url)
	}
	if !strings.Contains(rc.url, "apikey=key") {
		t.Errorf("url missing apikey: %s", rc.url)
	}
}

func TestRealtime_JoinCarriesChangesConfig(t *testing.T) {
	f := newFakeRealtimeServer(t)
	rc := newConnectedRealtime(t, f)
	rc.SetAccessToken("user-jwt")

	_, err := rc.SubscribeToChanges(context.Background(), "realtime:orders:abc", ChangesConfig{
		Table:  "orders",
		Filter: "customer_id=eq.u1",
	}, func(*ChangeEvent) {})
	if err != nil {
		t.Fatalf("SubscribeToChanges() error: %v", err)
	}

	join := f.awaitFrame(t, "phx_join")
	if join.Topic != "realtime:orders:abc" {
		t.Errorf("topic = %s", join.Topic)
	}

	var payload struct {
		Config struct {
			PostgresChanges []struct {
				Event  string `json:"event"`
				Schema string `json:"schema"`
				Table  string `json:"table"`
				Filter string `json:"filter"`
			} `json:"postgres_changes"`
		} `json:"config"`
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(join.Payload, &payload); err != nil {
		t.Fatalf("unmarshal join payload: %v", err)
	}

	changes := payload.Config.PostgresChanges
	if len(changes) != 1 {
		t.Fatalf("postgres_changes count = %d, want 1", len(changes))
	}
	if changes[0].Table != "orders" || changes[0].Schema != "public" || changes[0].Event != "*" {
		t.Errorf("changes config = %+v", changes[0])
	}
	if changes[0].Filter != "customer_id=eq.u1" {
		t.Errorf("filter = %s", changes[0].Filter)
	}
	if payload.AccessToken != "user-jwt" {
		t.Errorf("access_token = %s", payload.AccessToken)
	}
}

func TestRealtime_DispatchesEventsInOrder(t *testing.T) {
	f := newFakeRealtimeServer(t)
	rc := newConnectedRealtime(t, f)

	events := make(chan *ChangeEvent, 8)
	_, err := rc.SubscribeToChanges(context.Background(), "realtime:orders:abc", ChangesConfig{
		Table: "orders",
	}, func(e *ChangeEvent) { events <- e })
	if err != nil {
		t.Fatalf("SubscribeToChanges() error: %v", err)
	}
	f.awaitFrame(t, "phx_join")

	for _, status := range []string{"accepted", "purchasing", "preparing"} {
		f.send <- map[string]any{
			"topic": "realtime:orders:abc",
			"event": "postgres_changes",
			"payload": map[string]any{
				"data": map[string]any{
					"type":       "UPDATE",
					"schema":     "public",
					"table":      "orders",
					"record":     map[string]any{"id": "o1", "status": status},
					"old_record": map[string]any{"id": "o1"},
				},
			},
		}
	}

	for _, want := range []string{"accepted", "purchasing", "preparing"} {
		select {
		case e := <-events:
			if e.Type != "UPDATE" || e.Table != "orders" {
				t.Errorf("event = %+v", e)
			}
			var rec struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(e.Record, &rec); err != nil {
				t.Fatalf("unmarshal record: %v", err)
			}
			if rec.Status != want {
				t.Errorf("status = %s, want %s (events out of order)", rec.Status, want)
			}
			if e.OldRecord == nil {
				t.Error("OldRecord missing on UPDATE")
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s event", want)
		}
	}
}

func TestRealtime_IgnoresFramesForOtherTopics(t *testing.T) {
	f := newFakeRealtimeServer(t)
	rc := newConnectedRealtime(t, f)

	events := make(chan *ChangeEvent, 1)
	_, err := rc.SubscribeToChanges(context.Background(), "realtime:orders:abc", ChangesConfig{
		Table: "orders",
	}, func(e *ChangeEvent) { events <- e })
	if err != nil {
		t.Fatalf("SubscribeToChanges() error: %v", err)
	}
	f.awaitFrame(t, "phx_join")

	f.send <- map[string]any{
		"topic":   "realtime:errands:zzz",
		"event":   "postgres_changes",
		"payload": map[string]any{"data": map[string]any{"type": "INSERT"}},
	}
	f.send <- map[string]any{
		"topic":   "realtime:orders:abc",
		"event":   "phx_reply",
		"payload": map[string]any{"status": "ok"},
	}

	select {
	case e := <-events:
		t.Errorf("unexpected event dispatched: %+v", e)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRealtime_UnsubscribeIsIdempotent(t *testing.T) {
	f := newFakeRealtimeServer(t)
	rc := newConnectedRealtime(t, f)

	ch, err := rc.SubscribeToChanges(context.Background(), "realtime:orders:abc", ChangesConfig{
		Table: "orders",
	}, func(*ChangeEvent) {})
	if err != nil {
		t.Fatalf("SubscribeToChanges() error: %v", err)
	}
	f.awaitFrame(t, "phx_join")

	if err := ch.Unsubscribe(context.Background()); err != nil {
		t.Fatalf("Unsubscribe() error: %v", err)
	}
	f.awaitFrame(t, "phx_leave")

	// Second call must be a no-op.
	if err := ch.Unsubscribe(context.Background()); err != nil {
		t.Errorf("second Unsubscribe() error: %v", err)
	}

	select {
	case frame := <-f.received:
		if frame.Event == "phx_leave" {
			t.Error("second Unsubscribe sent another phx_leave")
		}
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRealtime_DuplicateTopicRejected(t *testing.T) {
	f := newFakeRealtimeServer(t)
	rc := newConnectedRealtime(t, f)

	handler := func(*ChangeEvent) {}
	if _, err := rc.SubscribeToChanges(context.Background(), "realtime:x", ChangesConfig{Table: "orders"}, handler); err != nil {
		t.Fatalf("SubscribeToChanges() error: %v", err)
	}
	if _, err := rc.SubscribeToChanges(context.Background(), "realtime:x", ChangesConfig{Table: "orders"}, handler); err == nil {
		t.Error("duplicate topic should be rejected")
	}
}

func TestRealtime_SubscribeRequiresConnection(t *testing.T) {
	rc := NewRealtimeClient("https://proj.supabase.co", "key")
	if _, err := rc.SubscribeToChanges(context.Background(), "realtime:x", ChangesConfig{Table: "orders"}, nil); err == nil {
		t.Error("SubscribeToChanges() before Connect should fail")
	}
}

func TestRealtime_DisconnectTwice(t *testing.T) {
	f := newFakeRealtimeServer(t)
	rc := newConnectedRealtime(t, f)

	if err := rc.Disconnect(); err != nil {
		t.Fatalf("Disconnect() error: %v", err)
	}
	if err := rc.Disconnect(); err != nil {
		t.Errorf("second Disconnect() error: %v", err)
	}
}
