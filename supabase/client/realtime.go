package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

// heartbeatInterval is how often the Phoenix heartbeat is sent.
const heartbeatInterval = 30 * time.Second

// RealtimeClient handles Supabase Realtime subscriptions over the Phoenix
// websocket protocol.
type RealtimeClient struct {
	mu          sync.RWMutex
	url         string
	apiKey      string
	accessToken string
	conn        *websocket.Conn
	channels    map[string]*Channel
	done        chan struct{}
	ref         int
}

// ChangeHandler handles a postgres change event. Handlers are invoked
// synchronously from the read loop, so events for a channel arrive in the
// order the server sent them.
type ChangeHandler func(event *ChangeEvent)

// ChangeEvent is a decoded postgres_changes message.
type ChangeEvent struct {
	Type      string          // INSERT, UPDATE, DELETE
	Schema    string
	Table     string
	Record    json.RawMessage // new row, absent for DELETE
	OldRecord json.RawMessage // prior row, absent for INSERT
}

// ChangesConfig configures a postgres changes subscription.
type ChangesConfig struct {
	Event  string // INSERT, UPDATE, DELETE, *
	Schema string
	Table  string
	Filter string // optional, e.g. "customer_id=eq.abc"
}

// Channel represents one joined realtime channel.
type Channel struct {
	client  *RealtimeClient
	topic   string
	config  ChangesConfig
	handler ChangeHandler
	joined  bool
	joinRef string
}

// Topic returns the channel topic.
func (c *Channel) Topic() string {
	return c.topic
}

// NewRealtimeClient creates a new realtime client.
func NewRealtimeClient(supabaseURL, apiKey string) *RealtimeClient {
	// Convert HTTP URL to WebSocket URL
	wsURL := supabaseURL
	if len(wsURL) > 5 && wsURL[:5] == "https" {
		wsURL = "wss" + wsURL[5:]
	} else if len(wsURL) > 4 && wsURL[:4] == "http" {
		wsURL = "ws" + wsURL[4:]
	}
	wsURL += "/realtime/v1/websocket?apikey=" + apiKey + "&vsn=1.0.0"

	return &RealtimeClient{
		url:      wsURL,
		apiKey:   apiKey,
		channels: make(map[string]*Channel),
		done:     make(chan struct{}),
	}
}

// SetAccessToken attaches a user session token. It is carried in join
// payloads so the server applies that user's row level security.
func (r *RealtimeClient) SetAccessToken(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accessToken = token
}

// Connect establishes the WebSocket connection.
func (r *RealtimeClient) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil {
		return nil // Already connected
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, r.url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	r.conn = conn
	r.done = make(chan struct{})

	go r.handleMessages()
	go r.heartbeat()

	return nil
}

// Disconnect closes the WebSocket connection. Safe to call twice.
func (r *RealtimeClient) Disconnect() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil {
		return nil
	}

	close(r.done)

	err := r.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	if err != nil {
		r.conn.Close()
		r.conn = nil
		return fmt.Errorf("close message: %w", err)
	}

	r.conn.Close()
	r.conn = nil
	return nil
}

// SubscribeToChanges joins a channel under topic and routes its postgres
// change events to handler. The topic must be unique per subscription.
func (r *RealtimeClient) SubscribeToChanges(ctx context.Context, topic string, cfg ChangesConfig, handler ChangeHandler) (*Channel, error) {
	if cfg.Schema == "" {
		cfg.Schema = "public"
	}
	if cfg.Event == "" {
		cfg.Event = "*"
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil {
		return nil, fmt.Errorf("realtime client not connected")
	}
	if _, ok := r.channels[topic]; ok {
		return nil, fmt.Errorf("topic already subscribed: %s", topic)
	}

	ch := &Channel{
		client:  r,
		topic:   topic,
		config:  cfg,
		handler: handler,
	}

	r.ref++
	ref := fmt.Sprintf("%d", r.ref)
	ch.joinRef = ref

	change := map[string]any{
		"event":  cfg.Event,
		"schema": cfg.Schema,
		"table":  cfg.Table,
	}
	if cfg.Filter != "" {
		change["filter"] = cfg.Filter
	}
	payload := map[string]any{
		"config": map[string]any{
			"postgres_changes": []any{change},
		},
	}
	if r.accessToken != "" {
		payload["access_token"] = r.accessToken
	}

	msg := map[string]any{
		"topic":    topic,
		"event":    "phx_join",
		"payload":  payload,
		"ref":      ref,
		"join_ref": ref,
	}

	if err := r.conn.WriteJSON(msg); err != nil {
		return nil, fmt.Errorf("send join: %w", err)
	}

	ch.joined = true
	r.channels[topic] = ch
	return ch, nil
}

// Unsubscribe leaves the channel. Calling it more than once is a no-op.
func (c *Channel) Unsubscribe(ctx context.Context) error {
	c.client.mu.Lock()
	defer c.client.mu.Unlock()

	if !c.joined {
		return nil
	}
	c.joined = false
	delete(c.client.channels, c.topic)

	if c.client.conn == nil {
		return nil
	}

	c.client.ref++
	ref := fmt.Sprintf("%d", c.client.ref)

	msg := map[string]any{
		"topic":    c.topic,
		"event":    "phx_leave",
		"payload":  map[string]any{},
		"ref":      ref,
		"join_ref": c.joinRef,
	}

	if err := c.client.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send leave: %w", err)
	}
	return nil
}

func (r *RealtimeClient) handleMessages() {
	for {
		select {
		case <-r.done:
			return
		default:
		}

		r.mu.RLock()
		conn := r.conn
		r.mu.RUnlock()

		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			// Connection closed
			return
		}

		r.dispatchMessage(message)
	}
}

// dispatchMessage routes one raw Phoenix frame. Handlers run inline so a
// channel's events keep server order.
func (r *RealtimeClient) dispatchMessage(message []byte) {
	parsed := gjson.ParseBytes(message)
	if parsed.Get("event").String() != "postgres_changes" {
		// phx_reply, presence and system frames carry no row data.
		return
	}

	topic := parsed.Get("topic").String()

	r.mu.RLock()
	ch := r.channels[topic]
	r.mu.RUnlock()

	if ch == nil || ch.handler == nil {
		return
	}

	data := parsed.Get("payload.data")
	event := &ChangeEvent{
		Type:   data.Get("type").String(),
		Schema: data.Get("schema").String(),
		Table:  data.Get("table").String(),
	}
	if rec := data.Get("record"); rec.Exists() {
		event.Record = json.RawMessage(rec.Raw)
	}
	if old := data.Get("old_record"); old.Exists() {
		event.OldRecord = json.RawMessage(old.Raw)
	}

	ch.handler(event)
}

func (r *RealtimeClient) heartbeat() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.mu.Lock()
			if r.conn != nil {
				r.ref++
				msg := map[string]any{
					"topic":   "phoenix",
					"event":   "heartbeat",
					"payload": map[string]any{},
					"ref":     fmt.Sprintf("%d", r.ref),
				}
				r.conn.WriteJSON(msg)
			}
			r.mu.Unlock()
		}
	}
}
