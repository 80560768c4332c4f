package livesync

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/RelayEats/sync_layer/domain"
	"github.com/RelayEats/sync_layer/supabase/client"
)

// =============================================================================
// Change Feed Subscriber Tests
// =============================================================================

type fakeChannel struct {
	mu     sync.Mutex
	leaves int
}

func (c *fakeChannel) Unsubscribe(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leaves++
	return nil
}

func (c *fakeChannel) leaveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.leaves
}

type fakeSource struct {
	mu       sync.Mutex
	err      error
	handler  client.ChangeHandler
	channels []*fakeChannel
	topics   []string
	configs  []client.ChangesConfig
}

func (f *fakeSource) SubscribeToChanges(ctx context.Context, topic string, cfg client.ChangesConfig, handler client.ChangeHandler) (Leaver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	ch := &fakeChannel{}
	f.handler = handler
	f.channels = append(f.channels, ch)
	f.topics = append(f.topics, topic)
	f.configs = append(f.configs, cfg)
	return ch, nil
}

func (f *fakeSource) emit(event *client.ChangeEvent) {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()
	handler(event)
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

func updateEvent(t *testing.T, id string, from, to domain.Status) *client.ChangeEvent {
	t.Helper()
	return &client.ChangeEvent{
		Type:   "UPDATE",
		Table:  "orders",
		Record: mustJSON(t, domain.Order{ID: id, Status: to}),
		OldRecord: mustJSON(t, domain.Order{
			ID: id, Status: from,
		}),
	}
}

func TestSubscriber_DeliversEventsInOrder(t *testing.T) {
	source := &fakeSource{}
	sub := NewSubscriber[domain.Order](source, customerScope(), nil)

	var (
		mu   sync.Mutex
		seen []domain.Status
	)
	err := sub.Subscribe(context.Background(), func(e Event[domain.Order]) {
		mu.Lock()
		seen = append(seen, e.New.Status)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}

	source.emit(updateEvent(t, "o1", domain.OrderPending, domain.OrderAccepted))
	source.emit(updateEvent(t, "o1", domain.OrderAccepted, domain.OrderPurchasing))
	source.emit(updateEvent(t, "o1", domain.OrderPurchasing, domain.OrderPreparing))

	// Unsubscribe drains the queue before returning.
	if err := sub.Unsubscribe(context.Background()); err != nil {
		t.Fatalf("Unsubscribe() error: %v", err)
	}

	want := []domain.Status{domain.OrderAccepted, domain.OrderPurchasing, domain.OrderPreparing}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != len(want) {
		t.Fatalf("seen = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("seen[%d] = %s, want %s (events out of order)", i, seen[i], want[i])
		}
	}
}

func TestSubscriber_DecodesInsertWithoutOld(t *testing.T) {
	source := &fakeSource{}
	sub := NewSubscriber[domain.Order](source, customerScope(), nil)

	events := make(chan Event[domain.Order], 1)
	if err := sub.Subscribe(context.Background(), func(e Event[domain.Order]) { events <- e }); err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}

	source.emit(&client.ChangeEvent{
		Type:   "INSERT",
		Table:  "orders",
		Record: mustJSON(t, domain.Order{ID: "o9", Status: domain.OrderPending}),
	})
	if err := sub.Unsubscribe(context.Background()); err != nil {
		t.Fatalf("Unsubscribe() error: %v", err)
	}

	e := <-events
	if e.Type != "INSERT" {
		t.Errorf("Type = %s", e.Type)
	}
	if e.Old != nil {
		t.Error("Old should be nil for INSERT")
	}
	if e.New == nil || e.New.ID != "o9" {
		t.Errorf("New = %+v", e.New)
	}
}

func TestSubscriber_PassesScopeFilter(t *testing.T) {
	source := &fakeSource{}
	sub := NewSubscriber[domain.Order](source, customerScope(), nil)

	if err := sub.Subscribe(context.Background(), func(Event[domain.Order]) {}); err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}
	defer sub.Unsubscribe(context.Background())

	cfg := source.configs[0]
	if cfg.Table != "orders" {
		t.Errorf("Table = %s", cfg.Table)
	}
	if cfg.Filter != "customer_id=eq.u1" {
		t.Errorf("Filter = %s", cfg.Filter)
	}
}

func TestSubscriber_UnsubscribeIsIdempotent(t *testing.T) {
	source := &fakeSource{}
	sub := NewSubscriber[domain.Order](source, customerScope(), nil)

	if err := sub.Subscribe(context.Background(), func(Event[domain.Order]) {}); err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}

	if err := sub.Unsubscribe(context.Background()); err != nil {
		t.Fatalf("Unsubscribe() error: %v", err)
	}
	if err := sub.Unsubscribe(context.Background()); err != nil {
		t.Errorf("second Unsubscribe() error: %v", err)
	}

	if got := source.channels[0].leaveCount(); got != 1 {
		t.Errorf("channel left %d times, want 1", got)
	}
}

func TestSubscriber_UnsubscribeWithoutSubscribe(t *testing.T) {
	sub := NewSubscriber[domain.Order](&fakeSource{}, customerScope(), nil)
	if err := sub.Unsubscribe(context.Background()); err != nil {
		t.Errorf("Unsubscribe() error: %v", err)
	}
}

func TestSubscriber_ResubscribeTearsDownPrior(t *testing.T) {
	source := &fakeSource{}
	sub := NewSubscriber[domain.Order](source, customerScope(), nil)
	handler := func(Event[domain.Order]) {}

	if err := sub.Subscribe(context.Background(), handler); err != nil {
		t.Fatalf("first Subscribe() error: %v", err)
	}
	if err := sub.Subscribe(context.Background(), handler); err != nil {
		t.Fatalf("second Subscribe() error: %v", err)
	}
	defer sub.Unsubscribe(context.Background())

	if len(source.channels) != 2 {
		t.Fatalf("channels = %d, want 2", len(source.channels))
	}
	if got := source.channels[0].leaveCount(); got != 1 {
		t.Errorf("first channel left %d times, want 1", got)
	}
	if source.topics[0] == source.topics[1] {
		t.Error("topics must be unique per subscription")
	}
}

// The realtime client invokes handlers outside its channel lock, so a
// delivery already in flight can land after Unsubscribe has returned. It
// must be dropped, not sent onto the retired queue.
func TestSubscriber_LateDeliveryAfterUnsubscribeIsDropped(t *testing.T) {
	source := &fakeSource{}
	sub := NewSubscriber[domain.Order](source, customerScope(), nil)

	var (
		mu        sync.Mutex
		delivered int
	)
	err := sub.Subscribe(context.Background(), func(Event[domain.Order]) {
		mu.Lock()
		delivered++
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}

	source.emit(updateEvent(t, "o1", domain.OrderPending, domain.OrderAccepted))
	if err := sub.Unsubscribe(context.Background()); err != nil {
		t.Fatalf("Unsubscribe() error: %v", err)
	}

	// The source still holds the handler and fires it once more.
	source.emit(updateEvent(t, "o1", domain.OrderAccepted, domain.OrderPurchasing))

	mu.Lock()
	defer mu.Unlock()
	if delivered != 1 {
		t.Errorf("delivered = %d, want 1 (late delivery must be dropped)", delivered)
	}
}

func TestSubscriber_SubscribeErrorPropagates(t *testing.T) {
	source := &fakeSource{err: errors.New("socket refused")}
	sub := NewSubscriber[domain.Order](source, customerScope(), nil)

	if err := sub.Subscribe(context.Background(), func(Event[domain.Order]) {}); err == nil {
		t.Error("Subscribe() error = nil, want failure")
	}
}

func TestSubscriber_SkipsUndecodableEvents(t *testing.T) {
	source := &fakeSource{}
	sub := NewSubscriber[domain.Order](source, customerScope(), nil)

	events := make(chan Event[domain.Order], 2)
	if err := sub.Subscribe(context.Background(), func(e Event[domain.Order]) { events <- e }); err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}

	source.emit(&client.ChangeEvent{Type: "UPDATE", Record: json.RawMessage("{broken")})
	source.emit(updateEvent(t, "o1", domain.OrderPending, domain.OrderAccepted))
	if err := sub.Unsubscribe(context.Background()); err != nil {
		t.Fatalf("Unsubscribe() error: %v", err)
	}

	if len(events) != 1 {
		t.Fatalf("delivered = %d, want 1 (broken event skipped)", len(events))
	}
}
