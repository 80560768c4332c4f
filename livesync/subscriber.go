package livesync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/RelayEats/sync_layer/internal/app/metrics"
	"github.com/RelayEats/sync_layer/pkg/logger"
	"github.com/RelayEats/sync_layer/supabase/client"
)

// DefaultQueueSize is the change feed buffer per subscription.
const DefaultQueueSize = 256

// Event is a decoded change feed event for one record type. Old is nil for
// inserts, New is nil for deletes.
type Event[T any] struct {
	Type string // INSERT, UPDATE, DELETE
	New  *T
	Old  *T
}

// Leaver is the teardown half of a joined channel.
type Leaver interface {
	Unsubscribe(ctx context.Context) error
}

// ChannelSource opens realtime channels. *client.RealtimeClient is the
// production implementation, via NewRealtimeSource.
type ChannelSource interface {
	SubscribeToChanges(ctx context.Context, topic string, cfg client.ChangesConfig, handler client.ChangeHandler) (Leaver, error)
}

type realtimeSource struct {
	rc *client.RealtimeClient
}

// NewRealtimeSource adapts a realtime client to the ChannelSource interface.
func NewRealtimeSource(rc *client.RealtimeClient) ChannelSource {
	return realtimeSource{rc: rc}
}

func (s realtimeSource) SubscribeToChanges(ctx context.Context, topic string, cfg client.ChangesConfig, handler client.ChangeHandler) (Leaver, error) {
	ch, err := s.rc.SubscribeToChanges(ctx, topic, cfg, handler)
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// Subscriber owns one scope's change feed channel. Raw events are queued in
// arrival order and drained by a single worker, so events for the same
// record are always handled in the order the server emitted them.
type Subscriber[T any, PT RecordPtr[T]] struct {
	source    ChannelSource
	scope     Scope
	queueSize int
	log       *logger.Logger

	mu      sync.Mutex
	channel Leaver
	queue   chan *client.ChangeEvent
	wg      sync.WaitGroup
}

// NewSubscriber creates a subscriber for the scope.
func NewSubscriber[T any, PT RecordPtr[T]](source ChannelSource, scope Scope, log *logger.Logger) *Subscriber[T, PT] {
	if log == nil {
		log = logger.NewDefault("subscriber")
	}
	return &Subscriber[T, PT]{
		source:    source,
		scope:     scope,
		queueSize: DefaultQueueSize,
		log:       log,
	}
}

// Subscribe joins the scope's channel and routes decoded events to handler.
// An existing subscription is torn down first, so a screen never holds two
// channels for one scope.
func (s *Subscriber[T, PT]) Subscribe(ctx context.Context, handler func(Event[T])) error {
	if err := s.Unsubscribe(ctx); err != nil {
		s.log.WithError(err).Warn("stale subscription teardown failed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	queue := make(chan *client.ChangeEvent, s.queueSize)
	topic := fmt.Sprintf("realtime:%s:%s", s.scope.Resource.Table(), uuid.NewString())
	resource := string(s.scope.Resource)

	enqueue := func(event *client.ChangeEvent) {
		s.mu.Lock()
		defer s.mu.Unlock()
		// The realtime client may deliver a handler call that was already
		// in flight when Unsubscribe ran; by then the queue is retired
		// (and about to close), so the event is dropped.
		if s.queue != queue {
			return
		}
		metrics.RecordFeedEvent(resource, event.Type)
		select {
		case queue <- event:
		default:
			// A full queue means the worker is stuck; dropping keeps the
			// read loop alive and the debounced refresh repairs the list.
			metrics.RecordDroppedEvent(resource)
			s.log.WithField("resource", resource).Warn("change feed queue full, event dropped")
		}
	}

	channel, err := s.source.SubscribeToChanges(ctx, topic, client.ChangesConfig{
		Table:  s.scope.Resource.Table(),
		Filter: s.scope.ServerFilter(),
	}, enqueue)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", resource, err)
	}

	s.channel = channel
	s.queue = queue
	s.wg.Add(1)
	go s.drain(queue, handler)

	s.log.WithFields(map[string]any{
		"resource": resource,
		"topic":    topic,
	}).Info("change feed subscribed")
	return nil
}

// Unsubscribe leaves the channel and waits for the worker to finish the
// queued events. Calling it without an active subscription is a no-op.
func (s *Subscriber[T, PT]) Unsubscribe(ctx context.Context) error {
	s.mu.Lock()
	channel := s.channel
	queue := s.queue
	s.channel = nil
	s.queue = nil
	s.mu.Unlock()

	if channel == nil {
		return nil
	}

	err := channel.Unsubscribe(ctx)
	close(queue)
	s.wg.Wait()
	return err
}

func (s *Subscriber[T, PT]) drain(queue chan *client.ChangeEvent, handler func(Event[T])) {
	defer s.wg.Done()

	for raw := range queue {
		event, err := s.decode(raw)
		if err != nil {
			s.log.WithError(err).WithField("type", raw.Type).Warn("change event decode failed")
			continue
		}
		handler(event)
	}
}

func (s *Subscriber[T, PT]) decode(raw *client.ChangeEvent) (Event[T], error) {
	event := Event[T]{Type: raw.Type}

	if len(raw.Record) > 0 {
		rec := new(T)
		if err := json.Unmarshal(raw.Record, rec); err != nil {
			return event, fmt.Errorf("decode record: %w", err)
		}
		event.New = rec
	}
	if len(raw.OldRecord) > 0 {
		old := new(T)
		if err := json.Unmarshal(raw.OldRecord, old); err != nil {
			return event, fmt.Errorf("decode old record: %w", err)
		}
		event.Old = old
	}
	return event, nil
}
