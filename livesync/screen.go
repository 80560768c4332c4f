package livesync

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RelayEats/sync_layer/internal/app/metrics"
	"github.com/RelayEats/sync_layer/pkg/logger"
)

// State is the presentation state of a screen's list.
type State string

const (
	// StateLoading means no data has been shown yet.
	StateLoading State = "loading"
	// StateReady means the list reflects a snapshot, possibly a cached one.
	StateReady State = "ready"
	// StateError means the last fetch failed; the previous snapshot is kept.
	StateError State = "error"
)

// Lister loads a scoped snapshot from the source of truth.
type Lister[T any, PT RecordPtr[T]] interface {
	Fetch(ctx context.Context, scope Scope) ([]PT, error)
}

// Snapshotter paints and persists local snapshots.
type Snapshotter[R any] interface {
	Read(ctx context.Context, scope Scope) ([]R, bool)
	Write(ctx context.Context, scope Scope, records []R)
}

// Feed delivers decoded change events for a scope.
type Feed[T any] interface {
	Subscribe(ctx context.Context, handler func(Event[T])) error
	Unsubscribe(ctx context.Context) error
}

// ScreenConfig tunes a screen.
type ScreenConfig struct {
	// Quiescence is the debounce window for feed-triggered refreshes.
	Quiescence time.Duration
	Log        *logger.Logger
}

// Screen synchronizes one scoped list: cached paint on mount, a change feed
// driving debounced refreshes, and transition notifications. When the feed
// cannot be established the screen degrades to fetch-only mode and keeps
// working through manual Refresh calls.
type Screen[T any, PT RecordPtr[T]] struct {
	scope    Scope
	lister   Lister[T, PT]
	cache    Snapshotter[PT]
	feed     Feed[T]
	notifier *Notifier
	debounce *Debouncer
	log      *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// fetchSeq issues a token per fetch; only the result of the highest
	// token ever applies, so a slow early response cannot clobber a
	// newer one.
	fetchSeq atomic.Uint64

	mu      sync.RWMutex
	applied uint64
	records []PT
	state   State
	lastErr error
	live    bool
	closed  bool

	teardown sync.Once
}

// NewScreen wires a screen from its collaborators.
func NewScreen[T any, PT RecordPtr[T]](
	scope Scope,
	lister Lister[T, PT],
	cache Snapshotter[PT],
	feed Feed[T],
	notifier *Notifier,
	cfg ScreenConfig,
) *Screen[T, PT] {
	log := cfg.Log
	if log == nil {
		log = logger.NewDefault("screen")
	}

	s := &Screen[T, PT]{
		scope:    scope,
		lister:   lister,
		cache:    cache,
		feed:     feed,
		notifier: notifier,
		log:      log,
		state:    StateLoading,
	}
	s.debounce = NewDebouncer(cfg.Quiescence, func() {
		if err := s.Refresh(s.ctx); err != nil {
			s.log.WithError(err).Warn("debounced refresh failed")
		}
	})
	return s
}

// Scope returns the screen's scope.
func (s *Screen[T, PT]) Scope() Scope {
	return s.scope
}

// Mount paints the cached snapshot, subscribes to the change feed and runs
// the first authoritative fetch. A feed failure degrades the screen to
// fetch-only mode rather than failing the mount; a fetch failure is
// returned and the cached paint is kept.
func (s *Screen[T, PT]) Mount(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	if cached, ok := s.cache.Read(ctx, s.scope); ok {
		s.mu.Lock()
		s.records = cached
		s.state = StateReady
		s.mu.Unlock()
	}

	if err := s.feed.Subscribe(s.ctx, s.onEvent); err != nil {
		s.log.WithError(err).Warn("change feed unavailable, running fetch-only")
	} else {
		s.mu.Lock()
		s.live = true
		s.mu.Unlock()
	}

	return s.Refresh(s.ctx)
}

// onEvent handles one change feed event: notify on observed transitions and
// schedule a coalesced refresh. Events drained during teardown are dropped.
func (s *Screen[T, PT]) onEvent(e Event[T]) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return
	}

	if s.notifier != nil && e.Old != nil && e.New != nil {
		s.notifier.Observe(s.ctx, PT(e.Old), PT(e.New))
	}
	s.debounce.Schedule()
}

// Refresh fetches the scoped list and applies it if no newer fetch has
// finished first. On failure the previous snapshot stays visible and the
// error is surfaced through Err.
func (s *Screen[T, PT]) Refresh(ctx context.Context) error {
	token := s.fetchSeq.Add(1)

	records, err := s.lister.Fetch(ctx, s.scope)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	if token <= s.applied {
		metrics.RecordStaleRefresh(string(s.scope.Resource))
		return nil
	}
	s.applied = token

	if err != nil {
		s.state = StateError
		s.lastErr = err
		return err
	}

	s.records = records
	s.state = StateReady
	s.lastErr = nil
	metrics.RecordRefresh(string(s.scope.Resource))

	s.cache.Write(ctx, s.scope, records)
	return nil
}

// Teardown stops the debouncer, leaves the change feed and cancels the
// screen context. The closed flag flips before the feed drains, so queued
// events and late fetch results mutate nothing. Safe to call more than once.
func (s *Screen[T, PT]) Teardown(ctx context.Context) {
	s.teardown.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.live = false
		s.mu.Unlock()

		s.debounce.Stop()
		if err := s.feed.Unsubscribe(ctx); err != nil {
			s.log.WithError(err).Warn("feed teardown failed")
		}
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// Present returns the current list filtered for display.
func (s *Screen[T, PT]) Present(q Query) []PT {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Present(s.records, q)
}

// Records returns a copy of the current snapshot.
func (s *Screen[T, PT]) Records() []PT {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PT, len(s.records))
	copy(out, s.records)
	return out
}

// State returns the presentation state.
func (s *Screen[T, PT]) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err returns the error behind StateError, if any.
func (s *Screen[T, PT]) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Live reports whether the change feed is attached. False means fetch-only
// degraded mode.
func (s *Screen[T, PT]) Live() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live
}
