package storage

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/RelayEats/sync_layer/pkg/logger"
)

// DefaultSnapshotTTL is how long a cached snapshot stays eligible for reads.
const DefaultSnapshotTTL = 24 * time.Hour

// Sweeper prunes stale snapshot entries by key prefix. It runs one pass at
// startup and then hourly.
type Sweeper struct {
	kv     KV
	prefix string
	ttl    time.Duration
	log    *logger.Logger
	now    func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewSweeper creates a sweeper for keys under prefix older than ttl.
func NewSweeper(kv KV, prefix string, ttl time.Duration, log *logger.Logger) *Sweeper {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	if log == nil {
		log = logger.NewDefault("snapshot-sweeper")
	}
	return &Sweeper{
		kv:     kv,
		prefix: prefix,
		ttl:    ttl,
		log:    log,
		now:    time.Now,
	}
}

// Start runs an immediate sweep and schedules hourly passes.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.cron = cron.New()
	if _, err := s.cron.AddFunc("@hourly", func() { s.Sweep(context.Background()) }); err != nil {
		s.mu.Unlock()
		return err
	}
	s.running = true
	s.mu.Unlock()

	s.Sweep(ctx)
	s.cron.Start()
	s.log.WithField("prefix", s.prefix).Info("snapshot sweeper started")
	return nil
}

// Stop cancels the hourly schedule.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("snapshot sweeper stopped")
}

// Sweep removes stale and unreadable entries under the prefix. Failures are
// logged and skipped; a sweep never fails the caller.
func (s *Sweeper) Sweep(ctx context.Context) {
	keys, err := s.kv.ListKeys(ctx, s.prefix)
	if err != nil {
		s.log.WithError(err).Warn("sweep: list keys failed")
		return
	}

	cutoff := s.now().Add(-s.ttl)
	pruned := 0
	for _, key := range keys {
		value, ok, err := s.kv.Get(ctx, key)
		if err != nil {
			s.log.WithError(err).WithField("key", key).Warn("sweep: read failed")
			continue
		}
		if !ok {
			continue
		}

		var envelope struct {
			CachedAt time.Time `json:"cached_at"`
		}
		stale := false
		if err := json.Unmarshal([]byte(value), &envelope); err != nil {
			// Unreadable entries are as good as stale.
			stale = true
		} else if envelope.CachedAt.Before(cutoff) {
			stale = true
		}

		if !stale {
			continue
		}
		if err := s.kv.Remove(ctx, key); err != nil {
			s.log.WithError(err).WithField("key", key).Warn("sweep: remove failed")
			continue
		}
		pruned++
	}

	if pruned > 0 {
		s.log.WithField("pruned", pruned).Info("stale snapshots pruned")
	}
}
