package livesync

import (
	"context"
	"encoding/json"
	"time"

	"github.com/RelayEats/sync_layer/domain"
	"github.com/RelayEats/sync_layer/internal/app/metrics"
	"github.com/RelayEats/sync_layer/pkg/logger"
	"github.com/RelayEats/sync_layer/storage"
)

// CacheEntry is the stored form of a snapshot.
type CacheEntry[R domain.Record] struct {
	Records  []R       `json:"records"`
	CachedAt time.Time `json:"cached_at"`
}

// SnapshotCache persists the last known list per scope so screens can paint
// immediately on mount. It is best effort: a read failure is a miss, a write
// failure is logged and dropped, and the fetch path never depends on it.
type SnapshotCache[R domain.Record] struct {
	kv  storage.KV
	log *logger.Logger
	now func() time.Time
}

// NewSnapshotCache creates a snapshot cache over kv.
func NewSnapshotCache[R domain.Record](kv storage.KV, log *logger.Logger) *SnapshotCache[R] {
	if log == nil {
		log = logger.NewDefault("snapshot-cache")
	}
	return &SnapshotCache[R]{kv: kv, log: log, now: time.Now}
}

// Read returns the cached snapshot for the scope. Corrupt entries are
// removed and reported as a miss.
func (c *SnapshotCache[R]) Read(ctx context.Context, scope Scope) ([]R, bool) {
	key := scope.CacheKey()
	resource := string(scope.Resource)

	raw, ok, err := c.kv.Get(ctx, key)
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("snapshot read failed")
		metrics.RecordCacheRead(resource, "miss")
		return nil, false
	}
	if !ok {
		metrics.RecordCacheRead(resource, "miss")
		return nil, false
	}

	var entry CacheEntry[R]
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("corrupt snapshot dropped")
		if err := c.kv.Remove(ctx, key); err != nil {
			c.log.WithError(err).WithField("key", key).Warn("corrupt snapshot remove failed")
		}
		metrics.RecordCacheRead(resource, "corrupt")
		return nil, false
	}

	metrics.RecordCacheRead(resource, "hit")
	return entry.Records, true
}

// Write stores a snapshot for the scope. Failures are logged and swallowed.
func (c *SnapshotCache[R]) Write(ctx context.Context, scope Scope, records []R) {
	key := scope.CacheKey()

	payload, err := json.Marshal(CacheEntry[R]{
		Records:  records,
		CachedAt: c.now(),
	})
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("snapshot marshal failed")
		return
	}

	if err := c.kv.Set(ctx, key, string(payload)); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("snapshot write failed")
	}
}

// Invalidate drops the cached snapshot for the scope.
func (c *SnapshotCache[R]) Invalidate(ctx context.Context, scope Scope) {
	if err := c.kv.Remove(ctx, scope.CacheKey()); err != nil {
		c.log.WithError(err).WithField("key", scope.CacheKey()).Warn("snapshot invalidate failed")
	}
}
