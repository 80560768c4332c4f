package livesync

import (
	"context"
	"fmt"
	"time"

	"github.com/RelayEats/sync_layer/domain"
	"github.com/RelayEats/sync_layer/internal/app/metrics"
	"github.com/RelayEats/sync_layer/pkg/logger"
	"github.com/RelayEats/sync_layer/supabase/client"
)

// DefaultPageSize is the fetch page size.
const DefaultPageSize = 100

// Fetcher loads scoped snapshots from the backend. It performs no retries:
// errors propagate to the caller, which decides whether to keep stale data
// or surface the failure.
type Fetcher[T any, PT RecordPtr[T]] struct {
	client   *client.Client
	pageSize int
	log      *logger.Logger
}

// NewFetcher creates a fetcher for one record type.
func NewFetcher[T any, PT RecordPtr[T]](c *client.Client, pageSize int, log *logger.Logger) *Fetcher[T, PT] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if log == nil {
		log = logger.NewDefault("fetcher")
	}
	return &Fetcher[T, PT]{client: c, pageSize: pageSize, log: log}
}

// Fetch returns the full scoped list, newest first, paging until the backend
// returns a short page.
func (f *Fetcher[T, PT]) Fetch(ctx context.Context, scope Scope) ([]PT, error) {
	resource := string(scope.Resource)
	start := time.Now()

	var all []PT
	for offset := 0; ; offset += f.pageSize {
		q := scope.Apply(f.client.From(scope.Resource.Table())).
			Select("*").
			Order("created_at", false).
			Limit(f.pageSize).
			Offset(offset)

		var page []PT
		if err := q.ExecuteInto(ctx, &page); err != nil {
			metrics.RecordFetch(resource, "error", time.Since(start))
			return nil, fmt.Errorf("fetch %s: %w", resource, err)
		}

		all = append(all, page...)
		if len(page) < f.pageSize {
			break
		}
	}

	metrics.RecordFetch(resource, "ok", time.Since(start))
	return all, nil
}

// Get returns a single record by ID. A missing row is reported as absent,
// not as an error.
func (f *Fetcher[T, PT]) Get(ctx context.Context, resource domain.ResourceType, id string) (PT, bool, error) {
	var zero PT
	rec := PT(new(T))

	err := f.client.From(resource.Table()).
		Select("*").
		Eq("id", id).
		Single().
		ExecuteInto(ctx, rec)
	if err != nil {
		if client.IsNotFound(err) {
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("get %s %s: %w", resource, id, err)
	}
	return rec, true, nil
}

// UpdateStatus advances a record's lifecycle status. The current row is read
// first and the transition checked against the lifecycle graph, so a stale
// client cannot resurrect a terminal record.
func (f *Fetcher[T, PT]) UpdateStatus(ctx context.Context, resource domain.ResourceType, id string, next domain.Status) error {
	current, found, err := f.Get(ctx, resource, id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("update %s %s: record not found", resource, id)
	}

	if !domain.ValidTransition(resource, current.GetStatus(), next) {
		return fmt.Errorf("update %s %s: invalid transition %s -> %s",
			resource, id, current.GetStatus(), next)
	}

	resp, err := f.client.From(resource.Table()).
		Eq("id", id).
		ExecuteUpdate(ctx, map[string]any{
			"status":     next,
			"updated_at": time.Now().UTC(),
		})
	if err != nil {
		return fmt.Errorf("update %s %s: %w", resource, id, err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("update %s %s: status %d", resource, id, resp.StatusCode)
	}

	f.log.WithFields(map[string]any{
		"resource": resource,
		"id":       id,
		"from":     current.GetStatus(),
		"to":       next,
	}).Info("status updated")
	return nil
}
