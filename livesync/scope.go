// Package livesync implements the live list synchronization core: scoped
// snapshot fetching, local cache painting, change feed subscriptions,
// debounced refresh and transition notifications.
package livesync

import (
	"fmt"

	"github.com/RelayEats/sync_layer/domain"
	"github.com/RelayEats/sync_layer/supabase/client"
)

// Scope identifies one screen's slice of a resource: which user is looking,
// in which role, at which table. A scope maps to exactly one cache key and
// one realtime channel.
type Scope struct {
	Role     domain.Role
	UserID   string
	Resource domain.ResourceType

	// Available selects the unassigned pending pool instead of the
	// viewer's own records. Only meaningful for drivers.
	Available bool
}

// CacheKey returns the snapshot cache key for the scope.
func (s Scope) CacheKey() string {
	key := fmt.Sprintf("snapshot:%s:%s:%s", s.Role, s.UserID, s.Resource)
	if s.Available {
		key += ":available"
	}
	return key
}

// assigneeColumn is the column naming the worker who claimed the record.
func (s Scope) assigneeColumn() string {
	if s.Resource == domain.ResourceErrand {
		return "runner_id"
	}
	return "driver_id"
}

// Apply narrows a PostgREST query to the scope.
func (s Scope) Apply(q *client.QueryBuilder) *client.QueryBuilder {
	switch {
	case s.Role == domain.RoleAdmin:
		// Admins see everything.
	case s.Available:
		q = q.Eq("status", "pending").Is(s.assigneeColumn(), "null")
	case s.Role == domain.RoleDriver:
		q = q.Eq(s.assigneeColumn(), s.UserID)
	default:
		q = q.Eq("customer_id", s.UserID)
	}
	return q
}

// ServerFilter returns the realtime filter for the scope. The change feed
// accepts a single column filter, so the available pool subscribes on status
// and relies on the refresh fetch for assignment filtering.
func (s Scope) ServerFilter() string {
	switch {
	case s.Role == domain.RoleAdmin:
		return ""
	case s.Available:
		return "status=eq.pending"
	case s.Role == domain.RoleDriver:
		return fmt.Sprintf("%s=eq.%s", s.assigneeColumn(), s.UserID)
	default:
		return fmt.Sprintf("customer_id=eq.%s", s.UserID)
	}
}

// RecordPtr constrains a pointer type that carries record behavior. It lets
// generic components allocate concrete records while speaking the shared
// status-bearing interface.
type RecordPtr[T any] interface {
	*T
	domain.Record
}
