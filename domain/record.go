// Package domain defines the record types tracked by the sync core.
package domain

import "time"

// ResourceType identifies a tracked resource.
type ResourceType string

const (
	ResourceOrder  ResourceType = "order"
	ResourceErrand ResourceType = "errand"
)

// Table returns the remote table backing the resource.
func (r ResourceType) Table() string {
	switch r {
	case ResourceOrder:
		return "orders"
	case ResourceErrand:
		return "errands"
	default:
		return string(r)
	}
}

// Status is a lifecycle status of a tracked record.
type Status string

// Role identifies the viewer of a scoped list.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleDriver   Role = "driver"
	RoleAdmin    Role = "admin"
)

// Record is the status-bearing capability shared by all tracked resources.
// The notifier, cache and presentation layers consume records through this
// interface; concrete types stay tagged per resource.
type Record interface {
	GetID() string
	GetSequence() string
	GetStatus() Status
	GetCreatedAt() time.Time
	Resource() ResourceType
	// SearchIndex returns the fields matched by free-text search:
	// sequence number, owner name, addresses.
	SearchIndex() []string
}
