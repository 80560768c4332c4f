package domain

import "time"

// Errand lifecycle statuses, in rough forward order.
const (
	ErrandPending        Status = "pending"
	ErrandAccepted       Status = "accepted"
	ErrandAtPickup       Status = "at_pickup"
	ErrandPickupComplete Status = "pickup_complete"
	ErrandEnRoute        Status = "en_route"
	ErrandCompleted      Status = "completed"
	ErrandCancelled      Status = "cancelled"
)

// Errand represents an errand-running request.
type Errand struct {
	ID             string    `json:"id"`
	ErrandNumber   string    `json:"errand_number"`
	Status         Status    `json:"status"`
	CustomerID     string    `json:"customer_id"`
	CustomerName   string    `json:"customer_name"`
	RunnerID       string    `json:"runner_id,omitempty"`
	Description    string    `json:"description,omitempty"`
	PickupAddress  string    `json:"pickup_address"`
	DropoffAddress string    `json:"dropoff_address"`
	Total          float64   `json:"total"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// GetID returns the errand ID.
func (e *Errand) GetID() string { return e.ID }

// GetSequence returns the human-readable errand number.
func (e *Errand) GetSequence() string { return e.ErrandNumber }

// GetStatus returns the current lifecycle status.
func (e *Errand) GetStatus() Status { return e.Status }

// GetCreatedAt returns the creation time.
func (e *Errand) GetCreatedAt() time.Time { return e.CreatedAt }

// Resource returns the resource tag.
func (e *Errand) Resource() ResourceType { return ResourceErrand }

// SearchIndex returns the searchable fields.
func (e *Errand) SearchIndex() []string {
	return []string{e.ErrandNumber, e.CustomerName, e.PickupAddress, e.DropoffAddress}
}

// Assigned reports whether a runner has claimed the errand.
func (e *Errand) Assigned() bool { return e.RunnerID != "" }
