package domain

import "time"

// Order lifecycle statuses, in rough forward order.
const (
	OrderPending        Status = "pending"
	OrderConfirmed      Status = "confirmed"
	OrderAccepted       Status = "accepted"
	OrderPurchasing     Status = "purchasing"
	OrderPreparing      Status = "preparing"
	OrderReadyForPickup Status = "ready_for_pickup"
	OrderPickedUp       Status = "picked_up"
	OrderInTransit      Status = "in_transit"
	OrderDelivered      Status = "delivered"
	OrderCancelled      Status = "cancelled"
)

// Order represents a food-delivery order.
type Order struct {
	ID              string    `json:"id"`
	OrderNumber     string    `json:"order_number"`
	Status          Status    `json:"status"`
	CustomerID      string    `json:"customer_id"`
	CustomerName    string    `json:"customer_name"`
	DriverID        string    `json:"driver_id,omitempty"`
	RestaurantName  string    `json:"restaurant_name,omitempty"`
	DeliveryAddress string    `json:"delivery_address"`
	Latitude        float64   `json:"latitude,omitempty"`
	Longitude       float64   `json:"longitude,omitempty"`
	Total           float64   `json:"total"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// GetID returns the order ID.
func (o *Order) GetID() string { return o.ID }

// GetSequence returns the human-readable order number.
func (o *Order) GetSequence() string { return o.OrderNumber }

// GetStatus returns the current lifecycle status.
func (o *Order) GetStatus() Status { return o.Status }

// GetCreatedAt returns the creation time.
func (o *Order) GetCreatedAt() time.Time { return o.CreatedAt }

// Resource returns the resource tag.
func (o *Order) Resource() ResourceType { return ResourceOrder }

// SearchIndex returns the searchable fields.
func (o *Order) SearchIndex() []string {
	return []string{o.OrderNumber, o.CustomerName, o.DeliveryAddress, o.RestaurantName}
}

// Assigned reports whether a driver has claimed the order.
func (o *Order) Assigned() bool { return o.DriverID != "" }
