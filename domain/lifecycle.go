package domain

// Lifecycle graphs per resource. Cancellation is reachable from any
// non-terminal state and is handled in ValidTransition rather than
// enumerated per node.
var (
	orderGraph = map[Status][]Status{
		OrderPending:        {OrderConfirmed, OrderAccepted},
		OrderConfirmed:      {OrderAccepted, OrderPurchasing, OrderPreparing},
		OrderAccepted:       {OrderPurchasing, OrderPreparing},
		OrderPurchasing:     {OrderPreparing, OrderReadyForPickup},
		OrderPreparing:      {OrderReadyForPickup},
		OrderReadyForPickup: {OrderPickedUp},
		OrderPickedUp:       {OrderInTransit},
		OrderInTransit:      {OrderDelivered},
		OrderDelivered:      nil,
		OrderCancelled:      nil,
	}

	errandGraph = map[Status][]Status{
		ErrandPending:        {ErrandAccepted},
		ErrandAccepted:       {ErrandAtPickup},
		ErrandAtPickup:       {ErrandPickupComplete},
		ErrandPickupComplete: {ErrandEnRoute},
		ErrandEnRoute:        {ErrandCompleted},
		ErrandCompleted:      nil,
		ErrandCancelled:      nil,
	}
)

func graphFor(resource ResourceType) map[Status][]Status {
	switch resource {
	case ResourceOrder:
		return orderGraph
	case ResourceErrand:
		return errandGraph
	default:
		return nil
	}
}

// KnownStatus reports whether the status belongs to the resource's lifecycle.
func KnownStatus(resource ResourceType, s Status) bool {
	_, ok := graphFor(resource)[s]
	return ok
}

// IsTerminal reports whether no further transition is expected from s.
func IsTerminal(resource ResourceType, s Status) bool {
	switch resource {
	case ResourceOrder:
		return s == OrderDelivered || s == OrderCancelled
	case ResourceErrand:
		return s == ErrandCompleted || s == ErrandCancelled
	default:
		return false
	}
}

// NextStatuses returns the forward transitions from s, excluding cancellation.
func NextStatuses(resource ResourceType, s Status) []Status {
	return graphFor(resource)[s]
}

// ValidTransition reports whether old -> next follows the lifecycle graph.
// Terminal states never transition; cancellation is valid from any
// non-terminal state.
func ValidTransition(resource ResourceType, old, next Status) bool {
	graph := graphFor(resource)
	if graph == nil {
		return false
	}
	if _, ok := graph[old]; !ok {
		return false
	}
	if !KnownStatus(resource, next) {
		return false
	}
	if IsTerminal(resource, old) {
		return false
	}
	if next == OrderCancelled || next == ErrandCancelled {
		return true
	}
	for _, s := range graph[old] {
		if s == next {
			return true
		}
	}
	return false
}
