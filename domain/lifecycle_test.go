package domain

import "testing"

// =============================================================================
// Lifecycle Graph Tests
// =============================================================================

func TestValidTransition_OrderForward(t *testing.T) {
	steps := []struct {
		old, next Status
	}{
		{OrderPending, OrderAccepted},
		{OrderAccepted, OrderPurchasing},
		{OrderPurchasing, OrderPreparing},
		{OrderPreparing, OrderReadyForPickup},
		{OrderReadyForPickup, OrderPickedUp},
		{OrderPickedUp, OrderInTransit},
		{OrderInTransit, OrderDelivered},
	}
	for _, step := range steps {
		if !ValidTransition(ResourceOrder, step.old, step.next) {
			t.Errorf("ValidTransition(order, %s, %s) = false, want true", step.old, step.next)
		}
	}
}

func TestValidTransition_ErrandForward(t *testing.T) {
	steps := []struct {
		old, next Status
	}{
		{ErrandPending, ErrandAccepted},
		{ErrandAccepted, ErrandAtPickup},
		{ErrandAtPickup, ErrandPickupComplete},
		{ErrandPickupComplete, ErrandEnRoute},
		{ErrandEnRoute, ErrandCompleted},
	}
	for _, step := range steps {
		if !ValidTransition(ResourceErrand, step.old, step.next) {
			t.Errorf("ValidTransition(errand, %s, %s) = false, want true", step.old, step.next)
		}
	}
}

func TestValidTransition_CancellationFromAnyNonTerminal(t *testing.T) {
	for _, s := range []Status{OrderPending, OrderAccepted, OrderPreparing, OrderInTransit} {
		if !ValidTransition(ResourceOrder, s, OrderCancelled) {
			t.Errorf("cancellation from %s should be valid", s)
		}
	}
	if ValidTransition(ResourceOrder, OrderDelivered, OrderCancelled) {
		t.Error("cancellation from delivered should be invalid")
	}
}

func TestValidTransition_NoResurrection(t *testing.T) {
	if ValidTransition(ResourceOrder, OrderDelivered, OrderPending) {
		t.Error("delivered -> pending should be invalid")
	}
	if ValidTransition(ResourceOrder, OrderCancelled, OrderAccepted) {
		t.Error("cancelled -> accepted should be invalid")
	}
	if ValidTransition(ResourceErrand, ErrandCompleted, ErrandPending) {
		t.Error("completed -> pending should be invalid")
	}
}

func TestValidTransition_NoSkipping(t *testing.T) {
	if ValidTransition(ResourceOrder, OrderPending, OrderDelivered) {
		t.Error("pending -> delivered should be invalid")
	}
	if ValidTransition(ResourceErrand, ErrandPending, ErrandEnRoute) {
		t.Error("pending -> en_route should be invalid")
	}
}

func TestValidTransition_UnknownStatus(t *testing.T) {
	if ValidTransition(ResourceOrder, "bogus", OrderAccepted) {
		t.Error("unknown old status should be invalid")
	}
	if ValidTransition(ResourceOrder, OrderPending, "bogus") {
		t.Error("unknown next status should be invalid")
	}
	if ValidTransition("vehicle", OrderPending, OrderAccepted) {
		t.Error("unknown resource should be invalid")
	}
}

func TestIsTerminal(t *testing.T) {
	cases := []struct {
		resource ResourceType
		status   Status
		want     bool
	}{
		{ResourceOrder, OrderDelivered, true},
		{ResourceOrder, OrderCancelled, true},
		{ResourceOrder, OrderInTransit, false},
		{ResourceErrand, ErrandCompleted, true},
		{ResourceErrand, ErrandCancelled, true},
		{ResourceErrand, ErrandEnRoute, false},
	}
	for _, c := range cases {
		if got := IsTerminal(c.resource, c.status); got != c.want {
			t.Errorf("IsTerminal(%s, %s) = %v, want %v", c.resource, c.status, got, c.want)
		}
	}
}

// =============================================================================
// Record Interface Tests
// =============================================================================

func TestOrder_RecordInterface(t *testing.T) {
	var rec Record = &Order{
		ID:              "o-1",
		OrderNumber:     "ORD-447",
		Status:          OrderPending,
		CustomerName:    "Ada",
		DeliveryAddress: "12 Fermi Street",
	}

	if rec.Resource() != ResourceOrder {
		t.Errorf("Resource() = %s, want order", rec.Resource())
	}
	if rec.GetSequence() != "ORD-447" {
		t.Errorf("GetSequence() = %s, want ORD-447", rec.GetSequence())
	}

	index := rec.SearchIndex()
	found := false
	for _, f := range index {
		if f == "12 Fermi Street" {
			found = true
		}
	}
	if !found {
		t.Error("SearchIndex() should include the delivery address")
	}
}

func TestErrand_RecordInterface(t *testing.T) {
	var rec Record = &Errand{
		ID:           "e-1",
		ErrandNumber: "ERR-12",
		Status:       ErrandAccepted,
		RunnerID:     "runner-9",
	}

	if rec.Resource() != ResourceErrand {
		t.Errorf("Resource() = %s, want errand", rec.Resource())
	}
	if rec.GetStatus() != ErrandAccepted {
		t.Errorf("GetStatus() = %s, want accepted", rec.GetStatus())
	}
}

func TestResourceType_Table(t *testing.T) {
	if ResourceOrder.Table() != "orders" {
		t.Errorf("orders table = %s", ResourceOrder.Table())
	}
	if ResourceErrand.Table() != "errands" {
		t.Errorf("errands table = %s", ResourceErrand.Table())
	}
}
