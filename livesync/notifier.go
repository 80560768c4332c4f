package livesync

import (
	"context"
	"fmt"

	"github.com/RelayEats/sync_layer/domain"
	"github.com/RelayEats/sync_layer/internal/app/metrics"
	"github.com/RelayEats/sync_layer/pkg/logger"
)

// Intent is a user-facing notification derived from a status transition.
type Intent struct {
	Title    string
	Body     string
	Resource domain.ResourceType
	RecordID string
	Sequence string
	Status   domain.Status
}

// Presenter delivers an intent to the user. Implementations range from a
// local banner to an email dispatch.
type Presenter interface {
	Present(ctx context.Context, intent Intent) error
}

// PresenterFunc adapts a function to the Presenter interface.
type PresenterFunc func(ctx context.Context, intent Intent) error

// Present calls f.
func (f PresenterFunc) Present(ctx context.Context, intent Intent) error {
	return f(ctx, intent)
}

// Fanout returns a presenter that delivers to every given presenter. Errors
// are collected per presenter by the notifier, not here; the first error is
// returned after all presenters ran.
func Fanout(presenters ...Presenter) Presenter {
	return PresenterFunc(func(ctx context.Context, intent Intent) error {
		var firstErr error
		for _, p := range presenters {
			if err := p.Present(ctx, intent); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	})
}

// NewLogPresenter returns a presenter that writes intents to the log.
func NewLogPresenter(log *logger.Logger) Presenter {
	if log == nil {
		log = logger.NewDefault("presenter")
	}
	return PresenterFunc(func(ctx context.Context, intent Intent) error {
		log.WithFields(map[string]any{
			"resource": intent.Resource,
			"record":   intent.RecordID,
			"status":   intent.Status,
		}).Info(intent.Title + ": " + intent.Body)
		return nil
	})
}

// notificationRule renders an intent for one (resource, new status) pair.
// The body template receives the record's sequence number.
type notificationRule struct {
	title string
	body  string
}

// notificationRules is the static transition table. A status missing here
// produces no notification.
var notificationRules = map[domain.ResourceType]map[domain.Status]notificationRule{
	domain.ResourceOrder: {
		domain.OrderConfirmed:      {"Order Confirmed", "Order #%s has been confirmed."},
		domain.OrderAccepted:       {"Order Accepted", "Order #%s has been accepted by a driver."},
		domain.OrderPurchasing:     {"Purchasing Items", "Your driver is purchasing the items for order #%s."},
		domain.OrderPreparing:      {"Order Being Prepared", "The restaurant is preparing order #%s."},
		domain.OrderReadyForPickup: {"Ready for Pickup", "Order #%s is ready for pickup."},
		domain.OrderPickedUp:       {"Order Picked Up", "Your driver has picked up order #%s."},
		domain.OrderInTransit:      {"On the Way", "Order #%s is on its way to you."},
		domain.OrderDelivered:      {"Order Delivered", "Order #%s has been delivered. Enjoy!"},
		domain.OrderCancelled:      {"Order Cancelled", "Order #%s has been cancelled."},
	},
	domain.ResourceErrand: {
		domain.ErrandAccepted:       {"Errand Accepted", "Errand #%s has been accepted by a runner."},
		domain.ErrandAtPickup:       {"Runner at Pickup", "Your runner has arrived at the pickup for errand #%s."},
		domain.ErrandPickupComplete: {"Pickup Complete", "Your runner has the items for errand #%s."},
		domain.ErrandEnRoute:        {"On the Way", "Errand #%s is on its way to the drop-off."},
		domain.ErrandCompleted:      {"Errand Completed", "Errand #%s has been completed."},
		domain.ErrandCancelled:      {"Errand Cancelled", "Errand #%s has been cancelled."},
	},
}

// Notifier turns observed status transitions into presented intents.
type Notifier struct {
	presenter Presenter
	log       *logger.Logger
}

// NewNotifier creates a notifier delivering through presenter.
func NewNotifier(presenter Presenter, log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.NewDefault("notifier")
	}
	return &Notifier{presenter: presenter, log: log}
}

// Observe compares a record before and after a change and presents a
// notification when the status moved to a mapped value. Inserts and
// untracked statuses are silent. Presenter failures are logged and
// swallowed so a notification can never break synchronization.
func (n *Notifier) Observe(ctx context.Context, old, updated domain.Record) {
	if old == nil || updated == nil {
		return
	}

	prev := old.GetStatus()
	next := updated.GetStatus()
	if prev == next {
		return
	}

	resource := updated.Resource()
	if !domain.ValidTransition(resource, prev, next) {
		// Out-of-graph moves still notify when mapped; the anomaly is
		// worth a trace either way.
		n.log.WithFields(map[string]any{
			"resource": resource,
			"record":   updated.GetID(),
			"from":     prev,
			"to":       next,
		}).Warn("transition outside lifecycle graph")
	}

	rule, ok := notificationRules[resource][next]
	if !ok {
		return
	}

	intent := Intent{
		Title:    rule.title,
		Body:     fmt.Sprintf(rule.body, updated.GetSequence()),
		Resource: resource,
		RecordID: updated.GetID(),
		Sequence: updated.GetSequence(),
		Status:   next,
	}

	if n.presenter == nil {
		return
	}
	if err := n.presenter.Present(ctx, intent); err != nil {
		n.log.WithError(err).WithFields(map[string]any{
			"resource": resource,
			"record":   updated.GetID(),
		}).Warn("notification present failed")
		return
	}
	metrics.RecordNotification(string(resource), string(next))
}
