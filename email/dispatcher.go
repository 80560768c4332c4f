// Package email dispatches status emails through a Supabase edge function.
package email

import (
	"context"

	"github.com/RelayEats/sync_layer/domain"
	"github.com/RelayEats/sync_layer/livesync"
	"github.com/RelayEats/sync_layer/pkg/logger"
	"github.com/RelayEats/sync_layer/supabase/client"
)

// DefaultFunction is the edge function handling status emails.
const DefaultFunction = "send-status-email"

// Dispatcher emails the customer when a record reaches a terminal state. It
// plugs into the notifier as a presenter; non-terminal transitions pass
// through silently and delivery failures are logged, never propagated, so
// email trouble cannot disturb the sync path.
type Dispatcher struct {
	functions *client.FunctionsClient
	function  string
	log       *logger.Logger
}

// NewDispatcher creates a dispatcher invoking the named edge function. An
// empty name selects DefaultFunction.
func NewDispatcher(c *client.Client, function string, log *logger.Logger) *Dispatcher {
	if function == "" {
		function = DefaultFunction
	}
	if log == nil {
		log = logger.NewDefault("email")
	}
	return &Dispatcher{
		functions: c.Functions(),
		function:  function,
		log:       log,
	}
}

// Present implements livesync.Presenter.
func (d *Dispatcher) Present(ctx context.Context, intent livesync.Intent) error {
	if !domain.IsTerminal(intent.Resource, intent.Status) {
		return nil
	}

	payload := map[string]any{
		"resource":  intent.Resource,
		"record_id": intent.RecordID,
		"sequence":  intent.Sequence,
		"status":    intent.Status,
		"subject":   intent.Title,
		"body":      intent.Body,
	}

	if _, err := d.functions.Invoke(ctx, d.function, payload); err != nil {
		d.log.WithError(err).WithFields(map[string]any{
			"resource": intent.Resource,
			"record":   intent.RecordID,
		}).Warn("status email dispatch failed")
		return nil
	}

	d.log.WithFields(map[string]any{
		"resource": intent.Resource,
		"record":   intent.RecordID,
		"status":   intent.Status,
	}).Info("status email dispatched")
	return nil
}
