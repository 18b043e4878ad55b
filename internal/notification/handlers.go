package notification

import (
	"context"
	"fmt"
	"time"

	"servicecert_backend/internal/events"
	"servicecert_backend/internal/payments/domain"
	"servicecert_backend/platform/logger"
)

// StaffNotifier is the notifier surface the event handlers queue through.
type StaffNotifier interface {
	NotifyStaffNewLead(ctx context.Context, reference, name, email, phone string) error
	ScheduleCallbackReminder(ctx context.Context, reference, name, phone string, at time.Time) error
	NotifyStaffLeadConverted(ctx context.Context, leadReference, requestReference string) error
	NotifyStaffPaymentFailed(ctx context.Context, reference, paymentID string, amountMinor int64) error
}

// Handlers consumes domain events from the bus and turns them into queued
// staff notifications. Delivery stays asynchronous: a handler failure is
// logged by the bus and never reaches the publishing operation.
type Handlers struct {
	notifier StaffNotifier
	log      *logger.Logger
}

// NewHandlers creates the event handlers.
func NewHandlers(notifier StaffNotifier, log *logger.Logger) *Handlers {
	return &Handlers{notifier: notifier, log: log}
}

// RegisterHandlers subscribes to all domain events this module reacts to.
func (h *Handlers) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), h)
	bus.Subscribe(events.LeadCallbackRequested{}.EventName(), h)
	bus.Subscribe(events.LeadConverted{}.EventName(), h)
	bus.Subscribe(events.PaymentStatusChanged{}.EventName(), h)

	h.log.Info("notification handlers registered on event bus")
}

// Handle routes events to the appropriate handler method.
func (h *Handlers) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadCreated:
		return h.handleLeadCreated(ctx, e)
	case events.LeadCallbackRequested:
		return h.handleLeadCallbackRequested(ctx, e)
	case events.LeadConverted:
		return h.handleLeadConverted(ctx, e)
	case events.PaymentStatusChanged:
		return h.handlePaymentStatusChanged(ctx, e)
	}
	return nil
}

func (h *Handlers) handleLeadCreated(ctx context.Context, e events.LeadCreated) error {
	return h.notifier.NotifyStaffNewLead(ctx, e.Reference, e.Name, e.Email, e.Phone)
}

func (h *Handlers) handleLeadCallbackRequested(ctx context.Context, e events.LeadCallbackRequested) error {
	at, err := time.Parse(time.RFC3339, e.CallbackAt)
	if err != nil {
		return fmt.Errorf("parse callback time %q: %w", e.CallbackAt, err)
	}
	return h.notifier.ScheduleCallbackReminder(ctx, e.Reference, e.Name, e.Phone, at)
}

func (h *Handlers) handleLeadConverted(ctx context.Context, e events.LeadConverted) error {
	return h.notifier.NotifyStaffLeadConverted(ctx, e.LeadReference, e.RequestReference)
}

func (h *Handlers) handlePaymentStatusChanged(ctx context.Context, e events.PaymentStatusChanged) error {
	// Customer emails for payment outcomes go through the effect dispatcher;
	// the bus only feeds the staff-facing alert for failed attempts.
	if e.ToStatus != string(domain.StatusFailed) {
		return nil
	}
	return h.notifier.NotifyStaffPaymentFailed(ctx, e.Reference, e.PaymentID, e.AmountMinor)
}

// Compile-time check that Handlers implements events.Handler.
var _ events.Handler = (*Handlers)(nil)
