package notification

import (
	"context"
	"testing"
	"time"

	"servicecert_backend/internal/events"
	"servicecert_backend/platform/logger"
)

type recordingStaffNotifier struct {
	newLeads       []string
	reminders      []time.Time
	conversions    []string
	failedPayments []string
}

func (n *recordingStaffNotifier) NotifyStaffNewLead(_ context.Context, reference, name, email, phone string) error {
	n.newLeads = append(n.newLeads, reference)
	return nil
}

func (n *recordingStaffNotifier) ScheduleCallbackReminder(_ context.Context, reference, name, phone string, at time.Time) error {
	n.reminders = append(n.reminders, at)
	return nil
}

func (n *recordingStaffNotifier) NotifyStaffLeadConverted(_ context.Context, leadReference, requestReference string) error {
	n.conversions = append(n.conversions, leadReference+">"+requestReference)
	return nil
}

func (n *recordingStaffNotifier) NotifyStaffPaymentFailed(_ context.Context, reference, paymentID string, amountMinor int64) error {
	n.failedPayments = append(n.failedPayments, reference)
	return nil
}

func newTestHandlers() (*Handlers, *recordingStaffNotifier) {
	notifier := &recordingStaffNotifier{}
	return NewHandlers(notifier, logger.New("test")), notifier
}

func TestHandleLeadCreatedQueuesStaffAlert(t *testing.T) {
	h, notifier := newTestHandlers()

	err := h.Handle(context.Background(), events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    1,
		Reference: "LD-2026-0001",
		Name:      "J. Doe",
		Email:     "j@example.com",
		Phone:     "+31612345678",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(notifier.newLeads) != 1 || notifier.newLeads[0] != "LD-2026-0001" {
		t.Errorf("staff alerts = %v, want one for LD-2026-0001", notifier.newLeads)
	}
}

func TestHandleCallbackRequestParsesScheduledTime(t *testing.T) {
	h, notifier := newTestHandlers()
	at := time.Now().Add(3 * time.Hour).Truncate(time.Second)

	err := h.Handle(context.Background(), events.LeadCallbackRequested{
		BaseEvent:  events.NewBaseEvent(),
		Reference:  "LD-2026-0001",
		Name:       "J",
		Phone:      "+31612345678",
		CallbackAt: at.Format(time.RFC3339),
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(notifier.reminders) != 1 || !notifier.reminders[0].Equal(at) {
		t.Errorf("reminders = %v, want one at %v", notifier.reminders, at)
	}
}

func TestHandleCallbackRequestRejectsBadTime(t *testing.T) {
	h, notifier := newTestHandlers()

	err := h.Handle(context.Background(), events.LeadCallbackRequested{
		BaseEvent:  events.NewBaseEvent(),
		Reference:  "LD-2026-0001",
		CallbackAt: "tomorrow-ish",
	})
	if err == nil {
		t.Fatal("unparseable callback time accepted")
	}
	if len(notifier.reminders) != 0 {
		t.Errorf("reminder scheduled despite bad time: %v", notifier.reminders)
	}
}

func TestHandleLeadConvertedQueuesStaffAlert(t *testing.T) {
	h, notifier := newTestHandlers()

	err := h.Handle(context.Background(), events.LeadConverted{
		BaseEvent:        events.NewBaseEvent(),
		LeadReference:    "LD-2026-0001",
		RequestReference: "REQ-2026-0001",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(notifier.conversions) != 1 || notifier.conversions[0] != "LD-2026-0001>REQ-2026-0001" {
		t.Errorf("conversions = %v", notifier.conversions)
	}
}

func TestHandlePaymentStatusChangedAlertsOnFailureOnly(t *testing.T) {
	h, notifier := newTestHandlers()

	for _, status := range []string{"pending", "processing", "paid"} {
		if err := h.Handle(context.Background(), events.PaymentStatusChanged{
			BaseEvent: events.NewBaseEvent(),
			Reference: "REQ-2026-0001",
			ToStatus:  status,
		}); err != nil {
			t.Fatalf("Handle(%s): %v", status, err)
		}
	}
	if len(notifier.failedPayments) != 0 {
		t.Fatalf("non-failure transitions alerted staff: %v", notifier.failedPayments)
	}

	err := h.Handle(context.Background(), events.PaymentStatusChanged{
		BaseEvent:   events.NewBaseEvent(),
		Reference:   "REQ-2026-0001",
		PaymentID:   "pi_1",
		ToStatus:    "failed",
		AmountMinor: 4999,
	})
	if err != nil {
		t.Fatalf("Handle(failed): %v", err)
	}
	if len(notifier.failedPayments) != 1 || notifier.failedPayments[0] != "REQ-2026-0001" {
		t.Errorf("failed payment alerts = %v", notifier.failedPayments)
	}
}
