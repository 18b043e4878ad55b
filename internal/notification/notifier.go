package notification

import (
	"context"
	"fmt"
	"time"

	"servicecert_backend/internal/notification/outbox"
	"servicecert_backend/internal/payments/domain"
	paymentsrepo "servicecert_backend/internal/payments/repository"
	"servicecert_backend/platform/logger"
)

// OutboxNotifier implements the dispatcher notification port by writing
// outbox rows. Delivery happens later in the scheduler worker, so a slow or
// unreachable SMTP server never blocks a payment transition.
type OutboxNotifier struct {
	outbox     *outbox.Repository
	staffEmail string
	baseURL    string
	log        *logger.Logger
}

// NewOutboxNotifier creates the notifier.
func NewOutboxNotifier(ob *outbox.Repository, staffEmail, baseURL string, log *logger.Logger) *OutboxNotifier {
	return &OutboxNotifier{outbox: ob, staffEmail: staffEmail, baseURL: baseURL, log: log}
}

// NotifySuccess queues the payment confirmation email for the customer.
func (n *OutboxNotifier) NotifySuccess(ctx context.Context, req paymentsrepo.ServiceRequest) error {
	id, err := n.outbox.Insert(ctx, outbox.InsertParams{
		Kind:      outbox.KindPaymentSuccess,
		Recipient: req.ClientEmail,
		Payload: PaymentSuccessPayload{
			Reference:      req.Reference,
			ClientName:     req.ClientName,
			Amount:         "EUR " + domain.FormatMajorUnits(req.PaymentAmountMinor),
			CertificateURL: fmt.Sprintf("%s/api/v1/requests/%s/certificate", n.baseURL, req.Reference),
		},
	})
	if err != nil {
		return fmt.Errorf("queue success notification: %w", err)
	}
	n.log.Info("queued payment success notification", "reference", req.Reference, "outboxId", id)
	return nil
}

// NotifyFailure queues the payment failure email for the customer.
func (n *OutboxNotifier) NotifyFailure(ctx context.Context, req paymentsrepo.ServiceRequest, reason string) error {
	id, err := n.outbox.Insert(ctx, outbox.InsertParams{
		Kind:      outbox.KindPaymentFailure,
		Recipient: req.ClientEmail,
		Payload: PaymentFailurePayload{
			Reference:  req.Reference,
			ClientName: req.ClientName,
			Reason:     reason,
		},
	})
	if err != nil {
		return fmt.Errorf("queue failure notification: %w", err)
	}
	n.log.Info("queued payment failure notification", "reference", req.Reference, "outboxId", id)
	return nil
}

// NotifyStaffNewLead queues a staff alert for a freshly captured lead.
// Callers treat failures as best-effort; a missing staff address is a no-op.
func (n *OutboxNotifier) NotifyStaffNewLead(ctx context.Context, reference, name, email, phone string) error {
	if n.staffEmail == "" {
		return nil
	}
	_, err := n.outbox.Insert(ctx, outbox.InsertParams{
		Kind:      outbox.KindLeadStaffAlert,
		Recipient: n.staffEmail,
		Payload: LeadStaffAlertPayload{
			Reference: reference,
			Name:      name,
			Email:     email,
			Phone:     phone,
		},
	})
	if err != nil {
		return fmt.Errorf("queue staff alert: %w", err)
	}
	return nil
}

// ScheduleCallbackReminder queues a staff reminder to be delivered at the
// requested callback time.
func (n *OutboxNotifier) ScheduleCallbackReminder(ctx context.Context, reference, name, phone string, at time.Time) error {
	if n.staffEmail == "" {
		return nil
	}
	_, err := n.outbox.Insert(ctx, outbox.InsertParams{
		Kind:      outbox.KindCallbackReminder,
		Recipient: n.staffEmail,
		RunAt:     at,
		Payload: CallbackReminderPayload{
			Reference: reference,
			Name:      name,
			Phone:     phone,
		},
	})
	if err != nil {
		return fmt.Errorf("queue callback reminder: %w", err)
	}
	return nil
}

// NotifyStaffLeadConverted queues a staff alert for a lead that finalized
// into a service request.
func (n *OutboxNotifier) NotifyStaffLeadConverted(ctx context.Context, leadReference, requestReference string) error {
	if n.staffEmail == "" {
		return nil
	}
	_, err := n.outbox.Insert(ctx, outbox.InsertParams{
		Kind:      outbox.KindLeadConvertedAlert,
		Recipient: n.staffEmail,
		Payload: LeadConvertedAlertPayload{
			LeadReference:    leadReference,
			RequestReference: requestReference,
		},
	})
	if err != nil {
		return fmt.Errorf("queue lead converted alert: %w", err)
	}
	return nil
}

// NotifyStaffPaymentFailed queues a staff alert for a failed payment attempt.
func (n *OutboxNotifier) NotifyStaffPaymentFailed(ctx context.Context, reference, paymentID string, amountMinor int64) error {
	if n.staffEmail == "" {
		return nil
	}
	_, err := n.outbox.Insert(ctx, outbox.InsertParams{
		Kind:      outbox.KindPaymentFailedAlert,
		Recipient: n.staffEmail,
		Payload: PaymentFailedAlertPayload{
			Reference: reference,
			PaymentID: paymentID,
			Amount:    "EUR " + domain.FormatMajorUnits(amountMinor),
		},
	})
	if err != nil {
		return fmt.Errorf("queue payment failed alert: %w", err)
	}
	return nil
}
