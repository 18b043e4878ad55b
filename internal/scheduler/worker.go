package scheduler

import (
	"context"
	"encoding/json"
	"fmt"

	"servicecert_backend/internal/notification"
	"servicecert_backend/internal/notification/outbox"
	paymentssvc "servicecert_backend/internal/payments/service"
	"servicecert_backend/platform/config"
	"servicecert_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// maxDeliveryAttempts bounds outbox retries. The outbox owns retry state, so
// handlers return nil to asynq even on transient failure and the row flips
// back to pending for a later dispatch.
const maxDeliveryAttempts = 5

// Worker consumes scheduler tasks: outbox notification delivery and stale
// payment reconciliation.
type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	outbox   *outbox.Repository
	sender   *notification.SMTPSender
	payments *paymentssvc.Service
	log      *logger.Logger
}

// NewWorker creates the asynq server and registers task handlers.
func NewWorker(cfg config.SchedulerConfig, ob *outbox.Repository, sender *notification.SMTPSender, payments *paymentssvc.Service, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}
	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 5
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queue: 1},
	})

	w := &Worker{
		server:   server,
		mux:      asynq.NewServeMux(),
		outbox:   ob,
		sender:   sender,
		payments: payments,
		log:      log,
	}
	w.mux.HandleFunc(TaskNotificationOutboxDue, w.handleNotificationOutboxDue)
	w.mux.HandleFunc(TaskPaymentReconcile, w.handlePaymentReconcile)
	return w, nil
}

// Run serves tasks until the context is canceled, then drains in-flight work.
func (w *Worker) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()
	return w.server.Run(w.mux)
}

func (w *Worker) handleNotificationOutboxDue(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseNotificationOutboxDuePayload(task)
	if err != nil {
		w.log.Warn("outbox task payload unreadable", "error", err.Error())
		return nil
	}
	id, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		w.log.Warn("outbox task id unreadable", "id", payload.OutboxID)
		return nil
	}

	rec, err := w.outbox.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load outbox record %s: %w", id, err)
	}
	if rec.Status == outbox.StatusSucceeded || rec.Status == outbox.StatusFailed {
		return nil
	}

	if err := w.outbox.MarkProcessing(ctx, rec.ID); err != nil {
		return fmt.Errorf("mark processing %s: %w", id, err)
	}
	rec.Attempts++

	if err := w.deliver(ctx, rec); err != nil {
		w.log.Warn("notification delivery failed",
			"outboxId", rec.ID.String(),
			"kind", rec.Kind,
			"attempts", rec.Attempts,
			"error", err.Error(),
		)
		if rec.Attempts >= maxDeliveryAttempts {
			_ = w.outbox.MarkFailed(ctx, rec.ID, err.Error())
			return nil
		}
		msg := err.Error()
		_ = w.outbox.MarkPending(ctx, rec.ID, &msg)
		return nil
	}

	if err := w.outbox.MarkSucceeded(ctx, rec.ID); err != nil {
		w.log.DatabaseError("outbox mark succeeded", err)
	}
	w.log.Info("notification delivered", "outboxId", rec.ID.String(), "kind", rec.Kind)
	return nil
}

func (w *Worker) deliver(ctx context.Context, rec outbox.Record) error {
	switch rec.Kind {
	case outbox.KindPaymentSuccess:
		var p notification.PaymentSuccessPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return w.sender.SendPaymentSuccess(ctx, rec.Recipient, p)
	case outbox.KindPaymentFailure:
		var p notification.PaymentFailurePayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return w.sender.SendPaymentFailure(ctx, rec.Recipient, p)
	case outbox.KindLeadStaffAlert:
		var p notification.LeadStaffAlertPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return w.sender.SendLeadStaffAlert(ctx, rec.Recipient, p)
	case outbox.KindCallbackReminder:
		var p notification.CallbackReminderPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return w.sender.SendCallbackReminder(ctx, rec.Recipient, p)
	case outbox.KindLeadConvertedAlert:
		var p notification.LeadConvertedAlertPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return w.sender.SendLeadConvertedAlert(ctx, rec.Recipient, p)
	case outbox.KindPaymentFailedAlert:
		var p notification.PaymentFailedAlertPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return w.sender.SendPaymentFailedAlert(ctx, rec.Recipient, p)
	default:
		return fmt.Errorf("unknown notification kind %q", rec.Kind)
	}
}

func (w *Worker) handlePaymentReconcile(ctx context.Context, task *asynq.Task) error {
	payload, err := ParsePaymentReconcilePayload(task)
	if err != nil {
		w.log.Warn("reconcile task payload unreadable", "error", err.Error())
		return nil
	}
	if payload.Reference == "" {
		return nil
	}

	if _, err := w.payments.Poll(ctx, payload.Reference, ""); err != nil {
		return fmt.Errorf("reconcile %s: %w", payload.Reference, err)
	}
	return nil
}
