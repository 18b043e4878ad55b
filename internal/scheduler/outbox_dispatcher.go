package scheduler

import (
	"context"
	"fmt"
	"time"

	"servicecert_backend/internal/notification/outbox"
	paymentsrepo "servicecert_backend/internal/payments/repository"
	"servicecert_backend/platform/config"
	"servicecert_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// stalePendingAge is how long a pending payment sits untouched before the
// sweep re-reconciles it against the processor.
const stalePendingAge = 10 * time.Minute

// Dispatcher periodically claims due outbox rows and stale pending payments
// and enqueues asynq tasks for them. Multiple dispatcher instances are safe:
// the outbox claim uses row locks, and reconcile tasks are idempotent.
type Dispatcher struct {
	client   *asynq.Client
	queue    string
	outbox   *outbox.Repository
	payments *paymentsrepo.Repository
	log      *logger.Logger
}

// NewDispatcher creates the dispatcher.
func NewDispatcher(cfg config.SchedulerConfig, pool *pgxpool.Pool, log *logger.Logger) (*Dispatcher, error) {
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

	return &Dispatcher{
		client:   asynq.NewClient(opt),
		queue:    queue,
		outbox:   outbox.New(pool),
		payments: paymentsrepo.New(pool),
		log:      log,
	}, nil
}

func (d *Dispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

// Run loops until the context is canceled.
func (d *Dispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil {
		return
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	sweep := time.NewTicker(time.Minute)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.dispatchOutbox(ctx)
		case <-sweep.C:
			d.sweepPendingPayments(ctx)
		}
	}
}

func (d *Dispatcher) dispatchOutbox(ctx context.Context) {
	records, err := d.outbox.ClaimPending(ctx, 50)
	if err != nil {
		d.log.Warn("outbox claim failed", "error", err.Error())
		return
	}

	for _, rec := range records {
		task, err := NewNotificationOutboxDueTask(NotificationOutboxDuePayload{OutboxID: rec.ID.String()})
		if err != nil {
			msg := err.Error()
			_ = d.outbox.MarkPending(ctx, rec.ID, &msg)
			continue
		}

		_, err = d.client.EnqueueContext(ctx, task, asynq.ProcessAt(rec.RunAt), asynq.Queue(d.queue))
		if err != nil {
			msg := err.Error()
			_ = d.outbox.MarkPending(ctx, rec.ID, &msg)
			continue
		}
	}
}

func (d *Dispatcher) sweepPendingPayments(ctx context.Context) {
	references, err := d.payments.ListStalePending(ctx, stalePendingAge, 100)
	if err != nil {
		d.log.Warn("pending payment sweep failed", "error", err.Error())
		return
	}

	for _, reference := range references {
		task, err := NewPaymentReconcileTask(PaymentReconcilePayload{Reference: reference})
		if err != nil {
			continue
		}
		if _, err := d.client.EnqueueContext(ctx, task, asynq.Queue(d.queue)); err != nil {
			d.log.Warn("reconcile enqueue failed", "reference", reference, "error", err.Error())
		}
	}
}
