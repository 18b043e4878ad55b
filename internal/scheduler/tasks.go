// Package scheduler runs background work through asynq: outbox-due email
// delivery and the pending-payment reconciliation sweep.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskNotificationOutboxDue = "notification.outbox.due"

const TaskPaymentReconcile = "payments.reconcile"

type NotificationOutboxDuePayload struct {
	OutboxID string `json:"outboxId"`
}

type PaymentReconcilePayload struct {
	Reference string `json:"reference"`
}

func NewNotificationOutboxDueTask(payload NotificationOutboxDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationOutboxDue, data), nil
}

func ParseNotificationOutboxDuePayload(task *asynq.Task) (NotificationOutboxDuePayload, error) {
	var payload NotificationOutboxDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotificationOutboxDuePayload{}, err
	}
	return payload, nil
}

func NewPaymentReconcileTask(payload PaymentReconcilePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentReconcile, data), nil
}

func ParsePaymentReconcilePayload(task *asynq.Task) (PaymentReconcilePayload, error) {
	var payload PaymentReconcilePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return PaymentReconcilePayload{}, err
	}
	return payload, nil
}
