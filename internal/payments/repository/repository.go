// Package repository provides payment-facing data access for service requests
// and the local payment ledger.
package repository

import (
	"context"
	"errors"
	"time"

	"servicecert_backend/internal/payments/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no service request matches the reference.
var ErrNotFound = errors.New("service request not found")

// ServiceRequest is the payment-relevant projection of a service request row,
// including the per-effect idempotency markers.
type ServiceRequest struct {
	ID                   int64
	Reference            string
	Status               domain.RequestStatus
	PaymentStatus        domain.PaymentStatus
	PaymentID            string
	PaymentAmountMinor   int64
	PaymentMethod        string
	PaymentFailureReason string
	ClientName           string
	ClientEmail          string
	LeadID               *int64
	DocumentGenerated    bool
	SuccessNotified      bool
	FailureNotified      bool
	CommissionCredited   bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// TransitionParams carries the payment metadata persisted with a transition.
// Zero values leave the stored column untouched.
type TransitionParams struct {
	PaymentID     string
	AmountMinor   int64
	Method        string
	FailureReason string
}

// Repository provides payment data access backed by Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new payments repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const requestColumns = `
	id, reference, status, payment_status,
	COALESCE(payment_id, ''), COALESCE(payment_amount_minor, 0),
	COALESCE(payment_method, ''), COALESCE(payment_failure_reason, ''),
	client_name, client_email, lead_id,
	document_generated, success_notified, failure_notified, commission_credited,
	created_at, updated_at`

func scanRequest(row pgx.Row) (ServiceRequest, error) {
	var req ServiceRequest
	var status, paymentStatus string
	err := row.Scan(
		&req.ID, &req.Reference, &status, &paymentStatus,
		&req.PaymentID, &req.PaymentAmountMinor,
		&req.PaymentMethod, &req.PaymentFailureReason,
		&req.ClientName, &req.ClientEmail, &req.LeadID,
		&req.DocumentGenerated, &req.SuccessNotified, &req.FailureNotified, &req.CommissionCredited,
		&req.CreatedAt, &req.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return ServiceRequest{}, ErrNotFound
	}
	if err != nil {
		return ServiceRequest{}, err
	}
	req.Status = domain.RequestStatus(status)
	req.PaymentStatus = domain.PaymentStatus(paymentStatus)
	return req, nil
}

// GetByReference loads a service request by its reference string.
func (r *Repository) GetByReference(ctx context.Context, reference string) (ServiceRequest, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+requestColumns+` FROM service_requests WHERE reference = $1`, reference)
	return scanRequest(row)
}

// ClaimPaid is the single-row winner claim for the paid transition. The
// conditional predicate guarantees that two concurrent triggers cannot both
// observe "not yet paid": exactly one update succeeds.
func (r *Repository) ClaimPaid(ctx context.Context, id int64, p TransitionParams) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE service_requests
		SET payment_status = 'paid',
		    status = 'paid',
		    payment_id = COALESCE(NULLIF($2, ''), payment_id),
		    payment_amount_minor = CASE WHEN $3::bigint > 0 THEN $3 ELSE payment_amount_minor END,
		    payment_method = COALESCE(NULLIF($4, ''), payment_method),
		    payment_failure_reason = NULL,
		    updated_at = now()
		WHERE id = $1 AND payment_status <> 'paid'
	`, id, p.PaymentID, p.AmountMinor, p.Method)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateStatus performs an optimistic conditional transition from an expected
// status. A transition back into pending or processing starts a new payment
// episode, so the failure-notified marker is cleared in the same statement.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, to domain.PaymentStatus, p TransitionParams) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE service_requests
		SET payment_status = $3,
		    status = $4,
		    payment_id = COALESCE(NULLIF($5, ''), payment_id),
		    payment_amount_minor = CASE WHEN $6::bigint > 0 THEN $6 ELSE payment_amount_minor END,
		    payment_method = COALESCE(NULLIF($7, ''), payment_method),
		    payment_failure_reason = NULLIF($8, ''),
		    failure_notified = CASE WHEN $3 IN ('pending', 'processing') THEN false ELSE failure_notified END,
		    updated_at = now()
		WHERE id = $1 AND payment_status = $2
	`, id, string(from), string(to), string(domain.RequestStatusFor(to)), p.PaymentID, p.AmountMinor, p.Method, p.FailureReason)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func markerColumn(effect domain.Effect) (string, bool) {
	switch effect {
	case domain.EffectGenerateDocument:
		return "document_generated", true
	case domain.EffectNotifySuccess:
		return "success_notified", true
	case domain.EffectNotifyFailure:
		return "failure_notified", true
	case domain.EffectCreditCommission:
		return "commission_credited", true
	}
	return "", false
}

// ClaimEffect sets the idempotency marker for an effect, returning false when
// it was already set. Column names come from a closed switch, never from input.
func (r *Repository) ClaimEffect(ctx context.Context, id int64, effect domain.Effect) (bool, error) {
	column, ok := markerColumn(effect)
	if !ok {
		return false, errors.New("unknown effect: " + string(effect))
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE service_requests SET `+column+` = true, updated_at = now() WHERE id = $1 AND `+column+` = false`,
		id,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListStalePending returns references stuck in pending or processing with a
// payment id, for the background reconciliation sweep.
func (r *Repository) ListStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT reference
		FROM service_requests
		WHERE payment_status IN ('pending', 'processing')
		  AND payment_id IS NOT NULL
		  AND updated_at < now() - make_interval(secs => $1)
		ORDER BY updated_at ASC
		LIMIT $2`,
		olderThan.Seconds(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var references []string
	for rows.Next() {
		var reference string
		if err := rows.Scan(&reference); err != nil {
			return nil, err
		}
		references = append(references, reference)
	}
	return references, rows.Err()
}

// EffectFired reports whether the marker for an effect is set.
func (r *Repository) EffectFired(ctx context.Context, id int64, effect domain.Effect) (bool, error) {
	column, ok := markerColumn(effect)
	if !ok {
		return false, errors.New("unknown effect: " + string(effect))
	}
	var fired bool
	err := r.pool.QueryRow(ctx, `SELECT `+column+` FROM service_requests WHERE id = $1`, id).Scan(&fired)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrNotFound
	}
	return fired, err
}
