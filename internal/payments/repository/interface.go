package repository

import (
	"context"

	"servicecert_backend/internal/payments/domain"
)

// Store is the payment-facing view of the service request record store.
// Implementations must provide per-row atomic conditional writes.
type Store interface {
	// GetByReference loads a service request snapshot by its reference string.
	GetByReference(ctx context.Context, reference string) (ServiceRequest, error)

	// ClaimPaid atomically moves a request to paid unless it is already paid.
	// Returns won=false when another trigger got there first (or the record
	// was already paid); only the winner proceeds to fire paid effects.
	ClaimPaid(ctx context.Context, id int64, p TransitionParams) (won bool, err error)

	// UpdateStatus performs an optimistic conditional transition from an
	// expected current status. Returns won=false on a concurrent change.
	// Re-entering pending or processing clears the failure-notified marker so
	// a later failure in the new attempt notifies again.
	UpdateStatus(ctx context.Context, id int64, from, to domain.PaymentStatus, p TransitionParams) (won bool, err error)

	// ClaimEffect atomically sets the idempotency marker for an effect.
	// Returns false when the marker was already set.
	ClaimEffect(ctx context.Context, id int64, effect domain.Effect) (bool, error)

	// EffectFired reports whether the marker for an effect is set.
	EffectFired(ctx context.Context, id int64, effect domain.Effect) (bool, error)
}

// Ledger is the local append-oriented audit mirror of payment attempts,
// keyed by processor payment id. Distinct from the request's payment status:
// the ledger is history, the request field is the authoritative current state.
type Ledger interface {
	UpsertAttempt(ctx context.Context, entry LedgerEntry) error
	ReferenceByPaymentID(ctx context.Context, paymentID string) (string, error)
	HasPaidNonManual(ctx context.Context, reference string) (bool, error)
}
