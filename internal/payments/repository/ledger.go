package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ManualPaymentIDPrefix marks synthetic ids for manually entered payments.
const ManualPaymentIDPrefix = "manual_"

// LedgerEntry is one payment attempt in the local audit mirror.
type LedgerEntry struct {
	PaymentID   string
	Reference   string
	AmountMinor int64
	Currency    string
	Status      string
	RawStatus   string
	Method      string
	FailureCode string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsManual reports whether the entry was a manually entered payment.
func (e LedgerEntry) IsManual() bool {
	return strings.HasPrefix(e.PaymentID, ManualPaymentIDPrefix)
}

// LedgerRepository persists the append-oriented payment attempt mirror.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedger creates a new payment ledger repository.
func NewLedger(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// UpsertAttempt records or refreshes a payment attempt keyed by processor id.
// Amount and method are only written when the update carries them.
func (r *LedgerRepository) UpsertAttempt(ctx context.Context, entry LedgerEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO payment_ledger (payment_id, reference, amount_minor, currency, status, raw_status, method, failure_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (payment_id) DO UPDATE SET
			status = EXCLUDED.status,
			raw_status = EXCLUDED.raw_status,
			amount_minor = CASE WHEN EXCLUDED.amount_minor > 0 THEN EXCLUDED.amount_minor ELSE payment_ledger.amount_minor END,
			method = COALESCE(NULLIF(EXCLUDED.method, ''), payment_ledger.method),
			failure_code = COALESCE(NULLIF(EXCLUDED.failure_code, ''), payment_ledger.failure_code),
			updated_at = now()
	`, entry.PaymentID, entry.Reference, entry.AmountMinor, entry.Currency, entry.Status, entry.RawStatus, entry.Method, entry.FailureCode)
	return err
}

// ReferenceByPaymentID resolves the service request reference for a processor
// payment id. Used when an event carries no reference metadata.
func (r *LedgerRepository) ReferenceByPaymentID(ctx context.Context, paymentID string) (string, error) {
	var reference string
	err := r.pool.QueryRow(ctx,
		`SELECT reference FROM payment_ledger WHERE payment_id = $1`,
		paymentID,
	).Scan(&reference)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return reference, err
}

// HasPaidNonManual reports whether a processor-confirmed paid attempt exists
// for the reference. Manual entry is rejected when one does.
func (r *LedgerRepository) HasPaidNonManual(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM payment_ledger
			WHERE reference = $1 AND status = 'paid' AND payment_id NOT LIKE $2
		)
	`, reference, ManualPaymentIDPrefix+"%").Scan(&exists)
	return exists, err
}
