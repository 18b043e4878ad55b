// Package commission credits sales commission for paid service requests.
// One credit per request; crediting again is a no-op.
package commission

import (
	"context"
	"fmt"

	paymentsrepo "servicecert_backend/internal/payments/repository"
	"servicecert_backend/platform/config"
	"servicecert_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists commission credits.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a commission repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert records a credit for a request. The unique constraint on request_id
// makes a duplicate insert a silent no-op; the bool reports whether a row
// was written.
func (r *Repository) Insert(ctx context.Context, requestID int64, reference string, amountMinor int64, basisPoints int) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO commission_credits (request_id, reference, amount_minor, basis_points)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (request_id) DO NOTHING`,
		requestID, reference, amountMinor, basisPoints)
	if err != nil {
		return false, fmt.Errorf("failed to insert commission credit: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// TotalMinor sums all credited commission, for reporting.
func (r *Repository) TotalMinor(ctx context.Context) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount_minor), 0) FROM commission_credits`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum commission credits: %w", err)
	}
	return total, nil
}

// Creditor implements the dispatcher commission port.
type Creditor struct {
	repo        *Repository
	basisPoints int
	log         *logger.Logger
}

// NewCreditor creates the commission creditor.
func NewCreditor(repo *Repository, cfg config.CommissionConfig, log *logger.Logger) *Creditor {
	return &Creditor{repo: repo, basisPoints: cfg.GetCommissionBasisPoints(), log: log}
}

// Credit records the commission for a paid request. The amount is a
// configured share of the payment amount in basis points, rounded down.
func (c *Creditor) Credit(ctx context.Context, req paymentsrepo.ServiceRequest) error {
	amount := req.PaymentAmountMinor * int64(c.basisPoints) / 10000

	inserted, err := c.repo.Insert(ctx, req.ID, req.Reference, amount, c.basisPoints)
	if err != nil {
		return err
	}
	if inserted {
		c.log.Info("commission credited", "reference", req.Reference, "amountMinor", amount)
	}
	return nil
}
