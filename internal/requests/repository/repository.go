// Package repository persists service requests and mints their references.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no request matches the lookup.
var ErrNotFound = errors.New("service request not found")

// Reference families. Direct customer submissions and admin-created
// specialized requests are distinguishable at a glance.
const (
	FamilyDirect = "REQ"
	FamilyAdmin  = "ADM"
)

// Request is the full service request record.
type Request struct {
	ID          int64
	Reference   string
	ServiceType string
	Status      string

	ClientName  string
	ClientEmail string
	ClientPhone string

	Street      string
	HouseNumber string
	PostalCode  string
	City        string

	Notes string

	PaymentStatus        string
	PaymentID            string
	PaymentAmountMinor   int64
	PaymentMethod        string
	PaymentFailureReason string

	LeadID            *int64
	DocumentGenerated bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides service request persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new requests repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// NextReference atomically generates the next reference for a family,
// e.g. REQ-2026-0042.
func (r *Repository) NextReference(ctx context.Context, family string) (string, error) {
	var nextNum int
	query := `
		INSERT INTO reference_counters (family, last_number)
		VALUES ($1, 1)
		ON CONFLICT (family) DO UPDATE SET last_number = reference_counters.last_number + 1
		RETURNING last_number`

	if err := r.pool.QueryRow(ctx, query, family).Scan(&nextNum); err != nil {
		return "", fmt.Errorf("failed to generate reference: %w", err)
	}

	year := time.Now().Year()
	return fmt.Sprintf("%s-%d-%04d", family, year, nextNum), nil
}

const requestColumns = `
	id, reference, service_type, status,
	client_name, client_email, client_phone,
	street, house_number, postal_code, city, notes,
	payment_status, COALESCE(payment_id, ''), COALESCE(payment_amount_minor, 0),
	COALESCE(payment_method, ''), COALESCE(payment_failure_reason, ''),
	lead_id, document_generated, created_at, updated_at`

func scanRequest(row pgx.Row) (Request, error) {
	var req Request
	err := row.Scan(
		&req.ID, &req.Reference, &req.ServiceType, &req.Status,
		&req.ClientName, &req.ClientEmail, &req.ClientPhone,
		&req.Street, &req.HouseNumber, &req.PostalCode, &req.City, &req.Notes,
		&req.PaymentStatus, &req.PaymentID, &req.PaymentAmountMinor,
		&req.PaymentMethod, &req.PaymentFailureReason,
		&req.LeadID, &req.DocumentGenerated, &req.CreatedAt, &req.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, ErrNotFound
	}
	if err != nil {
		return Request{}, fmt.Errorf("failed to scan service request: %w", err)
	}
	return req, nil
}

// Create inserts a new service request. The caller provides the already
// minted reference.
func (r *Repository) Create(ctx context.Context, req Request) (Request, error) {
	query := `
		INSERT INTO service_requests (
			reference, service_type, status,
			client_name, client_email, client_phone,
			street, house_number, postal_code, city, notes,
			payment_status, lead_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + requestColumns

	return scanRequest(r.pool.QueryRow(ctx, query,
		req.Reference, req.ServiceType, req.Status,
		req.ClientName, req.ClientEmail, req.ClientPhone,
		req.Street, req.HouseNumber, req.PostalCode, req.City, req.Notes,
		req.PaymentStatus, req.LeadID,
	))
}

// GetByReference loads a request by its reference string.
func (r *Repository) GetByReference(ctx context.Context, reference string) (Request, error) {
	query := `SELECT ` + requestColumns + ` FROM service_requests WHERE reference = $1`
	return scanRequest(r.pool.QueryRow(ctx, query, reference))
}

// GetByLeadID loads the request created from a lead, if any.
func (r *Repository) GetByLeadID(ctx context.Context, leadID int64) (Request, error) {
	query := `SELECT ` + requestColumns + ` FROM service_requests WHERE lead_id = $1 ORDER BY created_at ASC LIMIT 1`
	return scanRequest(r.pool.QueryRow(ctx, query, leadID))
}

// GetByID loads a request by its numeric id.
func (r *Repository) GetByID(ctx context.Context, id int64) (Request, error) {
	query := `SELECT ` + requestColumns + ` FROM service_requests WHERE id = $1`
	return scanRequest(r.pool.QueryRow(ctx, query, id))
}

// LinkLead attaches a lead to a request. An existing link is never
// overwritten: linking is evidence, not a correction mechanism.
func (r *Repository) LinkLead(ctx context.Context, requestID, leadID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE service_requests
		SET lead_id = $2, updated_at = now()
		WHERE id = $1 AND lead_id IS NULL`,
		requestID, leadID)
	if err != nil {
		return false, fmt.Errorf("failed to link lead: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
