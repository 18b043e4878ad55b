// Package repository persists leads captured through the progressive form.
package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no lead matches the lookup.
var ErrNotFound = errors.New("lead not found")

// Lead lifecycle statuses.
const (
	StatusNew        = "NEW"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusConverted  = "CONVERTED"
)

// FamilyLead is the reference family for lead references.
const FamilyLead = "LD"

// Lead is the progressive capture record. The session token is the only
// capability needed to update it before conversion.
type Lead struct {
	ID           int64
	Reference    string
	SessionToken string
	Status       string

	Name  string
	Email string
	Phone string

	Street      string
	HouseNumber string
	PostalCode  string
	City        string
	ServiceType string
	Notes       string

	CompletedSteps    int
	CallbackRequested bool
	CallbackAt        *time.Time

	ConvertedRequestID *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// GenerateSessionToken creates the opaque capability token for a lead.
func GenerateSessionToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return "ls_" + hex.EncodeToString(bytes), nil
}

// Repository provides lead persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new leads repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// NextReference atomically generates the next lead reference, e.g. LD-2026-0042.
func (r *Repository) NextReference(ctx context.Context) (string, error) {
	var nextNum int
	query := `
		INSERT INTO reference_counters (family, last_number)
		VALUES ($1, 1)
		ON CONFLICT (family) DO UPDATE SET last_number = reference_counters.last_number + 1
		RETURNING last_number`

	if err := r.pool.QueryRow(ctx, query, FamilyLead).Scan(&nextNum); err != nil {
		return "", fmt.Errorf("failed to generate lead reference: %w", err)
	}

	year := time.Now().Year()
	return fmt.Sprintf("%s-%d-%04d", FamilyLead, year, nextNum), nil
}

const leadColumns = `
	id, reference, session_token, status,
	COALESCE(name, ''), COALESCE(email, ''), COALESCE(phone, ''),
	COALESCE(street, ''), COALESCE(house_number, ''), COALESCE(postal_code, ''), COALESCE(city, ''),
	COALESCE(service_type, ''), COALESCE(notes, ''),
	completed_steps, callback_requested, callback_at,
	converted_request_id, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.Reference, &lead.SessionToken, &lead.Status,
		&lead.Name, &lead.Email, &lead.Phone,
		&lead.Street, &lead.HouseNumber, &lead.PostalCode, &lead.City,
		&lead.ServiceType, &lead.Notes,
		&lead.CompletedSteps, &lead.CallbackRequested, &lead.CallbackAt,
		&lead.ConvertedRequestID, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, fmt.Errorf("failed to scan lead: %w", err)
	}
	return lead, nil
}

// Create inserts a new lead with its minted reference and token.
func (r *Repository) Create(ctx context.Context, lead Lead) (Lead, error) {
	query := `
		INSERT INTO leads (
			reference, session_token, status,
			name, email, phone, service_type, completed_steps
		)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8)
		RETURNING ` + leadColumns

	return scanLead(r.pool.QueryRow(ctx, query,
		lead.Reference, lead.SessionToken, lead.Status,
		lead.Name, lead.Email, lead.Phone, lead.ServiceType, lead.CompletedSteps,
	))
}

// GetByToken loads a lead by its session token.
func (r *Repository) GetByToken(ctx context.Context, token string) (Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE session_token = $1`
	return scanLead(r.pool.QueryRow(ctx, query, token))
}

// GetByID loads a lead by its numeric id.
func (r *Repository) GetByID(ctx context.Context, id int64) (Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	return scanLead(r.pool.QueryRow(ctx, query, id))
}

// StepParams carries the fields a capture step may update. Empty strings
// leave the stored value untouched.
type StepParams struct {
	Name        string
	Email       string
	Phone       string
	Street      string
	HouseNumber string
	PostalCode  string
	City        string
	ServiceType string
	Notes       string

	CallbackRequested bool
	CallbackAt        *time.Time
}

// UpdateStep merges step data into a lead addressed by token. Completed
// steps only advance; replaying an earlier step never regresses the
// counter or the status.
func (r *Repository) UpdateStep(ctx context.Context, token string, step int, p StepParams) (Lead, error) {
	query := `
		UPDATE leads SET
			name = COALESCE(NULLIF($3, ''), name),
			email = COALESCE(NULLIF($4, ''), email),
			phone = COALESCE(NULLIF($5, ''), phone),
			street = COALESCE(NULLIF($6, ''), street),
			house_number = COALESCE(NULLIF($7, ''), house_number),
			postal_code = COALESCE(NULLIF($8, ''), postal_code),
			city = COALESCE(NULLIF($9, ''), city),
			service_type = COALESCE(NULLIF($10, ''), service_type),
			notes = COALESCE(NULLIF($11, ''), notes),
			callback_requested = callback_requested OR $12,
			callback_at = COALESCE($13, callback_at),
			completed_steps = GREATEST(completed_steps, $2),
			status = CASE WHEN status = 'NEW' THEN 'IN_PROGRESS' ELSE status END,
			updated_at = now()
		WHERE session_token = $1 AND status NOT IN ('CONVERTED')
		RETURNING ` + leadColumns

	return scanLead(r.pool.QueryRow(ctx, query,
		token, step,
		p.Name, p.Email, p.Phone,
		p.Street, p.HouseNumber, p.PostalCode, p.City,
		p.ServiceType, p.Notes,
		p.CallbackRequested, p.CallbackAt,
	))
}

// MarkCompleted moves a lead to COMPLETED ahead of conversion.
func (r *Repository) MarkCompleted(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads SET status = $2, updated_at = now()
		WHERE id = $1 AND status <> 'CONVERTED'`,
		id, StatusCompleted)
	if err != nil {
		return fmt.Errorf("failed to mark lead completed: %w", err)
	}
	return nil
}

// MarkConverted finalizes a lead against its service request. The
// conditional write makes a retried finalize converge instead of flapping.
func (r *Repository) MarkConverted(ctx context.Context, id, requestID int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads SET status = $3, converted_request_id = $2, updated_at = now()
		WHERE id = $1 AND status <> 'CONVERTED'`,
		id, requestID, StatusConverted)
	if err != nil {
		return fmt.Errorf("failed to mark lead converted: %w", err)
	}
	return nil
}
