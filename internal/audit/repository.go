// Package audit provides the append-only activity log used for compliance
// and for the best-effort lead-linking heuristic.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Actor types recorded on activity entries.
const (
	ActorSystem   = "system"
	ActorOperator = "operator"
	ActorCustomer = "customer"
)

// Entry is one activity log record.
type Entry struct {
	ID         int64
	ActorType  string
	ActorID    string
	Action     string
	EntityType string
	EntityID   int64
	Reference  string
	Email      string
	Reason     string
	Metadata   map[string]any
	CreatedAt  time.Time
}

// Repository persists activity log entries.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new audit repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record appends an activity entry.
func (r *Repository) Record(ctx context.Context, entry Entry) error {
	var metadata []byte
	if entry.Metadata != nil {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return err
		}
		metadata = encoded
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO activity_log (actor_type, actor_id, action, entity_type, entity_id, reference, email, reason, metadata)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9)
	`, entry.ActorType, entry.ActorID, entry.Action, entry.EntityType, entry.EntityID, entry.Reference, entry.Email, entry.Reason, metadata)
	return err
}

// FindLeadAssignment searches recent activity for a lead-assignment event
// correlated with the given request id or customer email, newest first.
// Returns the matched lead id, or 0 when nothing plausible is found. This is
// explicitly probabilistic; callers must treat the result as a hint.
func (r *Repository) FindLeadAssignment(ctx context.Context, requestID int64, email string, window time.Duration) (int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT entity_id
		FROM activity_log
		WHERE entity_type = 'lead'
		  AND action = 'lead.assigned'
		  AND created_at > now() - make_interval(secs => $3)
		  AND (
		        (metadata ->> 'requestId')::bigint = $1
		        OR (email IS NOT NULL AND email = NULLIF($2, ''))
		  )
		ORDER BY created_at DESC
		LIMIT 1
	`, requestID, email, window.Seconds())
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	if !rows.Next() {
		return 0, rows.Err()
	}
	var leadID int64
	if err := rows.Scan(&leadID); err != nil {
		return 0, err
	}
	return leadID, rows.Err()
}
