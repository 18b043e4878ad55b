// Package dispatcher executes transition side effects at most once per
// logical transition, using persisted idempotency markers on the service
// request row.
package dispatcher

import (
	"context"
	"fmt"

	"servicecert_backend/internal/payments/domain"
	"servicecert_backend/internal/payments/repository"
	"servicecert_backend/platform/logger"
)

// DocumentGenerator produces the fulfillment document for a paid request.
// Generation must be deterministic: regenerating overwrites, never duplicates.
type DocumentGenerator interface {
	Generate(ctx context.Context, req repository.ServiceRequest) error
}

// Notifier delivers success/failure notifications. Implementations are
// expected to be fire-and-forget sinks (outbox inserts), not direct SMTP calls.
type Notifier interface {
	NotifySuccess(ctx context.Context, req repository.ServiceRequest) error
	NotifyFailure(ctx context.Context, req repository.ServiceRequest, reason string) error
}

// CommissionCreditor credits the sales commission for a paid request.
// Crediting twice for the same request must be a no-op.
type CommissionCreditor interface {
	Credit(ctx context.Context, req repository.ServiceRequest) error
}

// OriginPolicy decides whether customer-facing notifications may fire for a
// trigger that arrived from the given origin.
type OriginPolicy interface {
	Allows(origin string) bool
}

// MarkerStore is the subset of the payment store the dispatcher needs.
type MarkerStore interface {
	ClaimEffect(ctx context.Context, id int64, effect domain.Effect) (bool, error)
	EffectFired(ctx context.Context, id int64, effect domain.Effect) (bool, error)
}

// Payload carries per-trigger context for effect execution.
type Payload struct {
	// Origin is the origin/referer of the triggering request, consulted by
	// the notification gate.
	Origin string
	// FailureReason is the customer-safe reason attached to failure notices.
	FailureReason string
}

// Dispatcher fires effects at most once per transition.
type Dispatcher struct {
	store      MarkerStore
	documents  DocumentGenerator
	notifier   Notifier
	commission CommissionCreditor
	policy     OriginPolicy
	log        *logger.Logger
}

// New creates a dispatcher.
func New(store MarkerStore, documents DocumentGenerator, notifier Notifier, commission CommissionCreditor, policy OriginPolicy, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		store:      store,
		documents:  documents,
		notifier:   notifier,
		commission: commission,
		policy:     policy,
		log:        log,
	}
}

// FireOnce executes a single named effect for the request.
//
// The marker is claimed only after the collaborator succeeds, so a crash
// between transition and marker leaves the effect pending and the next
// reconciliation re-attempts it; collaborators must therefore be retry-safe.
// A marker that is already set short-circuits to a logged no-op.
func (d *Dispatcher) FireOnce(ctx context.Context, req repository.ServiceRequest, effect domain.Effect, payload Payload) error {
	fired, err := d.store.EffectFired(ctx, req.ID, effect)
	if err != nil {
		return fmt.Errorf("check marker %s: %w", effect, err)
	}
	if fired {
		d.log.EffectOutcome(req.Reference, string(effect), "noop", nil)
		return nil
	}

	if d.isCustomerFacing(effect) && !d.policy.Allows(payload.Origin) {
		// Suppressed, not claimed: a later transition from a legitimate
		// origin may still notify.
		d.log.EffectOutcome(req.Reference, string(effect), "suppressed_origin", nil)
		return nil
	}

	if err := d.invoke(ctx, req, effect, payload); err != nil {
		d.log.EffectOutcome(req.Reference, string(effect), "failed", err)
		return err
	}

	claimed, err := d.store.ClaimEffect(ctx, req.ID, effect)
	if err != nil {
		return fmt.Errorf("claim marker %s: %w", effect, err)
	}
	if !claimed {
		// Lost the marker race to a concurrent trigger; the collaborator ran
		// twice but is retry-safe by contract.
		d.log.EffectOutcome(req.Reference, string(effect), "duplicate", nil)
		return nil
	}

	d.log.EffectOutcome(req.Reference, string(effect), "fired", nil)
	return nil
}

func (d *Dispatcher) isCustomerFacing(effect domain.Effect) bool {
	return effect == domain.EffectNotifySuccess || effect == domain.EffectNotifyFailure
}

func (d *Dispatcher) invoke(ctx context.Context, req repository.ServiceRequest, effect domain.Effect, payload Payload) error {
	switch effect {
	case domain.EffectGenerateDocument:
		return d.documents.Generate(ctx, req)
	case domain.EffectNotifySuccess:
		return d.notifier.NotifySuccess(ctx, req)
	case domain.EffectNotifyFailure:
		return d.notifier.NotifyFailure(ctx, req, payload.FailureReason)
	case domain.EffectCreditCommission:
		return d.commission.Credit(ctx, req)
	}
	return fmt.Errorf("unknown effect: %s", effect)
}
