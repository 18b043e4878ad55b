// Package service implements the payment reconciliation engine: three entry
// points (client poll, verified processor events, administrative override)
// that converge on the single state transition function.
package service

import (
	"context"
	"errors"
	"strings"

	"servicecert_backend/internal/audit"
	"servicecert_backend/internal/events"
	"servicecert_backend/internal/payments/dispatcher"
	"servicecert_backend/internal/payments/domain"
	"servicecert_backend/internal/payments/processor"
	"servicecert_backend/internal/payments/repository"
	"servicecert_backend/platform/apperr"
	"servicecert_backend/platform/logger"

	"github.com/google/uuid"
)

// ProcessorClient is the payment processor port.
type ProcessorClient interface {
	Retrieve(ctx context.Context, paymentID string) (processor.Payment, error)
	VerifyEvent(payload []byte, signatureHeader string) (processor.Event, error)
}

// EffectDispatcher fires transition side effects at most once.
type EffectDispatcher interface {
	FireOnce(ctx context.Context, req repository.ServiceRequest, effect domain.Effect, payload dispatcher.Payload) error
}

// AuditWriter records activity log entries.
type AuditWriter interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// Service is the reconciliation engine.
type Service struct {
	store      repository.Store
	ledger     repository.Ledger
	processor  ProcessorClient
	dispatcher EffectDispatcher
	audit      AuditWriter
	bus        events.Bus
	log        *logger.Logger
}

// New creates a reconciliation service.
func New(store repository.Store, ledger repository.Ledger, proc ProcessorClient, disp EffectDispatcher, auditLog AuditWriter, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:      store,
		ledger:     ledger,
		processor:  proc,
		dispatcher: disp,
		audit:      auditLog,
		bus:        bus,
		log:        log,
	}
}

// StatusResult is the canonical view returned to pollers.
type StatusResult struct {
	Reference    string
	Status       domain.PaymentStatus
	PaymentID    string
	AmountMinor  int64
	RawStatus    string
	ErrorDetails string
}

func resultFrom(req repository.ServiceRequest, rawStatus string) StatusResult {
	return StatusResult{
		Reference:    req.Reference,
		Status:       req.PaymentStatus,
		PaymentID:    req.PaymentID,
		AmountMinor:  req.PaymentAmountMinor,
		RawStatus:    rawStatus,
		ErrorDetails: req.PaymentFailureReason,
	}
}

// Poll reconciles a service request against the processor on behalf of a
// polling client. An already-paid record short-circuits without contacting
// the processor: success is durable locally and must survive processor
// outages.
func (s *Service) Poll(ctx context.Context, reference, origin string) (StatusResult, error) {
	req, err := s.store.GetByReference(ctx, reference)
	if err != nil {
		return StatusResult{}, mapStoreErr(err)
	}

	if req.PaymentStatus == domain.StatusPaid {
		s.ensurePaidEffects(ctx, req, origin)
		return resultFrom(req, ""), nil
	}
	if req.PaymentID == "" {
		return resultFrom(req, ""), nil
	}

	payment, err := s.processor.Retrieve(ctx, req.PaymentID)
	if err != nil {
		// Transient by definition: local state untouched, caller may retry.
		// A processor outage is never a payment failure.
		return StatusResult{}, apperr.Wrap(apperr.KindUnavailable, "payment processor unavailable", err)
	}

	if !payment.KnownStatus {
		s.log.Warn("unknown processor status mapped to pending",
			"reference", reference, "raw_status", payment.RawStatus)
	}

	updated, err := s.apply(ctx, req, payment.Status, domain.TriggerPoll, transitionInput{
		payment: payment,
		origin:  origin,
	})
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			// A concurrent trigger completed the payment; the poller sees it.
			return s.freshResult(ctx, reference, payment.RawStatus)
		}
		return StatusResult{}, err
	}
	return resultFrom(updated, payment.RawStatus), nil
}

// RegisterAttempt records a newly created payment attempt: the none→pending
// transition plus the ledger row binding the processor id to the reference.
func (s *Service) RegisterAttempt(ctx context.Context, reference, paymentID string, amountMinor int64) (StatusResult, error) {
	req, err := s.store.GetByReference(ctx, reference)
	if err != nil {
		return StatusResult{}, mapStoreErr(err)
	}

	if req.PaymentStatus == domain.StatusPaid {
		return StatusResult{}, apperr.Conflict("payment already completed")
	}

	updated, err := s.apply(ctx, req, domain.StatusPending, domain.TriggerPoll, transitionInput{
		payment: processor.Payment{ID: paymentID, AmountMinor: amountMinor, RawStatus: "requires_payment_method"},
	})
	if err != nil {
		return StatusResult{}, err
	}
	return resultFrom(updated, ""), nil
}

// IngestEvent verifies and applies a pushed processor event. Redelivery and
// reordering are expected: the forward-only rule plus effect markers make
// replays no-ops, so a definitive success is returned for events that imply
// no action.
func (s *Service) IngestEvent(ctx context.Context, payload []byte, signatureHeader, origin, clientIP string) error {
	event, err := s.processor.VerifyEvent(payload, signatureHeader)
	if err != nil {
		if errors.Is(err, processor.ErrVerification) {
			s.log.SecurityEvent("webhook_verification_failed", err.Error(), clientIP)
			return apperr.Wrap(apperr.KindUnauthorized, "event verification failed", err)
		}
		return apperr.Wrap(apperr.KindBadRequest, "malformed event payload", err)
	}

	if !event.Relevant {
		s.log.Debug("ignoring irrelevant event", "event_id", event.ID, "type", event.Type)
		return nil
	}

	reference := event.Payment.Reference
	if reference == "" {
		reference, err = s.ledger.ReferenceByPaymentID(ctx, event.Payment.ID)
		if err != nil {
			return mapStoreErr(err)
		}
	}

	req, err := s.store.GetByReference(ctx, reference)
	if err != nil {
		return mapStoreErr(err)
	}

	_, err = s.apply(ctx, req, event.Payment.Status, domain.TriggerEvent, transitionInput{
		payment: event.Payment,
		origin:  origin,
	})
	if err != nil && apperr.Is(err, apperr.KindConflict) {
		// Out-of-order or replayed event against a settled record: safe no-op.
		s.log.Info("event ignored by forward-only rule",
			"event_id", event.ID, "reference", reference, "proposed", string(event.Payment.Status))
		return nil
	}
	return err
}

// ManualEntryParams are the manual payment entry inputs.
type ManualEntryParams struct {
	Reference   string
	AmountMinor int64
	Method      string
	OperatorID  string
	Reason      string
}

// ManualEntry records an administrator-entered payment with a synthetic
// payment id, bypassing processor verification. Rejected when a
// processor-confirmed paid attempt already exists. Silent to the customer.
func (s *Service) ManualEntry(ctx context.Context, p ManualEntryParams) (StatusResult, error) {
	req, err := s.store.GetByReference(ctx, p.Reference)
	if err != nil {
		return StatusResult{}, mapStoreErr(err)
	}

	alreadyPaid, err := s.ledger.HasPaidNonManual(ctx, p.Reference)
	if err != nil {
		return StatusResult{}, mapStoreErr(err)
	}
	if alreadyPaid {
		return StatusResult{}, apperr.Conflict("a processor-confirmed payment already exists for this reference")
	}

	syntheticID := repository.ManualPaymentIDPrefix + uuid.NewString()
	updated, err := s.apply(ctx, req, domain.StatusPaid, domain.TriggerAdmin, transitionInput{
		payment: processor.Payment{
			ID:          syntheticID,
			AmountMinor: p.AmountMinor,
			RawStatus:   "manual",
		},
		method:     p.Method,
		operatorID: p.OperatorID,
		reason:     p.Reason,
		action:     "payment.manual_entry",
	})
	if err != nil {
		return StatusResult{}, err
	}

	s.log.AdminAction("payment.manual_entry", p.Reference, p.OperatorID, p.Reason)
	return resultFrom(updated, "manual"), nil
}

// Revert moves an already-paid record to canceled or refunded. This is the
// explicit administrative exception to the forward-only rule and is never
// reachable from poll or event triggers.
func (s *Service) Revert(ctx context.Context, reference string, target domain.PaymentStatus, operatorID, reason string) (StatusResult, error) {
	if target != domain.StatusCanceled && target != domain.StatusRefunded {
		return StatusResult{}, apperr.Validation("revert target must be canceled or refunded")
	}

	req, err := s.store.GetByReference(ctx, reference)
	if err != nil {
		return StatusResult{}, mapStoreErr(err)
	}
	if req.PaymentStatus != domain.StatusPaid {
		return StatusResult{}, apperr.Conflict("only a paid request can be reverted")
	}

	updated, err := s.apply(ctx, req, target, domain.TriggerAdmin, transitionInput{
		payment:    processor.Payment{ID: req.PaymentID, RawStatus: string(target)},
		operatorID: operatorID,
		reason:     reason,
		action:     "payment.revert",
	})
	if err != nil {
		return StatusResult{}, err
	}

	s.log.AdminAction("payment.revert", reference, operatorID, reason)
	return resultFrom(updated, ""), nil
}

// transitionInput bundles the per-trigger context threaded through apply.
type transitionInput struct {
	payment    processor.Payment
	origin     string
	method     string
	operatorID string
	reason     string
	action     string
}

// apply funnels every proposed transition through the state machine, persists
// the winner's result with a conditional write, and fires the implied effects.
// The conditional write is the serialization point: concurrent triggers for
// the same reference cannot both win.
func (s *Service) apply(ctx context.Context, req repository.ServiceRequest, proposed domain.PaymentStatus, trigger domain.Trigger, in transitionInput) (repository.ServiceRequest, error) {
	decision, err := domain.Transition(req.PaymentStatus, proposed, trigger)
	if err != nil {
		return repository.ServiceRequest{}, mapDomainErr(err)
	}

	if decision.NoChange {
		if decision.Next == domain.StatusPaid {
			// A duplicate paid signal is the retry channel for effects whose
			// collaborator failed (or a crash) after the winning transition.
			s.ensurePaidEffects(ctx, req, in.origin)
		}
		return req, nil
	}

	params := repository.TransitionParams{
		PaymentID:     in.payment.ID,
		AmountMinor:   in.payment.AmountMinor,
		Method:        in.method,
		FailureReason: in.payment.FailureReason,
	}

	var won bool
	if decision.Next == domain.StatusPaid {
		won, err = s.store.ClaimPaid(ctx, req.ID, params)
	} else {
		won, err = s.store.UpdateStatus(ctx, req.ID, req.PaymentStatus, decision.Next, params)
	}
	if err != nil {
		return repository.ServiceRequest{}, mapStoreErr(err)
	}

	if !won {
		// A concurrent trigger transitioned the row first; it owns the
		// effects. Return the fresh state.
		fresh, err := s.store.GetByReference(ctx, req.Reference)
		if err != nil {
			return repository.ServiceRequest{}, mapStoreErr(err)
		}
		return fresh, nil
	}

	updated, err := s.store.GetByReference(ctx, req.Reference)
	if err != nil {
		return repository.ServiceRequest{}, mapStoreErr(err)
	}

	s.log.PaymentTransition(req.Reference, string(req.PaymentStatus), string(decision.Next), updated.PaymentID, string(trigger))

	s.recordLedger(ctx, updated, in)
	s.recordAudit(ctx, req, updated, trigger, in)

	payload := dispatcher.Payload{Origin: in.origin, FailureReason: in.payment.FailureReason}
	for _, effect := range decision.Effects {
		// Effect failures are logged and surfaced operationally but never
		// roll back the transition: payment truth and notification delivery
		// are decoupled.
		if err := s.dispatcher.FireOnce(ctx, updated, effect, payload); err != nil {
			s.log.Error("side effect failed", "reference", req.Reference, "effect", string(effect), "error", err.Error())
		}
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.PaymentStatusChanged{
			BaseEvent:   events.NewBaseEvent(),
			RequestID:   updated.ID,
			Reference:   updated.Reference,
			PaymentID:   updated.PaymentID,
			FromStatus:  string(req.PaymentStatus),
			ToStatus:    string(decision.Next),
			AmountMinor: updated.PaymentAmountMinor,
			Trigger:     string(trigger),
		})
	}

	return updated, nil
}

// ensurePaidEffects re-fires any paid effect whose idempotency marker is still
// unclaimed. The markers, not the status value, decide whether an effect is
// done: a collaborator failure or a crash between the winning transition and
// the marker claim leaves the marker unset, and the next paid signal lands
// here and re-attempts it. FireOnce makes the re-attempt safe. Manual payments
// stay silent to the customer, so their success notification is never
// re-attempted.
func (s *Service) ensurePaidEffects(ctx context.Context, req repository.ServiceRequest, origin string) {
	if req.PaymentStatus != domain.StatusPaid {
		return
	}

	var pending []domain.Effect
	if !req.DocumentGenerated {
		pending = append(pending, domain.EffectGenerateDocument)
	}
	if !req.SuccessNotified && !strings.HasPrefix(req.PaymentID, repository.ManualPaymentIDPrefix) {
		pending = append(pending, domain.EffectNotifySuccess)
	}
	if !req.CommissionCredited {
		pending = append(pending, domain.EffectCreditCommission)
	}

	payload := dispatcher.Payload{Origin: origin}
	for _, effect := range pending {
		if err := s.dispatcher.FireOnce(ctx, req, effect, payload); err != nil {
			s.log.Error("side effect retry failed", "reference", req.Reference, "effect", string(effect), "error", err.Error())
		}
	}
}

func (s *Service) recordLedger(ctx context.Context, req repository.ServiceRequest, in transitionInput) {
	if in.payment.ID == "" {
		return
	}
	entry := repository.LedgerEntry{
		PaymentID:   in.payment.ID,
		Reference:   req.Reference,
		AmountMinor: in.payment.AmountMinor,
		Currency:    in.payment.Currency,
		Status:      string(req.PaymentStatus),
		RawStatus:   in.payment.RawStatus,
		Method:      in.method,
		FailureCode: in.payment.FailureCode,
	}
	if err := s.ledger.UpsertAttempt(ctx, entry); err != nil {
		s.log.DatabaseError("ledger upsert", err)
	}
}

func (s *Service) recordAudit(ctx context.Context, before, after repository.ServiceRequest, trigger domain.Trigger, in transitionInput) {
	entry := audit.Entry{
		ActorType:  audit.ActorSystem,
		Action:     "payment.transition",
		EntityType: "service_request",
		EntityID:   after.ID,
		Reference:  after.Reference,
		Metadata: map[string]any{
			"from":      string(before.PaymentStatus),
			"to":        string(after.PaymentStatus),
			"paymentId": after.PaymentID,
			"trigger":   string(trigger),
		},
	}
	if trigger == domain.TriggerAdmin {
		entry.ActorType = audit.ActorOperator
		entry.ActorID = in.operatorID
		entry.Action = in.action
		entry.Reason = in.reason
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.log.DatabaseError("audit record", err)
	}
}

func (s *Service) freshResult(ctx context.Context, reference, rawStatus string) (StatusResult, error) {
	req, err := s.store.GetByReference(ctx, reference)
	if err != nil {
		return StatusResult{}, mapStoreErr(err)
	}
	return resultFrom(req, rawStatus), nil
}

func mapStoreErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("service request not found")
	}
	return apperr.Wrap(apperr.KindInternal, "storage error", err)
}

func mapDomainErr(err error) error {
	switch {
	case errors.Is(err, domain.ErrAlreadyPaid):
		return apperr.Conflict("payment already completed")
	case errors.Is(err, domain.ErrAdminOnly):
		return apperr.Conflict("transition requires administrative override")
	case errors.Is(err, domain.ErrInvalidStatus):
		return apperr.Validation("invalid payment status")
	}
	return apperr.Wrap(apperr.KindInternal, "transition error", err)
}
