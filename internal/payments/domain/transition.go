package domain

import "errors"

// Trigger identifies which reconciliation entry point proposed a transition.
type Trigger string

const (
	TriggerPoll  Trigger = "poll"
	TriggerEvent Trigger = "event"
	TriggerAdmin Trigger = "admin"
)

// Effect names a side effect implied by a transition. Effects are fired at
// most once per logical transition by the dispatcher, which checks persisted
// idempotency markers rather than the state value alone.
type Effect string

const (
	EffectGenerateDocument Effect = "generate_document"
	EffectNotifySuccess    Effect = "notify_success"
	EffectNotifyFailure    Effect = "notify_failure"
	EffectCreditCommission Effect = "credit_commission"
)

var (
	// ErrAlreadyPaid is returned when an automatic trigger attempts to move a
	// paid record to an earlier-stage status. Idempotent pollers should treat
	// this as success.
	ErrAlreadyPaid = errors.New("payment already completed")
	// ErrAdminOnly is returned when an automatic trigger proposes a transition
	// reserved for the administrative path (refund, cancel-after-paid).
	ErrAdminOnly = errors.New("transition requires administrative override")
	// ErrInvalidStatus is returned for a proposed status outside the closed set.
	ErrInvalidStatus = errors.New("invalid payment status")
)

// Decision is the outcome of evaluating a proposed transition.
type Decision struct {
	// Next is the status to persist.
	Next PaymentStatus
	// Effects lists side effects implied by the transition, in firing order.
	Effects []Effect
	// NoChange indicates the proposal is an idempotent no-op: nothing to
	// persist, nothing to fire.
	NoChange bool
}

// Transition evaluates a proposed payment status against the current persisted
// status.
//
// The forward-only rule: once paid, no automatic (poll/event) proposal changes
// the status. Duplicate paid reports are no-ops; regressions are rejected with
// ErrAlreadyPaid. Only the administrative trigger may move paid to canceled or
// refunded.
func Transition(current, proposed PaymentStatus, trigger Trigger) (Decision, error) {
	if !ValidPaymentStatus(proposed) {
		return Decision{}, ErrInvalidStatus
	}

	if current == StatusPaid {
		switch {
		case proposed == StatusPaid:
			return Decision{Next: StatusPaid, NoChange: true}, nil
		case trigger == TriggerAdmin && (proposed == StatusCanceled || proposed == StatusRefunded):
			// Explicit administrative exception: no customer-facing effects.
			return Decision{Next: proposed}, nil
		case proposed == StatusCanceled || proposed == StatusRefunded:
			return Decision{}, ErrAdminOnly
		default:
			return Decision{}, ErrAlreadyPaid
		}
	}

	if current == StatusRefunded {
		// Refunded is terminal for automatic triggers; a refunded record only
		// changes through a new explicit administrative action.
		if trigger != TriggerAdmin {
			if proposed == StatusRefunded {
				return Decision{Next: StatusRefunded, NoChange: true}, nil
			}
			return Decision{}, ErrAdminOnly
		}
	}

	if proposed == StatusRefunded && trigger != TriggerAdmin {
		return Decision{}, ErrAdminOnly
	}

	if proposed == current {
		return Decision{Next: current, NoChange: true}, nil
	}

	switch proposed {
	case StatusPaid:
		effects := []Effect{EffectGenerateDocument, EffectNotifySuccess, EffectCreditCommission}
		if trigger == TriggerAdmin {
			// Manual corrections are silent to the customer.
			effects = []Effect{EffectGenerateDocument, EffectCreditCommission}
		}
		return Decision{Next: StatusPaid, Effects: effects}, nil

	case StatusFailed:
		return Decision{Next: StatusFailed, Effects: []Effect{EffectNotifyFailure}}, nil

	case StatusCanceled:
		if trigger == TriggerAdmin {
			return Decision{Next: StatusCanceled}, nil
		}
		return Decision{Next: StatusCanceled, Effects: []Effect{EffectNotifyFailure}}, nil

	case StatusProcessing, StatusPending, StatusNone, StatusRefunded:
		return Decision{Next: proposed}, nil
	}

	return Decision{}, ErrInvalidStatus
}
