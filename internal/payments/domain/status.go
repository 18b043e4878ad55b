// Package domain provides core business rules for the payments bounded context:
// the closed payment status vocabulary, the mapping from the processor's raw
// vocabulary, and the state transition function.
package domain

// PaymentStatus is the canonical payment status stored on a service request.
type PaymentStatus string

const (
	StatusNone       PaymentStatus = "none"
	StatusPending    PaymentStatus = "pending"
	StatusProcessing PaymentStatus = "processing"
	StatusPaid       PaymentStatus = "paid"
	StatusFailed     PaymentStatus = "failed"
	StatusCanceled   PaymentStatus = "canceled"
	StatusRefunded   PaymentStatus = "refunded"
)

// RequestStatus is the service request lifecycle status, distinct from the
// payment status.
type RequestStatus string

const (
	RequestStatusNew            RequestStatus = "new"
	RequestStatusPaymentPending RequestStatus = "payment_pending"
	RequestStatusPaid           RequestStatus = "paid"
	RequestStatusCanceled       RequestStatus = "canceled"
	RequestStatusCompleted      RequestStatus = "completed"
)

// ValidPaymentStatus reports whether s is a member of the closed status set.
func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case StatusNone, StatusPending, StatusProcessing, StatusPaid, StatusFailed, StatusCanceled, StatusRefunded:
		return true
	}
	return false
}

// MapProcessorStatus translates the processor's raw status vocabulary into the
// canonical set. This is the single boundary where unvalidated strings enter;
// the state machine never sees raw values. Unknown statuses map to pending
// (ok=false) so an unrecognized in-flight state is never treated as a failure.
func MapProcessorStatus(raw string) (status PaymentStatus, ok bool) {
	switch raw {
	case "succeeded":
		return StatusPaid, true
	case "processing":
		return StatusProcessing, true
	case "requires_payment_method", "requires_confirmation", "requires_action", "requires_capture":
		return StatusPending, true
	case "canceled":
		return StatusCanceled, true
	case "payment_failed", "failed":
		return StatusFailed, true
	default:
		return StatusPending, false
	}
}

// RequestStatusFor derives the request lifecycle status implied by a payment
// status. Terminal request states that are unrelated to payment (completed)
// are never produced here.
func RequestStatusFor(p PaymentStatus) RequestStatus {
	switch p {
	case StatusPaid:
		return RequestStatusPaid
	case StatusCanceled, StatusRefunded:
		return RequestStatusCanceled
	case StatusPending, StatusProcessing, StatusFailed:
		return RequestStatusPaymentPending
	default:
		return RequestStatusNew
	}
}
