// Package transport defines the HTTP request and response shapes for payments.
package transport

// StatusResponse is the canonical payment status view returned to pollers.
type StatusResponse struct {
	Reference    string `json:"reference"`
	Status       string `json:"status"`
	PaymentID    string `json:"paymentId,omitempty"`
	AmountMinor  int64  `json:"amountMinor,omitempty"`
	RawStatus    string `json:"rawStatus,omitempty"`
	ErrorDetails string `json:"errorDetails,omitempty"`
}

// RegisterAttemptRequest records a newly created payment attempt against a
// service request.
type RegisterAttemptRequest struct {
	PaymentID string `json:"paymentId" validate:"required,max=255"`
	Amount    string `json:"amount" validate:"required,max=20"`
}

// ManualEntryRequest is the admin manual payment entry body.
type ManualEntryRequest struct {
	Reference string `json:"reference" validate:"required,max=32"`
	Amount    string `json:"amount" validate:"required,max=20"`
	Method    string `json:"method" validate:"required,oneof=bank_transfer cash pin other"`
	Reason    string `json:"reason" validate:"required,max=500"`
}

// RevertRequest is the admin revert body.
type RevertRequest struct {
	Target string `json:"target" validate:"required,oneof=canceled refunded"`
	Reason string `json:"reason" validate:"required,max=500"`
}

// EventAck acknowledges a processed or deliberately ignored processor event.
type EventAck struct {
	Received bool `json:"received"`
}
