// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"servicecert_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event     = events.Event
	Bus       = events.Bus
	Handler   = events.Handler
	BaseEvent = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Domain Events
// =============================================================================

// LeadCreated is published when a new lead is captured (step 1).
type LeadCreated struct {
	BaseEvent
	LeadID    int64  `json:"leadId"`
	Reference string `json:"reference"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadConverted is published when a lead is finalized into a service request.
type LeadConverted struct {
	BaseEvent
	LeadID           int64  `json:"leadId"`
	LeadReference    string `json:"leadReference"`
	RequestID        int64  `json:"requestId"`
	RequestReference string `json:"requestReference"`
}

func (e LeadConverted) EventName() string { return "leads.lead.converted" }

// LeadCallbackRequested is published when a lead asks to be called back at a
// scheduled time.
type LeadCallbackRequested struct {
	BaseEvent
	LeadID     int64  `json:"leadId"`
	Reference  string `json:"reference"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	CallbackAt string `json:"callbackAt"`
}

func (e LeadCallbackRequested) EventName() string { return "leads.lead.callback_requested" }

// =============================================================================
// Payment Domain Events
// =============================================================================

// PaymentStatusChanged is published after a persisted payment status transition.
type PaymentStatusChanged struct {
	BaseEvent
	RequestID   int64  `json:"requestId"`
	Reference   string `json:"reference"`
	PaymentID   string `json:"paymentId"`
	FromStatus  string `json:"fromStatus"`
	ToStatus    string `json:"toStatus"`
	AmountMinor int64  `json:"amountMinor"`
	Trigger     string `json:"trigger"`
}

func (e PaymentStatusChanged) EventName() string { return "payments.status.changed" }
