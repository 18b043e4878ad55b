// Package transport defines the HTTP shapes for the leads context.
package transport

import (
	"time"

	"servicecert_backend/internal/leads/repository"
)

// CreateLeadRequest is the first capture step body.
type CreateLeadRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Email       string `json:"email" validate:"omitempty,email,max=255"`
	Phone       string `json:"phone" validate:"omitempty,max=32"`
	ServiceType string `json:"serviceType" validate:"omitempty,max=100"`
}

// UpdateStepRequest is a later capture step body.
type UpdateStepRequest struct {
	Name        string `json:"name" validate:"omitempty,max=255"`
	Email       string `json:"email" validate:"omitempty,email,max=255"`
	Phone       string `json:"phone" validate:"omitempty,max=32"`
	Street      string `json:"street" validate:"omitempty,max=255"`
	HouseNumber string `json:"houseNumber" validate:"omitempty,max=16"`
	PostalCode  string `json:"postalCode" validate:"omitempty,max=16"`
	City        string `json:"city" validate:"omitempty,max=128"`
	ServiceType string `json:"serviceType" validate:"omitempty,max=100"`
	Notes       string `json:"notes" validate:"omitempty,max=2000"`

	CallbackRequested bool       `json:"callbackRequested"`
	CallbackAt        *time.Time `json:"callbackAt"`
}

// CreateLeadResponse returns the minted identifiers. The session token is the
// client's only credential for later steps.
type CreateLeadResponse struct {
	Reference    string `json:"reference"`
	SessionToken string `json:"sessionToken"`
}

// LeadResponse is the lead view returned to the capturing client.
type LeadResponse struct {
	Reference      string `json:"reference"`
	Status         string `json:"status"`
	CompletedSteps int    `json:"completedSteps"`
}

// FromLead maps a repository record to its response shape.
func FromLead(lead repository.Lead) LeadResponse {
	return LeadResponse{
		Reference:      lead.Reference,
		Status:         lead.Status,
		CompletedSteps: lead.CompletedSteps,
	}
}

// FinalizeResponse returns the created service request identifiers.
type FinalizeResponse struct {
	RequestReference string `json:"requestReference"`
	Status           string `json:"status"`
}
