// Package transport defines the HTTP shapes for the requests context.
package transport

import (
	"time"

	"servicecert_backend/internal/requests/repository"
)

// CreateRequest is the admin create body.
type CreateRequest struct {
	ServiceType string `json:"serviceType" validate:"required,max=100"`
	ClientName  string `json:"clientName" validate:"required,max=255"`
	ClientEmail string `json:"clientEmail" validate:"required,email,max=255"`
	ClientPhone string `json:"clientPhone" validate:"omitempty,max=32"`
	Street      string `json:"street" validate:"omitempty,max=255"`
	HouseNumber string `json:"houseNumber" validate:"omitempty,max=16"`
	PostalCode  string `json:"postalCode" validate:"omitempty,max=16"`
	City        string `json:"city" validate:"omitempty,max=128"`
	Notes       string `json:"notes" validate:"omitempty,max=2000"`
}

// RequestResponse is the service request view.
type RequestResponse struct {
	ID            int64     `json:"id"`
	Reference     string    `json:"reference"`
	ServiceType   string    `json:"serviceType"`
	Status        string    `json:"status"`
	ClientName    string    `json:"clientName"`
	ClientEmail   string    `json:"clientEmail"`
	ClientPhone   string    `json:"clientPhone,omitempty"`
	Street        string    `json:"street,omitempty"`
	HouseNumber   string    `json:"houseNumber,omitempty"`
	PostalCode    string    `json:"postalCode,omitempty"`
	City          string    `json:"city,omitempty"`
	PaymentStatus string    `json:"paymentStatus"`
	LeadID        *int64    `json:"leadId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// FromRequest maps a repository record to its response shape.
func FromRequest(req repository.Request) RequestResponse {
	return RequestResponse{
		ID:            req.ID,
		Reference:     req.Reference,
		ServiceType:   req.ServiceType,
		Status:        req.Status,
		ClientName:    req.ClientName,
		ClientEmail:   req.ClientEmail,
		ClientPhone:   req.ClientPhone,
		Street:        req.Street,
		HouseNumber:   req.HouseNumber,
		PostalCode:    req.PostalCode,
		City:          req.City,
		PaymentStatus: req.PaymentStatus,
		LeadID:        req.LeadID,
		CreatedAt:     req.CreatedAt,
	}
}
