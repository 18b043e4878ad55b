// Package service implements the service request use cases: creation with
// reference minting, certificate retrieval, and lead linking.
package service

import (
	"context"
	"errors"
	"io"

	"servicecert_backend/internal/requests/repository"
	"servicecert_backend/platform/apperr"
	"servicecert_backend/platform/logger"
)

// Store is the persistence port for service requests.
type Store interface {
	NextReference(ctx context.Context, family string) (string, error)
	Create(ctx context.Context, req repository.Request) (repository.Request, error)
	GetByReference(ctx context.Context, reference string) (repository.Request, error)
	GetByID(ctx context.Context, id int64) (repository.Request, error)
	GetByLeadID(ctx context.Context, leadID int64) (repository.Request, error)
	LinkLead(ctx context.Context, requestID, leadID int64) (bool, error)
}

// Documents provides certificate storage and on-demand generation.
type Documents interface {
	// Ensure generates and stores the certificate if it does not exist yet.
	// Regeneration overwrites the stored object.
	Ensure(ctx context.Context, req repository.Request) error
	// Open streams the stored certificate for a reference.
	Open(ctx context.Context, reference string) (io.ReadCloser, int64, error)
}

// LeadMatcher finds the lead most plausibly behind a service request.
type LeadMatcher interface {
	MatchLead(ctx context.Context, requestID int64, clientEmail string) (int64, bool, error)
}

// Service implements the service request use cases.
type Service struct {
	store     Store
	documents Documents
	matcher   LeadMatcher
	log       *logger.Logger
}

// New creates a requests service.
func New(store Store, documents Documents, matcher LeadMatcher, log *logger.Logger) *Service {
	return &Service{store: store, documents: documents, matcher: matcher, log: log}
}

// SetLeadMatcher installs the lead matcher after construction. The leads
// module consumes this service to create requests, so the matcher from that
// module is wired late to break the cycle.
func (s *Service) SetLeadMatcher(m LeadMatcher) {
	s.matcher = m
}

// CreateParams are the fields for a new service request.
type CreateParams struct {
	ServiceType string
	ClientName  string
	ClientEmail string
	ClientPhone string
	Street      string
	HouseNumber string
	PostalCode  string
	City        string
	Notes       string
	LeadID      *int64
}

// CreateDirect creates a customer-submitted service request with a REQ
// family reference. Used by the lead finalize flow.
func (s *Service) CreateDirect(ctx context.Context, p CreateParams) (repository.Request, error) {
	return s.create(ctx, repository.FamilyDirect, p)
}

// CreateAdmin creates a specialized request on behalf of an operator with an
// ADM family reference.
func (s *Service) CreateAdmin(ctx context.Context, p CreateParams) (repository.Request, error) {
	return s.create(ctx, repository.FamilyAdmin, p)
}

func (s *Service) create(ctx context.Context, family string, p CreateParams) (repository.Request, error) {
	reference, err := s.store.NextReference(ctx, family)
	if err != nil {
		return repository.Request{}, apperr.Wrap(apperr.KindInternal, "failed to mint reference", err)
	}

	req, err := s.store.Create(ctx, repository.Request{
		Reference:     reference,
		ServiceType:   p.ServiceType,
		Status:        "new",
		ClientName:    p.ClientName,
		ClientEmail:   p.ClientEmail,
		ClientPhone:   p.ClientPhone,
		Street:        p.Street,
		HouseNumber:   p.HouseNumber,
		PostalCode:    p.PostalCode,
		City:          p.City,
		Notes:         p.Notes,
		PaymentStatus: "none",
		LeadID:        p.LeadID,
	})
	if err != nil {
		return repository.Request{}, apperr.Wrap(apperr.KindInternal, "failed to create service request", err)
	}

	s.log.Info("service request created", "reference", req.Reference, "serviceType", req.ServiceType)
	return req, nil
}

// Get loads a request by reference.
func (s *Service) Get(ctx context.Context, reference string) (repository.Request, error) {
	req, err := s.store.GetByReference(ctx, reference)
	if err != nil {
		return repository.Request{}, mapStoreErr(err)
	}
	return req, nil
}

// GetByLeadID finds the request created from a lead. The bool reports
// whether one exists.
func (s *Service) GetByLeadID(ctx context.Context, leadID int64) (repository.Request, bool, error) {
	req, err := s.store.GetByLeadID(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Request{}, false, nil
	}
	if err != nil {
		return repository.Request{}, false, mapStoreErr(err)
	}
	return req, true, nil
}

// Certificate streams the fulfillment document for a paid request, generating
// it on demand when the stored copy is missing.
func (s *Service) Certificate(ctx context.Context, reference string) (io.ReadCloser, int64, error) {
	req, err := s.store.GetByReference(ctx, reference)
	if err != nil {
		return nil, 0, mapStoreErr(err)
	}
	if req.PaymentStatus != "paid" {
		return nil, 0, apperr.Conflict("certificate is only available after payment")
	}

	if err := s.documents.Ensure(ctx, req); err != nil {
		return nil, 0, apperr.Wrap(apperr.KindUnavailable, "certificate generation failed", err)
	}

	reader, size, err := s.documents.Open(ctx, reference)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "failed to open certificate", err)
	}
	return reader, size, nil
}

// LinkLead searches the activity log for the lead behind a request and
// attaches it. An already linked request is left untouched.
func (s *Service) LinkLead(ctx context.Context, reference string) (repository.Request, error) {
	req, err := s.store.GetByReference(ctx, reference)
	if err != nil {
		return repository.Request{}, mapStoreErr(err)
	}
	if req.LeadID != nil {
		return req, nil
	}
	if s.matcher == nil {
		return repository.Request{}, apperr.Unavailable("lead matching not configured")
	}

	leadID, found, err := s.matcher.MatchLead(ctx, req.ID, req.ClientEmail)
	if err != nil {
		return repository.Request{}, apperr.Wrap(apperr.KindInternal, "lead match failed", err)
	}
	if !found {
		return repository.Request{}, apperr.NotFound("no matching lead found")
	}

	linked, err := s.store.LinkLead(ctx, req.ID, leadID)
	if err != nil {
		return repository.Request{}, apperr.Wrap(apperr.KindInternal, "failed to link lead", err)
	}
	if linked {
		s.log.Info("lead linked to request", "reference", reference, "leadId", leadID)
	}

	return s.store.GetByID(ctx, req.ID)
}

func mapStoreErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("service request not found")
	}
	return apperr.Wrap(apperr.KindInternal, "storage error", err)
}
