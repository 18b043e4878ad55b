// Package service implements the lead lifecycle: token-addressed progressive
// capture, idempotent finalize into a service request, and the probabilistic
// lead-linking heuristic.
package service

import (
	"context"
	"errors"
	"time"

	"servicecert_backend/internal/audit"
	"servicecert_backend/internal/events"
	"servicecert_backend/internal/leads/repository"
	requestsrepo "servicecert_backend/internal/requests/repository"
	requestssvc "servicecert_backend/internal/requests/service"
	"servicecert_backend/platform/apperr"
	"servicecert_backend/platform/logger"
	"servicecert_backend/platform/phone"
)

// matchWindow bounds how far back the lead-linking heuristic searches.
const matchWindow = 30 * 24 * time.Hour

// Store is the persistence port for leads.
type Store interface {
	NextReference(ctx context.Context) (string, error)
	Create(ctx context.Context, lead repository.Lead) (repository.Lead, error)
	GetByToken(ctx context.Context, token string) (repository.Lead, error)
	GetByID(ctx context.Context, id int64) (repository.Lead, error)
	UpdateStep(ctx context.Context, token string, step int, p repository.StepParams) (repository.Lead, error)
	MarkCompleted(ctx context.Context, id int64) error
	MarkConverted(ctx context.Context, id, requestID int64) error
}

// RequestCreator is the requests-context port used by finalize.
type RequestCreator interface {
	CreateDirect(ctx context.Context, p requestssvc.CreateParams) (requestsrepo.Request, error)
	GetByLeadID(ctx context.Context, leadID int64) (requestsrepo.Request, bool, error)
}

// AuditLog records and searches lead activity.
type AuditLog interface {
	Record(ctx context.Context, entry audit.Entry) error
	FindLeadAssignment(ctx context.Context, requestID int64, email string, window time.Duration) (int64, error)
}

// Service implements the lead lifecycle.
type Service struct {
	store    Store
	requests RequestCreator
	audit    AuditLog
	bus      events.Bus
	log      *logger.Logger
}

// New creates a leads service.
func New(store Store, requests RequestCreator, auditLog AuditLog, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		requests: requests,
		audit:    auditLog,
		bus:      bus,
		log:      log,
	}
}

// CreateParams are the first capture step's fields.
type CreateParams struct {
	Name        string
	Email       string
	Phone       string
	ServiceType string
}

// CreateResult is returned to the capturing client: the token is the only
// credential for later steps.
type CreateResult struct {
	Lead         repository.Lead
	SessionToken string
}

// Create mints a reference and session token and persists the first step.
// The staff alert rides on the published event; its delivery never gates the
// create.
func (s *Service) Create(ctx context.Context, p CreateParams) (CreateResult, error) {
	reference, err := s.store.NextReference(ctx)
	if err != nil {
		return CreateResult{}, apperr.Wrap(apperr.KindInternal, "failed to mint lead reference", err)
	}

	token, err := repository.GenerateSessionToken()
	if err != nil {
		return CreateResult{}, apperr.Wrap(apperr.KindInternal, "failed to generate session token", err)
	}

	lead, err := s.store.Create(ctx, repository.Lead{
		Reference:      reference,
		SessionToken:   token,
		Status:         repository.StatusNew,
		Name:           p.Name,
		Email:          p.Email,
		Phone:          phone.NormalizeE164(p.Phone),
		ServiceType:    p.ServiceType,
		CompletedSteps: 1,
	})
	if err != nil {
		return CreateResult{}, apperr.Wrap(apperr.KindInternal, "failed to create lead", err)
	}

	s.recordAudit(ctx, audit.Entry{
		ActorType:  audit.ActorCustomer,
		Action:     "lead.created",
		EntityType: "lead",
		EntityID:   lead.ID,
		Reference:  lead.Reference,
		Email:      lead.Email,
	})

	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadCreated{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			Reference: lead.Reference,
			Email:     lead.Email,
			Name:      lead.Name,
			Phone:     lead.Phone,
		})
	}

	s.log.Info("lead created", "reference", lead.Reference)
	return CreateResult{Lead: lead, SessionToken: token}, nil
}

// StepParams are the fields a later capture step may add.
type StepParams struct {
	Name        string
	Email       string
	Phone       string
	Street      string
	HouseNumber string
	PostalCode  string
	City        string
	ServiceType string
	Notes       string

	CallbackRequested bool
	CallbackAt        *time.Time
}

// UpdateStep merges a capture step into the lead addressed by token.
func (s *Service) UpdateStep(ctx context.Context, token string, step int, p StepParams) (repository.Lead, error) {
	if step < 1 || step > 5 {
		return repository.Lead{}, apperr.Validation("invalid capture step")
	}

	lead, err := s.store.UpdateStep(ctx, token, step, repository.StepParams{
		Name:              p.Name,
		Email:             p.Email,
		Phone:             phone.NormalizeE164(p.Phone),
		Street:            p.Street,
		HouseNumber:       p.HouseNumber,
		PostalCode:        p.PostalCode,
		City:              p.City,
		ServiceType:       p.ServiceType,
		Notes:             p.Notes,
		CallbackRequested: p.CallbackRequested,
		CallbackAt:        p.CallbackAt,
	})
	if err != nil {
		return repository.Lead{}, mapStoreErr(err)
	}

	if p.CallbackRequested && p.CallbackAt != nil && s.bus != nil {
		s.bus.Publish(ctx, events.LeadCallbackRequested{
			BaseEvent:  events.NewBaseEvent(),
			LeadID:     lead.ID,
			Reference:  lead.Reference,
			Name:       lead.Name,
			Phone:      lead.Phone,
			CallbackAt: p.CallbackAt.Format(time.RFC3339),
		})
	}

	return lead, nil
}

// Finalize converts a completed lead into a service request. Finalize is
// idempotent: an already converted lead returns its existing request, and a
// finalize interrupted between request creation and lead marking converges
// on retry via the lead_id back-reference.
func (s *Service) Finalize(ctx context.Context, token string) (requestsrepo.Request, error) {
	lead, err := s.store.GetByToken(ctx, token)
	if err != nil {
		return requestsrepo.Request{}, mapStoreErr(err)
	}

	if lead.Status == repository.StatusConverted && lead.ConvertedRequestID != nil {
		existing, found, err := s.requests.GetByLeadID(ctx, lead.ID)
		if err != nil {
			return requestsrepo.Request{}, err
		}
		if found {
			return existing, nil
		}
	}

	if lead.Email == "" || lead.Name == "" {
		return requestsrepo.Request{}, apperr.Validation("lead is missing contact details")
	}

	if err := s.store.MarkCompleted(ctx, lead.ID); err != nil {
		return requestsrepo.Request{}, apperr.Wrap(apperr.KindInternal, "failed to complete lead", err)
	}

	// A prior finalize may have created the request and crashed before
	// marking the lead. Reuse it instead of creating a duplicate.
	req, found, err := s.requests.GetByLeadID(ctx, lead.ID)
	if err != nil {
		return requestsrepo.Request{}, err
	}
	if !found {
		leadID := lead.ID
		req, err = s.requests.CreateDirect(ctx, requestssvc.CreateParams{
			ServiceType: lead.ServiceType,
			ClientName:  lead.Name,
			ClientEmail: lead.Email,
			ClientPhone: lead.Phone,
			Street:      lead.Street,
			HouseNumber: lead.HouseNumber,
			PostalCode:  lead.PostalCode,
			City:        lead.City,
			Notes:       lead.Notes,
			LeadID:      &leadID,
		})
		if err != nil {
			return requestsrepo.Request{}, err
		}
	}

	if err := s.store.MarkConverted(ctx, lead.ID, req.ID); err != nil {
		return requestsrepo.Request{}, apperr.Wrap(apperr.KindInternal, "failed to convert lead", err)
	}

	s.recordAudit(ctx, audit.Entry{
		ActorType:  audit.ActorCustomer,
		Action:     "lead.assigned",
		EntityType: "lead",
		EntityID:   lead.ID,
		Reference:  lead.Reference,
		Email:      lead.Email,
		Metadata:   map[string]any{"requestId": req.ID},
	})

	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadConverted{
			BaseEvent:        events.NewBaseEvent(),
			LeadID:           lead.ID,
			LeadReference:    lead.Reference,
			RequestID:        req.ID,
			RequestReference: req.Reference,
		})
	}

	s.log.Info("lead converted", "leadReference", lead.Reference, "requestReference", req.Reference)
	return req, nil
}

// MatchLead implements the lead-linking heuristic for the requests context:
// search recent lead-assignment activity by request id or customer email.
// The result is a hint, not a certainty.
func (s *Service) MatchLead(ctx context.Context, requestID int64, clientEmail string) (int64, bool, error) {
	leadID, err := s.audit.FindLeadAssignment(ctx, requestID, clientEmail, matchWindow)
	if err != nil {
		return 0, false, err
	}
	if leadID == 0 {
		return 0, false, nil
	}
	return leadID, true, nil
}

func (s *Service) recordAudit(ctx context.Context, entry audit.Entry) {
	if err := s.audit.Record(ctx, entry); err != nil {
		s.log.DatabaseError("audit record", err)
	}
}

func mapStoreErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("lead not found")
	}
	return apperr.Wrap(apperr.KindInternal, "storage error", err)
}
