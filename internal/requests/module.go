// Package requests provides the service request bounded context module.
package requests

import (
	apphttp "servicecert_backend/internal/http"
	"servicecert_backend/internal/requests/handler"
	"servicecert_backend/internal/requests/repository"
	"servicecert_backend/internal/requests/service"
	"servicecert_backend/platform/logger"
	"servicecert_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the requests bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the requests module with all its dependencies.
func NewModule(pool *pgxpool.Pool, documents service.Documents, matcher service.LeadMatcher, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, documents, matcher, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Service exposes the requests service for other modules (the lead finalize
// flow creates service requests through it).
func (m *Module) Service() *service.Service {
	return m.service
}

// SetLeadMatcher wires the lead matcher once the leads module exists.
func (m *Module) SetLeadMatcher(matcher service.LeadMatcher) {
	m.service.SetLeadMatcher(matcher)
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "requests"
}

// RegisterRoutes mounts request routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public: certificate retrieval by reference.
	ctx.V1.GET("/requests/:reference/certificate", m.handler.Certificate)

	// Admin: creation, listing, lead linking.
	adminGroup := ctx.Admin.Group("/requests")
	adminGroup.POST("", m.handler.Create)
	adminGroup.GET("/:reference", m.handler.Get)
	adminGroup.POST("/:reference/link-lead", m.handler.LinkLead)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
