// Package leads provides the lead capture bounded context module.
package leads

import (
	"servicecert_backend/internal/audit"
	"servicecert_backend/internal/events"
	apphttp "servicecert_backend/internal/http"
	"servicecert_backend/internal/leads/handler"
	"servicecert_backend/internal/leads/repository"
	"servicecert_backend/internal/leads/service"
	"servicecert_backend/platform/logger"
	"servicecert_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(pool *pgxpool.Pool, requests service.RequestCreator, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	auditLog := audit.New(pool)
	svc := service.New(repo, requests, auditLog, bus, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Service exposes the leads service; the requests module uses it as the
// lead-linking heuristic.
func (m *Module) Service() *service.Service {
	return m.service
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// RegisterRoutes mounts lead capture routes on the provided router context.
// All routes are public; the session token is the capability.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/leads")
	group.POST("", m.handler.Create)
	group.PATCH("/:token/steps/:step", m.handler.UpdateStep)
	group.POST("/:token/finalize", m.handler.Finalize)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
