// Package payments provides the payment reconciliation bounded context module.
package payments

import (
	"servicecert_backend/internal/audit"
	"servicecert_backend/internal/events"
	apphttp "servicecert_backend/internal/http"
	"servicecert_backend/internal/payments/dispatcher"
	"servicecert_backend/internal/payments/handler"
	"servicecert_backend/internal/payments/processor"
	"servicecert_backend/internal/payments/repository"
	"servicecert_backend/internal/payments/service"
	"servicecert_backend/platform/config"
	"servicecert_backend/platform/logger"
	"servicecert_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Collaborators are the cross-module side effect implementations the
// dispatcher fires on a paid or failed transition.
type Collaborators struct {
	Documents  dispatcher.DocumentGenerator
	Notifier   dispatcher.Notifier
	Commission dispatcher.CommissionCreditor
	Origins    dispatcher.OriginPolicy
}

// Module is the payments bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the payments module with all its dependencies.
func NewModule(pool *pgxpool.Pool, cfg config.ProcessorConfig, collab Collaborators, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	store := repository.New(pool)
	ledger := repository.NewLedger(pool)
	auditLog := audit.New(pool)
	proc := processor.New(cfg)

	disp := dispatcher.New(store, collab.Documents, collab.Notifier, collab.Commission, collab.Origins, log)
	svc := service.New(store, ledger, proc, disp, auditLog, bus, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Service exposes the reconciliation service for other modules (e.g. the
// scheduler's pending-payment sweep).
func (m *Module) Service() *service.Service {
	return m.service
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "payments"
}

// RegisterRoutes mounts payment routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public: status polling, attempt registration, processor webhook.
	group := ctx.V1.Group("/payments")
	group.GET("/:reference/status", m.handler.Status)
	group.POST("/:reference/attempts", m.handler.RegisterAttempt)
	group.POST("/events", m.handler.Events)

	// Admin: manual entry and revert (JWT auth + admin role).
	adminGroup := ctx.Admin.Group("/payments")
	adminGroup.POST("/manual", m.handler.ManualEntry)
	adminGroup.POST("/:reference/revert", m.handler.Revert)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
