// Package handler exposes the lead capture endpoints.
package handler

import (
	"net/http"
	"strconv"

	"servicecert_backend/internal/leads/service"
	"servicecert_backend/internal/leads/transport"
	"servicecert_backend/platform/httpkit"
	"servicecert_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for lead capture.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new leads handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Create handles POST /leads, the first capture step.
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Create(c.Request.Context(), service.CreateParams{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		ServiceType: req.ServiceType,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.CreateLeadResponse{
		Reference:    result.Lead.Reference,
		SessionToken: result.SessionToken,
	})
}

// UpdateStep handles PATCH /leads/:token/steps/:step.
func (h *Handler) UpdateStep(c *gin.Context) {
	step, err := strconv.Atoi(c.Param("step"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.UpdateStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.svc.UpdateStep(c.Request.Context(), c.Param("token"), step, service.StepParams{
		Name:              req.Name,
		Email:             req.Email,
		Phone:             req.Phone,
		Street:            req.Street,
		HouseNumber:       req.HouseNumber,
		PostalCode:        req.PostalCode,
		City:              req.City,
		ServiceType:       req.ServiceType,
		Notes:             req.Notes,
		CallbackRequested: req.CallbackRequested,
		CallbackAt:        req.CallbackAt,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromLead(lead))
}

// Finalize handles POST /leads/:token/finalize.
func (h *Handler) Finalize(c *gin.Context) {
	req, err := h.svc.Finalize(c.Request.Context(), c.Param("token"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FinalizeResponse{
		RequestReference: req.Reference,
		Status:           req.Status,
	})
}
