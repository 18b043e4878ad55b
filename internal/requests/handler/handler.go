// Package handler exposes the service request endpoints.
package handler

import (
	"fmt"
	"net/http"

	"servicecert_backend/internal/requests/service"
	"servicecert_backend/internal/requests/transport"
	"servicecert_backend/platform/httpkit"
	"servicecert_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for service requests.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new requests handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Certificate handles GET /requests/:reference/certificate. The stored PDF is
// streamed, generating it on demand when missing.
func (h *Handler) Certificate(c *gin.Context) {
	reference := c.Param("reference")

	reader, size, err := h.svc.Certificate(c.Request.Context(), reference)
	if httpkit.HandleError(c, err) {
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", reference+".pdf"))
	c.DataFromReader(http.StatusOK, size, "application/pdf", reader, nil)
}

// Get handles GET /admin/requests/:reference.
func (h *Handler) Get(c *gin.Context) {
	req, err := h.svc.Get(c.Request.Context(), c.Param("reference"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromRequest(req))
}

// Create handles POST /admin/requests.
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	created, err := h.svc.CreateAdmin(c.Request.Context(), service.CreateParams{
		ServiceType: req.ServiceType,
		ClientName:  req.ClientName,
		ClientEmail: req.ClientEmail,
		ClientPhone: req.ClientPhone,
		Street:      req.Street,
		HouseNumber: req.HouseNumber,
		PostalCode:  req.PostalCode,
		City:        req.City,
		Notes:       req.Notes,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.FromRequest(created))
}

// LinkLead handles POST /admin/requests/:reference/link-lead.
func (h *Handler) LinkLead(c *gin.Context) {
	req, err := h.svc.LinkLead(c.Request.Context(), c.Param("reference"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromRequest(req))
}
