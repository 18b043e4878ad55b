// Package handler exposes the payment reconciliation endpoints.
package handler

import (
	"io"
	"net/http"

	"servicecert_backend/internal/payments/domain"
	"servicecert_backend/internal/payments/service"
	"servicecert_backend/internal/payments/transport"
	"servicecert_backend/platform/httpkit"
	"servicecert_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"

	// Processor events carry their signature in this header.
	signatureHeader = "Stripe-Signature"

	// maxEventBody bounds the webhook payload read.
	maxEventBody = 1 << 16
)

// Handler handles HTTP requests for payment reconciliation.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new payments handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Status handles GET /payments/:reference/status. This is the polling entry
// point: it reconciles against the processor before answering.
func (h *Handler) Status(c *gin.Context) {
	reference := c.Param("reference")

	result, err := h.svc.Poll(c.Request.Context(), reference, c.GetHeader("Origin"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, statusResponse(result))
}

// RegisterAttempt handles POST /payments/:reference/attempts.
func (h *Handler) RegisterAttempt(c *gin.Context) {
	var req transport.RegisterAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	amountMinor, err := domain.ParseMajorUnits(req.Amount)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid amount", nil)
		return
	}

	result, err := h.svc.RegisterAttempt(c.Request.Context(), c.Param("reference"), req.PaymentID, amountMinor)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, statusResponse(result))
}

// Events handles POST /payments/events, the processor webhook. The raw body
// is read unparsed: signature verification covers the exact bytes sent.
func (h *Handler) Events(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEventBody))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	err = h.svc.IngestEvent(c.Request.Context(), payload, c.GetHeader(signatureHeader), c.GetHeader("Origin"), c.ClientIP())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.EventAck{Received: true})
}

// ManualEntry handles POST /admin/payments/manual.
func (h *Handler) ManualEntry(c *gin.Context) {
	var req transport.ManualEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	amountMinor, err := domain.ParseMajorUnits(req.Amount)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid amount", nil)
		return
	}

	result, err := h.svc.ManualEntry(c.Request.Context(), service.ManualEntryParams{
		Reference:   req.Reference,
		AmountMinor: amountMinor,
		Method:      req.Method,
		OperatorID:  operatorID(c),
		Reason:      req.Reason,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, statusResponse(result))
}

// Revert handles POST /admin/payments/:reference/revert.
func (h *Handler) Revert(c *gin.Context) {
	var req transport.RevertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Revert(c.Request.Context(), c.Param("reference"), domain.PaymentStatus(req.Target), operatorID(c), req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, statusResponse(result))
}

func statusResponse(r service.StatusResult) transport.StatusResponse {
	return transport.StatusResponse{
		Reference:    r.Reference,
		Status:       string(r.Status),
		PaymentID:    r.PaymentID,
		AmountMinor:  r.AmountMinor,
		RawStatus:    r.RawStatus,
		ErrorDetails: r.ErrorDetails,
	}
}

func operatorID(c *gin.Context) string {
	value, ok := c.Get(httpkit.ContextOperatorIDKey)
	if !ok {
		return ""
	}
	id, ok := value.(uuid.UUID)
	if !ok {
		return ""
	}
	return id.String()
}
