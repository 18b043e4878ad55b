package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"servicecert_backend/internal/payments/domain"
	paymentsrepo "servicecert_backend/internal/payments/repository"
	requestsrepo "servicecert_backend/internal/requests/repository"
	"servicecert_backend/platform/logger"
)

// Converter turns certificate HTML into PDF bytes.
type Converter interface {
	ConvertHTML(ctx context.Context, indexHTML []byte) ([]byte, error)
}

// RequestLoader loads the full service request for certificate rendering.
type RequestLoader interface {
	GetByReference(ctx context.Context, reference string) (requestsrepo.Request, error)
}

// Service renders, converts and stores certificates. Generation is
// deterministic per reference: regenerating overwrites the stored object.
type Service struct {
	converter Converter
	store     ObjectStore
	requests  RequestLoader
	log       *logger.Logger
}

// New creates a documents service.
func New(converter Converter, store ObjectStore, requests RequestLoader, log *logger.Logger) *Service {
	return &Service{converter: converter, store: store, requests: requests, log: log}
}

// ObjectKey returns the storage key for a reference's certificate.
func ObjectKey(reference string) string {
	return "certificates/" + reference + ".pdf"
}

// Generate produces and stores the certificate for a paid request. Called by
// the side-effect dispatcher; always regenerates so a re-fired effect after a
// partial failure converges on a stored document.
func (s *Service) Generate(ctx context.Context, req paymentsrepo.ServiceRequest) error {
	full, err := s.requests.GetByReference(ctx, req.Reference)
	if err != nil {
		return fmt.Errorf("load request %s: %w", req.Reference, err)
	}
	return s.generate(ctx, full)
}

// Ensure generates and stores the certificate only when no stored copy
// exists. Used by the on-demand retrieval path.
func (s *Service) Ensure(ctx context.Context, req requestsrepo.Request) error {
	exists, err := s.store.Exists(ctx, ObjectKey(req.Reference))
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.generate(ctx, req)
}

// Open streams the stored certificate for a reference.
func (s *Service) Open(ctx context.Context, reference string) (io.ReadCloser, int64, error) {
	return s.store.Open(ctx, ObjectKey(reference))
}

func (s *Service) generate(ctx context.Context, req requestsrepo.Request) error {
	data := CertificateData{
		Reference:   req.Reference,
		ServiceType: req.ServiceType,
		ClientName:  req.ClientName,
		Street:      req.Street,
		HouseNumber: req.HouseNumber,
		PostalCode:  req.PostalCode,
		City:        req.City,
		IssuedAt:    time.Now(),
	}
	if req.PaymentAmountMinor > 0 {
		data.Amount = "EUR " + domain.FormatMajorUnits(req.PaymentAmountMinor)
	}

	html, err := RenderCertificate(data)
	if err != nil {
		return err
	}

	pdf, err := s.converter.ConvertHTML(ctx, html)
	if err != nil {
		return fmt.Errorf("convert certificate %s: %w", req.Reference, err)
	}

	key := ObjectKey(req.Reference)
	if err := s.store.Put(ctx, key, bytes.NewReader(pdf), int64(len(pdf)), "application/pdf"); err != nil {
		return err
	}

	s.log.Info("certificate stored", "reference", req.Reference, "key", key, "bytes", len(pdf))
	return nil
}
