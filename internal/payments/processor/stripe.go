// Package processor wraps the payment processor (Stripe) behind the two
// operations reconciliation needs: retrieve a payment by id and construct a
// verified event from a signed webhook payload. The processor's ledger is the
// authority; this package only reads it.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"servicecert_backend/internal/payments/domain"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// ErrVerification indicates an event payload failed signature verification
// and must not be trusted.
var ErrVerification = errors.New("event signature verification failed")

// MetadataReferenceKey is the intent metadata key carrying the service
// request reference, set when the payment attempt is created.
const MetadataReferenceKey = "service_request_reference"

// Payment is a normalized snapshot of a processor payment.
type Payment struct {
	ID          string
	RawStatus   string
	Status      domain.PaymentStatus
	KnownStatus bool
	AmountMinor int64
	Currency    string
	Reference   string
	FailureCode string
	// FailureReason is the customer-safe translation of the failure code.
	FailureReason string
}

// Event is a verified processor event.
type Event struct {
	ID      string
	Type    string
	Payment Payment
	// Relevant reports whether the event type maps to a payment transition at
	// all; irrelevant events are acknowledged without action.
	Relevant bool
}

// Client retrieves payments and verifies pushed events.
type Client struct {
	api           *client.API
	webhookSecret string
}

// Config provides the processor credentials.
type Config interface {
	GetProcessorSecretKey() string
	GetProcessorWebhookSecret() string
}

// New creates a processor client. The stripe client is initialized per
// instance; no package-level key is mutated.
func New(cfg Config) *Client {
	api := &client.API{}
	api.Init(cfg.GetProcessorSecretKey(), nil)
	return &Client{
		api:           api,
		webhookSecret: cfg.GetProcessorWebhookSecret(),
	}
}

// Retrieve fetches the authoritative state of a payment by processor id.
// Transport and processor errors are returned as-is; callers must treat them
// as transient, never as a payment failure.
func (c *Client) Retrieve(ctx context.Context, paymentID string) (Payment, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := c.api.PaymentIntents.Get(paymentID, params)
	if err != nil {
		return Payment{}, fmt.Errorf("retrieve payment %s: %w", paymentID, err)
	}
	return snapshotFromIntent(intent, string(intent.Status)), nil
}

// VerifyEvent verifies the signature header against the shared secret and
// extracts a normalized payment snapshot. Payloads that fail verification are
// rejected with ErrVerification; their content is never inspected further.
func (c *Client) VerifyEvent(payload []byte, signatureHeader string) (Event, error) {
	if signatureHeader == "" {
		return Event{}, fmt.Errorf("%w: missing signature header", ErrVerification)
	}

	stripeEvent, err := webhook.ConstructEventWithOptions(payload, signatureHeader, c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %s", ErrVerification, err.Error())
	}

	event := Event{ID: stripeEvent.ID, Type: string(stripeEvent.Type)}

	rawStatus, relevant := eventRawStatus(string(stripeEvent.Type))
	event.Relevant = relevant
	if !relevant {
		return event, nil
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(stripeEvent.Data.Raw, &intent); err != nil {
		return Event{}, fmt.Errorf("decode event payload: %w", err)
	}

	event.Payment = snapshotFromIntent(&intent, rawStatus)
	return event, nil
}

// eventRawStatus maps an event type to the raw status it reports. The failed
// event is mapped from the event type rather than the intent status, because
// a failed intent rolls back to requires_payment_method.
func eventRawStatus(eventType string) (string, bool) {
	switch eventType {
	case "payment_intent.succeeded":
		return "succeeded", true
	case "payment_intent.processing":
		return "processing", true
	case "payment_intent.payment_failed":
		return "payment_failed", true
	case "payment_intent.canceled":
		return "canceled", true
	default:
		return "", false
	}
}

func snapshotFromIntent(intent *stripe.PaymentIntent, rawStatus string) Payment {
	status, known := domain.MapProcessorStatus(rawStatus)

	p := Payment{
		ID:          intent.ID,
		RawStatus:   rawStatus,
		Status:      status,
		KnownStatus: known,
		AmountMinor: intent.Amount,
		Currency:    string(intent.Currency),
	}
	if intent.Metadata != nil {
		p.Reference = intent.Metadata[MetadataReferenceKey]
	}
	if intent.LastPaymentError != nil {
		code := string(intent.LastPaymentError.DeclineCode)
		if code == "" {
			code = string(intent.LastPaymentError.Code)
		}
		p.FailureCode = code
		p.FailureReason = TranslateFailureCode(code)
	}
	return p
}

// TranslateFailureCode maps processor failure codes onto the small set of
// human-readable reasons exposed to customers. Internal diagnostic detail is
// never leaked.
func TranslateFailureCode(code string) string {
	switch code {
	case "insufficient_funds":
		return "insufficient funds"
	case "authentication_required":
		return "authentication required"
	case "card_declined", "generic_decline", "do_not_honor", "transaction_not_allowed",
		"expired_card", "incorrect_cvc", "incorrect_number", "lost_card", "stolen_card":
		return "card declined"
	case "":
		return ""
	default:
		return "payment failed"
	}
}
