package processor

import (
	"errors"
	"testing"
)

func TestVerifyEventRejectsMissingSignature(t *testing.T) {
	c := &Client{webhookSecret: "whsec_test"}
	_, err := c.VerifyEvent([]byte(`{"id":"evt_1"}`), "")
	if !errors.Is(err, ErrVerification) {
		t.Fatalf("expected ErrVerification, got %v", err)
	}
}

func TestVerifyEventRejectsBadSignature(t *testing.T) {
	c := &Client{webhookSecret: "whsec_test"}
	_, err := c.VerifyEvent([]byte(`{"id":"evt_1"}`), "t=1,v1=deadbeef")
	if !errors.Is(err, ErrVerification) {
		t.Fatalf("expected ErrVerification, got %v", err)
	}
}

func TestEventRawStatus(t *testing.T) {
	cases := []struct {
		eventType string
		want      string
		relevant  bool
	}{
		{"payment_intent.succeeded", "succeeded", true},
		{"payment_intent.processing", "processing", true},
		{"payment_intent.payment_failed", "payment_failed", true},
		{"payment_intent.canceled", "canceled", true},
		{"payment_intent.created", "", false},
		{"charge.refunded", "", false},
	}
	for _, tc := range cases {
		got, relevant := eventRawStatus(tc.eventType)
		if got != tc.want || relevant != tc.relevant {
			t.Errorf("eventRawStatus(%q) = (%q, %v), want (%q, %v)", tc.eventType, got, relevant, tc.want, tc.relevant)
		}
	}
}

func TestTranslateFailureCodeNeverLeaksDetail(t *testing.T) {
	cases := map[string]string{
		"insufficient_funds":      "insufficient funds",
		"authentication_required": "authentication required",
		"card_declined":           "card declined",
		"stolen_card":             "card declined",
		"some_internal_code":      "payment failed",
		"":                        "",
	}
	for code, want := range cases {
		if got := TranslateFailureCode(code); got != want {
			t.Errorf("TranslateFailureCode(%q) = %q, want %q", code, got, want)
		}
	}
}
