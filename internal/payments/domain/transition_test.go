package domain

import (
	"errors"
	"testing"
)

func TestTransitionFirstPaidFiresFullEffectSet(t *testing.T) {
	decision, err := Transition(StatusPending, StatusPaid, TriggerEvent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Next != StatusPaid {
		t.Fatalf("expected next=paid, got %q", decision.Next)
	}
	want := []Effect{EffectGenerateDocument, EffectNotifySuccess, EffectCreditCommission}
	if len(decision.Effects) != len(want) {
		t.Fatalf("expected %d effects, got %d", len(want), len(decision.Effects))
	}
	for i, effect := range want {
		if decision.Effects[i] != effect {
			t.Errorf("effect[%d] = %q, want %q", i, decision.Effects[i], effect)
		}
	}
}

func TestTransitionDuplicatePaidIsNoOp(t *testing.T) {
	for _, trigger := range []Trigger{TriggerPoll, TriggerEvent, TriggerAdmin} {
		decision, err := Transition(StatusPaid, StatusPaid, trigger)
		if err != nil {
			t.Fatalf("trigger %s: unexpected error: %v", trigger, err)
		}
		if !decision.NoChange {
			t.Errorf("trigger %s: expected NoChange", trigger)
		}
		if len(decision.Effects) != 0 {
			t.Errorf("trigger %s: expected no effects, got %v", trigger, decision.Effects)
		}
	}
}

func TestTransitionPaidNeverRegressesAutomatically(t *testing.T) {
	for _, proposed := range []PaymentStatus{StatusPending, StatusProcessing, StatusFailed, StatusNone} {
		for _, trigger := range []Trigger{TriggerPoll, TriggerEvent} {
			_, err := Transition(StatusPaid, proposed, trigger)
			if !errors.Is(err, ErrAlreadyPaid) {
				t.Errorf("Transition(paid, %s, %s): expected ErrAlreadyPaid, got %v", proposed, trigger, err)
			}
		}
	}
}

func TestTransitionFailedAfterPaidDoesNotRevert(t *testing.T) {
	_, err := Transition(StatusPaid, StatusFailed, TriggerEvent)
	if !errors.Is(err, ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid, got %v", err)
	}
}

func TestTransitionAdminCancelOfPaidIsExclusive(t *testing.T) {
	decision, err := Transition(StatusPaid, StatusCanceled, TriggerAdmin)
	if err != nil {
		t.Fatalf("admin cancel: unexpected error: %v", err)
	}
	if decision.Next != StatusCanceled {
		t.Fatalf("expected next=canceled, got %q", decision.Next)
	}
	if len(decision.Effects) != 0 {
		t.Fatalf("admin cancel must be silent, got effects %v", decision.Effects)
	}

	for _, trigger := range []Trigger{TriggerPoll, TriggerEvent} {
		if _, err := Transition(StatusPaid, StatusCanceled, trigger); !errors.Is(err, ErrAdminOnly) {
			t.Errorf("trigger %s: expected ErrAdminOnly, got %v", trigger, err)
		}
		if _, err := Transition(StatusPaid, StatusRefunded, trigger); !errors.Is(err, ErrAdminOnly) {
			t.Errorf("trigger %s refund: expected ErrAdminOnly, got %v", trigger, err)
		}
	}
}

func TestTransitionRefundRequiresAdmin(t *testing.T) {
	if _, err := Transition(StatusPending, StatusRefunded, TriggerEvent); !errors.Is(err, ErrAdminOnly) {
		t.Fatalf("expected ErrAdminOnly for automatic refund, got %v", err)
	}
	decision, err := Transition(StatusPaid, StatusRefunded, TriggerAdmin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Next != StatusRefunded {
		t.Fatalf("expected next=refunded, got %q", decision.Next)
	}
}

func TestTransitionAdminPaidSkipsCustomerNotification(t *testing.T) {
	decision, err := Transition(StatusNone, StatusPaid, TriggerAdmin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, effect := range decision.Effects {
		if effect == EffectNotifySuccess || effect == EffectNotifyFailure {
			t.Fatalf("admin paid must not notify the customer, got %v", decision.Effects)
		}
	}
	if len(decision.Effects) != 2 {
		t.Fatalf("expected document + commission effects, got %v", decision.Effects)
	}
}

func TestTransitionFailureFiresNotifyFailure(t *testing.T) {
	decision, err := Transition(StatusProcessing, StatusFailed, TriggerEvent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Next != StatusFailed {
		t.Fatalf("expected next=failed, got %q", decision.Next)
	}
	if len(decision.Effects) != 1 || decision.Effects[0] != EffectNotifyFailure {
		t.Fatalf("expected notify_failure effect, got %v", decision.Effects)
	}
}

func TestTransitionProcessingHasNoEffects(t *testing.T) {
	decision, err := Transition(StatusPending, StatusProcessing, TriggerEvent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Next != StatusProcessing || len(decision.Effects) != 0 {
		t.Fatalf("expected effect-free processing transition, got %+v", decision)
	}
}

func TestTransitionSameStatusIsNoOp(t *testing.T) {
	decision, err := Transition(StatusProcessing, StatusProcessing, TriggerPoll)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.NoChange {
		t.Fatal("expected NoChange for identical statuses")
	}
}

func TestTransitionFailedToPaidAllowed(t *testing.T) {
	// A succeeded report arriving after a failed one for a retried attempt
	// must still complete the payment.
	decision, err := Transition(StatusFailed, StatusPaid, TriggerEvent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Next != StatusPaid {
		t.Fatalf("expected next=paid, got %q", decision.Next)
	}
}

func TestMapProcessorStatus(t *testing.T) {
	cases := []struct {
		raw    string
		want   PaymentStatus
		wantOK bool
	}{
		{"succeeded", StatusPaid, true},
		{"processing", StatusProcessing, true},
		{"requires_payment_method", StatusPending, true},
		{"requires_action", StatusPending, true},
		{"requires_capture", StatusPending, true},
		{"canceled", StatusCanceled, true},
		{"payment_failed", StatusFailed, true},
		{"some_future_status", StatusPending, false},
		{"", StatusPending, false},
	}
	for _, tc := range cases {
		got, ok := MapProcessorStatus(tc.raw)
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("MapProcessorStatus(%q) = (%q, %v), want (%q, %v)", tc.raw, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestParseMajorUnits(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"149.50", 14950, false},
		{"149.5", 14950, false},
		{"149", 14900, false},
		{"0.01", 1, false},
		{".99", 99, false},
		{"149.505", 0, true},
		{"-1.00", 0, true},
		{"", 0, true},
		{"abc", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseMajorUnits(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseMajorUnits(%q): expected error, got %d", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMajorUnits(%q): unexpected error %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseMajorUnits(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestFormatMajorUnits(t *testing.T) {
	if got := FormatMajorUnits(14950); got != "149.50" {
		t.Errorf("FormatMajorUnits(14950) = %q, want %q", got, "149.50")
	}
	if got := FormatMajorUnits(5); got != "0.05" {
		t.Errorf("FormatMajorUnits(5) = %q, want %q", got, "0.05")
	}
}
