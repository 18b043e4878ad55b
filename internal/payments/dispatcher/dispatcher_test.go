package dispatcher

import (
	"context"
	"errors"
	"testing"

	"servicecert_backend/internal/payments/domain"
	"servicecert_backend/internal/payments/repository"
	"servicecert_backend/platform/logger"
)

type fakeMarkerStore struct {
	markers map[domain.Effect]bool
}

func newFakeMarkerStore() *fakeMarkerStore {
	return &fakeMarkerStore{markers: make(map[domain.Effect]bool)}
}

func (s *fakeMarkerStore) ClaimEffect(_ context.Context, _ int64, effect domain.Effect) (bool, error) {
	if s.markers[effect] {
		return false, nil
	}
	s.markers[effect] = true
	return true, nil
}

func (s *fakeMarkerStore) EffectFired(_ context.Context, _ int64, effect domain.Effect) (bool, error) {
	return s.markers[effect], nil
}

type countingCollaborators struct {
	documents  int
	success    int
	failure    int
	commission int
	fail       error
}

func (c *countingCollaborators) Generate(context.Context, repository.ServiceRequest) error {
	c.documents++
	return c.fail
}

func (c *countingCollaborators) NotifySuccess(context.Context, repository.ServiceRequest) error {
	c.success++
	return c.fail
}

func (c *countingCollaborators) NotifyFailure(context.Context, repository.ServiceRequest, string) error {
	c.failure++
	return c.fail
}

func (c *countingCollaborators) Credit(context.Context, repository.ServiceRequest) error {
	c.commission++
	return c.fail
}

type allowAllPolicy struct{}

func (allowAllPolicy) Allows(string) bool { return true }

type denyAllPolicy struct{}

func (denyAllPolicy) Allows(string) bool { return false }

func newTestDispatcher(store MarkerStore, collab *countingCollaborators, policy OriginPolicy) *Dispatcher {
	return New(store, collab, collab, collab, policy, logger.New("development"))
}

func TestFireOnceInvokesCollaboratorExactlyOnce(t *testing.T) {
	store := newFakeMarkerStore()
	collab := &countingCollaborators{}
	d := newTestDispatcher(store, collab, allowAllPolicy{})
	req := repository.ServiceRequest{ID: 1, Reference: "REQ-000001"}

	for i := 0; i < 5; i++ {
		if err := d.FireOnce(context.Background(), req, domain.EffectGenerateDocument, Payload{}); err != nil {
			t.Fatalf("attempt %d: unexpected error: %v", i, err)
		}
	}

	if collab.documents != 1 {
		t.Fatalf("expected 1 generation, got %d", collab.documents)
	}
}

func TestFireOnceDoesNotClaimMarkerOnFailure(t *testing.T) {
	store := newFakeMarkerStore()
	collab := &countingCollaborators{fail: errors.New("smtp down")}
	d := newTestDispatcher(store, collab, allowAllPolicy{})
	req := repository.ServiceRequest{ID: 1, Reference: "REQ-000001"}

	if err := d.FireOnce(context.Background(), req, domain.EffectNotifySuccess, Payload{}); err == nil {
		t.Fatal("expected collaborator error")
	}
	if store.markers[domain.EffectNotifySuccess] {
		t.Fatal("marker must not be claimed after a failed effect")
	}

	// A retry after the collaborator recovers fires the effect.
	collab.fail = nil
	if err := d.FireOnce(context.Background(), req, domain.EffectNotifySuccess, Payload{}); err != nil {
		t.Fatalf("unexpected error on retry: %v", err)
	}
	if collab.success != 2 {
		t.Fatalf("expected retry invocation, got %d calls", collab.success)
	}
	if !store.markers[domain.EffectNotifySuccess] {
		t.Fatal("marker must be claimed after success")
	}
}

func TestFireOnceSuppressesCustomerNotificationsForUnknownOrigin(t *testing.T) {
	store := newFakeMarkerStore()
	collab := &countingCollaborators{}
	d := newTestDispatcher(store, collab, denyAllPolicy{})
	req := repository.ServiceRequest{ID: 1, Reference: "REQ-000001"}

	if err := d.FireOnce(context.Background(), req, domain.EffectNotifySuccess, Payload{Origin: "https://evil.example"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if collab.success != 0 {
		t.Fatal("customer notification must be suppressed for a disallowed origin")
	}
	if store.markers[domain.EffectNotifySuccess] {
		t.Fatal("suppression must not claim the marker")
	}

	// Non-customer-facing effects ignore the origin gate.
	if err := d.FireOnce(context.Background(), req, domain.EffectCreditCommission, Payload{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if collab.commission != 1 {
		t.Fatal("commission credit must not be origin-gated")
	}
}

func TestFireOnceToleratesLostMarkerRace(t *testing.T) {
	store := newFakeMarkerStore()
	collab := &countingCollaborators{}
	d := newTestDispatcher(store, collab, allowAllPolicy{})
	req := repository.ServiceRequest{ID: 1, Reference: "REQ-000001"}

	// Simulate a concurrent trigger claiming the marker between the fired
	// check and the claim.
	store.markers[domain.EffectCreditCommission] = false
	raceStore := &raceMarkerStore{fakeMarkerStore: store}
	d = newTestDispatcher(raceStore, collab, allowAllPolicy{})

	if err := d.FireOnce(context.Background(), req, domain.EffectCreditCommission, Payload{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if collab.commission != 1 {
		t.Fatalf("expected collaborator invocation, got %d", collab.commission)
	}
}

type raceMarkerStore struct {
	*fakeMarkerStore
}

func (s *raceMarkerStore) EffectFired(context.Context, int64, domain.Effect) (bool, error) {
	return false, nil
}

func (s *raceMarkerStore) ClaimEffect(context.Context, int64, domain.Effect) (bool, error) {
	return false, nil
}
