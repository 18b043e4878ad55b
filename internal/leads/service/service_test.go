package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"servicecert_backend/internal/audit"
	"servicecert_backend/internal/events"
	"servicecert_backend/internal/leads/repository"
	requestsrepo "servicecert_backend/internal/requests/repository"
	requestssvc "servicecert_backend/internal/requests/service"
	"servicecert_backend/platform/apperr"
	"servicecert_backend/platform/logger"
)

type fakeStore struct {
	leads  map[string]*repository.Lead
	nextID int64
	seq    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{leads: make(map[string]*repository.Lead)}
}

func (s *fakeStore) NextReference(_ context.Context) (string, error) {
	s.seq++
	return fmt.Sprintf("LD-2026-%04d", s.seq), nil
}

func (s *fakeStore) Create(_ context.Context, lead repository.Lead) (repository.Lead, error) {
	s.nextID++
	lead.ID = s.nextID
	s.leads[lead.SessionToken] = &lead
	return lead, nil
}

func (s *fakeStore) GetByToken(_ context.Context, token string) (repository.Lead, error) {
	lead, ok := s.leads[token]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return *lead, nil
}

func (s *fakeStore) GetByID(_ context.Context, id int64) (repository.Lead, error) {
	for _, lead := range s.leads {
		if lead.ID == id {
			return *lead, nil
		}
	}
	return repository.Lead{}, repository.ErrNotFound
}

func (s *fakeStore) UpdateStep(_ context.Context, token string, step int, p repository.StepParams) (repository.Lead, error) {
	lead, ok := s.leads[token]
	if !ok || lead.Status == repository.StatusConverted {
		return repository.Lead{}, repository.ErrNotFound
	}
	if p.Name != "" {
		lead.Name = p.Name
	}
	if p.Email != "" {
		lead.Email = p.Email
	}
	if p.Street != "" {
		lead.Street = p.Street
	}
	if lead.CompletedSteps < step {
		lead.CompletedSteps = step
	}
	if lead.Status == repository.StatusNew {
		lead.Status = repository.StatusInProgress
	}
	if p.CallbackRequested {
		lead.CallbackRequested = true
		lead.CallbackAt = p.CallbackAt
	}
	return *lead, nil
}

func (s *fakeStore) MarkCompleted(_ context.Context, id int64) error {
	for _, lead := range s.leads {
		if lead.ID == id && lead.Status != repository.StatusConverted {
			lead.Status = repository.StatusCompleted
		}
	}
	return nil
}

func (s *fakeStore) MarkConverted(_ context.Context, id, requestID int64) error {
	for _, lead := range s.leads {
		if lead.ID == id && lead.Status != repository.StatusConverted {
			lead.Status = repository.StatusConverted
			lead.ConvertedRequestID = &requestID
		}
	}
	return nil
}

type fakeRequests struct {
	created []requestsrepo.Request
	nextID  int64
}

func (r *fakeRequests) CreateDirect(_ context.Context, p requestssvc.CreateParams) (requestsrepo.Request, error) {
	r.nextID++
	req := requestsrepo.Request{
		ID:          r.nextID,
		Reference:   fmt.Sprintf("REQ-2026-%04d", r.nextID),
		ServiceType: p.ServiceType,
		ClientName:  p.ClientName,
		ClientEmail: p.ClientEmail,
		LeadID:      p.LeadID,
	}
	r.created = append(r.created, req)
	return req, nil
}

func (r *fakeRequests) GetByLeadID(_ context.Context, leadID int64) (requestsrepo.Request, bool, error) {
	for _, req := range r.created {
		if req.LeadID != nil && *req.LeadID == leadID {
			return req, true, nil
		}
	}
	return requestsrepo.Request{}, false, nil
}

// recordingBus captures published events synchronously.
type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) byName(name string) []events.Event {
	var out []events.Event
	for _, event := range b.published {
		if event.EventName() == name {
			out = append(out, event)
		}
	}
	return out
}

type fakeAudit struct {
	entries []audit.Entry
	matchID int64
}

func (a *fakeAudit) Record(_ context.Context, entry audit.Entry) error {
	a.entries = append(a.entries, entry)
	return nil
}

func (a *fakeAudit) FindLeadAssignment(_ context.Context, requestID int64, email string, window time.Duration) (int64, error) {
	return a.matchID, nil
}

type harness struct {
	svc      *Service
	store    *fakeStore
	requests *fakeRequests
	audit    *fakeAudit
	bus      *recordingBus
}

func newHarness() *harness {
	h := &harness{
		store:    newFakeStore(),
		requests: &fakeRequests{},
		audit:    &fakeAudit{},
		bus:      &recordingBus{},
	}
	h.svc = New(h.store, h.requests, h.audit, h.bus, logger.New("test"))
	return h
}

func TestCreateMintsReferenceAndToken(t *testing.T) {
	h := newHarness()

	result, err := h.svc.Create(context.Background(), CreateParams{Name: "J. Doe", Email: "j@example.com", ServiceType: "energy_label"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasPrefix(result.Lead.Reference, "LD-") {
		t.Errorf("reference = %q, want LD- prefix", result.Lead.Reference)
	}
	if !strings.HasPrefix(result.SessionToken, "ls_") {
		t.Errorf("token = %q, want ls_ prefix", result.SessionToken)
	}
	if result.Lead.Status != repository.StatusNew {
		t.Errorf("status = %q, want NEW", result.Lead.Status)
	}
}

func TestCreatePublishesLeadCreated(t *testing.T) {
	h := newHarness()

	result, err := h.svc.Create(context.Background(), CreateParams{Name: "J. Doe", Email: "j@example.com", Phone: "+31612345678"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	published := h.bus.byName(events.LeadCreated{}.EventName())
	if len(published) != 1 {
		t.Fatalf("LeadCreated published %d times, want 1", len(published))
	}
	created := published[0].(events.LeadCreated)
	if created.Reference != result.Lead.Reference {
		t.Errorf("event reference = %q, want %q", created.Reference, result.Lead.Reference)
	}
	if created.Name != "J. Doe" || created.Email != "j@example.com" || created.Phone == "" {
		t.Errorf("event missing contact fields: %+v", created)
	}
}

func TestCreateWithoutBus(t *testing.T) {
	h := newHarness()
	h.svc = New(h.store, h.requests, h.audit, nil, logger.New("test"))

	if _, err := h.svc.Create(context.Background(), CreateParams{Name: "J", Email: "j@example.com"}); err != nil {
		t.Fatalf("Create without bus: %v", err)
	}
}

func TestUpdateStepAdvancesMonotonically(t *testing.T) {
	h := newHarness()
	result, _ := h.svc.Create(context.Background(), CreateParams{Name: "J", Email: "j@example.com"})
	token := result.SessionToken

	lead, err := h.svc.UpdateStep(context.Background(), token, 3, StepParams{Street: "Main Street"})
	if err != nil {
		t.Fatalf("UpdateStep: %v", err)
	}
	if lead.CompletedSteps != 3 {
		t.Errorf("completedSteps = %d, want 3", lead.CompletedSteps)
	}
	if lead.Status != repository.StatusInProgress {
		t.Errorf("status = %q, want IN_PROGRESS", lead.Status)
	}

	// Replaying an earlier step never regresses the counter.
	lead, err = h.svc.UpdateStep(context.Background(), token, 2, StepParams{})
	if err != nil {
		t.Fatalf("UpdateStep replay: %v", err)
	}
	if lead.CompletedSteps != 3 {
		t.Errorf("completedSteps after replay = %d, want 3", lead.CompletedSteps)
	}
}

func TestUpdateStepUnknownToken(t *testing.T) {
	h := newHarness()

	_, err := h.svc.UpdateStep(context.Background(), "ls_unknown", 2, StepParams{})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestUpdateStepPublishesCallbackRequest(t *testing.T) {
	h := newHarness()
	result, _ := h.svc.Create(context.Background(), CreateParams{Name: "J", Email: "j@example.com"})

	at := time.Now().Add(2 * time.Hour)
	_, err := h.svc.UpdateStep(context.Background(), result.SessionToken, 2, StepParams{CallbackRequested: true, CallbackAt: &at})
	if err != nil {
		t.Fatalf("UpdateStep: %v", err)
	}

	published := h.bus.byName(events.LeadCallbackRequested{}.EventName())
	if len(published) != 1 {
		t.Fatalf("LeadCallbackRequested published %d times, want 1", len(published))
	}
	callback := published[0].(events.LeadCallbackRequested)
	parsed, err := time.Parse(time.RFC3339, callback.CallbackAt)
	if err != nil {
		t.Fatalf("callback time %q not RFC3339: %v", callback.CallbackAt, err)
	}
	if !parsed.Equal(at.Truncate(time.Second)) {
		t.Errorf("callback time = %v, want %v", parsed, at)
	}
}

func TestFinalizeConvertsOnce(t *testing.T) {
	h := newHarness()
	result, _ := h.svc.Create(context.Background(), CreateParams{Name: "J. Doe", Email: "j@example.com", ServiceType: "energy_label"})
	token := result.SessionToken

	first, err := h.svc.Finalize(context.Background(), token)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !strings.HasPrefix(first.Reference, "REQ-") {
		t.Errorf("request reference = %q, want REQ- prefix", first.Reference)
	}

	second, err := h.svc.Finalize(context.Background(), token)
	if err != nil {
		t.Fatalf("Finalize again: %v", err)
	}
	if second.Reference != first.Reference {
		t.Errorf("second finalize returned %q, want %q", second.Reference, first.Reference)
	}
	if len(h.requests.created) != 1 {
		t.Fatalf("created %d requests across two finalizes, want 1", len(h.requests.created))
	}

	lead, _ := h.store.GetByToken(context.Background(), token)
	if lead.Status != repository.StatusConverted {
		t.Errorf("lead status = %q, want CONVERTED", lead.Status)
	}
	if lead.ConvertedRequestID == nil || *lead.ConvertedRequestID != first.ID {
		t.Errorf("convertedRequestId = %v, want %d", lead.ConvertedRequestID, first.ID)
	}

	converted := h.bus.byName(events.LeadConverted{}.EventName())
	if len(converted) != 1 {
		t.Fatalf("LeadConverted published %d times, want 1", len(converted))
	}
	if event := converted[0].(events.LeadConverted); event.RequestReference != first.Reference {
		t.Errorf("event request reference = %q, want %q", event.RequestReference, first.Reference)
	}
}

func TestFinalizeRecoversFromPartialFailure(t *testing.T) {
	h := newHarness()
	result, _ := h.svc.Create(context.Background(), CreateParams{Name: "J", Email: "j@example.com"})
	token := result.SessionToken

	// Simulate a prior finalize that created the request but crashed before
	// marking the lead converted.
	leadID := result.Lead.ID
	orphan, _ := h.requests.CreateDirect(context.Background(), requestssvc.CreateParams{ClientName: "J", ClientEmail: "j@example.com", LeadID: &leadID})

	req, err := h.svc.Finalize(context.Background(), token)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if req.ID != orphan.ID {
		t.Errorf("finalize created a duplicate request %d, want reuse of %d", req.ID, orphan.ID)
	}
	if len(h.requests.created) != 1 {
		t.Errorf("requests created = %d, want 1", len(h.requests.created))
	}
}

func TestFinalizeRequiresContactDetails(t *testing.T) {
	h := newHarness()
	result, _ := h.svc.Create(context.Background(), CreateParams{Name: "J"})

	_, err := h.svc.Finalize(context.Background(), result.SessionToken)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestFinalizeRecordsAssignment(t *testing.T) {
	h := newHarness()
	result, _ := h.svc.Create(context.Background(), CreateParams{Name: "J", Email: "j@example.com"})

	req, err := h.svc.Finalize(context.Background(), result.SessionToken)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	var assigned *audit.Entry
	for i := range h.audit.entries {
		if h.audit.entries[i].Action == "lead.assigned" {
			assigned = &h.audit.entries[i]
		}
	}
	if assigned == nil {
		t.Fatal("no lead.assigned audit entry")
	}
	if assigned.Metadata["requestId"] != req.ID {
		t.Errorf("assignment metadata = %v, want requestId %d", assigned.Metadata, req.ID)
	}
}

func TestMatchLead(t *testing.T) {
	h := newHarness()

	if _, found, _ := h.svc.MatchLead(context.Background(), 7, "j@example.com"); found {
		t.Error("matched with empty activity log")
	}

	h.audit.matchID = 42
	leadID, found, err := h.svc.MatchLead(context.Background(), 7, "j@example.com")
	if err != nil || !found || leadID != 42 {
		t.Errorf("MatchLead = (%d, %v, %v), want (42, true, nil)", leadID, found, err)
	}
}
