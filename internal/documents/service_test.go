package documents

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	paymentsrepo "servicecert_backend/internal/payments/repository"
	requestsrepo "servicecert_backend/internal/requests/repository"
	"servicecert_backend/platform/logger"
)

type fakeConverter struct {
	calls int
	html  []byte
}

func (c *fakeConverter) ConvertHTML(_ context.Context, indexHTML []byte) ([]byte, error) {
	c.calls++
	c.html = indexHTML
	return []byte("%PDF-1.7 fake"), nil
}

type fakeObjectStore struct {
	objects map[string][]byte
	puts    int
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (s *fakeObjectStore) Put(_ context.Context, key string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.objects[key] = data
	s.puts++
	return nil
}

func (s *fakeObjectStore) Open(_ context.Context, key string) (io.ReadCloser, int64, error) {
	data := s.objects[key]
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (s *fakeObjectStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := s.objects[key]
	return ok, nil
}

func (s *fakeObjectStore) EnsureBucket(_ context.Context) error { return nil }

type fakeLoader struct {
	req requestsrepo.Request
}

func (l *fakeLoader) GetByReference(_ context.Context, reference string) (requestsrepo.Request, error) {
	return l.req, nil
}

func testRequest() requestsrepo.Request {
	return requestsrepo.Request{
		ID:                 1,
		Reference:          "REQ-2026-0001",
		ServiceType:        "energy_label",
		ClientName:         "J. Doe",
		Street:             "Main Street",
		HouseNumber:        "12a",
		PostalCode:         "1234 AB",
		City:               "Amsterdam",
		PaymentStatus:      "paid",
		PaymentAmountMinor: 4999,
	}
}

func TestRenderCertificateContainsCoreFields(t *testing.T) {
	html, err := RenderCertificate(CertificateData{
		Reference:   "REQ-2026-0001",
		ServiceType: "energy_label",
		ClientName:  "J. Doe <script>",
		Amount:      "EUR 49.99",
	})
	if err != nil {
		t.Fatalf("RenderCertificate: %v", err)
	}

	out := string(html)
	for _, want := range []string{"REQ-2026-0001", "energy_label", "EUR 49.99"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered HTML missing %q", want)
		}
	}
	if strings.Contains(out, "<script>") {
		t.Error("client name not escaped")
	}
}

func TestGenerateOverwrites(t *testing.T) {
	conv := &fakeConverter{}
	store := newFakeObjectStore()
	loader := &fakeLoader{req: testRequest()}
	svc := New(conv, store, loader, logger.New("test"))

	req := paymentsrepo.ServiceRequest{ID: 1, Reference: "REQ-2026-0001"}
	if err := svc.Generate(context.Background(), req); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := svc.Generate(context.Background(), req); err != nil {
		t.Fatalf("Generate again: %v", err)
	}

	if store.puts != 2 {
		t.Errorf("puts = %d, want 2 (regenerate overwrites)", store.puts)
	}
	if len(store.objects) != 1 {
		t.Errorf("objects = %d, want 1 (same key both times)", len(store.objects))
	}
	if !strings.Contains(string(conv.html), "EUR 49.99") {
		t.Errorf("rendered amount missing from HTML")
	}
}

func TestEnsureSkipsExisting(t *testing.T) {
	conv := &fakeConverter{}
	store := newFakeObjectStore()
	svc := New(conv, store, &fakeLoader{}, logger.New("test"))

	req := testRequest()
	if err := svc.Ensure(context.Background(), req); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if err := svc.Ensure(context.Background(), req); err != nil {
		t.Fatalf("Ensure again: %v", err)
	}

	if conv.calls != 1 {
		t.Errorf("converter called %d times, want 1", conv.calls)
	}
}

func TestOpenStreamsStoredCertificate(t *testing.T) {
	store := newFakeObjectStore()
	store.objects[ObjectKey("REQ-2026-0001")] = []byte("%PDF-1.7 stored")
	svc := New(&fakeConverter{}, store, &fakeLoader{}, logger.New("test"))

	reader, size, err := svc.Open(context.Background(), "REQ-2026-0001")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reader.Close()

	data, _ := io.ReadAll(reader)
	if string(data) != "%PDF-1.7 stored" || size != int64(len(data)) {
		t.Errorf("got %q size %d", data, size)
	}
}
