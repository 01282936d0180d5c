package repositories

import (
	"context"
	"testing"

	"ticketing/internal/domain"
	"ticketing/internal/domain/models"
)

// stubBackend is one storage leg with scriptable failures.
type stubBackend struct {
	name     string
	failing  bool
	bookings map[string]models.Booking
}

func newStubBackend(name string) *stubBackend {
	return &stubBackend{name: name, bookings: map[string]models.Booking{}}
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Save(ctx context.Context, b models.Booking) error {
	if s.failing {
		return domain.UpstreamError{System: s.name, Msg: "down"}
	}
	s.bookings[b.BookingID] = b
	return nil
}

func (s *stubBackend) ListByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	if s.failing {
		return nil, domain.UpstreamError{System: s.name, Msg: "down"}
	}
	var out []models.Booking
	for _, b := range s.bookings {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *stubBackend) ListByEvent(ctx context.Context, eventID string) ([]models.Booking, error) {
	if s.failing {
		return nil, domain.UpstreamError{System: s.name, Msg: "down"}
	}
	var out []models.Booking
	for _, b := range s.bookings {
		if b.EventID == eventID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *stubBackend) ListAll(ctx context.Context) ([]models.Booking, error) {
	if s.failing {
		return nil, domain.UpstreamError{System: s.name, Msg: "down"}
	}
	var out []models.Booking
	for _, b := range s.bookings {
		out = append(out, b)
	}
	return out, nil
}

func (s *stubBackend) GetByID(ctx context.Context, bookingID string) (models.Booking, error) {
	if s.failing {
		return models.Booking{}, domain.UpstreamError{System: s.name, Msg: "down"}
	}
	b, ok := s.bookings[bookingID]
	if !ok {
		return models.Booking{}, domain.NotFoundError{Resource: "booking"}
	}
	return b, nil
}

func (s *stubBackend) UpdateStatus(ctx context.Context, bookingID, status string) error {
	if s.failing {
		return domain.UpstreamError{System: s.name, Msg: "down"}
	}
	b, ok := s.bookings[bookingID]
	if !ok {
		return domain.NotFoundError{Resource: "booking"}
	}
	b.Status = status
	s.bookings[bookingID] = b
	return nil
}

func dualStore() (BookingStore, *stubBackend, *stubBackend) {
	rel := newStubBackend("mysql")
	doc := newStubBackend("mongodb")
	return BookingStore{Relational: rel, Document: doc}, rel, doc
}

func TestDualWriteBothStoresAccept(t *testing.T) {
	store, rel, doc := dualStore()

	receipt, err := store.Save(context.Background(), models.Booking{BookingID: "BK-1", UserID: "u1"})
	if err != nil {
		t.Fatalf("save error: %v", err)
	}
	if len(receipt.Stores) != 2 {
		t.Fatalf("expected both stores in receipt, got %v", receipt.Stores)
	}
	if _, ok := rel.bookings["BK-1"]; !ok {
		t.Fatal("relational copy missing")
	}
	if _, ok := doc.bookings["BK-1"]; !ok {
		t.Fatal("document copy missing")
	}
}

func TestDualWriteSurvivesOneOutage(t *testing.T) {
	store, rel, doc := dualStore()
	rel.failing = true

	receipt, err := store.Save(context.Background(), models.Booking{BookingID: "BK-1"})
	if err != nil {
		t.Fatalf("one healthy store must carry the write: %v", err)
	}
	if len(receipt.Stores) != 1 || receipt.Stores[0] != "mongodb" {
		t.Fatalf("unexpected receipt %v", receipt.Stores)
	}
	if _, ok := doc.bookings["BK-1"]; !ok {
		t.Fatal("document copy missing")
	}
}

func TestDualWriteFailsWhenBothReject(t *testing.T) {
	store, rel, doc := dualStore()
	rel.failing = true
	doc.failing = true

	_, err := store.Save(context.Background(), models.Booking{BookingID: "BK-1"})
	if !domain.IsUpstream(err) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestReadFallsBackToDocumentStore(t *testing.T) {
	store, rel, doc := dualStore()
	doc.bookings["BK-1"] = models.Booking{BookingID: "BK-1", UserID: "u1"}
	rel.failing = true

	out, err := store.ListByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("fallback read error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 booking from fallback, got %d", len(out))
	}
}

func TestGetByIDConsultsFallbackOnPrimaryMiss(t *testing.T) {
	store, _, doc := dualStore()
	// Diverged stores: the document copy exists, the relational one is gone.
	doc.bookings["BK-1"] = models.Booking{BookingID: "BK-1"}

	b, err := store.GetByID(context.Background(), "BK-1")
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	if b.BookingID != "BK-1" {
		t.Fatalf("unexpected booking %+v", b)
	}
}

func TestGetByIDNotFoundInBothStores(t *testing.T) {
	store, _, _ := dualStore()
	if _, err := store.GetByID(context.Background(), "BK-404"); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateStatusAcceptsSingleStoreSuccess(t *testing.T) {
	store, rel, doc := dualStore()
	rel.bookings["BK-1"] = models.Booking{BookingID: "BK-1"}
	doc.failing = true

	if err := store.UpdateStatus(context.Background(), "BK-1", models.BookingStatusCancelled); err != nil {
		t.Fatalf("update error: %v", err)
	}
	if rel.bookings["BK-1"].Status != models.BookingStatusCancelled {
		t.Fatal("relational status not updated")
	}
}
