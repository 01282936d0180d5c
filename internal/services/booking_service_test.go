package services

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"ticketing/internal/domain"
	"ticketing/internal/domain/models"
	"ticketing/internal/notify"
	"ticketing/internal/repositories"
)

type fakeEventReader struct {
	events map[string]models.Event
}

func (f fakeEventReader) GetByID(ctx context.Context, eventID string) (models.Event, error) {
	e, ok := f.events[eventID]
	if !ok {
		return models.Event{}, domain.NotFoundError{Resource: "event"}
	}
	return e, nil
}

type fakeBookingPersistence struct {
	saved     map[string]models.Booking
	statuses  map[string]string
	saveErr   error
	statusErr error
}

func newFakeBookingPersistence() *fakeBookingPersistence {
	return &fakeBookingPersistence{saved: map[string]models.Booking{}, statuses: map[string]string{}}
}

func (f *fakeBookingPersistence) Save(ctx context.Context, b models.Booking) (repositories.SaveReceipt, error) {
	if f.saveErr != nil {
		return repositories.SaveReceipt{}, f.saveErr
	}
	f.saved[b.BookingID] = b
	return repositories.SaveReceipt{Stores: []string{"mysql", "mongodb"}}, nil
}

func (f *fakeBookingPersistence) GetByID(ctx context.Context, bookingID string) (models.Booking, error) {
	b, ok := f.saved[bookingID]
	if !ok {
		return models.Booking{}, domain.NotFoundError{Resource: "booking"}
	}
	if status, ok := f.statuses[bookingID]; ok {
		b.Status = status
	}
	return b, nil
}

func (f *fakeBookingPersistence) ListByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range f.saved {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBookingPersistence) UpdateStatus(ctx context.Context, bookingID, status string) error {
	if f.statusErr != nil {
		return f.statusErr
	}
	if _, ok := f.saved[bookingID]; !ok {
		return domain.NotFoundError{Resource: "booking"}
	}
	f.statuses[bookingID] = status
	return nil
}

type scriptedGateway struct {
	outcome string
}

func (g scriptedGateway) Charge(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	if g.outcome != PaymentSucceeded {
		return PaymentResult{Outcome: g.outcome, Method: req.Method, ProcessedAt: time.Now().UTC()}, nil
	}
	return PaymentResult{
		Outcome:       PaymentSucceeded,
		TransactionID: "TXN-test",
		Method:        req.Method,
		ProcessedAt:   time.Now().UTC(),
	}, nil
}

type fakeMailer struct {
	sent     []notify.EmailJob
	failFor  map[string]bool
	disabled bool
}

func (m *fakeMailer) PublishEmail(ctx context.Context, job notify.EmailJob) error {
	if m.disabled || m.failFor[job.To] {
		return domain.UpstreamError{System: "rabbitmq", Msg: "publish failed"}
	}
	m.sent = append(m.sent, job)
	return nil
}

func bookingFixture(t *testing.T) (BookingService, *fakeBookingPersistence, *fakeMailer, *fakeLoyaltyStore) {
	t.Helper()
	now := time.Now().UTC()
	store := newFakeBookingPersistence()
	mailer := &fakeMailer{failFor: map[string]bool{}}
	loyaltyStore := newFakeLoyaltyStore("u1")

	svc := BookingService{
		Events: fakeEventReader{events: map[string]models.Event{
			"EVT-1": {
				EventID: "EVT-1", Title: "Go Conference",
				Date: now.Add(30 * 24 * time.Hour).Format("2006-01-02"), Time: "19:00",
				Venue: "Main Hall", StandardPrice: 25, VIPPrice: 60,
			},
		}},
		Store:     store,
		Gateway:   scriptedGateway{outcome: PaymentSucceeded},
		Tickets:   TicketService{},
		Discounts: DiscountService{Coupons: testCoupons(now), Now: func() time.Time { return now }},
		Loyalty:   LoyaltyService{Store: loyaltyStore},
		Mailer:    mailer,
		Now:       func() time.Time { return now },
	}
	return svc, store, mailer, loyaltyStore
}

func standardRequest() CreateBookingRequest {
	return CreateBookingRequest{
		UserID:  "u1",
		EventID: "EVT-1",
		Tickets: models.TicketCounts{Standard: 2},
		Attendees: []models.Attendee{
			{Name: "Ada Lovelace", Email: "ada@example.com", TicketType: "standard"},
			{Name: "Grace Hopper", Email: "grace@example.com", TicketType: "standard"},
		},
		PaymentMethod: "card",
		CouponCode:    "FIRST10",
	}
}

func TestCreateBookingEndToEnd(t *testing.T) {
	svc, store, mailer, loyaltyStore := bookingFixture(t)

	res, err := svc.CreateBooking(context.Background(), standardRequest())
	if err != nil {
		t.Fatalf("create booking error: %v", err)
	}

	// 2 standard at $25 minus the $10 fixed coupon.
	if res.TotalAmount != 40 {
		t.Fatalf("expected total 40, got %.2f", res.TotalAmount)
	}
	if res.Discount != 10 {
		t.Fatalf("expected discount 10, got %.2f", res.Discount)
	}
	if res.TransactionID != "TXN-test" {
		t.Fatalf("unexpected transaction id %q", res.TransactionID)
	}
	if len(res.QRCodes) != 2 {
		t.Fatalf("expected 2 qr payloads, got %d", len(res.QRCodes))
	}
	if !strings.Contains(res.QRCodes[0], "TKT-"+res.BookingID+"-001") {
		t.Fatalf("qr payload missing ticket number: %s", res.QRCodes[0])
	}
	if !bytes.HasPrefix(res.PDF, []byte("%PDF")) {
		t.Fatal("pdf output missing header")
	}
	if !res.Persisted || len(res.Persistence.Stores) != 2 {
		t.Fatalf("unexpected persistence receipt: %+v", res.Persistence)
	}
	if len(res.NotifiedEmails) != 2 || len(res.FailedEmails) != 0 {
		t.Fatalf("unexpected email outcome: notified=%v failed=%v", res.NotifiedEmails, res.FailedEmails)
	}

	saved, ok := store.saved[res.BookingID]
	if !ok {
		t.Fatal("booking not persisted")
	}
	if saved.Status != models.BookingStatusConfirmed {
		t.Fatalf("unexpected status %q", saved.Status)
	}
	if saved.EventTitle != "Go Conference" {
		t.Fatal("event snapshot missing")
	}

	// Loyalty accrual: floor(40) at bronze.
	if loyaltyStore.account.Balance != 40 {
		t.Fatalf("expected 40 points, got %d", loyaltyStore.account.Balance)
	}
	if len(mailer.sent) != 2 {
		t.Fatalf("expected 2 emails, got %d", len(mailer.sent))
	}
}

func TestCreateBookingDeclinedPayment(t *testing.T) {
	svc, store, _, _ := bookingFixture(t)
	svc.Gateway = scriptedGateway{outcome: PaymentDeclined}

	_, err := svc.CreateBooking(context.Background(), standardRequest())
	if !domain.IsUpstream(err) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if len(store.saved) != 0 {
		t.Fatal("declined payment must not persist a booking")
	}
}

func TestCreateBookingPartialEmailFailure(t *testing.T) {
	svc, _, mailer, _ := bookingFixture(t)
	mailer.failFor["grace@example.com"] = true

	res, err := svc.CreateBooking(context.Background(), standardRequest())
	if err != nil {
		t.Fatalf("create booking error: %v", err)
	}
	if len(res.NotifiedEmails) != 1 || len(res.FailedEmails) != 1 {
		t.Fatalf("unexpected email outcome: notified=%v failed=%v", res.NotifiedEmails, res.FailedEmails)
	}
	if res.FailedEmails[0] != "grace@example.com" {
		t.Fatalf("wrong failed address %q", res.FailedEmails[0])
	}
}

func TestCreateBookingSurvivesStorageOutage(t *testing.T) {
	svc, store, _, _ := bookingFixture(t)
	store.saveErr = domain.UpstreamError{System: "booking stores", Msg: "both stores rejected the write"}

	res, err := svc.CreateBooking(context.Background(), standardRequest())
	if err != nil {
		t.Fatalf("storage outage must not fail the booking: %v", err)
	}
	if res.Persisted {
		t.Fatal("persisted flag set despite outage")
	}
	if res.TransactionID == "" || len(res.QRCodes) != 2 {
		t.Fatal("ticket artifacts missing")
	}
}

func TestCreateBookingDeduplicatesEmails(t *testing.T) {
	svc, _, mailer, _ := bookingFixture(t)

	req := standardRequest()
	req.CouponCode = ""
	req.Attendees[1].Email = "ada@example.com"

	res, err := svc.CreateBooking(context.Background(), req)
	if err != nil {
		t.Fatalf("create booking error: %v", err)
	}
	if len(res.NotifiedEmails) != 1 || len(mailer.sent) != 1 {
		t.Fatalf("duplicate address not collapsed: %v", res.NotifiedEmails)
	}
}

func TestCreateBookingValidation(t *testing.T) {
	svc, _, _, _ := bookingFixture(t)

	req := standardRequest()
	req.Tickets = models.TicketCounts{Standard: 3}
	if _, err := svc.CreateBooking(context.Background(), req); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for count mismatch, got %v", err)
	}

	req = standardRequest()
	req.Attendees = nil
	req.Tickets = models.TicketCounts{}
	if _, err := svc.CreateBooking(context.Background(), req); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for empty attendees, got %v", err)
	}

	req = standardRequest()
	req.EventID = "EVT-404"
	if _, err := svc.CreateBooking(context.Background(), req); !domain.IsNotFound(err) {
		t.Fatalf("expected not found for unknown event, got %v", err)
	}
}

func TestCancelBookingOrchestration(t *testing.T) {
	svc, store, _, loyaltyStore := bookingFixture(t)

	created, err := svc.CreateBooking(context.Background(), standardRequest())
	if err != nil {
		t.Fatalf("create booking error: %v", err)
	}

	res, err := svc.CancelBooking(context.Background(), created.BookingID, "u1", "plans changed")
	if err != nil {
		t.Fatalf("cancel error: %v", err)
	}
	if res.Booking.Status != models.BookingStatusCancelled {
		t.Fatalf("unexpected status %q", res.Booking.Status)
	}
	// Event is a month out: full refund, no fee.
	if res.Refund.Cancellation.RefundAmount != 40 {
		t.Fatalf("expected refund 40, got %.2f", res.Refund.Cancellation.RefundAmount)
	}
	if res.Refund.PointsDeducted != 40 {
		t.Fatalf("expected 40 points clawed back, got %d", res.Refund.PointsDeducted)
	}
	if loyaltyStore.account.Balance != 0 {
		t.Fatalf("expected zero balance, got %d", loyaltyStore.account.Balance)
	}
	if store.statuses[created.BookingID] != models.BookingStatusCancelled {
		t.Fatal("status not updated in store")
	}

	// A second cancel is informational: the recorded cancellation comes back
	// and no further points move.
	again, err := svc.CancelBooking(context.Background(), created.BookingID, "u1", "")
	if err != nil {
		t.Fatalf("repeat cancel error: %v", err)
	}
	if !again.AlreadyCancelled {
		t.Fatal("repeat cancel not flagged")
	}
	if again.Refund.PointsDeducted != 0 {
		t.Fatalf("repeat cancel moved %d points", again.Refund.PointsDeducted)
	}
	if again.Refund.Cancellation.RefundAmount != 40 {
		t.Fatalf("repeat cancel lost the refund record: %+v", again.Refund.Cancellation)
	}
	if loyaltyStore.account.Balance != 0 {
		t.Fatalf("balance moved on repeat cancel: %d", loyaltyStore.account.Balance)
	}

	// A stranger sees not found.
	if _, err := svc.CancelBooking(context.Background(), created.BookingID, "u2", ""); !domain.IsNotFound(err) {
		t.Fatalf("expected not found for wrong owner, got %v", err)
	}
}

func TestCancelBookingRetriesStatusFlipAfterOutage(t *testing.T) {
	svc, store, _, loyaltyStore := bookingFixture(t)

	created, err := svc.CreateBooking(context.Background(), standardRequest())
	if err != nil {
		t.Fatalf("create booking error: %v", err)
	}

	// First attempt records the cancellation and claws back points, then
	// both stores reject the status flip.
	store.statusErr = domain.UpstreamError{System: "booking stores", Msg: "both stores rejected the write"}
	if _, err := svc.CancelBooking(context.Background(), created.BookingID, "u1", "plans changed"); !domain.IsUpstream(err) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if store.statuses[created.BookingID] == models.BookingStatusCancelled {
		t.Fatal("status flipped despite outage")
	}

	// The retry must still flip the status instead of refusing the booking
	// as already cancelled.
	store.statusErr = nil
	res, err := svc.CancelBooking(context.Background(), created.BookingID, "u1", "")
	if err != nil {
		t.Fatalf("retry error: %v", err)
	}
	if !res.AlreadyCancelled {
		t.Fatal("retry not flagged as repeat")
	}
	if store.statuses[created.BookingID] != models.BookingStatusCancelled {
		t.Fatal("retry did not flip the status")
	}
	if res.Refund.Cancellation.RefundAmount != 40 {
		t.Fatalf("retry lost the refund record: %+v", res.Refund.Cancellation)
	}
	// Points were clawed back exactly once across both attempts.
	if loyaltyStore.account.Balance != 0 {
		t.Fatalf("unexpected balance %d", loyaltyStore.account.Balance)
	}
}
