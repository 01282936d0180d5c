package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"ticketing/internal/domain"
	"ticketing/internal/domain/models"
)

func bookingRowColumns() []string {
	return []string{
		"booking_id", "user_id", "event_id", "event_title", "event_date", "event_time", "event_venue",
		"standard_count", "vip_count", "attendees", "total_amount", "status",
		"payment_method", "transaction_id", "paid_at", "qr_codes", "created_at",
	}
}

func TestBookingMySQLSave(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO bookings").
		WithArgs("BK-1", "u1", "EVT-1", "Go Conference", "2026-09-30", "19:00", "Main Hall",
			2, 0, "Ada|ada@example.com|||standard;;Grace|grace@example.com|||standard", 40.0, "confirmed",
			"card", "TXN-1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := BookingMySQLRepo{DB: db}
	booking := models.Booking{
		BookingID: "BK-1", UserID: "u1", EventID: "EVT-1",
		EventTitle: "Go Conference", EventDate: "2026-09-30", EventTime: "19:00", EventVenue: "Main Hall",
		Tickets: models.TicketCounts{Standard: 2},
		Attendees: []models.Attendee{
			{Name: "Ada", Email: "ada@example.com", TicketType: "standard"},
			{Name: "Grace", Email: "grace@example.com", TicketType: "standard"},
		},
		TotalAmount: 40, Status: models.BookingStatusConfirmed,
		Payment:   models.PaymentInfo{Method: "card", TransactionID: "TXN-1", PaidAt: time.Now().UTC()},
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.Save(context.Background(), booking); err != nil {
		t.Fatalf("save error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBookingMySQLGetByIDRoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE booking_id=").
		WithArgs("BK-1").
		WillReturnRows(sqlmock.NewRows(bookingRowColumns()).AddRow(
			"BK-1", "u1", "EVT-1", "Go Conference", "2026-09-30", "19:00", "Main Hall",
			1, 1, "Ada|ada@example.com|555|f|standard;;Grace|grace@example.com||f|vip", 85.0, "confirmed",
			"card", "TXN-1", created, "{\"ticket_number\":\"TKT-BK-1-001\"};;{\"ticket_number\":\"TKT-BK-1-002\"}", created,
		))

	repo := BookingMySQLRepo{DB: db}
	b, err := repo.GetByID(context.Background(), "BK-1")
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	if len(b.Attendees) != 2 {
		t.Fatalf("expected 2 attendees, got %d", len(b.Attendees))
	}
	if b.Attendees[0].Name != "Ada" || b.Attendees[0].Phone != "555" {
		t.Fatalf("attendee fields shifted: %+v", b.Attendees[0])
	}
	if b.Attendees[1].TicketType != "vip" {
		t.Fatalf("unexpected ticket type %q", b.Attendees[1].TicketType)
	}
	if len(b.QRCodes) != 2 {
		t.Fatalf("expected 2 qr payloads, got %d", len(b.QRCodes))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBookingMySQLGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE booking_id=").
		WithArgs("BK-404").
		WillReturnRows(sqlmock.NewRows(bookingRowColumns()))

	repo := BookingMySQLRepo{DB: db}
	if _, err := repo.GetByID(context.Background(), "BK-404"); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBookingMySQLUpdateStatusNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE bookings SET status=").
		WithArgs("cancelled", "BK-404").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := BookingMySQLRepo{DB: db}
	if err := repo.UpdateStatus(context.Background(), "BK-404", "cancelled"); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAttendeeCodecSanitizesDelimiters(t *testing.T) {
	in := []models.Attendee{{Name: "Eve|;;Mallory", Email: "eve@example.com", TicketType: "standard"}}
	out := parseAttendees(encodeAttendees(in))
	if len(out) != 1 {
		t.Fatalf("crafted name split the record: %+v", out)
	}
	if out[0].Email != "eve@example.com" {
		t.Fatalf("fields shifted: %+v", out[0])
	}
}

func TestQRCodeCodecRoundTripsDelimiterPayloads(t *testing.T) {
	// The attendee name inside the payload carries the record separator.
	in := []string{
		`{"ticket_number":"TKT-BK-1-001","attendee_name":"Eve;;Mallory"}`,
		`{"ticket_number":"TKT-BK-1-002","attendee_name":"Trent|Oscar"}`,
	}
	out := parseQRCodes(encodeQRCodes(in))
	if len(out) != 2 {
		t.Fatalf("crafted payload split the column: %v", out)
	}
	if out[0] != in[0] || out[1] != in[1] {
		t.Fatalf("payloads corrupted: %v", out)
	}
}

func TestQRCodeCodecReadsUnwrappedRows(t *testing.T) {
	// Rows written before payloads were base64-wrapped hold plain JSON.
	raw := `{"ticket_number":"TKT-BK-1-001"};;{"ticket_number":"TKT-BK-1-002"}`
	out := parseQRCodes(raw)
	if len(out) != 2 {
		t.Fatalf("expected 2 payloads, got %d", len(out))
	}
	if out[1] != `{"ticket_number":"TKT-BK-1-002"}` {
		t.Fatalf("unexpected payload %q", out[1])
	}
}
