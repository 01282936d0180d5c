package utils

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"ticketing/internal/domain/models"
)

func TestWriteAttendeesCSVQuoting(t *testing.T) {
	bookings := []models.Booking{{
		BookingID: "BK-1",
		Status:    "confirmed",
		CreatedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		Attendees: []models.Attendee{
			{Name: `Smith, John "JJ"`, Email: "jj@example.com", TicketType: "vip"},
		},
	}}

	var buf bytes.Buffer
	if err := WriteAttendeesCSV(&buf, bookings); err != nil {
		t.Fatalf("csv write error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `"Smith, John ""JJ"""`) {
		t.Fatalf("comma/quote field not quoted: %s", out)
	}

	// The output must round-trip through a conforming reader.
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("csv re-read error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header plus 1 row, got %d", len(records))
	}
	if records[1][1] != `Smith, John "JJ"` {
		t.Fatalf("name did not round-trip: %q", records[1][1])
	}
	if records[1][7] != "2026-08-01 10:00:00" {
		t.Fatalf("unexpected timestamp %q", records[1][7])
	}
}

func TestWriteAnalyticsCSV(t *testing.T) {
	rows := []EventAnalyticsRow{
		{EventID: "EVT-1", EventTitle: "Go, Conference", Bookings: 3, Standard: 4, VIP: 2, Revenue: 340.5},
	}

	var buf bytes.Buffer
	if err := WriteAnalyticsCSV(&buf, rows); err != nil {
		t.Fatalf("csv write error: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("csv re-read error: %v", err)
	}
	if records[1][1] != "Go, Conference" {
		t.Fatalf("title did not round-trip: %q", records[1][1])
	}
	if records[1][5] != "340.50" {
		t.Fatalf("unexpected revenue %q", records[1][5])
	}
}
