package utils

import (
	"encoding/csv"
	"fmt"
	"io"

	"ticketing/internal/domain/models"
)

// WriteAttendeesCSV renders the organizer attendee export. encoding/csv
// quotes fields containing commas or quotes per RFC 4180.
func WriteAttendeesCSV(w io.Writer, bookings []models.Booking) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"booking_id", "attendee_name", "email", "phone", "gender", "ticket_type", "status", "booked_at"}); err != nil {
		return err
	}
	for _, b := range bookings {
		for _, a := range b.Attendees {
			row := []string{
				b.BookingID,
				a.Name,
				a.Email,
				a.Phone,
				a.Gender,
				a.TicketType,
				b.Status,
				b.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteAnalyticsCSV renders per-event aggregate rows.
func WriteAnalyticsCSV(w io.Writer, rows []EventAnalyticsRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"event_id", "event_title", "bookings", "tickets_standard", "tickets_vip", "revenue"}); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.EventID,
			r.EventTitle,
			fmt.Sprintf("%d", r.Bookings),
			fmt.Sprintf("%d", r.Standard),
			fmt.Sprintf("%d", r.VIP),
			fmt.Sprintf("%.2f", r.Revenue),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// EventAnalyticsRow is the flat shape used by the CSV and JSON analytics
// endpoints.
type EventAnalyticsRow struct {
	EventID    string  `json:"event_id"`
	EventTitle string  `json:"event_title"`
	Bookings   int     `json:"bookings"`
	Standard   int     `json:"tickets_standard"`
	VIP        int     `json:"tickets_vip"`
	Revenue    float64 `json:"revenue"`
}
