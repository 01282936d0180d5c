package models

import "time"

// TicketPayload is the JSON object embedded in a ticket QR code. It is the
// sole input the check-in parser accepts.
type TicketPayload struct {
	TicketNumber string `json:"ticket_number"`
	BookingID    string `json:"booking_id"`
	AttendeeName string `json:"attendee_name"`
	EventID      string `json:"event_id"`
	EventTitle   string `json:"event_title"`
	EventDate    string `json:"event_date"`
	EventTime    string `json:"event_time"`
	TicketType   string `json:"ticket_type"`
}

// CheckInRecord marks one ticket as redeemed at the venue. At most one record
// exists per ticket number; duplicates are rejected, not overwritten.
type CheckInRecord struct {
	TicketNumber string    `json:"ticket_number"`
	BookingID    string    `json:"booking_id"`
	AttendeeName string    `json:"attendee_name"`
	EventID      string    `json:"event_id"`
	CheckedInAt  time.Time `json:"checked_in_at"`
}

type CheckInStats struct {
	EventID   string          `json:"event_id"`
	Total     int             `json:"total"`
	CheckedIn int             `json:"checked_in"`
	Pending   int             `json:"pending"`
	Recent    []CheckInRecord `json:"recent"`
}
