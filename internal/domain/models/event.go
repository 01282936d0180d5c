package models

import "time"

// Event is the organizer-owned source of the snapshot fields copied onto
// bookings at purchase time.
type Event struct {
	EventID       string    `json:"event_id"`
	OrganizerID   string    `json:"organizer_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Venue         string    `json:"venue"`
	StandardPrice float64   `json:"standard_price"`
	VIPPrice      float64   `json:"vip_price"`
	Capacity      int       `json:"capacity"`
	CreatedAt     time.Time `json:"created_at"`
}
