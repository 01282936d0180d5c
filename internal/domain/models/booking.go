package models

import "time"

const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusPending   = "pending"
	BookingStatusCancelled = "cancelled"
)

// Attendee is embedded in a booking. Immutable after purchase except through
// an explicit BookingModification record.
type Attendee struct {
	Name       string `json:"name" bson:"name"`
	Email      string `json:"email" bson:"email"`
	Phone      string `json:"phone" bson:"phone"`
	Gender     string `json:"gender" bson:"gender"`
	TicketType string `json:"ticket_type" bson:"ticket_type"`
}

type TicketCounts struct {
	Standard int `json:"standard" bson:"standard"`
	VIP      int `json:"vip" bson:"vip"`
}

func (t TicketCounts) Total() int { return t.Standard + t.VIP }

// PaymentInfo is the payment snapshot captured at purchase time.
type PaymentInfo struct {
	Method        string    `json:"method" bson:"method"`
	TransactionID string    `json:"transaction_id" bson:"transaction_id"`
	PaidAt        time.Time `json:"paid_at" bson:"paid_at"`
}

// Booking is the canonical booking shape shared by both storage backends.
// Event fields are denormalized at purchase time so tickets keep rendering
// correctly even if the organizer later edits the event.
type Booking struct {
	BookingID   string       `json:"booking_id" bson:"_id"`
	UserID      string       `json:"user_id" bson:"user_id"`
	EventID     string       `json:"event_id" bson:"event_id"`
	EventTitle  string       `json:"event_title" bson:"event_title"`
	EventDate   string       `json:"event_date" bson:"event_date"`
	EventTime   string       `json:"event_time" bson:"event_time"`
	EventVenue  string       `json:"event_venue" bson:"event_venue"`
	Tickets     TicketCounts `json:"tickets" bson:"tickets"`
	Attendees   []Attendee   `json:"attendees" bson:"attendees"`
	TotalAmount float64      `json:"total_amount" bson:"total_amount"`
	Status      string       `json:"status" bson:"status"`
	Payment     PaymentInfo  `json:"payment" bson:"payment"`
	QRCodes     []string     `json:"qr_codes,omitempty" bson:"qr_codes,omitempty"`
	CreatedAt   time.Time    `json:"created_at" bson:"created_at"`
}

// BookingCancellation records the single active cancellation of a booking.
type BookingCancellation struct {
	BookingID       string    `json:"booking_id"`
	UserID          string    `json:"user_id"`
	Reason          string    `json:"reason"`
	RefundAmount    float64   `json:"refund_amount"`
	ProcessingFee   float64   `json:"processing_fee"`
	RefundProcessed bool      `json:"refund_processed"`
	CancelledAt     time.Time `json:"cancelled_at"`
}

// BookingModification is an append-only change record. The booking itself is
// updated by the caller; this is the audit trail plus any extra charge.
type BookingModification struct {
	ID             int64     `json:"id"`
	BookingID      string    `json:"booking_id"`
	Field          string    `json:"field"`
	OldValue       string    `json:"old_value"`
	NewValue       string    `json:"new_value"`
	AdditionalCost float64   `json:"additional_cost"`
	ModifiedAt     time.Time `json:"modified_at"`
}
