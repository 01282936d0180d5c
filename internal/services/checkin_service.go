package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ticketing/internal/domain"
	"ticketing/internal/domain/models"
	"ticketing/internal/utils"
)

// CheckInStore must offer an atomic insert-if-absent so two concurrent scans
// of the same ticket cannot both record a check-in.
type CheckInStore interface {
	PutIfAbsent(ctx context.Context, rec models.CheckInRecord) (models.CheckInRecord, bool, error)
	Get(ctx context.Context, ticketNumber string) (models.CheckInRecord, bool, error)
	Delete(ctx context.Context, ticketNumber string) (bool, error)
	ListByEvent(ctx context.Context, eventID string) ([]models.CheckInRecord, error)
}

// BookingReader is the slice of the persistence adapter the ledger needs for
// ticket plausibility checks.
type BookingReader interface {
	GetByID(ctx context.Context, bookingID string) (models.Booking, error)
}

type CheckInService struct {
	Store     CheckInStore
	Bookings  BookingReader
	RequestID string
	Now       func() time.Time
}

func (s CheckInService) nowTime() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

type CheckInResult struct {
	Record           models.CheckInRecord `json:"record"`
	AlreadyCheckedIn bool                 `json:"already_checked_in"`
}

// CheckIn parses the scanned QR payload, validates the ticket against the
// booking stores, and records the check-in. A repeat scan is not an error:
// it returns the original record with AlreadyCheckedIn set.
func (s CheckInService) CheckIn(ctx context.Context, encodedPayload string) (CheckInResult, error) {
	payload, err := decodeTicketPayload(encodedPayload)
	if err != nil {
		return CheckInResult{}, err
	}
	if err := s.validateTicket(ctx, payload); err != nil {
		return CheckInResult{}, err
	}

	rec := models.CheckInRecord{
		TicketNumber: payload.TicketNumber,
		BookingID:    payload.BookingID,
		AttendeeName: payload.AttendeeName,
		EventID:      payload.EventID,
		CheckedInAt:  s.nowTime(),
	}
	stored, inserted, err := s.Store.PutIfAbsent(ctx, rec)
	if err != nil {
		return CheckInResult{}, err
	}
	if !inserted {
		utils.LogEvent(s.RequestID, "checkin", "duplicate_scan",
			fmt.Sprintf("ticket=%s original=%s", payload.TicketNumber, stored.CheckedInAt.Format("15:04:05")))
		return CheckInResult{Record: stored, AlreadyCheckedIn: true}, nil
	}

	utils.LogEvent(s.RequestID, "checkin", "scan",
		fmt.Sprintf("ticket=%s event_id=%s", payload.TicketNumber, payload.EventID))
	return CheckInResult{Record: stored}, nil
}

// ManualCheckIn records a check-in without a scan, for attendees whose
// ticket cannot be read at the gate. The synthesized ticket number embeds
// the booking id so it correlates with scanned tickets.
func (s CheckInService) ManualCheckIn(ctx context.Context, bookingID, attendeeName, eventID string) (CheckInResult, error) {
	bookingID = utils.TrimOrEmpty(bookingID)
	attendeeName = utils.NormalizeSpace(attendeeName)
	eventID = utils.TrimOrEmpty(eventID)
	if bookingID == "" || attendeeName == "" || eventID == "" {
		return CheckInResult{}, domain.ValidationError{Msg: "booking_id, attendee_name and event_id are required"}
	}

	if _, err := s.Bookings.GetByID(ctx, bookingID); err != nil {
		if domain.IsNotFound(err) {
			return CheckInResult{}, domain.NotFoundError{Resource: "ticket"}
		}
		return CheckInResult{}, err
	}

	rec := models.CheckInRecord{
		TicketNumber: fmt.Sprintf("MANUAL-%s-%s", bookingID, utils.Slug(attendeeName)),
		BookingID:    bookingID,
		AttendeeName: attendeeName,
		EventID:      eventID,
		CheckedInAt:  s.nowTime(),
	}
	stored, inserted, err := s.Store.PutIfAbsent(ctx, rec)
	if err != nil {
		return CheckInResult{}, err
	}
	if !inserted {
		return CheckInResult{Record: stored, AlreadyCheckedIn: true}, nil
	}

	utils.LogEvent(s.RequestID, "checkin", "manual",
		fmt.Sprintf("ticket=%s event_id=%s", rec.TicketNumber, eventID))
	return CheckInResult{Record: stored}, nil
}

// UndoCheckIn removes a recorded check-in, returning the ticket to the
// not-checked-in state.
func (s CheckInService) UndoCheckIn(ctx context.Context, ticketNumber string) error {
	ticketNumber = utils.TrimOrEmpty(ticketNumber)
	if ticketNumber == "" {
		return domain.ValidationError{Field: "ticket_number", Msg: "is required"}
	}
	removed, err := s.Store.Delete(ctx, ticketNumber)
	if err != nil {
		return err
	}
	if !removed {
		return domain.NotFoundError{Resource: "check-in record"}
	}
	utils.LogEvent(s.RequestID, "checkin", "undo", "ticket="+ticketNumber)
	return nil
}

// Stats aggregates one event's check-in counters plus the most recent
// records, newest first.
func (s CheckInService) Stats(ctx context.Context, eventID string, recentLimit int) (models.CheckInStats, error) {
	eventID = utils.TrimOrEmpty(eventID)
	if eventID == "" {
		return models.CheckInStats{}, domain.ValidationError{Field: "event_id", Msg: "is required"}
	}
	if recentLimit <= 0 {
		recentLimit = 10
	}

	records, err := s.Store.ListByEvent(ctx, eventID)
	if err != nil {
		return models.CheckInStats{}, err
	}

	total, err := s.totalTickets(ctx, eventID)
	if err != nil {
		return models.CheckInStats{}, err
	}

	stats := models.CheckInStats{
		EventID:   eventID,
		Total:     total,
		CheckedIn: len(records),
		Pending:   total - len(records),
	}
	if stats.Pending < 0 {
		stats.Pending = 0
	}
	if len(records) > recentLimit {
		records = records[:recentLimit]
	}
	stats.Recent = records
	return stats, nil
}

// EventLister is satisfied by the persistence adapter; it feeds the total
// ticket count into stats.
type EventLister interface {
	ListByEvent(ctx context.Context, eventID string) ([]models.Booking, error)
}

func (s CheckInService) totalTickets(ctx context.Context, eventID string) (int, error) {
	lister, ok := s.Bookings.(EventLister)
	if !ok {
		return 0, nil
	}
	bookings, err := lister.ListByEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, b := range bookings {
		if b.Status == models.BookingStatusCancelled {
			continue
		}
		total += b.Tickets.Total()
	}
	return total, nil
}

func (s CheckInService) validateTicket(ctx context.Context, p models.TicketPayload) error {
	booking, err := s.Bookings.GetByID(ctx, p.BookingID)
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.NotFoundError{Resource: "ticket"}
		}
		return err
	}
	if booking.Status == models.BookingStatusCancelled {
		return domain.NotFoundError{Resource: "ticket"}
	}

	eventDay, err := utils.ParseDate(booking.EventDate)
	if err != nil {
		return domain.ValidationError{Field: "event_date", Msg: "booking carries an unreadable event date", Err: err}
	}
	if !utils.SameDay(eventDay, s.nowTime()) {
		return domain.ValidationError{Field: "ticket", Msg: "ticket is not valid for today"}
	}
	return nil
}

// decodeTicketPayload accepts the scanner's base64-wrapped QR payload, or
// the raw JSON for scanners that strip the wrapping themselves.
func decodeTicketPayload(encoded string) (models.TicketPayload, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return models.TicketPayload{}, domain.ValidationError{Field: "payload", Msg: "is required"}
	}

	raw := []byte(encoded)
	if !strings.HasPrefix(encoded, "{") {
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return models.TicketPayload{}, domain.ValidationError{Field: "payload", Msg: "is not valid base64", Err: err}
		}
		raw = decoded
	}

	var p models.TicketPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return models.TicketPayload{}, domain.ValidationError{Field: "payload", Msg: "is not a ticket payload", Err: err}
	}
	if p.TicketNumber == "" || p.BookingID == "" || p.AttendeeName == "" || p.EventID == "" {
		return models.TicketPayload{}, domain.ValidationError{Field: "payload", Msg: "missing required ticket fields"}
	}
	return p, nil
}
