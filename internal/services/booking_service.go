package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ticketing/internal/domain"
	"ticketing/internal/domain/models"
	"ticketing/internal/notify"
	"ticketing/internal/repositories"
	"ticketing/internal/utils"
)

// BookingPersistence is the slice of the dual-write adapter the orchestrator
// uses.
type BookingPersistence interface {
	Save(ctx context.Context, b models.Booking) (repositories.SaveReceipt, error)
	GetByID(ctx context.Context, bookingID string) (models.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]models.Booking, error)
	UpdateStatus(ctx context.Context, bookingID, status string) error
}

type EventReader interface {
	GetByID(ctx context.Context, eventID string) (models.Event, error)
}

// PointsLedger decouples the orchestrator from the loyalty service struct.
type PointsLedger interface {
	AwardPoints(ctx context.Context, userID, bookingID string, amount float64) (AwardResult, error)
	CancelBooking(ctx context.Context, bookingID, userID, reason string, totalAmount float64, eventAt time.Time) (CancelResult, error)
}

// BookingService sequences one purchase end to end: charge, build the
// canonical booking, produce ticket artifacts, dispatch notifications, and
// persist. Artifact production happens before persistence on purpose: once
// the charge went through and tickets exist, a storage outage must not cost
// the attendee their booking.
type BookingService struct {
	Events    EventReader
	Store     BookingPersistence
	Gateway   PaymentGateway
	Tickets   TicketService
	Discounts DiscountService
	Loyalty   PointsLedger
	Mailer    notify.EmailPublisher
	RequestID string
	Now       func() time.Time
}

func (s BookingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

type CreateBookingRequest struct {
	BookingID     string              `json:"booking_id"`
	UserID        string              `json:"-"`
	EventID       string              `json:"event_id" binding:"required"`
	Tickets       models.TicketCounts `json:"tickets"`
	Attendees     []models.Attendee   `json:"attendees" binding:"required"`
	PaymentMethod string              `json:"payment_method"`
	CouponCode    string              `json:"coupon_code"`
}

type CreateBookingResult struct {
	BookingID      string                   `json:"booking_id"`
	TransactionID  string                   `json:"transaction_id"`
	TotalAmount    float64                  `json:"total_amount"`
	Discount       float64                  `json:"discount,omitempty"`
	QRCodes        []string                 `json:"qr_codes"`
	PDF            []byte                   `json:"-"`
	NotifiedEmails []string                 `json:"notified_emails"`
	FailedEmails   []string                 `json:"failed_emails,omitempty"`
	Persisted      bool                     `json:"persisted"`
	Persistence    repositories.SaveReceipt `json:"persistence"`
}

func (s BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (CreateBookingResult, error) {
	if req.UserID == "" {
		return CreateBookingResult{}, domain.ValidationError{Field: "user_id", Msg: "is required"}
	}
	if req.EventID == "" {
		return CreateBookingResult{}, domain.ValidationError{Field: "event_id", Msg: "is required"}
	}
	if len(req.Attendees) == 0 {
		return CreateBookingResult{}, domain.ValidationError{Field: "attendees", Msg: "at least one attendee is required"}
	}
	if req.Tickets.Total() == 0 {
		req.Tickets = countTicketsFromAttendees(req.Attendees)
	}
	if req.Tickets.Total() != len(req.Attendees) {
		return CreateBookingResult{}, domain.ValidationError{Field: "tickets", Msg: "ticket counts must match the attendee list"}
	}

	event, err := s.Events.GetByID(ctx, req.EventID)
	if err != nil {
		return CreateBookingResult{}, err
	}

	gross := decimal.NewFromFloat(event.StandardPrice).Mul(decimal.NewFromInt(int64(req.Tickets.Standard))).
		Add(decimal.NewFromFloat(event.VIPPrice).Mul(decimal.NewFromInt(int64(req.Tickets.VIP))))
	total, _ := gross.Round(2).Float64()

	var discount float64
	if req.CouponCode != "" {
		res, err := s.Discounts.ValidateCoupon(ctx, req.CouponCode, total, req.Tickets)
		if err != nil {
			return CreateBookingResult{}, err
		}
		discount = res.DiscountAmount
		total = res.FinalAmount
	}

	payment, err := s.Gateway.Charge(ctx, PaymentRequest{Amount: total, Method: req.PaymentMethod, UserID: req.UserID})
	if err != nil {
		return CreateBookingResult{}, err
	}
	if payment.Outcome != PaymentSucceeded {
		return CreateBookingResult{}, domain.UpstreamError{System: "payment gateway", Msg: "payment " + payment.Outcome}
	}

	bookingID := utils.TrimOrEmpty(req.BookingID)
	if bookingID == "" {
		bookingID = "BK-" + strings.ToUpper(uuid.NewString()[:8])
	}

	booking := models.Booking{
		BookingID:   bookingID,
		UserID:      req.UserID,
		EventID:     event.EventID,
		EventTitle:  event.Title,
		EventDate:   event.Date,
		EventTime:   event.Time,
		EventVenue:  event.Venue,
		Tickets:     req.Tickets,
		Attendees:   req.Attendees,
		TotalAmount: total,
		Status:      models.BookingStatusConfirmed,
		Payment: models.PaymentInfo{
			Method:        payment.Method,
			TransactionID: payment.TransactionID,
			PaidAt:        payment.ProcessedAt,
		},
		CreatedAt: s.now(),
	}

	qrPayloads, err := s.Tickets.BuildQRPayloads(booking)
	if err != nil {
		return CreateBookingResult{}, err
	}
	booking.QRCodes = qrPayloads

	pdf, err := s.Tickets.GeneratePDF(booking, qrPayloads)
	if err != nil {
		return CreateBookingResult{}, err
	}

	notified, failed := s.sendConfirmations(ctx, booking)

	result := CreateBookingResult{
		BookingID:      bookingID,
		TransactionID:  payment.TransactionID,
		TotalAmount:    total,
		Discount:       discount,
		QRCodes:        qrPayloads,
		PDF:            pdf,
		NotifiedEmails: notified,
		FailedEmails:   failed,
	}

	// Best-effort from here: the attendee already holds paid-for tickets.
	receipt, err := s.Store.Save(ctx, booking)
	if err != nil {
		utils.LogEvent(s.RequestID, "booking", "persist_failed",
			fmt.Sprintf("booking_id=%s err=%v", bookingID, err))
	} else {
		result.Persisted = true
		result.Persistence = receipt
	}

	if req.CouponCode != "" {
		if err := s.Discounts.RecordUsage(ctx, req.CouponCode); err != nil {
			utils.LogEvent(s.RequestID, "booking", "coupon_usage_failed",
				fmt.Sprintf("code=%s err=%v", req.CouponCode, err))
		}
	}

	if s.Loyalty != nil {
		if _, err := s.Loyalty.AwardPoints(ctx, req.UserID, bookingID, total); err != nil {
			utils.LogEvent(s.RequestID, "booking", "award_failed",
				fmt.Sprintf("booking_id=%s err=%v", bookingID, err))
		}
	}

	utils.LogEvent(s.RequestID, "booking", "created",
		fmt.Sprintf("booking_id=%s txn=%s total=%.2f persisted=%t", bookingID, payment.TransactionID, total, result.Persisted))
	return result, nil
}

// sendConfirmations publishes one email job per unique attendee address.
// Failures are collected, never fatal.
func (s BookingService) sendConfirmations(ctx context.Context, b models.Booking) (notified, failed []string) {
	seen := map[string]bool{}
	for _, a := range b.Attendees {
		email := strings.ToLower(utils.TrimOrEmpty(a.Email))
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true

		job := notify.EmailJob{
			To:       email,
			Subject:  fmt.Sprintf("Your tickets for %s", b.EventTitle),
			Template: "booking_confirmation",
			Data: map[string]any{
				"booking_id":  b.BookingID,
				"event_title": b.EventTitle,
				"event_date":  b.EventDate,
				"event_time":  b.EventTime,
				"event_venue": b.EventVenue,
			},
		}
		if s.Mailer == nil {
			failed = append(failed, email)
			continue
		}
		if err := s.Mailer.PublishEmail(ctx, job); err != nil {
			utils.LogEvent(s.RequestID, "booking", "email_failed",
				fmt.Sprintf("booking_id=%s to=%s err=%v", b.BookingID, email, err))
			failed = append(failed, email)
			continue
		}
		notified = append(notified, email)
	}
	return notified, failed
}

type CancelBookingResult struct {
	Booking          models.Booking `json:"booking"`
	Refund           CancelResult   `json:"refund"`
	AlreadyCancelled bool           `json:"already_cancelled,omitempty"`
}

// CancelBooking flips the booking to cancelled and settles refund and point
// clawback through the loyalty ledger. Cancelling an already-cancelled
// booking is informational, not an error: the recorded cancellation is
// returned and the status flip is retried, so a booking whose stores
// rejected the first flip cannot stay confirmed with its refund on file.
func (s BookingService) CancelBooking(ctx context.Context, bookingID, userID, reason string) (CancelBookingResult, error) {
	booking, err := s.Store.GetByID(ctx, bookingID)
	if err != nil {
		return CancelBookingResult{}, err
	}
	if booking.UserID != userID {
		return CancelBookingResult{}, domain.NotFoundError{Resource: "booking"}
	}

	eventAt, err := utils.ParseEventDateTime(booking.EventDate, booking.EventTime)
	if err != nil {
		return CancelBookingResult{}, domain.InternalError{Msg: "booking carries an unreadable event date", Err: err}
	}

	refund, err := s.Loyalty.CancelBooking(ctx, bookingID, userID, reason, booking.TotalAmount, eventAt)
	if err != nil {
		return CancelBookingResult{}, err
	}

	if booking.Status != models.BookingStatusCancelled {
		if err := s.Store.UpdateStatus(ctx, bookingID, models.BookingStatusCancelled); err != nil {
			return CancelBookingResult{}, err
		}
	}
	booking.Status = models.BookingStatusCancelled

	utils.LogEvent(s.RequestID, "booking", "cancelled",
		fmt.Sprintf("booking_id=%s refund=%.2f repeat=%t", bookingID, refund.Cancellation.RefundAmount, refund.AlreadyCancelled))
	return CancelBookingResult{Booking: booking, Refund: refund, AlreadyCancelled: refund.AlreadyCancelled}, nil
}

// RebuildTicketPDF reproduces the purchase artifact for a re-download.
func (s BookingService) RebuildTicketPDF(ctx context.Context, bookingID, userID string) ([]byte, error) {
	booking, err := s.Store.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, domain.NotFoundError{Resource: "booking"}
	}

	qrPayloads := booking.QRCodes
	if len(qrPayloads) == 0 {
		qrPayloads, err = s.Tickets.BuildQRPayloads(booking)
		if err != nil {
			return nil, err
		}
	}
	return s.Tickets.GeneratePDF(booking, qrPayloads)
}

func countTicketsFromAttendees(attendees []models.Attendee) models.TicketCounts {
	var t models.TicketCounts
	for _, a := range attendees {
		if strings.EqualFold(a.TicketType, "vip") {
			t.VIP++
		} else {
			t.Standard++
		}
	}
	return t
}
