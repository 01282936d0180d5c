package repositories

import (
	"context"
	"fmt"
	"time"

	"ticketing/internal/domain"
	"ticketing/internal/domain/models"
	"ticketing/internal/utils"
)

// BookingBackend is one leg of the dual storage. Both the MySQL and the
// Mongo repos satisfy it.
type BookingBackend interface {
	Name() string
	Save(ctx context.Context, b models.Booking) error
	ListByUser(ctx context.Context, userID string) ([]models.Booking, error)
	ListByEvent(ctx context.Context, eventID string) ([]models.Booking, error)
	ListAll(ctx context.Context) ([]models.Booking, error)
	GetByID(ctx context.Context, bookingID string) (models.Booking, error)
	UpdateStatus(ctx context.Context, bookingID, status string) error
}

// SaveReceipt reports which stores accepted a write. The stores can diverge
// under partial failure; callers get at-least-once persistence, not
// exactly-once, and an external reconciler can diff on the receipt.
type SaveReceipt struct {
	Stores []string `json:"stores"`
}

// BookingStore is the dual-write persistence adapter. Writes go to the
// relational store first, then to the document store regardless of the first
// outcome; one durable copy is enough for overall success. Reads prefer the
// relational store and fall back to the document store.
type BookingStore struct {
	Relational BookingBackend
	Document   BookingBackend
	// Timeout bounds each individual backend call.
	Timeout   time.Duration
	RequestID string
}

func (s BookingStore) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return 5 * time.Second
}

func (s BookingStore) call(ctx context.Context, fn func(context.Context) error) error {
	cctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()
	return fn(cctx)
}

func (s BookingStore) Save(ctx context.Context, b models.Booking) (SaveReceipt, error) {
	var receipt SaveReceipt

	relErr := s.call(ctx, func(c context.Context) error { return s.Relational.Save(c, b) })
	if relErr != nil {
		utils.LogEvent(s.RequestID, "persistence", "relational_write_failed",
			fmt.Sprintf("booking_id=%s err=%v", b.BookingID, relErr))
	} else {
		receipt.Stores = append(receipt.Stores, s.Relational.Name())
	}

	// The document write runs even after a relational success to keep the
	// second durable copy.
	docErr := s.call(ctx, func(c context.Context) error { return s.Document.Save(c, b) })
	if docErr != nil {
		utils.LogEvent(s.RequestID, "persistence", "document_write_failed",
			fmt.Sprintf("booking_id=%s err=%v", b.BookingID, docErr))
	} else {
		receipt.Stores = append(receipt.Stores, s.Document.Name())
	}

	if len(receipt.Stores) == 0 {
		return receipt, domain.UpstreamError{
			System: "booking stores",
			Msg:    fmt.Sprintf("both stores rejected the write (relational: %v; document: %v)", relErr, docErr),
		}
	}
	return receipt, nil
}

func (s BookingStore) ListByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	var out []models.Booking
	err := s.call(ctx, func(c context.Context) error {
		var e error
		out, e = s.Relational.ListByUser(c, userID)
		return e
	})
	if err == nil {
		return out, nil
	}
	utils.LogEvent(s.RequestID, "persistence", "relational_read_failed",
		fmt.Sprintf("user_id=%s err=%v", userID, err))

	err = s.call(ctx, func(c context.Context) error {
		var e error
		out, e = s.Document.ListByUser(c, userID)
		return e
	})
	if err != nil {
		return nil, domain.UpstreamError{System: "booking stores", Msg: "both stores unreachable", Err: err}
	}
	return out, nil
}

func (s BookingStore) ListByEvent(ctx context.Context, eventID string) ([]models.Booking, error) {
	var out []models.Booking
	err := s.call(ctx, func(c context.Context) error {
		var e error
		out, e = s.Relational.ListByEvent(c, eventID)
		return e
	})
	if err == nil {
		return out, nil
	}
	utils.LogEvent(s.RequestID, "persistence", "relational_read_failed",
		fmt.Sprintf("event_id=%s err=%v", eventID, err))

	err = s.call(ctx, func(c context.Context) error {
		var e error
		out, e = s.Document.ListByEvent(c, eventID)
		return e
	})
	if err != nil {
		return nil, domain.UpstreamError{System: "booking stores", Msg: "both stores unreachable", Err: err}
	}
	return out, nil
}

func (s BookingStore) ListAll(ctx context.Context) ([]models.Booking, error) {
	var out []models.Booking
	err := s.call(ctx, func(c context.Context) error {
		var e error
		out, e = s.Relational.ListAll(c)
		return e
	})
	if err == nil {
		return out, nil
	}
	utils.LogEvent(s.RequestID, "persistence", "relational_read_failed", fmt.Sprintf("err=%v", err))

	err = s.call(ctx, func(c context.Context) error {
		var e error
		out, e = s.Document.ListAll(c)
		return e
	})
	if err != nil {
		return nil, domain.UpstreamError{System: "booking stores", Msg: "both stores unreachable", Err: err}
	}
	return out, nil
}

func (s BookingStore) GetByID(ctx context.Context, bookingID string) (models.Booking, error) {
	var out models.Booking
	err := s.call(ctx, func(c context.Context) error {
		var e error
		out, e = s.Relational.GetByID(c, bookingID)
		return e
	})
	if err == nil || domain.IsNotFound(err) {
		// A definitive miss on the primary still consults the fallback:
		// the stores may have diverged under a past partial failure.
		if err == nil {
			return out, nil
		}
	} else {
		utils.LogEvent(s.RequestID, "persistence", "relational_read_failed",
			fmt.Sprintf("booking_id=%s err=%v", bookingID, err))
	}

	docErr := s.call(ctx, func(c context.Context) error {
		var e error
		out, e = s.Document.GetByID(c, bookingID)
		return e
	})
	if docErr == nil {
		return out, nil
	}
	if domain.IsNotFound(docErr) {
		return models.Booking{}, domain.NotFoundError{Resource: "booking"}
	}
	if err != nil && domain.IsNotFound(err) {
		return models.Booking{}, domain.NotFoundError{Resource: "booking"}
	}
	return models.Booking{}, domain.UpstreamError{System: "booking stores", Msg: "both stores unreachable", Err: docErr}
}

// UpdateStatus dual-writes the status change with the same at-least-once
// contract as Save.
func (s BookingStore) UpdateStatus(ctx context.Context, bookingID, status string) error {
	relErr := s.call(ctx, func(c context.Context) error { return s.Relational.UpdateStatus(c, bookingID, status) })
	if relErr != nil && !domain.IsNotFound(relErr) {
		utils.LogEvent(s.RequestID, "persistence", "relational_status_failed",
			fmt.Sprintf("booking_id=%s err=%v", bookingID, relErr))
	}

	docErr := s.call(ctx, func(c context.Context) error { return s.Document.UpdateStatus(c, bookingID, status) })
	if docErr != nil && !domain.IsNotFound(docErr) {
		utils.LogEvent(s.RequestID, "persistence", "document_status_failed",
			fmt.Sprintf("booking_id=%s err=%v", bookingID, docErr))
	}

	if relErr == nil || docErr == nil {
		return nil
	}
	if domain.IsNotFound(relErr) && domain.IsNotFound(docErr) {
		return domain.NotFoundError{Resource: "booking"}
	}
	return domain.UpstreamError{
		System: "booking stores",
		Msg:    fmt.Sprintf("status update failed in both stores (relational: %v; document: %v)", relErr, docErr),
	}
}
