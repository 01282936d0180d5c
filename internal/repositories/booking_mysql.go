package repositories

import (
	"context"
	"database/sql"
	"time"

	"ticketing/internal/domain"
	"ticketing/internal/domain/models"
)

// BookingMySQLRepo is the relational leg of the dual-write adapter.
type BookingMySQLRepo struct {
	DB *sql.DB
}

func (r BookingMySQLRepo) Name() string { return "mysql" }

func (r BookingMySQLRepo) Save(ctx context.Context, b models.Booking) error {
	const stmt = `
		INSERT INTO bookings
			(booking_id, user_id, event_id, event_title, event_date, event_time, event_venue,
			 standard_count, vip_count, attendees, total_amount, status,
			 payment_method, transaction_id, paid_at, qr_codes, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	_, err := r.DB.ExecContext(ctx, stmt,
		b.BookingID, b.UserID, b.EventID, b.EventTitle, b.EventDate, b.EventTime, b.EventVenue,
		b.Tickets.Standard, b.Tickets.VIP, encodeAttendees(b.Attendees), b.TotalAmount, b.Status,
		b.Payment.Method, b.Payment.TransactionID, b.Payment.PaidAt, encodeQRCodes(b.QRCodes), b.CreatedAt,
	)
	if err != nil {
		return domain.UpstreamError{System: "mysql", Msg: "booking write failed", Err: err}
	}
	return nil
}

const bookingColumns = `booking_id, user_id, event_id, event_title, event_date, event_time, event_venue,
		standard_count, vip_count, attendees, total_amount, status,
		payment_method, transaction_id, paid_at, COALESCE(qr_codes,''), created_at`

func (r BookingMySQLRepo) ListByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id=? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, domain.UpstreamError{System: "mysql", Msg: "booking list failed", Err: err}
	}
	defer rows.Close()
	return scanBookings(rows)
}

func (r BookingMySQLRepo) ListByEvent(ctx context.Context, eventID string) ([]models.Booking, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE event_id=? ORDER BY created_at DESC`, eventID)
	if err != nil {
		return nil, domain.UpstreamError{System: "mysql", Msg: "booking list failed", Err: err}
	}
	defer rows.Close()
	return scanBookings(rows)
}

func (r BookingMySQLRepo) ListAll(ctx context.Context) ([]models.Booking, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC`)
	if err != nil {
		return nil, domain.UpstreamError{System: "mysql", Msg: "booking list failed", Err: err}
	}
	defer rows.Close()
	return scanBookings(rows)
}

func (r BookingMySQLRepo) GetByID(ctx context.Context, bookingID string) (models.Booking, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE booking_id=? LIMIT 1`, bookingID)
	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return models.Booking{}, domain.NotFoundError{Resource: "booking"}
	}
	if err != nil {
		return models.Booking{}, domain.UpstreamError{System: "mysql", Msg: "booking read failed", Err: err}
	}
	return b, nil
}

func (r BookingMySQLRepo) UpdateStatus(ctx context.Context, bookingID, status string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE bookings SET status=? WHERE booking_id=?`, status, bookingID)
	if err != nil {
		return domain.UpstreamError{System: "mysql", Msg: "status update failed", Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundError{Resource: "booking"}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (models.Booking, error) {
	var b models.Booking
	var attendees, qrCodes string
	var paidAt sql.NullTime
	err := row.Scan(
		&b.BookingID, &b.UserID, &b.EventID, &b.EventTitle, &b.EventDate, &b.EventTime, &b.EventVenue,
		&b.Tickets.Standard, &b.Tickets.VIP, &attendees, &b.TotalAmount, &b.Status,
		&b.Payment.Method, &b.Payment.TransactionID, &paidAt, &qrCodes, &b.CreatedAt,
	)
	if err != nil {
		return models.Booking{}, err
	}
	if paidAt.Valid {
		b.Payment.PaidAt = paidAt.Time
	} else {
		b.Payment.PaidAt = time.Time{}
	}
	b.Attendees = parseAttendees(attendees)
	b.QRCodes = parseQRCodes(qrCodes)
	return b, nil
}

func scanBookings(rows *sql.Rows) ([]models.Booking, error) {
	var out []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, domain.UpstreamError{System: "mysql", Msg: "booking scan failed", Err: err}
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.UpstreamError{System: "mysql", Msg: "booking scan failed", Err: err}
	}
	return out, nil
}
