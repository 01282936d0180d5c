package repositories

import (
	"context"
	"database/sql"

	intdb "ticketing/internal/db"
	"ticketing/internal/domain"
	"ticketing/internal/domain/models"
)

// EventRepo is MySQL-only; events are not part of the dual-write contract.
type EventRepo struct {
	DB *sql.DB
}

const eventColumns = `event_id, organizer_id, title, COALESCE(description,''), event_date, event_time, venue,
	standard_price, vip_price, capacity, created_at`

func (r EventRepo) Create(ctx context.Context, e models.Event) error {
	const stmt = `
		INSERT INTO events
			(event_id, organizer_id, title, description, event_date, event_time, venue,
			 standard_price, vip_price, capacity, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`
	_, err := r.DB.ExecContext(ctx, stmt,
		e.EventID, e.OrganizerID, e.Title, intdb.NullIfEmpty(e.Description), e.Date, e.Time, e.Venue,
		e.StandardPrice, e.VIPPrice, e.Capacity, e.CreatedAt,
	)
	if err != nil {
		return domain.UpstreamError{System: "mysql", Msg: "event write failed", Err: err}
	}
	return nil
}

func (r EventRepo) Update(ctx context.Context, e models.Event) error {
	const stmt = `
		UPDATE events SET title=?, description=?, event_date=?, event_time=?, venue=?,
			standard_price=?, vip_price=?, capacity=?
		WHERE event_id=? AND organizer_id=?`
	res, err := r.DB.ExecContext(ctx, stmt,
		e.Title, e.Description, e.Date, e.Time, e.Venue,
		e.StandardPrice, e.VIPPrice, e.Capacity, e.EventID, e.OrganizerID,
	)
	if err != nil {
		return domain.UpstreamError{System: "mysql", Msg: "event update failed", Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundError{Resource: "event"}
	}
	return nil
}

func (r EventRepo) GetByID(ctx context.Context, eventID string) (models.Event, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE event_id=? LIMIT 1`, eventID)
	var e models.Event
	err := row.Scan(&e.EventID, &e.OrganizerID, &e.Title, &e.Description, &e.Date, &e.Time, &e.Venue,
		&e.StandardPrice, &e.VIPPrice, &e.Capacity, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return models.Event{}, domain.NotFoundError{Resource: "event"}
	}
	if err != nil {
		return models.Event{}, domain.UpstreamError{System: "mysql", Msg: "event read failed", Err: err}
	}
	return e, nil
}

func (r EventRepo) List(ctx context.Context) ([]models.Event, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY event_date, event_time`)
	if err != nil {
		return nil, domain.UpstreamError{System: "mysql", Msg: "event list failed", Err: err}
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.EventID, &e.OrganizerID, &e.Title, &e.Description, &e.Date, &e.Time, &e.Venue,
			&e.StandardPrice, &e.VIPPrice, &e.Capacity, &e.CreatedAt); err != nil {
			return nil, domain.UpstreamError{System: "mysql", Msg: "event scan failed", Err: err}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.UpstreamError{System: "mysql", Msg: "event scan failed", Err: err}
	}
	return out, nil
}

func (r EventRepo) ListByOrganizer(ctx context.Context, organizerID string) ([]models.Event, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE organizer_id=? ORDER BY event_date, event_time`, organizerID)
	if err != nil {
		return nil, domain.UpstreamError{System: "mysql", Msg: "event list failed", Err: err}
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.EventID, &e.OrganizerID, &e.Title, &e.Description, &e.Date, &e.Time, &e.Venue,
			&e.StandardPrice, &e.VIPPrice, &e.Capacity, &e.CreatedAt); err != nil {
			return nil, domain.UpstreamError{System: "mysql", Msg: "event scan failed", Err: err}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.UpstreamError{System: "mysql", Msg: "event scan failed", Err: err}
	}
	return out, nil
}
