package services

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"ticketing/internal/domain"
	"ticketing/internal/domain/models"
	"ticketing/internal/utils"
)

type BookingLister interface {
	ListAll(ctx context.Context) ([]models.Booking, error)
	ListByEvent(ctx context.Context, eventID string) ([]models.Booking, error)
}

// AnalyticsService derives organizer-facing aggregates from confirmed
// bookings. Cancelled bookings count toward nothing.
type AnalyticsService struct {
	Bookings BookingLister
	CheckIns CheckInStore
}

// EventRows aggregates every event with at least one booking, sorted by
// revenue descending.
func (s AnalyticsService) EventRows(ctx context.Context) ([]utils.EventAnalyticsRow, error) {
	bookings, err := s.Bookings.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	type acc struct {
		row     utils.EventAnalyticsRow
		revenue decimal.Decimal
	}
	byEvent := map[string]*acc{}
	order := []string{}
	for _, b := range bookings {
		if b.Status == models.BookingStatusCancelled {
			continue
		}
		a, ok := byEvent[b.EventID]
		if !ok {
			a = &acc{row: utils.EventAnalyticsRow{EventID: b.EventID, EventTitle: b.EventTitle}}
			byEvent[b.EventID] = a
			order = append(order, b.EventID)
		}
		a.row.Bookings++
		a.row.Standard += b.Tickets.Standard
		a.row.VIP += b.Tickets.VIP
		a.revenue = a.revenue.Add(decimal.NewFromFloat(b.TotalAmount))
	}

	rows := make([]utils.EventAnalyticsRow, 0, len(order))
	for _, id := range order {
		a := byEvent[id]
		a.row.Revenue, _ = a.revenue.Round(2).Float64()
		rows = append(rows, a.row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Revenue > rows[j].Revenue })
	return rows, nil
}

type EventSummary struct {
	utils.EventAnalyticsRow
	CheckedIn   int     `json:"checked_in"`
	CheckInRate float64 `json:"check_in_rate"`
}

// EventSummary adds check-in counters to one event's booking aggregates.
// The rate is checked-in over total tickets sold, zero when nothing sold.
func (s AnalyticsService) EventSummary(ctx context.Context, eventID string) (EventSummary, error) {
	eventID = utils.TrimOrEmpty(eventID)
	if eventID == "" {
		return EventSummary{}, domain.ValidationError{Field: "event_id", Msg: "is required"}
	}

	bookings, err := s.Bookings.ListByEvent(ctx, eventID)
	if err != nil {
		return EventSummary{}, err
	}

	summary := EventSummary{EventAnalyticsRow: utils.EventAnalyticsRow{EventID: eventID}}
	revenue := decimal.Zero
	for _, b := range bookings {
		if b.Status == models.BookingStatusCancelled {
			continue
		}
		if summary.EventTitle == "" {
			summary.EventTitle = b.EventTitle
		}
		summary.Bookings++
		summary.Standard += b.Tickets.Standard
		summary.VIP += b.Tickets.VIP
		revenue = revenue.Add(decimal.NewFromFloat(b.TotalAmount))
	}
	summary.Revenue, _ = revenue.Round(2).Float64()

	if s.CheckIns != nil {
		records, err := s.CheckIns.ListByEvent(ctx, eventID)
		if err != nil {
			return EventSummary{}, err
		}
		summary.CheckedIn = len(records)
	}

	if sold := summary.Standard + summary.VIP; sold > 0 {
		rate := decimal.NewFromInt(int64(summary.CheckedIn)).Div(decimal.NewFromInt(int64(sold)))
		summary.CheckInRate, _ = rate.Round(4).Float64()
	}
	return summary, nil
}

// AttendeesForExport returns one event's non-cancelled bookings for the CSV
// download.
func (s AnalyticsService) AttendeesForExport(ctx context.Context, eventID string) ([]models.Booking, error) {
	eventID = utils.TrimOrEmpty(eventID)
	if eventID == "" {
		return nil, domain.ValidationError{Field: "event_id", Msg: "is required"}
	}
	bookings, err := s.Bookings.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	kept := bookings[:0]
	for _, b := range bookings {
		if b.Status == models.BookingStatusCancelled {
			continue
		}
		kept = append(kept, b)
	}
	return kept, nil
}
