package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/redis/go-redis/v9"

	"ticketing/internal/domain"
	"ticketing/internal/domain/models"
)

const (
	checkinTicketPrefix = "checkin:ticket:"
	checkinEventPrefix  = "checkin:event:"
)

// CheckInRedisStore keeps the check-in ledger in Redis. SETNX gives the
// atomic insert-if-absent that closes the check-then-act race a naive
// read-then-write ledger has under concurrent scans of the same ticket.
type CheckInRedisStore struct {
	Client *redis.Client
}

// PutIfAbsent records the check-in unless the ticket number is already
// present. It returns the record that is now authoritative and whether this
// call inserted it.
func (s CheckInRedisStore) PutIfAbsent(ctx context.Context, rec models.CheckInRecord) (models.CheckInRecord, bool, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return models.CheckInRecord{}, false, domain.InternalError{Msg: "check-in encode failed", Err: err}
	}

	inserted, err := s.Client.SetNX(ctx, checkinTicketPrefix+rec.TicketNumber, raw, 0).Result()
	if err != nil {
		return models.CheckInRecord{}, false, domain.UpstreamError{System: "redis", Msg: "check-in write failed", Err: err}
	}
	if !inserted {
		existing, ok, err := s.Get(ctx, rec.TicketNumber)
		if err != nil {
			return models.CheckInRecord{}, false, err
		}
		if !ok {
			// Undo raced us between SETNX and GET; treat as inserted-by-other.
			return rec, false, nil
		}
		return existing, false, nil
	}

	if err := s.Client.SAdd(ctx, checkinEventPrefix+rec.EventID, rec.TicketNumber).Err(); err != nil {
		return models.CheckInRecord{}, false, domain.UpstreamError{System: "redis", Msg: "event index write failed", Err: err}
	}
	return rec, true, nil
}

func (s CheckInRedisStore) Get(ctx context.Context, ticketNumber string) (models.CheckInRecord, bool, error) {
	raw, err := s.Client.Get(ctx, checkinTicketPrefix+ticketNumber).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.CheckInRecord{}, false, nil
	}
	if err != nil {
		return models.CheckInRecord{}, false, domain.UpstreamError{System: "redis", Msg: "check-in read failed", Err: err}
	}
	var rec models.CheckInRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.CheckInRecord{}, false, domain.InternalError{Msg: "check-in decode failed", Err: err}
	}
	return rec, true, nil
}

func (s CheckInRedisStore) Delete(ctx context.Context, ticketNumber string) (bool, error) {
	rec, ok, err := s.Get(ctx, ticketNumber)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	removed, err := s.Client.Del(ctx, checkinTicketPrefix+ticketNumber).Result()
	if err != nil {
		return false, domain.UpstreamError{System: "redis", Msg: "check-in delete failed", Err: err}
	}
	if err := s.Client.SRem(ctx, checkinEventPrefix+rec.EventID, ticketNumber).Err(); err != nil {
		return false, domain.UpstreamError{System: "redis", Msg: "event index delete failed", Err: err}
	}
	return removed > 0, nil
}

func (s CheckInRedisStore) ListByEvent(ctx context.Context, eventID string) ([]models.CheckInRecord, error) {
	tickets, err := s.Client.SMembers(ctx, checkinEventPrefix+eventID).Result()
	if err != nil {
		return nil, domain.UpstreamError{System: "redis", Msg: "event index read failed", Err: err}
	}
	if len(tickets) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(tickets))
	for _, t := range tickets {
		keys = append(keys, checkinTicketPrefix+t)
	}
	values, err := s.Client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, domain.UpstreamError{System: "redis", Msg: "check-in read failed", Err: err}
	}

	out := make([]models.CheckInRecord, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue // index member without a record; undo cleaned it up mid-listing
		}
		var rec models.CheckInRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, domain.InternalError{Msg: "check-in decode failed", Err: err}
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckedInAt.After(out[j].CheckedInAt) })
	return out, nil
}
