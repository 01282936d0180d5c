package repositories

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ticketing/internal/domain"
	"ticketing/internal/domain/models"
)

// BookingMongoRepo is the document leg of the dual-write adapter. Bookings
// are stored whole under their booking id, so no delimited re-parsing is
// needed on this side.
type BookingMongoRepo struct {
	Collection *mongo.Collection
}

func NewBookingMongoRepo(client *mongo.Client, database string) BookingMongoRepo {
	if client == nil {
		return BookingMongoRepo{}
	}
	return BookingMongoRepo{Collection: client.Database(database).Collection("bookings")}
}

func (r BookingMongoRepo) Name() string { return "mongodb" }

func (r BookingMongoRepo) Save(ctx context.Context, b models.Booking) error {
	if r.Collection == nil {
		return domain.UpstreamError{System: "mongodb", Msg: "document store disabled"}
	}
	// Replace-with-upsert keeps a retried write from failing on _id.
	opts := options.Replace().SetUpsert(true)
	_, err := r.Collection.ReplaceOne(ctx, bson.M{"_id": b.BookingID}, b, opts)
	if err != nil {
		return domain.UpstreamError{System: "mongodb", Msg: "booking write failed", Err: err}
	}
	return nil
}

func (r BookingMongoRepo) ListByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	return r.find(ctx, bson.M{"user_id": userID})
}

func (r BookingMongoRepo) ListByEvent(ctx context.Context, eventID string) ([]models.Booking, error) {
	return r.find(ctx, bson.M{"event_id": eventID})
}

func (r BookingMongoRepo) ListAll(ctx context.Context) ([]models.Booking, error) {
	return r.find(ctx, bson.M{})
}

func (r BookingMongoRepo) GetByID(ctx context.Context, bookingID string) (models.Booking, error) {
	if r.Collection == nil {
		return models.Booking{}, domain.UpstreamError{System: "mongodb", Msg: "document store disabled"}
	}
	var b models.Booking
	err := r.Collection.FindOne(ctx, bson.M{"_id": bookingID}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Booking{}, domain.NotFoundError{Resource: "booking"}
	}
	if err != nil {
		return models.Booking{}, domain.UpstreamError{System: "mongodb", Msg: "booking read failed", Err: err}
	}
	return b, nil
}

func (r BookingMongoRepo) UpdateStatus(ctx context.Context, bookingID, status string) error {
	if r.Collection == nil {
		return domain.UpstreamError{System: "mongodb", Msg: "document store disabled"}
	}
	res, err := r.Collection.UpdateOne(ctx, bson.M{"_id": bookingID}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return domain.UpstreamError{System: "mongodb", Msg: "status update failed", Err: err}
	}
	if res.MatchedCount == 0 {
		return domain.NotFoundError{Resource: "booking"}
	}
	return nil
}

func (r BookingMongoRepo) find(ctx context.Context, filter bson.M) ([]models.Booking, error) {
	if r.Collection == nil {
		return nil, domain.UpstreamError{System: "mongodb", Msg: "document store disabled"}
	}
	opts := options.Find().SetSort(bson.M{"created_at": -1})
	cur, err := r.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, domain.UpstreamError{System: "mongodb", Msg: "booking list failed", Err: err}
	}
	defer cur.Close(ctx)

	var out []models.Booking
	if err := cur.All(ctx, &out); err != nil {
		return nil, domain.UpstreamError{System: "mongodb", Msg: "booking decode failed", Err: err}
	}
	return out, nil
}
