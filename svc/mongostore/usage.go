package mongostore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/talktime/pkg/quota"
	"github.com/dmitrymomot/talktime/pkg/usage"
)

type dailyUsageDoc struct {
	ID               string    `bson:"_id"`
	UserID           string    `bson:"user_id"`
	Day              string    `bson:"day"`
	CallSeconds      int64     `bson:"call_seconds"`
	PracticeSeconds  int64     `bson:"practice_seconds"`
	RoleplaySeconds  int64     `bson:"roleplay_seconds"`
	TotalSeconds     int64     `bson:"total_seconds"`
	ScenariosCreated int64     `bson:"scenarios_created"`
	UpdatedAt        time.Time `bson:"updated_at"`
}

func (d dailyUsageDoc) record() *usage.DailyRecord {
	return &usage.DailyRecord{
		UserID:           parseUUID(d.UserID),
		Day:              usage.Day(d.Day),
		CallSeconds:      d.CallSeconds,
		PracticeSeconds:  d.PracticeSeconds,
		RoleplaySeconds:  d.RoleplaySeconds,
		TotalSeconds:     d.TotalSeconds,
		ScenariosCreated: d.ScenariosCreated,
		UpdatedAt:        d.UpdatedAt,
	}
}

// Usage implements usage.Store.
type Usage struct {
	coll *mongo.Collection
}

// NewUsage returns a usage.Store over the daily usage collection.
func NewUsage(db *mongo.Database) *Usage {
	return &Usage{coll: db.Collection(DailyUsageCollection)}
}

// Get returns usage.ErrRecordNotFound for a day without consumption.
func (s *Usage) Get(ctx context.Context, userID uuid.UUID, day usage.Day) (*usage.DailyRecord, error) {
	var doc dailyUsageDoc
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: key(userID.String(), day.String())}}).Decode(&doc)
	if err != nil {
		if isNotFound(err) {
			return nil, usage.ErrRecordNotFound
		}
		return nil, err
	}
	return doc.record(), nil
}

// Increment applies one $inc upsert to the activity field and the total.
func (s *Usage) Increment(ctx context.Context, userID uuid.UUID, day usage.Day, activity quota.Activity, seconds int64) (*usage.DailyRecord, error) {
	return s.inc(ctx, userID, day, bson.D{
		{Key: usage.Column(activity), Value: seconds},
		{Key: "total_seconds", Value: seconds},
	})
}

// IncrementScenarios applies one $inc upsert and returns the new count.
func (s *Usage) IncrementScenarios(ctx context.Context, userID uuid.UUID, day usage.Day) (int64, error) {
	rec, err := s.inc(ctx, userID, day, bson.D{{Key: "scenarios_created", Value: int64(1)}})
	if err != nil {
		return 0, err
	}
	return rec.ScenariosCreated, nil
}

func (s *Usage) inc(ctx context.Context, userID uuid.UUID, day usage.Day, fields bson.D) (*usage.DailyRecord, error) {
	update := bson.D{
		{Key: "$inc", Value: fields},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: now()}}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "user_id", Value: userID.String()},
			{Key: "day", Value: day.String()},
		}},
	}

	var doc dailyUsageDoc
	err := s.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: key(userID.String(), day.String())}},
		update,
		upsertAfter(),
	).Decode(&doc)
	if err != nil {
		return nil, err
	}
	return doc.record(), nil
}
