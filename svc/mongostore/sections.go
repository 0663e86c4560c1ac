package mongostore

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/talktime/pkg/usage"
)

type sectionDoc struct {
	Sessions int64 `bson:"sessions"`
}

// Sections implements section.Store.
type Sections struct {
	coll *mongo.Collection
}

// NewSections returns a section.Store over the section counters collection.
func NewSections(db *mongo.Database) *Sections {
	return &Sections{coll: db.Collection(SectionsCollection)}
}

// Count returns zero when no counter document exists.
func (s *Sections) Count(ctx context.Context, userID uuid.UUID, section string, day usage.Day) (int64, error) {
	var doc sectionDoc
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: key(userID.String(), section, day.String())}}).Decode(&doc)
	if err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return doc.Sessions, nil
}

// Increment upserts the counter and returns the new value.
func (s *Sections) Increment(ctx context.Context, userID uuid.UUID, section string, day usage.Day) (int64, error) {
	update := bson.D{
		{Key: "$inc", Value: bson.D{{Key: "sessions", Value: int64(1)}}},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: now()}}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "user_id", Value: userID.String()},
			{Key: "section", Value: section},
			{Key: "day", Value: day.String()},
		}},
	}

	var doc sectionDoc
	err := s.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: key(userID.String(), section, day.String())}},
		update,
		upsertAfter(),
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Sessions, nil
}
