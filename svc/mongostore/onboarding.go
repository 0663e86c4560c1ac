package mongostore

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/talktime/pkg/onboarding"
)

type onboardingDoc struct {
	UserID             string `bson:"_id"`
	CumulativeSeconds  int64  `bson:"cumulative_seconds"`
	AllowanceExhausted bool   `bson:"allowance_exhausted"`
}

// Onboarding implements onboarding.Store.
type Onboarding struct {
	coll *mongo.Collection
}

// NewOnboarding returns an onboarding.Store over the onboarding collection.
func NewOnboarding(db *mongo.Database) *Onboarding {
	return &Onboarding{coll: db.Collection(OnboardingCollection)}
}

// Get returns onboarding.ErrUsageNotFound for a user who never spoke.
func (s *Onboarding) Get(ctx context.Context, userID uuid.UUID) (*onboarding.Usage, error) {
	var doc onboardingDoc
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: userID.String()}}).Decode(&doc)
	if err != nil {
		if isNotFound(err) {
			return nil, onboarding.ErrUsageNotFound
		}
		return nil, err
	}
	return &onboarding.Usage{
		UserID:             userID,
		CumulativeSeconds:  doc.CumulativeSeconds,
		AllowanceExhausted: doc.AllowanceExhausted,
	}, nil
}

// Add runs as one pipeline update: the second stage sees the new total, and
// the exhausted flag never flips back.
func (s *Onboarding) Add(ctx context.Context, userID uuid.UUID, seconds, allowance int64) (*onboarding.Usage, error) {
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "cumulative_seconds", Value: bson.D{{Key: "$add", Value: bson.A{
				bson.D{{Key: "$ifNull", Value: bson.A{"$cumulative_seconds", int64(0)}}},
				seconds,
			}}}},
			{Key: "updated_at", Value: now()},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "allowance_exhausted", Value: bson.D{{Key: "$or", Value: bson.A{
				bson.D{{Key: "$ifNull", Value: bson.A{"$allowance_exhausted", false}}},
				bson.D{{Key: "$gte", Value: bson.A{"$cumulative_seconds", allowance}}},
			}}}},
		}}},
	}

	var doc onboardingDoc
	err := s.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: userID.String()}}, update, upsertAfter()).Decode(&doc)
	if err != nil {
		return nil, err
	}
	return &onboarding.Usage{
		UserID:             userID,
		CumulativeSeconds:  doc.CumulativeSeconds,
		AllowanceExhausted: doc.AllowanceExhausted,
	}, nil
}

// Profiles implements onboarding.ProfileStore.
type Profiles struct {
	coll *mongo.Collection
}

// NewProfiles returns an onboarding.ProfileStore over the profiles collection.
func NewProfiles(db *mongo.Database) *Profiles {
	return &Profiles{coll: db.Collection(ProfilesCollection)}
}

// OnboardingUsed reports false for a user without a profile document.
func (s *Profiles) OnboardingUsed(ctx context.Context, userID uuid.UUID) (bool, error) {
	var doc struct {
		OnboardingUsed bool `bson:"onboarding_used"`
	}
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: userID.String()}}).Decode(&doc)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return doc.OnboardingUsed, nil
}

// MarkOnboardingUsed upserts the profile flag.
func (s *Profiles) MarkOnboardingUsed(ctx context.Context, userID uuid.UUID) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: userID.String()}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "onboarding_used", Value: true},
			{Key: "updated_at", Value: now()},
		}}},
		options.UpdateOne().SetUpsert(true),
	)
	return err
}
