// Package mongostore implements the quota stores on MongoDB. Counters live in
// documents keyed by a deterministic _id and are updated with a single
// upserting $inc, so concurrent writers never lose an increment.
package mongostore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection names.
const (
	SubscriptionsCollection = "subscriptions"
	DailyUsageCollection    = "daily_usage"
	OnboardingCollection    = "onboarding_usage"
	ProfilesCollection      = "user_profiles"
	SectionsCollection      = "roleplay_section_usage"
)

const oneTrialPerUser = "subscriptions_one_trial_per_user"

// EnsureIndexes creates the indexes the stores rely on. Safe to call on
// every start.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(SubscriptionsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().
				SetName(oneTrialPerUser).
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "is_free_trial", Value: true}}),
		},
	})
	return err
}

func key(parts ...string) string {
	return strings.Join(parts, ":")
}

func upsertAfter() *options.FindOneAndUpdateOptionsBuilder {
	return options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
}

func isNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

func now() time.Time {
	return time.Now().UTC()
}

func parseUUID(s string) uuid.UUID {
	id, _ := uuid.Parse(s)
	return id
}
