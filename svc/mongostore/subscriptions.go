package mongostore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/talktime/pkg/quota"
	"github.com/dmitrymomot/talktime/pkg/subscription"
)

type subscriptionDoc struct {
	ID             string     `bson:"_id"`
	UserID         string     `bson:"user_id"`
	Tier           string     `bson:"plan_tier"`
	IsFreeTrial    bool       `bson:"is_free_trial"`
	TrialStartedAt *time.Time `bson:"trial_started_at,omitempty"`
	ValidFrom      time.Time  `bson:"valid_from"`
	ValidTo        time.Time  `bson:"valid_to"`
	Status         string     `bson:"status"`
	CreatedAt      time.Time  `bson:"created_at"`
}

func (d subscriptionDoc) subscription() *subscription.Subscription {
	return &subscription.Subscription{
		ID:             parseUUID(d.ID),
		UserID:         parseUUID(d.UserID),
		Tier:           quota.Tier(d.Tier),
		IsFreeTrial:    d.IsFreeTrial,
		TrialStartedAt: d.TrialStartedAt,
		ValidFrom:      d.ValidFrom,
		ValidTo:        d.ValidTo,
		Status:         subscription.Status(d.Status),
		CreatedAt:      d.CreatedAt,
	}
}

// Subscriptions implements subscription.Store. The single-trial rule needs
// the partial unique index created by EnsureIndexes.
type Subscriptions struct {
	coll *mongo.Collection
}

// NewSubscriptions returns a subscription.Store over the subscriptions collection.
func NewSubscriptions(db *mongo.Database) *Subscriptions {
	return &Subscriptions{coll: db.Collection(SubscriptionsCollection)}
}

// LatestActive implements subscription.Store.
func (s *Subscriptions) LatestActive(ctx context.Context, userID uuid.UUID, at time.Time) (*subscription.Subscription, error) {
	return s.latest(ctx, bson.D{
		{Key: "user_id", Value: userID.String()},
		{Key: "status", Value: string(subscription.StatusActive)},
		{Key: "valid_from", Value: bson.D{{Key: "$lte", Value: at}}},
		{Key: "valid_to", Value: bson.D{{Key: "$gt", Value: at}}},
	})
}

// LatestFreeTrial implements subscription.Store.
func (s *Subscriptions) LatestFreeTrial(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	return s.latest(ctx, bson.D{
		{Key: "user_id", Value: userID.String()},
		{Key: "is_free_trial", Value: true},
	})
}

// Create inserts sub. A second free trial hits the partial unique index and
// returns subscription.ErrDuplicateTrial.
func (s *Subscriptions) Create(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil || sub.UserID == uuid.Nil {
		return subscription.ErrInvalidSubscription
	}
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now()
	}

	_, err := s.coll.InsertOne(ctx, subscriptionDoc{
		ID:             sub.ID.String(),
		UserID:         sub.UserID.String(),
		Tier:           string(sub.Tier),
		IsFreeTrial:    sub.IsFreeTrial,
		TrialStartedAt: sub.TrialStartedAt,
		ValidFrom:      sub.ValidFrom,
		ValidTo:        sub.ValidTo,
		Status:         string(sub.Status),
		CreatedAt:      sub.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) && sub.IsFreeTrial {
		return subscription.ErrDuplicateTrial
	}
	return err
}

func (s *Subscriptions) latest(ctx context.Context, filter bson.D) (*subscription.Subscription, error) {
	var doc subscriptionDoc
	err := s.coll.FindOne(ctx, filter,
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	).Decode(&doc)
	if err != nil {
		if isNotFound(err) {
			return nil, subscription.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return doc.subscription(), nil
}
