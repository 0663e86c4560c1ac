package onboarding_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/talktime/pkg/onboarding"
	"github.com/dmitrymomot/talktime/pkg/quota"
)

type mockProfileStore struct {
	mock.Mock
}

func (m *mockProfileStore) OnboardingUsed(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockProfileStore) MarkOnboardingUsed(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func newLedger() (*onboarding.Ledger, *onboarding.MemoryStore, *onboarding.MemoryProfileStore) {
	store := onboarding.NewMemoryStore()
	profiles := onboarding.NewMemoryProfileStore()
	return onboarding.NewLedger(store, profiles), store, profiles
}

func TestLedger_RecordSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("under allowance", func(t *testing.T) {
		t.Parallel()
		ledger, _, profiles := newLedger()
		userID := uuid.New()

		u, err := ledger.RecordSession(ctx, userID, 280)
		require.NoError(t, err)
		assert.Equal(t, int64(280), u.CumulativeSeconds)
		assert.False(t, u.AllowanceExhausted)
		assert.Equal(t, int64(20), u.Remaining(ledger.Allowance()))

		used, _ := profiles.OnboardingUsed(ctx, userID)
		assert.False(t, used)
	})

	t.Run("crossing the allowance flags the profile", func(t *testing.T) {
		t.Parallel()
		ledger, _, profiles := newLedger()
		userID := uuid.New()

		_, err := ledger.RecordSession(ctx, userID, 280)
		require.NoError(t, err)
		u, err := ledger.RecordSession(ctx, userID, 25)
		require.NoError(t, err)

		assert.Equal(t, int64(305), u.CumulativeSeconds)
		assert.True(t, u.AllowanceExhausted)
		assert.Equal(t, int64(0), u.Remaining(ledger.Allowance()))

		used, _ := profiles.OnboardingUsed(ctx, userID)
		assert.True(t, used)

		exhausted, err := ledger.IsExhausted(ctx, userID)
		require.NoError(t, err)
		assert.True(t, exhausted)
	})

	t.Run("exactly at the allowance is exhausted", func(t *testing.T) {
		t.Parallel()
		ledger, _, _ := newLedger()
		userID := uuid.New()

		u, err := ledger.RecordSession(ctx, userID, 300)
		require.NoError(t, err)
		assert.True(t, u.AllowanceExhausted)
	})

	t.Run("exhaustion is permanent", func(t *testing.T) {
		t.Parallel()
		ledger, _, _ := newLedger()
		userID := uuid.New()

		_, err := ledger.RecordSession(ctx, userID, 300)
		require.NoError(t, err)

		for range 3 {
			u, err := ledger.RecordSession(ctx, userID, 0)
			require.NoError(t, err)
			assert.True(t, u.AllowanceExhausted)
		}

		exhausted, err := ledger.IsExhausted(ctx, userID)
		require.NoError(t, err)
		assert.True(t, exhausted)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		t.Parallel()
		ledger, _, _ := newLedger()

		_, err := ledger.RecordSession(ctx, uuid.Nil, 10)
		require.ErrorIs(t, err, quota.ErrUnauthenticated)

		_, err = ledger.RecordSession(ctx, uuid.New(), -10)
		require.ErrorIs(t, err, quota.ErrInvalidDuration)
	})

	t.Run("concurrent sessions are all counted", func(t *testing.T) {
		t.Parallel()
		ledger, _, _ := newLedger()
		userID := uuid.New()

		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = ledger.RecordSession(ctx, userID, 20)
			}()
		}
		wg.Wait()

		secs, err := ledger.CumulativeSeconds(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(400), secs)

		exhausted, err := ledger.IsExhausted(ctx, userID)
		require.NoError(t, err)
		assert.True(t, exhausted)
	})

	t.Run("profile write failure is retryable but the seconds stick", func(t *testing.T) {
		t.Parallel()
		store := onboarding.NewMemoryStore()
		profiles := &mockProfileStore{}
		userID := uuid.New()
		profiles.On("MarkOnboardingUsed", mock.Anything, userID).Return(errors.New("db down")).Once()

		ledger := onboarding.NewLedger(store, profiles)
		u, err := ledger.RecordSession(ctx, userID, 310)
		require.Error(t, err)
		assert.True(t, quota.IsRetryable(err))
		require.NotNil(t, u)
		assert.True(t, u.AllowanceExhausted)
		profiles.AssertExpectations(t)
	})
}

func TestLedger_IsExhausted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("fresh user", func(t *testing.T) {
		t.Parallel()
		ledger, _, _ := newLedger()
		exhausted, err := ledger.IsExhausted(ctx, uuid.New())
		require.NoError(t, err)
		assert.False(t, exhausted)
	})

	t.Run("profile flag alone is enough", func(t *testing.T) {
		t.Parallel()
		ledger, _, profiles := newLedger()
		userID := uuid.New()
		require.NoError(t, profiles.MarkOnboardingUsed(ctx, userID))

		exhausted, err := ledger.IsExhausted(ctx, userID)
		require.NoError(t, err)
		assert.True(t, exhausted)
	})

	t.Run("repairs a lost profile flag", func(t *testing.T) {
		t.Parallel()
		store := onboarding.NewMemoryStore()
		profiles := &mockProfileStore{}
		userID := uuid.New()

		_, err := store.Add(ctx, userID, 300, quota.OnboardingAllowanceSeconds)
		require.NoError(t, err)

		profiles.On("OnboardingUsed", mock.Anything, userID).Return(false, nil).Once()
		profiles.On("MarkOnboardingUsed", mock.Anything, userID).Return(nil).Once()

		ledger := onboarding.NewLedger(store, profiles)
		exhausted, err := ledger.IsExhausted(ctx, userID)
		require.NoError(t, err)
		assert.True(t, exhausted)
		profiles.AssertExpectations(t)
	})

	t.Run("profile read failure", func(t *testing.T) {
		t.Parallel()
		profiles := &mockProfileStore{}
		userID := uuid.New()
		profiles.On("OnboardingUsed", mock.Anything, userID).Return(false, errors.New("timeout"))

		ledger := onboarding.NewLedger(onboarding.NewMemoryStore(), profiles)
		_, err := ledger.IsExhausted(ctx, userID)
		assert.True(t, quota.IsRetryable(err))
	})
}

func TestLedger_Status(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger, _, _ := newLedger()
	userID := uuid.New()

	u, err := ledger.Status(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), u.CumulativeSeconds)
	assert.False(t, u.AllowanceExhausted)

	_, err = ledger.RecordSession(ctx, userID, 120)
	require.NoError(t, err)

	u, err = ledger.Status(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(120), u.CumulativeSeconds)
	assert.Equal(t, int64(180), u.Remaining(ledger.Allowance()))
}

func TestWithAllowance(t *testing.T) {
	t.Parallel()

	ledger := onboarding.NewLedger(onboarding.NewMemoryStore(), onboarding.NewMemoryProfileStore(), onboarding.WithAllowance(60))
	assert.Equal(t, int64(60), ledger.Allowance())

	u, err := ledger.RecordSession(context.Background(), uuid.New(), 60)
	require.NoError(t, err)
	assert.True(t, u.AllowanceExhausted)
}
