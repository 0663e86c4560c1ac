package usage_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/talktime/pkg/quota"
	"github.com/dmitrymomot/talktime/pkg/usage"
)

func fixedCalendar(t time.Time, loc *time.Location) usage.Calendar {
	return usage.NewCalendar(loc, usage.WithNow(func() time.Time { return t }))
}

func TestLedger_Today(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := usage.NewLedger(usage.NewMemoryStore(), usage.NewCalendar(time.UTC))

	rec, err := ledger.Today(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, quota.Usage{}, rec.Usage())
	assert.Equal(t, int64(0), rec.Total())
}

func TestLedger_Increment(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("total tracks the sum of activities", func(t *testing.T) {
		t.Parallel()
		ledger := usage.NewLedger(usage.NewMemoryStore(), usage.NewCalendar(time.UTC))
		userID := uuid.New()

		steps := []struct {
			activity quota.Activity
			seconds  int64
		}{
			{quota.ActivityPractice, 120},
			{quota.ActivityRoleplay, 45},
			{quota.ActivityCall, 30},
			{"", 5},
			{quota.ActivityPractice, 0},
		}
		for _, s := range steps {
			_, err := ledger.Increment(ctx, userID, s.activity, s.seconds)
			require.NoError(t, err)
		}

		rec, err := ledger.Today(ctx, userID)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, int64(120), rec.PracticeSeconds)
		assert.Equal(t, int64(45), rec.RoleplaySeconds)
		assert.Equal(t, int64(35), rec.CallSeconds)
		assert.Equal(t, rec.CallSeconds+rec.PracticeSeconds+rec.RoleplaySeconds, rec.TotalSeconds)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		t.Parallel()
		ledger := usage.NewLedger(usage.NewMemoryStore(), usage.NewCalendar(time.UTC))

		_, err := ledger.Increment(ctx, uuid.Nil, quota.ActivityCall, 1)
		require.ErrorIs(t, err, quota.ErrUnauthenticated)

		_, err = ledger.Increment(ctx, uuid.New(), quota.Activity("dance"), 1)
		require.ErrorIs(t, err, quota.ErrInvalidActivity)

		_, err = ledger.Increment(ctx, uuid.New(), quota.ActivityCall, -1)
		require.ErrorIs(t, err, quota.ErrInvalidDuration)
	})

	t.Run("concurrent practice ends both land", func(t *testing.T) {
		t.Parallel()
		ledger := usage.NewLedger(usage.NewMemoryStore(), usage.NewCalendar(time.UTC))
		userID := uuid.New()

		var wg sync.WaitGroup
		for _, secs := range []int64{100, 150} {
			wg.Add(1)
			go func(secs int64) {
				defer wg.Done()
				_, err := ledger.Increment(ctx, userID, quota.ActivityPractice, secs)
				assert.NoError(t, err)
			}(secs)
		}
		wg.Wait()

		rec, err := ledger.Today(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(250), rec.PracticeSeconds)
		assert.Equal(t, int64(250), rec.TotalSeconds)
	})

	t.Run("many concurrent writers keep the total consistent", func(t *testing.T) {
		t.Parallel()
		ledger := usage.NewLedger(usage.NewMemoryStore(), usage.NewCalendar(time.UTC))
		userID := uuid.New()

		var wg sync.WaitGroup
		for i := range 90 {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, _ = ledger.Increment(ctx, userID, quota.Activities[i%3], 2)
			}(i)
		}
		wg.Wait()

		rec, err := ledger.Today(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(180), rec.TotalSeconds)
		assert.Equal(t, int64(60), rec.CallSeconds)
		assert.Equal(t, int64(60), rec.PracticeSeconds)
		assert.Equal(t, int64(60), rec.RoleplaySeconds)
	})
}

func TestLedger_DayRollover(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := usage.NewMemoryStore()
	userID := uuid.New()

	yesterday := fixedCalendar(time.Date(2025, 3, 9, 23, 59, 0, 0, time.UTC), time.UTC)
	today := fixedCalendar(time.Date(2025, 3, 10, 0, 1, 0, 0, time.UTC), time.UTC)

	_, err := usage.NewLedger(store, yesterday).Increment(ctx, userID, quota.ActivityPractice, 300)
	require.NoError(t, err)

	rec, err := usage.NewLedger(store, today).Today(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = usage.NewLedger(store, today).On(ctx, userID, "2025-03-09")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, int64(300), rec.PracticeSeconds)
}

func TestLedger_RecordScenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := usage.NewLedger(usage.NewMemoryStore(), usage.NewCalendar(time.UTC))
	userID := uuid.New()

	for i := int64(1); i <= 3; i++ {
		n, err := ledger.RecordScenario(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	rec, err := ledger.Today(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.Scenarios())
	assert.Equal(t, int64(0), rec.TotalSeconds)

	_, err = ledger.RecordScenario(ctx, uuid.Nil)
	require.ErrorIs(t, err, quota.ErrUnauthenticated)
}

func TestLedger_StoreFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ledger := usage.NewLedger(brokenStore{}, usage.NewCalendar(time.UTC))

	_, err := ledger.Today(ctx, uuid.New())
	assert.True(t, quota.IsRetryable(err))

	_, err = ledger.Increment(ctx, uuid.New(), quota.ActivityCall, 1)
	assert.True(t, quota.IsRetryable(err))

	_, err = ledger.RecordScenario(ctx, uuid.New())
	assert.True(t, quota.IsRetryable(err))
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, uuid.UUID, usage.Day) (*usage.DailyRecord, error) {
	return nil, errors.New("timeout")
}

func (brokenStore) Increment(context.Context, uuid.UUID, usage.Day, quota.Activity, int64) (*usage.DailyRecord, error) {
	return nil, errors.New("timeout")
}

func (brokenStore) IncrementScenarios(context.Context, uuid.UUID, usage.Day) (int64, error) {
	return 0, errors.New("timeout")
}
