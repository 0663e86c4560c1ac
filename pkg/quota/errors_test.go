package quota_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/talktime/pkg/quota"
)

func TestRejection(t *testing.T) {
	t.Parallel()

	err := error(quota.Reject(quota.ErrQuotaExceeded, 300, 300, 0))
	wrapped := fmt.Errorf("start session: %w", err)

	assert.ErrorIs(t, wrapped, quota.ErrQuotaExceeded)
	assert.NotErrorIs(t, wrapped, quota.ErrOnboardingExhausted)

	r, ok := quota.AsRejection(wrapped)
	require.True(t, ok)
	assert.Equal(t, int64(300), r.Limit)
	assert.Equal(t, int64(300), r.Used)
	assert.Equal(t, int64(0), r.Remaining)
	assert.Contains(t, r.Error(), "quota.errors.quota_exceeded")

	assert.True(t, quota.IsRejection(wrapped))
	assert.False(t, quota.IsRetryable(wrapped))
}

func TestStoreFailure(t *testing.T) {
	t.Parallel()

	assert.NoError(t, quota.StoreFailure(nil))

	cause := errors.New("connection refused")
	err := quota.StoreFailure(cause)
	assert.ErrorIs(t, err, quota.ErrStoreUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.True(t, quota.IsRetryable(err))
	assert.False(t, quota.IsRejection(err))

	assert.Same(t, err, quota.StoreFailure(err))
}

func TestCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{quota.ErrUnauthenticated, "unauthenticated"},
		{quota.ErrInvalidActivity, "invalid_activity_type"},
		{quota.Reject(quota.ErrOnboardingExhausted, 300, 300, 0), "onboarding_exhausted"},
		{quota.Reject(quota.ErrQuotaExceeded, 300, 300, 0), "quota_exceeded"},
		{quota.Reject(quota.ErrTrialAlreadyUsed, 0, 0, 0), "trial_already_used"},
		{quota.Reject(quota.ErrSectionLimitExceeded, 5, 5, 0), "section_limit_exceeded"},
		{quota.Reject(quota.ErrScenarioLimitExceeded, 5, 5, 0), "scenario_limit_exceeded"},
		{quota.StoreFailure(errors.New("boom")), "store_unavailable"},
		{errors.New("boom"), "internal_error"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, quota.Code(tt.err))
	}
}
