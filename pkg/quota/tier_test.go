package quota_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/talktime/pkg/quota"
)

func TestParseActivity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    quota.Activity
		wantErr error
	}{
		{"", quota.ActivityCall, nil},
		{"call", quota.ActivityCall, nil},
		{"practice", quota.ActivityPractice, nil},
		{" Roleplay ", quota.ActivityRoleplay, nil},
		{"karaoke", "", quota.ErrInvalidActivity},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := quota.ParseActivity(tt.in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTier(t *testing.T) {
	t.Parallel()

	got, err := quota.ParseTier("PRO")
	require.NoError(t, err)
	assert.Equal(t, quota.TierPro, got)

	got, err = quota.ParseTier("")
	require.NoError(t, err)
	assert.Equal(t, quota.TierNone, got)

	_, err = quota.ParseTier("enterprise")
	require.ErrorIs(t, err, quota.ErrUnknownTier)
}

func TestActivity_CountsTowardPool(t *testing.T) {
	t.Parallel()

	assert.False(t, quota.ActivityCall.CountsTowardPool())
	assert.True(t, quota.ActivityPractice.CountsTowardPool())
	assert.True(t, quota.ActivityRoleplay.CountsTowardPool())
}
