package environment_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/talktime/pkg/environment"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want environment.Environment
	}{
		{"", environment.Development},
		{"dev", environment.Development},
		{"Development", environment.Development},
		{"stage", environment.Staging},
		{"prod", environment.Production},
		{" production ", environment.Production},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := environment.Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := environment.Parse("qa")
	require.ErrorIs(t, err, environment.ErrUnknownEnvironment)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	var got environment.Environment
	h := environment.Middleware(environment.Staging)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = environment.FromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, environment.Staging, got)
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	extract := environment.LoggerExtractor()

	_, ok := extract(context.Background())
	assert.False(t, ok)

	attr, ok := extract(environment.WithContext(context.Background(), environment.Production))
	require.True(t, ok)
	assert.Equal(t, "env", attr.Key)
	assert.Equal(t, "production", attr.Value.String())
}
