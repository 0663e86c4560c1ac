package requestid_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/talktime/pkg/requestid"
)

func serve(t *testing.T, incoming string) (seen string, echoed string) {
	t.Helper()
	h := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestid.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if incoming != "" {
		req.Header.Set(requestid.Header, incoming)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	return seen, rec.Header().Get(requestid.Header)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("generates an id when none is sent", func(t *testing.T) {
		t.Parallel()
		seen, echoed := serve(t, "")
		assert.Len(t, seen, 36)
		assert.Equal(t, seen, echoed)
	})

	t.Run("reuses a valid incoming id", func(t *testing.T) {
		t.Parallel()
		seen, echoed := serve(t, "edge-42_a")
		assert.Equal(t, "edge-42_a", seen)
		assert.Equal(t, "edge-42_a", echoed)
	})

	t.Run("replaces a malformed incoming id", func(t *testing.T) {
		t.Parallel()
		for _, bad := range []string{"a b", "x/y", "<script>", strings.Repeat("a", 129)} {
			seen, echoed := serve(t, bad)
			assert.NotEqual(t, bad, seen)
			assert.Equal(t, seen, echoed)
			assert.True(t, requestid.Valid(seen))
		}
	})
}

func TestValid(t *testing.T) {
	t.Parallel()

	assert.True(t, requestid.Valid("abc-DEF_123"))
	assert.True(t, requestid.Valid(strings.Repeat("z", 128)))
	assert.False(t, requestid.Valid(""))
	assert.False(t, requestid.Valid("café"))
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	extract := requestid.LoggerExtractor()

	_, ok := extract(context.Background())
	assert.False(t, ok)

	attr, ok := extract(requestid.WithContext(context.Background(), "r-1"))
	require.True(t, ok)
	assert.Equal(t, "request_id", attr.Key)
	assert.Equal(t, "r-1", attr.Value.String())
}
