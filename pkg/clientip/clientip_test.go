package clientip_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/talktime/pkg/clientip"
)

func TestFromRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{"remote addr", nil, "203.0.113.7:5123", "203.0.113.7"},
		{"cloudflare wins", map[string]string{"CF-Connecting-IP": "198.51.100.1", "X-Forwarded-For": "10.0.0.1"}, "10.0.0.9:1", "198.51.100.1"},
		{"forwarded list", map[string]string{"X-Forwarded-For": "garbage, 192.0.2.4, 10.0.0.1"}, "10.0.0.9:1", "192.0.2.4"},
		{"invalid headers fall through", map[string]string{"X-Real-IP": "not-an-ip"}, "192.0.2.9:80", "192.0.2.9"},
		{"ipv6", map[string]string{"X-Real-IP": " 2001:db8::1 "}, "", "2001:db8::1"},
		{"mapped ipv4", nil, "[::ffff:192.0.2.1]:443", "192.0.2.1"},
		{"nothing valid", nil, "pipe", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientip.FromRequest(r, clientip.DefaultHeaders...))
		})
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	var seen string
	h := clientip.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = clientip.FromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "192.0.2.44")
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, "192.0.2.44", seen)

	t.Run("custom headers ignore the defaults", func(t *testing.T) {
		t.Parallel()
		var got string
		h := clientip.Middleware("Fly-Client-IP")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = clientip.FromContext(r.Context())
		}))
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.1.1.1:9"
		r.Header.Set("X-Forwarded-For", "192.0.2.44")
		h.ServeHTTP(httptest.NewRecorder(), r)
		assert.Equal(t, "10.1.1.1", got)
	})
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	extract := clientip.LoggerExtractor()
	_, ok := extract(context.Background())
	assert.False(t, ok)

	attr, ok := extract(clientip.WithContext(context.Background(), "192.0.2.1"))
	require.True(t, ok)
	assert.Equal(t, "client_ip", attr.Key)
}
