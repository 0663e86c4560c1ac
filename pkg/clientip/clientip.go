// Package clientip resolves the caller's address behind reverse proxies.
package clientip

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// DefaultHeaders are consulted in order before RemoteAddr.
var DefaultHeaders = []string{"CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}

type contextKey struct{}

// WithContext stores ip in ctx.
func WithContext(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKey{}, ip)
}

// FromContext returns the address stored in ctx or "".
func FromContext(ctx context.Context) string {
	ip, _ := ctx.Value(contextKey{}).(string)
	return ip
}

// FromRequest returns the first valid address found in headers, then in
// r.RemoteAddr. X-Forwarded-For style lists yield their left-most valid
// entry. The result is "" when nothing parses.
func FromRequest(r *http.Request, headers ...string) string {
	for _, h := range headers {
		for part := range strings.SplitSeq(r.Header.Get(h), ",") {
			if ip := normalize(part); ip != "" {
				return ip
			}
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return normalize(host)
	}
	return normalize(r.RemoteAddr)
}

// Middleware stores the resolved address in the request context. With no
// headers given DefaultHeaders are used.
func Middleware(headers ...string) func(http.Handler) http.Handler {
	if len(headers) == 0 {
		headers = DefaultHeaders
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), FromRequest(r, headers...))))
		})
	}
}

// LoggerExtractor adds client_ip to log records.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if ip := FromContext(ctx); ip != "" {
			return slog.String("client_ip", ip), true
		}
		return slog.Attr{}, false
	}
}

func normalize(s string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return ""
	}
	return addr.Unmap().String()
}
