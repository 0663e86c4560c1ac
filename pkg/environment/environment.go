// Package environment names the deployment environment and carries it through
// request contexts and log records.
package environment

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// Environment is the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

var ErrUnknownEnvironment = errors.New("environment.errors.unknown")

// Parse accepts the canonical names and their short aliases.
func Parse(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "development", "dev", "local":
		return Development, nil
	case "staging", "stage":
		return Staging, nil
	case "production", "prod":
		return Production, nil
	default:
		return "", ErrUnknownEnvironment
	}
}

func (e Environment) String() string { return string(e) }

// IsProduction reports whether e is production.
func (e Environment) IsProduction() bool { return e == Production }

// IsDevelopment reports whether e is development.
func (e Environment) IsDevelopment() bool { return e == Development }

type contextKey struct{}

// WithContext stores env in ctx.
func WithContext(ctx context.Context, env Environment) context.Context {
	return context.WithValue(ctx, contextKey{}, env)
}

// FromContext returns the stored environment or an empty value.
func FromContext(ctx context.Context) Environment {
	if ctx == nil {
		return ""
	}
	env, _ := ctx.Value(contextKey{}).(Environment)
	return env
}

// Middleware attaches env to every request context.
func Middleware(env Environment) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), env)))
		})
	}
}

// LoggerExtractor adds the environment of the request to log records.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if env := FromContext(ctx); env != "" {
			return slog.String("env", string(env)), true
		}
		return slog.Attr{}, false
	}
}
