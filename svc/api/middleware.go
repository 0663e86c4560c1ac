package api

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dmitrymomot/talktime/pkg/logger"
	"github.com/dmitrymomot/talktime/pkg/quota"
)

// UserIDHeader carries the authenticated user id.
const UserIDHeader = "X-User-ID"

type userIDKey struct{}

// WithUserID stores the caller's id in ctx.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserIDFromContext returns the caller's id or uuid.Nil.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(userIDKey{}).(uuid.UUID)
	return id
}

// LoggerExtractor adds user_id to log records written during a request.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id := UserIDFromContext(ctx); id != uuid.Nil {
			return logger.UserID(id), true
		}
		return slog.Attr{}, false
	}
}

// identify rejects requests without a valid X-User-ID.
func identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.Header.Get(UserIDHeader))
		if err != nil || id == uuid.Nil {
			writeError(w, r, logger.Nop(), quota.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
	})
}

func accessLog(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.InfoContext(r.Context(), "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				logger.Duration(time.Since(start)),
			)
		})
	}
}

func recoverer(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.ErrorContext(r.Context(), "panic recovered",
					slog.Any("panic", rec),
					slog.String("path", r.URL.Path),
				)
				writeJSON(w, http.StatusInternalServerError, Envelope{Error: &ErrorDetail{
					Code:    "internal_error",
					Message: messages["internal_error"],
				}})
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// throttle spends one token of the caller's bucket per request. A failing
// limiter lets the request through.
func throttle(l Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := l.Allow(r.Context(), "user:"+UserIDFromContext(r.Context()).String())
			if err != nil {
				log.WarnContext(r.Context(), "rate limiter unavailable", logger.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, res.Remaining)))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed() {
				retry := int(math.Ceil(res.RetryAfter(time.Now()).Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(1, retry)))
				writeError(w, r, log, errRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
