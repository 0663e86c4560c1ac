package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/talktime/pkg/logger"
)

// Check is one readiness dependency.
type Check struct {
	Name  string
	Check func(context.Context) error
}

// HealthHandler answers liveness probes with ALIVE when no checks are given
// and readiness probes with READY or 503 NOT_READY otherwise. Each check runs
// with the given timeout.
func HealthHandler(log *slog.Logger, timeout time.Duration, checks ...Check) http.HandlerFunc {
	if log == nil {
		log = logger.Nop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")

		if len(checks) == 0 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ALIVE"))
			return
		}

		for _, c := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			err := c.Check(ctx)
			cancel()
			if err != nil {
				log.ErrorContext(r.Context(), "readiness check failed",
					logger.Component(c.Name),
					logger.Error(err),
				)
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("NOT_READY"))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	}
}
