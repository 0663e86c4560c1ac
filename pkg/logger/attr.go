package logger

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Error returns an empty Attr for a nil error.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID returns an empty Attr for uuid.Nil.
func UserID(id uuid.UUID) slog.Attr {
	if id == uuid.Nil {
		return slog.Attr{}
	}
	return slog.String("user_id", id.String())
}

// SessionID returns an empty Attr for uuid.Nil.
func SessionID(id uuid.UUID) slog.Attr {
	if id == uuid.Nil {
		return slog.Attr{}
	}
	return slog.String("session_id", id.String())
}

// Activity logs the metered activity.
func Activity[T ~string](a T) slog.Attr {
	return slog.String("activity", string(a))
}

// Tier logs the plan tier.
func Tier[T ~string](t T) slog.Attr {
	return slog.String("tier", string(t))
}

// Reason records the machine code of a rejection.
func Reason(code string) slog.Attr {
	return slog.String("reason", code)
}

// Seconds logs a duration in whole seconds.
func Seconds(n int64) slog.Attr {
	return slog.Int64("seconds", n)
}

// Section logs a role-play section name.
func Section(name string) slog.Attr {
	return slog.String("section", name)
}

// RequestID logs the request id.
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// Duration logs elapsed time.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component names the subsystem that wrote the record.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
