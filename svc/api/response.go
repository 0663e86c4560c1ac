package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/talktime/pkg/logger"
	"github.com/dmitrymomot/talktime/pkg/quota"
)

var (
	errBadRequest       = errors.New("api.errors.bad_request")
	errNotFound         = errors.New("api.errors.not_found")
	errMethodNotAllowed = errors.New("api.errors.method_not_allowed")
	errRateLimited      = errors.New("api.errors.rate_limited")
)

// Envelope wraps every response body.
type Envelope struct {
	Data  any          `json:"data,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail describes a failed request. Details holds the rejection
// payload (limit, used, remaining or the trial end) for business refusals.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

var messages = map[string]string{
	"unauthenticated":         "missing or invalid user identity",
	"invalid_request":         "request body is malformed",
	"invalid_activity_type":   "unknown activity type",
	"invalid_duration":        "duration must be a non-negative number of seconds",
	"invalid_section":         "section name is empty or too long",
	"activity_mismatch":       "activity does not match the session",
	"session_not_found":       "session not found or expired",
	"session_already_ended":   "session has already ended",
	"trial_already_used":      "free trial has already been used",
	"quota_exceeded":          "daily speaking quota exhausted",
	"onboarding_exhausted":    "onboarding allowance exhausted, subscribe to continue",
	"section_limit_exceeded":  "daily session limit for this section reached",
	"scenario_limit_exceeded": "daily scenario creation limit reached",
	"store_unavailable":       "service temporarily unavailable, retry later",
	"not_found":               "resource not found",
	"method_not_allowed":      "method not allowed",
	"rate_limited":            "too many requests, slow down",
	"internal_error":          "internal error",
}

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Data: data})
}

func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, code := classify(err)
	detail := &ErrorDetail{Code: code, Message: messages[code]}
	if rej, ok := quota.AsRejection(err); ok {
		detail.Details = rej
	}
	if status >= http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "request failed",
			slog.String("code", code),
			slog.String("path", r.URL.Path),
			logger.Error(err),
		)
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, Envelope{Error: detail})
}

// classify maps an error to its HTTP status and machine code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, errNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, errMethodNotAllowed):
		return http.StatusMethodNotAllowed, "method_not_allowed"
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	}

	code := quota.Code(err)
	switch {
	case errors.Is(err, quota.ErrUnauthenticated):
		return http.StatusUnauthorized, code
	case errors.Is(err, quota.ErrInvalidActivity),
		errors.Is(err, quota.ErrInvalidDuration),
		errors.Is(err, quota.ErrInvalidSection),
		errors.Is(err, quota.ErrActivityMismatch):
		return http.StatusBadRequest, code
	case errors.Is(err, quota.ErrSessionNotFound):
		return http.StatusNotFound, code
	case errors.Is(err, quota.ErrTrialAlreadyUsed),
		errors.Is(err, quota.ErrSessionAlreadyEnded):
		return http.StatusConflict, code
	case quota.IsRejection(err):
		return http.StatusTooManyRequests, code
	case errors.Is(err, quota.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, code
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
