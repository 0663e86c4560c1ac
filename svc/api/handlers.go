package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/talktime/pkg/quota"
)

type handlers struct {
	svc          Metering
	log          *slog.Logger
	maxBodyBytes int64
}

type startSessionRequest struct {
	Activity string `json:"activity"`
}

type endSessionRequest struct {
	Activity        string `json:"activity"`
	DurationSeconds *int64 `json:"duration_seconds"`
}

type trialEligibility struct {
	Eligible bool `json:"eligible"`
}

// decode reads an optional JSON body into v. An empty body leaves v untouched.
func (h *handlers) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}

func (h *handlers) startSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	activity, err := quota.ParseActivity(req.Activity)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	grant, err := h.svc.StartSession(r.Context(), UserIDFromContext(r.Context()), activity)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeData(w, http.StatusCreated, grant)
}

func (h *handlers) endSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, h.log, quota.ErrSessionNotFound)
		return
	}
	var req endSessionRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if req.DurationSeconds == nil {
		writeError(w, r, h.log, quota.ErrInvalidDuration)
		return
	}
	// An empty activity means the one the session was started with.
	receipt, err := h.svc.EndSession(r.Context(), UserIDFromContext(r.Context()), sessionID,
		quota.Activity(req.Activity), *req.DurationSeconds)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeData(w, http.StatusOK, receipt)
}

func (h *handlers) trialEligibility(w http.ResponseWriter, r *http.Request) {
	ok, err := h.svc.CanStartFreeTrial(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeData(w, http.StatusOK, trialEligibility{Eligible: ok})
}

func (h *handlers) startTrial(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.StartFreeTrial(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeData(w, http.StatusCreated, res)
}

func (h *handlers) usageStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.GetUsageStatus(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeData(w, http.StatusOK, st)
}

func (h *handlers) remainingTime(w http.ResponseWriter, r *http.Request) {
	rt, err := h.svc.GetRemainingTime(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeData(w, http.StatusOK, rt)
}

func (h *handlers) scenarioLimit(w http.ResponseWriter, r *http.Request) {
	q, err := h.svc.CheckScenarioLimit(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeData(w, http.StatusOK, q)
}

func (h *handlers) recordScenario(w http.ResponseWriter, r *http.Request) {
	q, err := h.svc.RecordScenarioCreation(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeData(w, http.StatusCreated, q)
}

func (h *handlers) sectionLimit(w http.ResponseWriter, r *http.Request) {
	q, err := h.svc.CheckRoleplaySectionLimit(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "section"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeData(w, http.StatusOK, q)
}

func (h *handlers) recordSection(w http.ResponseWriter, r *http.Request) {
	q, err := h.svc.RecordRoleplaySession(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "section"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeData(w, http.StatusCreated, q)
}
