package handlers

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"sote-minimart/internal/models"
	"sote-minimart/internal/repository"
	"sote-minimart/internal/shift"
)

type ShiftHandler struct {
	timer *shift.Timer
}

func NewShiftHandler(timer *shift.Timer) *ShiftHandler {
	return &ShiftHandler{timer: timer}
}

type ShiftStartRequest struct {
	OpeningFloat decimal.Decimal `json:"opening_float"`
}

type shiftView struct {
	State   shift.State          `json:"state"`
	Session *models.ShiftSession `json:"session"`
	Elapsed string               `json:"elapsed"`
}

type shiftEndView struct {
	shiftView
	Summary *models.ShiftSummary `json:"summary,omitempty"`
}

func (h *ShiftHandler) view() shiftView {
	return shiftView{
		State:   h.timer.State(),
		Session: h.timer.Session(),
		Elapsed: shift.FormatElapsed(h.timer.Elapsed()),
	}
}

func (h *ShiftHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.view())
}

func (h *ShiftHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req ShiftStartRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	if _, err := h.timer.StartShift(r.Context(), req.OpeningFloat); err != nil {
		shiftError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.view())
}

func (h *ShiftHandler) End(w http.ResponseWriter, r *http.Request) {
	// Summary has to be read while the session is still open.
	summary, _ := h.timer.Summary(r.Context())

	if _, err := h.timer.EndShift(r.Context()); err != nil {
		shiftError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, shiftEndView{shiftView: h.view(), Summary: summary})
}

func shiftError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shift.ErrMissingIdentity):
		writeError(w, http.StatusUnauthorized, "not_signed_in", err.Error(), nil)
	case errors.Is(err, shift.ErrNoActiveSession), errors.Is(err, shift.ErrAlreadyActive),
		errors.Is(err, repository.ErrDuplicate):
		writeError(w, http.StatusConflict, "precondition_failed", err.Error(), nil)
	case errors.Is(err, shift.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err.Error(), nil)
	default:
		writeError(w, http.StatusBadGateway, "remote_error", "shift could not be saved", nil)
	}
}
