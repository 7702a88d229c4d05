package handlers

import (
	"context"
	"net/http"

	"sote-minimart/internal/session"
)

// ShiftResumer picks up a shift left open by the cashier who just signed in
// and lets go of it when they sign out.
type ShiftResumer interface {
	Resume(ctx context.Context) error
	Detach()
}

type SessionHandler struct {
	auth   *session.Context
	shifts ShiftResumer
}

func NewSessionHandler(auth *session.Context, shifts ShiftResumer) *SessionHandler {
	return &SessionHandler{auth: auth, shifts: shifts}
}

type SignInRequest struct {
	CashierID string `json:"cashier_id" validate:"required,max=64"`
	Name      string `json:"name" validate:"max=120"`
	Role      string `json:"role" validate:"omitempty,oneof=cashier supervisor admin"`
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.auth.Current()
	if !ok {
		writeError(w, http.StatusUnauthorized, "not_signed_in", "no cashier signed in", nil)
		return
	}
	writeJSON(w, http.StatusOK, id)
}

func (h *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	id := session.Identity{CashierID: req.CashierID, Name: req.Name, Role: req.Role}
	h.auth.SignIn(id)

	if h.shifts != nil {
		// A failed resume leaves the timer inactive; the cashier can still
		// start a new shift.
		_ = h.shifts.Resume(r.Context())
	}

	writeJSON(w, http.StatusOK, id)
}

func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.auth.SignOut()
	if h.shifts != nil {
		h.shifts.Detach()
	}
	writeJSON(w, http.StatusNoContent, nil)
}
