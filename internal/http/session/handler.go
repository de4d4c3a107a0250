package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/tally/internal/http/respond"
	"github.com/MrJamesThe3rd/tally/internal/session"
)

type Handler struct {
	lock *session.Service
}

func NewHandler(lock *session.Service) *Handler {
	return &Handler{lock: lock}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/unlock", h.unlock)
}

type unlockRequest struct {
	PIN string `json:"pin"`
}

type unlockResponse struct {
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	Locked    bool      `json:"locked"`
}

func (h *Handler) unlock(w http.ResponseWriter, r *http.Request) {
	if !h.lock.Enabled() {
		respond.JSON(w, http.StatusOK, unlockResponse{Locked: false})
		return
	}

	var req unlockRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	token, expires, err := h.lock.Unlock(req.PIN)
	if errors.Is(err, session.ErrInvalidPIN) {
		respond.Message(w, http.StatusUnauthorized, "invalid PIN")
		return
	}

	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, unlockResponse{Token: token, ExpiresAt: expires, Locked: true})
}
