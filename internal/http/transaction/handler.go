package transaction

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/http/respond"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

var errInvalidDate = errors.New("dates must be YYYY-MM-DD or RFC 3339")

// ParseDate reads a YYYY-MM-DD date or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errInvalidDate
	}

	return t, nil
}

type Handler struct {
	svc *transaction.Service
}

func NewHandler(svc *transaction.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Patch("/{id}/cleared", h.setCleared)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req ParamsDTO
	if !respond.Decode(w, r, &req) {
		return
	}

	tx, err := h.svc.Create(r.Context(), req.Params())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, ToResponse(tx))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r)
	if err != nil {
		respond.Message(w, http.StatusBadRequest, err.Error())
		return
	}

	txs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, ToResponseList(txs))
}

// ParseFilter reads a transaction filter from the query string.
func ParseFilter(r *http.Request) (transaction.Filter, error) {
	var (
		filter transaction.Filter
		q      = r.URL.Query()
	)

	if s := q.Get("type"); s != "" {
		t, err := transaction.ParseType(s)
		if err != nil {
			return filter, err
		}

		filter.Type = &t
	}

	for name, dst := range map[string]**uuid.UUID{
		"category_id": &filter.CategoryID,
		"wallet_id":   &filter.WalletID,
	} {
		if s := q.Get(name); s != "" {
			id, err := uuid.Parse(s)
			if err != nil {
				return filter, errors.New("invalid " + name)
			}

			*dst = &id
		}
	}

	for name, dst := range map[string]**time.Time{
		"from": &filter.From,
		"to":   &filter.To,
	} {
		if s := q.Get(name); s != "" {
			t, err := ParseDate(s)
			if err != nil {
				return filter, errors.New("invalid " + name + ": " + err.Error())
			}

			*dst = &t
		}
	}

	if s := q.Get("cleared"); s != "" {
		cleared, err := strconv.ParseBool(s)
		if err != nil {
			return filter, errors.New("invalid cleared flag")
		}

		filter.Cleared = &cleared
	}

	return filter, nil
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := respond.ID(w, r)
	if !ok {
		return
	}

	tx, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, ToResponse(tx))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := respond.ID(w, r)
	if !ok {
		return
	}

	var req ParamsDTO
	if !respond.Decode(w, r, &req) {
		return
	}

	tx, err := h.svc.Update(r.Context(), id, transaction.UpdateParams(req.Params()))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, ToResponse(tx))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := respond.ID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type setClearedRequest struct {
	Cleared bool `json:"cleared"`
}

func (h *Handler) setCleared(w http.ResponseWriter, r *http.Request) {
	id, ok := respond.ID(w, r)
	if !ok {
		return
	}

	var req setClearedRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	if err := h.svc.SetCleared(r.Context(), id, req.Cleared); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
