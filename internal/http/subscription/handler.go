package subscription

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/http/respond"
	httptx "github.com/MrJamesThe3rd/tally/internal/http/transaction"
	"github.com/MrJamesThe3rd/tally/internal/subscription"
)

type Handler struct {
	svc      *subscription.Service
	leadTime time.Duration
}

// NewHandler serves subscriptions. leadDays is the default window of the
// upcoming listing.
func NewHandler(svc *subscription.Service, leadDays int) *Handler {
	return &Handler{
		svc:      svc,
		leadTime: time.Duration(leadDays) * 24 * time.Hour,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/upcoming", h.upcoming)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/pay", h.pay)
}

type subscriptionResponse struct {
	ID            uuid.UUID           `json:"id"`
	ServiceName   string              `json:"service_name"`
	Amount        decimal.Decimal     `json:"amount"`
	Period        subscription.Period `json:"period"`
	StartDate     httptx.Date         `json:"start_date"`
	NextDueDate   httptx.Date         `json:"next_due_date"`
	PaymentMethod string              `json:"payment_method,omitempty"`
	WalletID      *uuid.UUID          `json:"wallet_id,omitempty"`
	Note          string              `json:"note,omitempty"`
	IsActive      bool                `json:"is_active"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func toResponse(s *subscription.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:            s.ID,
		ServiceName:   s.ServiceName,
		Amount:        s.Amount,
		Period:        s.Period,
		StartDate:     httptx.Date(s.StartDate),
		NextDueDate:   httptx.Date(s.NextDueDate),
		PaymentMethod: s.PaymentMethod,
		WalletID:      s.WalletID,
		Note:          s.Note,
		IsActive:      s.IsActive,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func toResponseList(subs []*subscription.Subscription) []subscriptionResponse {
	resp := make([]subscriptionResponse, len(subs))
	for i, s := range subs {
		resp[i] = toResponse(s)
	}

	return resp
}

type createSubscriptionRequest struct {
	ServiceName   string              `json:"service_name"`
	Amount        decimal.Decimal     `json:"amount"`
	Period        subscription.Period `json:"period"`
	StartDate     httptx.Date         `json:"start_date"`
	NextDueDate   *httptx.Date        `json:"next_due_date,omitempty"`
	PaymentMethod string              `json:"payment_method"`
	WalletID      *uuid.UUID          `json:"wallet_id,omitempty"`
	Note          string              `json:"note"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createSubscriptionRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	params := subscription.CreateParams{
		ServiceName:   req.ServiceName,
		Amount:        req.Amount,
		Period:        req.Period,
		StartDate:     time.Time(req.StartDate),
		PaymentMethod: req.PaymentMethod,
		WalletID:      req.WalletID,
		Note:          req.Note,
	}

	if req.NextDueDate != nil {
		next := time.Time(*req.NextDueDate)
		params.NextDueDate = &next
	}

	sub, err := h.svc.Create(r.Context(), params)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(sub))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active"))

	subs, err := h.svc.List(r.Context(), activeOnly)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponseList(subs))
}

func (h *Handler) upcoming(w http.ResponseWriter, r *http.Request) {
	within := h.leadTime

	if s := r.URL.Query().Get("days"); s != "" {
		days, err := strconv.Atoi(s)
		if err != nil || days < 0 {
			respond.Message(w, http.StatusBadRequest, "days must be a non-negative integer")
			return
		}

		within = time.Duration(days) * 24 * time.Hour
	}

	subs, err := h.svc.Upcoming(r.Context(), within)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponseList(subs))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := respond.ID(w, r)
	if !ok {
		return
	}

	sub, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(sub))
}

type updateSubscriptionRequest struct {
	ServiceName   string              `json:"service_name"`
	Amount        decimal.Decimal     `json:"amount"`
	Period        subscription.Period `json:"period"`
	PaymentMethod string              `json:"payment_method"`
	WalletID      *uuid.UUID          `json:"wallet_id,omitempty"`
	Note          string              `json:"note"`
	IsActive      bool                `json:"is_active"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := respond.ID(w, r)
	if !ok {
		return
	}

	var req updateSubscriptionRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	sub, err := h.svc.Update(r.Context(), id, subscription.UpdateParams{
		ServiceName:   req.ServiceName,
		Amount:        req.Amount,
		Period:        req.Period,
		PaymentMethod: req.PaymentMethod,
		WalletID:      req.WalletID,
		Note:          req.Note,
		IsActive:      req.IsActive,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(sub))
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

type paymentResponse struct {
	Subscription  subscriptionResponse `json:"subscription"`
	Transaction   httptx.Response      `json:"transaction"`
	WalletBalance decimal.Decimal      `json:"wallet_balance"`
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	id, ok := respond.ID(w, r)
	if !ok {
		return
	}

	res, err := h.svc.MarkPaid(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, paymentResponse{
		Subscription:  toResponse(res.Subscription),
		Transaction:   httptx.ToResponse(res.Transaction),
		WalletBalance: res.WalletBalance,
	})
}
