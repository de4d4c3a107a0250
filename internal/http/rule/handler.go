package rule

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/http/respond"
	"github.com/MrJamesThe3rd/tally/internal/rule"
)

type Handler struct {
	svc *rule.Service
}

func NewHandler(svc *rule.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/suggest", h.suggest)
	r.Get("/", h.list)
	r.Post("/", h.learn)
}

type ruleResponse struct {
	ID         uuid.UUID `json:"id"`
	RawPattern string    `json:"raw_pattern"`
	CategoryID uuid.UUID `json:"category_id"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toResponse(rl *rule.Rule) *ruleResponse {
	if rl == nil {
		return nil
	}

	return &ruleResponse{
		ID:         rl.ID,
		RawPattern: rl.RawPattern,
		CategoryID: rl.CategoryID,
		Note:       rl.Note,
		CreatedAt:  rl.CreatedAt,
	}
}

type suggestResponse struct {
	RawDescription string        `json:"raw_description"`
	Rule           *ruleResponse `json:"rule"`
}

func (h *Handler) suggest(w http.ResponseWriter, r *http.Request) {
	rawDesc := r.URL.Query().Get("raw_description")
	if rawDesc == "" {
		respond.Message(w, http.StatusBadRequest, "raw_description query parameter is required")
		return
	}

	rl, err := h.svc.Suggest(r.Context(), rawDesc)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, suggestResponse{
		RawDescription: rawDesc,
		Rule:           toResponse(rl),
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	rules, err := h.svc.List(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]*ruleResponse, len(rules))
	for i, rl := range rules {
		resp[i] = toResponse(rl)
	}

	respond.JSON(w, http.StatusOK, resp)
}

type learnRequest struct {
	RawPattern string    `json:"raw_pattern"`
	CategoryID uuid.UUID `json:"category_id"`
	Note       string    `json:"note"`
}

func (h *Handler) learn(w http.ResponseWriter, r *http.Request) {
	var req learnRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	rl, err := h.svc.Learn(r.Context(), req.RawPattern, req.CategoryID, req.Note)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(rl))
}
