package audit

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/audit"
	"github.com/MrJamesThe3rd/tally/internal/http/respond"
)

type Handler struct {
	svc *audit.Service
}

func NewHandler(svc *audit.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.run)
}

type totalsResponse struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Lend    decimal.Decimal `json:"lend"`
	Rent    decimal.Decimal `json:"rent"`
	Count   int             `json:"count"`
}

type resultResponse struct {
	WalletID         uuid.UUID       `json:"wallet_id"`
	WalletName       string          `json:"wallet_name"`
	Currency         string          `json:"currency"`
	StoredBalance    decimal.Decimal `json:"stored_balance"`
	LedgerNet        decimal.Decimal `json:"ledger_net"`
	Baseline         decimal.Decimal `json:"baseline"`
	Expected         decimal.Decimal `json:"expected"`
	Difference       decimal.Decimal `json:"difference"`
	Totals           totalsResponse  `json:"totals"`
	BaselineInferred bool            `json:"baseline_inferred"`
	Discrepancy      bool            `json:"discrepancy"`
	Fixed            bool            `json:"fixed"`
}

type reportResponse struct {
	Results       []resultResponse `json:"results"`
	Discrepancies int              `json:"discrepancies"`
	Fixed         int              `json:"fixed"`
	Tolerance     decimal.Decimal  `json:"tolerance"`
}

func toResponse(rep *audit.Report) reportResponse {
	resp := reportResponse{
		Results:       make([]resultResponse, len(rep.Results)),
		Discrepancies: rep.Discrepancies,
		Fixed:         rep.Fixed,
		Tolerance:     rep.Tolerance,
	}

	for i, res := range rep.Results {
		resp.Results[i] = resultResponse{
			WalletID:      res.WalletID,
			WalletName:    res.WalletName,
			Currency:      res.Currency,
			StoredBalance: res.StoredBalance,
			LedgerNet:     res.LedgerNet,
			Baseline:      res.Baseline,
			Expected:      res.Expected,
			Difference:    res.Difference,
			Totals: totalsResponse{
				Income:  res.Totals.Income,
				Expense: res.Totals.Expense,
				Lend:    res.Totals.Lend,
				Rent:    res.Totals.Rent,
				Count:   res.Totals.Count,
			},
			BaselineInferred: res.BaselineInferred,
			Discrepancy:      res.Discrepancy,
			Fixed:            res.Fixed,
		}
	}

	return resp
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	var fix bool

	if s := r.URL.Query().Get("fix"); s != "" {
		var err error

		fix, err = strconv.ParseBool(s)
		if err != nil {
			respond.Message(w, http.StatusBadRequest, "fix must be a boolean")
			return
		}
	}

	rep, err := h.svc.Run(r.Context(), fix)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(rep))
}
