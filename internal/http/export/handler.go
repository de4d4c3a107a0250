package export

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/tally/internal/export"
	"github.com/MrJamesThe3rd/tally/internal/http/respond"
	txHandler "github.com/MrJamesThe3rd/tally/internal/http/transaction"
)

type Handler struct {
	svc *export.Service
	now func() time.Time
}

func NewHandler(svc *export.Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.metadata)
	r.Get("/csv", h.csv)
	r.Get("/download", h.download)
}

type exportResponse struct {
	Transactions []txHandler.Response `json:"transactions"`
	Summary      string               `json:"summary"`
}

func (h *Handler) rows(w http.ResponseWriter, r *http.Request) ([]export.Row, bool) {
	filter, err := txHandler.ParseFilter(r)
	if err != nil {
		respond.Message(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	rows, err := h.svc.Export(r.Context(), filter)
	if err != nil {
		respond.Error(w, r, err)
		return nil, false
	}

	return rows, true
}

func (h *Handler) metadata(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.rows(w, r)
	if !ok {
		return
	}

	resp := exportResponse{
		Transactions: make([]txHandler.Response, 0, len(rows)),
		Summary:      export.Summary(rows),
	}

	for _, row := range rows {
		resp.Transactions = append(resp.Transactions, txHandler.ToResponse(row.Transaction))
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) csv(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.rows(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", h.attachment("csv"))

	if err := export.WriteCSV(w, rows); err != nil {
		slog.Error("failed to write csv export", "error", err)
	}
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.rows(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", h.attachment("zip"))

	if err := export.WriteArchive(w, rows); err != nil {
		slog.Error("failed to write export archive", "error", err)
	}
}

func (h *Handler) attachment(ext string) string {
	return fmt.Sprintf("attachment; filename=\"export_%s.%s\"", h.now().Format("20060102"), ext)
}
