package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bookablehq/bookable-core/internal/repository"
	"github.com/bookablehq/bookable-core/internal/tenantdb"
)

// InvoiceHandler serves tenant-facing invoice routes.
type InvoiceHandler struct {
	invoices *repository.InvoiceRepository
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(invoices *repository.InvoiceRepository) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// ListInvoices lists invoices, optionally filtered by ?status=
func (h *InvoiceHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	db, ok := requestDB(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	invoices, err := h.invoices.ListByStatus(r.Context(), db, r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invoices)
}

// GetInvoice retrieves one invoice
func (h *InvoiceHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	db, ok := requestDB(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid invoice id"})
		return
	}

	invoice, err := h.invoices.GetByID(r.Context(), db, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invoice)
}

// MarkInvoicePaid transitions an invoice to paid
func (h *InvoiceHandler) MarkInvoicePaid(w http.ResponseWriter, r *http.Request) {
	db, ok := requestDB(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid invoice id"})
		return
	}

	scope, _ := tenantdb.ScopeFromContext(r.Context())
	if err := h.invoices.MarkPaid(r.Context(), db, id, scope.UserID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
