package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bookablehq/bookable-core/internal/repository"
	"github.com/bookablehq/bookable-core/internal/services"
)

// TenantAdminHandler serves operator-only tenant registry routes.
type TenantAdminHandler struct {
	tenants *repository.TenantRepository
	billing *repository.BillingRepository
	lookup  *services.TenantLookup
}

// NewTenantAdminHandler creates a new tenant admin handler
func NewTenantAdminHandler(tenants *repository.TenantRepository, billing *repository.BillingRepository, lookup *services.TenantLookup) *TenantAdminHandler {
	return &TenantAdminHandler{tenants: tenants, billing: billing, lookup: lookup}
}

// ListTenants lists all tenants
func (h *TenantAdminHandler) ListTenants(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	tenants, err := h.tenants.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tenants)
}

// SuspendTenant suspends a tenant
func (h *TenantAdminHandler) SuspendTenant(w http.ResponseWriter, r *http.Request) {
	h.setSuspended(w, r, true)
}

// UnsuspendTenant lifts a tenant's suspension
func (h *TenantAdminHandler) UnsuspendTenant(w http.ResponseWriter, r *http.Request) {
	h.setSuspended(w, r, false)
}

func (h *TenantAdminHandler) setSuspended(w http.ResponseWriter, r *http.Request, suspended bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid tenant id"})
		return
	}

	if err := h.tenants.SetSuspended(r.Context(), id, suspended); err != nil {
		writeError(w, r, err)
		return
	}

	// Suspension must take effect immediately, not after cache TTL.
	if err := h.lookup.Invalidate(r.Context(), id); err != nil {
		log.Error().Err(err).Str("tenant_id", id.String()).Msg("Failed to invalidate tenant cache")
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetTenantLedger lists a tenant's billing ledger entries
func (h *TenantAdminHandler) GetTenantLedger(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid tenant id"})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.billing.ListByTenant(r.Context(), id, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
