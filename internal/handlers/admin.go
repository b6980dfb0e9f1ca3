package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bookablehq/bookable-core/internal/audit"
	"github.com/bookablehq/bookable-core/internal/impersonation"
	"github.com/bookablehq/bookable-core/internal/middleware"
)

// AdminHandler serves the operator control endpoints: impersonation
// start/stop and the impersonation audit trail. Unlike tenant-facing
// routes, operators get explicit, actionable errors.
type AdminHandler struct {
	manager  *impersonation.Manager
	recorder *audit.Recorder
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(manager *impersonation.Manager, recorder *audit.Recorder) *AdminHandler {
	return &AdminHandler{manager: manager, recorder: recorder}
}

type startImpersonationRequest struct {
	TenantID uuid.UUID `json:"tenant_id"`
}

type impersonationResponse struct {
	TenantID      uuid.UUID `json:"tenant_id"`
	TenantName    string    `json:"tenant_name"`
	CorrelationID string    `json:"correlation_id"`
}

// StartImpersonation begins an audited impersonation session
func (h *AdminHandler) StartImpersonation(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSession(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	var req startImpersonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TenantID == uuid.Nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "tenant_id is required"})
		return
	}

	meta := impersonation.RequestMeta{
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}

	tenant, err := h.manager.Start(r.Context(), sess, req.TenantID, meta)
	if err != nil {
		switch {
		case errors.Is(err, impersonation.ErrNotOperator):
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "operator role required"})
		case errors.Is(err, impersonation.ErrAlreadyImpersonating):
			writeJSON(w, http.StatusConflict, errorResponse{Error: "already impersonating; stop the current session first"})
		case errors.Is(err, impersonation.ErrTenantNotFound):
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "target tenant not found"})
		case errors.Is(err, audit.ErrWriteFailed):
			log.Error().Err(err).Msg("Impersonation start aborted: audit sink unavailable")
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "audit sink unavailable; impersonation not started"})
		default:
			writeError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, impersonationResponse{
		TenantID:      tenant.ID,
		TenantName:    tenant.Name,
		CorrelationID: sess.Impersonation.CorrelationID,
	})
}

// StopImpersonation ends the current impersonation session. Idempotent:
// stopping when not impersonating succeeds.
func (h *AdminHandler) StopImpersonation(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSession(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	meta := impersonation.RequestMeta{
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}

	if err := h.manager.Stop(r.Context(), sess, meta); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListImpersonationEvents returns recent impersonation events, or the full
// trail for one correlation id when ?correlation_id= is given.
func (h *AdminHandler) ListImpersonationEvents(w http.ResponseWriter, r *http.Request) {
	if cid := r.URL.Query().Get("correlation_id"); cid != "" {
		events, err := h.recorder.Trail(r.Context(), cid)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, events)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.recorder.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
