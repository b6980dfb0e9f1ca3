package handlers

import (
	"net/http"
	"strconv"

	"github.com/bookablehq/bookable-core/internal/repository"
)

// AuditLogHandler serves the tenant-facing audit trail. The scoped handle
// means a tenant only ever sees its own entries, including those written
// during impersonation.
type AuditLogHandler struct {
	logs *repository.AuditRepository
}

// NewAuditLogHandler creates a new audit log handler
func NewAuditLogHandler(logs *repository.AuditRepository) *AuditLogHandler {
	return &AuditLogHandler{logs: logs}
}

// ListAuditLogs lists audit entries, optionally filtered by ?resource=
func (h *AuditLogHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	db, ok := requestDB(w, r)
	if !ok {
		return
	}

	if resource := r.URL.Query().Get("resource"); resource != "" {
		logs, err := h.logs.ListByResource(r.Context(), db, resource)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, logs)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	logs, err := h.logs.List(r.Context(), db, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
