package handler

import (
	"context"
	"net/http"

	"github.com/iho/poolledger/internal/adapter/http/dto"
	"github.com/iho/poolledger/internal/domain"
)

// AuditService reads the audit trail.
type AuditService interface {
	ListAuditLogs(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error)
}

// AuditHandler serves the admin audit trail.
type AuditHandler struct {
	auditUC AuditService
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(auditUC AuditService) *AuditHandler {
	return &AuditHandler{auditUC: auditUC}
}

// List returns audit logs filtered by the user_id, action, resource_type
// and resource_id query parameters.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	logs, err := h.auditUC.ListAuditLogs(r.Context(), domain.AuditFilter{
		UserID:       q.Get("user_id"),
		Action:       q.Get("action"),
		ResourceType: q.Get("resource_type"),
		ResourceID:   q.Get("resource_id"),
		Limit:        parseIntQuery(r, "limit", 50),
		Offset:       parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeDomainError(w, "failed to list audit logs", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AuditLogsFromDomain(logs))
}
