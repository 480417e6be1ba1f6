package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/yourorg/stockledger/internal/domain"
)

// AuditHandler serves the read-only audit trail endpoints. Role gating
// to admin/manager happens in middleware before these run.
type AuditHandler struct {
	auditRepo domain.AuditRepository
	logger    *slog.Logger
	debug     bool
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditRepo domain.AuditRepository, logger *slog.Logger, debug bool) *AuditHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuditHandler{
		auditRepo: auditRepo,
		logger:    logger,
		debug:     debug,
	}
}

// List handles GET /audit?skip&limit
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	logs, err := h.auditRepo.List(r.Context(), pageFromQuery(r))
	if err != nil {
		writeError(w, h.logger, h.debug, err)
		return
	}

	if logs == nil {
		logs = []*domain.AuditLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

// ListForItem handles GET /audit/item/{id}. It answers for deleted
// items too: the trail outlives the row it describes.
func (h *AuditHandler) ListForItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || itemID <= 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid item id"})
		return
	}

	logs, err := h.auditRepo.ListForItem(r.Context(), itemID)
	if err != nil {
		writeError(w, h.logger, h.debug, err)
		return
	}

	if logs == nil {
		logs = []*domain.AuditLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}
