package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/yourorg/stockledger/internal/domain"
	"github.com/yourorg/stockledger/internal/security/middleware"
	"github.com/yourorg/stockledger/internal/service"
)

// InventoryHandler handles the inventory item endpoints
type InventoryHandler struct {
	inventory *service.InventoryService
	logger    *slog.Logger
	debug     bool
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventory *service.InventoryService, logger *slog.Logger, debug bool) *InventoryHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &InventoryHandler{
		inventory: inventory,
		logger:    logger,
		debug:     debug,
	}
}

// List handles GET /inventory?search&category&skip&limit
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := domain.ItemFilter{
		Search:   r.URL.Query().Get("search"),
		Category: r.URL.Query().Get("category"),
	}

	items, err := h.inventory.List(r.Context(), filter, pageFromQuery(r))
	if err != nil {
		writeError(w, h.logger, h.debug, err)
		return
	}

	if items == nil {
		items = []*domain.InventoryItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// Stats handles GET /inventory/stats
func (h *InventoryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.inventory.Stats(r.Context())
	if err != nil {
		writeError(w, h.logger, h.debug, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Get handles GET /inventory/{id}
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	item, err := h.inventory.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, h.debug, err)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// Create handles POST /inventory
func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.CreateItemInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	item, err := h.inventory.Create(r.Context(), actor, input)
	if err != nil {
		writeError(w, h.logger, h.debug, err)
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

// Update handles PUT /inventory/{id}
func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	var input service.UpdateItemInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	item, err := h.inventory.Update(r.Context(), actor, id, input)
	if err != nil {
		writeError(w, h.logger, h.debug, err)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// Delete handles DELETE /inventory/{id}
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	if err := h.inventory.Delete(r.Context(), actor, id); err != nil {
		writeError(w, h.logger, h.debug, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func itemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid item id"})
		return 0, false
	}
	return id, true
}

func pageFromQuery(r *http.Request) domain.Page {
	page := domain.Page{}
	if skip, err := strconv.Atoi(r.URL.Query().Get("skip")); err == nil {
		page.Skip = skip
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		page.Limit = limit
	}
	return page.Normalize()
}
