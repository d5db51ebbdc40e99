// internal/handlers/items.go
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/satyam-tomar/vending-machine-api/internal/core/ports"
)

// ItemHandler handles stocking HTTP requests
type ItemHandler struct {
	service ports.InventoryService
	logger  *slog.Logger
}

// NewItemHandler creates a new item handler
func NewItemHandler(service ports.InventoryService, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "items")),
	}
}

// AddItemRequest represents the request body for stocking a single item
type AddItemRequest struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

// Validate validates the add item request
func (r *AddItemRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if r.Price < 0 {
		return fmt.Errorf("price cannot be negative")
	}
	return nil
}

// AddItem handles POST /api/v1/slots/{id}/items
func (h *ItemHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	slotID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid slot ID format")
		return
	}

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.service.AddItem(ctx, slotID, ports.ItemEntry{
		Name:     req.Name,
		Price:    req.Price,
		Quantity: req.Quantity,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to add item",
			slog.String("slot_id", slotID.String()),
			slog.String("name", req.Name),
			slog.String("error", err.Error()))
		respondDomainError(w, h.logger, err)
		return
	}

	h.logger.InfoContext(ctx, "item added",
		slog.String("slot_id", slotID.String()),
		slog.String("item_id", item.ID.String()),
		slog.Int("quantity", item.Quantity))

	respondJSON(w, h.logger, http.StatusCreated, item)
}

// AddBulkRequest represents the request body for bulk stocking
type AddBulkRequest struct {
	Items []AddItemRequest `json:"items"`
}

// AddBulk handles POST /api/v1/slots/{id}/items/bulk
func (h *ItemHandler) AddBulk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	slotID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid slot ID format")
		return
	}

	var req AddBulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Items) == 0 {
		respondError(w, h.logger, http.StatusBadRequest, "items must not be empty")
		return
	}

	entries := make([]ports.ItemEntry, 0, len(req.Items))
	for _, item := range req.Items {
		if err := item.Validate(); err != nil {
			respondError(w, h.logger, http.StatusBadRequest, err.Error())
			return
		}
		entries = append(entries, ports.ItemEntry{
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
		})
	}

	added, err := h.service.AddBulk(ctx, slotID, entries)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to bulk add items",
			slog.String("slot_id", slotID.String()),
			slog.Int("requested", len(entries)),
			slog.String("error", err.Error()))
		respondDomainError(w, h.logger, err)
		return
	}

	h.logger.InfoContext(ctx, "items bulk added",
		slog.String("slot_id", slotID.String()),
		slog.Int("added", added))

	respondJSON(w, h.logger, http.StatusCreated, map[string]interface{}{
		"added":   added,
		"skipped": len(entries) - added,
	})
}

// ListItems handles GET /api/v1/slots/{id}/items
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	slotID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid slot ID format")
		return
	}

	items, err := h.service.ListItems(ctx, slotID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list items",
			slog.String("slot_id", slotID.String()),
			slog.String("error", err.Error()))
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

// GetItem handles GET /api/v1/items/{id}
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	itemID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid item ID format")
		return
	}

	item, err := h.service.GetItem(ctx, itemID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get item",
			slog.String("item_id", itemID.String()),
			slog.String("error", err.Error()))
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, item)
}

// UpdatePriceRequest represents the request body for a price change
type UpdatePriceRequest struct {
	Price int64 `json:"price"`
}

// UpdatePrice handles PATCH /api/v1/items/{id}/price
func (h *ItemHandler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	itemID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid item ID format")
		return
	}

	var req UpdatePriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.UpdatePrice(ctx, itemID, req.Price); err != nil {
		h.logger.ErrorContext(ctx, "failed to update price",
			slog.String("item_id", itemID.String()),
			slog.Int64("price", req.Price),
			slog.String("error", err.Error()))
		respondDomainError(w, h.logger, err)
		return
	}

	h.logger.InfoContext(ctx, "item price updated",
		slog.String("item_id", itemID.String()),
		slog.Int64("price", req.Price))

	respondJSON(w, h.logger, http.StatusOK, map[string]string{
		"message": "Price updated successfully",
		"item_id": itemID.String(),
	})
}

// RemoveItem handles DELETE /api/v1/slots/{id}/items/{itemId}. An optional
// quantity query parameter removes that many units; without it the whole
// item row is removed.
func (h *ItemHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	slotID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid slot ID format")
		return
	}
	itemID, err := uuid.Parse(r.PathValue("itemId"))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid item ID format")
		return
	}

	var amount *int
	if q := r.URL.Query().Get("quantity"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			respondError(w, h.logger, http.StatusBadRequest, "Invalid quantity")
			return
		}
		amount = &n
	}

	if err := h.service.RemoveQuantity(ctx, slotID, itemID, amount); err != nil {
		h.logger.ErrorContext(ctx, "failed to remove item quantity",
			slog.String("slot_id", slotID.String()),
			slog.String("item_id", itemID.String()),
			slog.String("error", err.Error()))
		respondDomainError(w, h.logger, err)
		return
	}

	h.logger.InfoContext(ctx, "item quantity removed",
		slog.String("slot_id", slotID.String()),
		slog.String("item_id", itemID.String()))

	respondJSON(w, h.logger, http.StatusOK, map[string]string{
		"message": "Item removed successfully",
		"item_id": itemID.String(),
	})
}

// RemoveBulkRequest represents the request body for bulk removal. A missing
// item_ids field clears the whole slot.
type RemoveBulkRequest struct {
	ItemIDs []uuid.UUID `json:"item_ids"`
}

// RemoveBulk handles DELETE /api/v1/slots/{id}/items
func (h *ItemHandler) RemoveBulk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	slotID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid slot ID format")
		return
	}

	var req RemoveBulkRequest
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			respondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	removed, err := h.service.RemoveBulk(ctx, slotID, req.ItemIDs)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to bulk remove items",
			slog.String("slot_id", slotID.String()),
			slog.String("error", err.Error()))
		respondDomainError(w, h.logger, err)
		return
	}

	h.logger.InfoContext(ctx, "items bulk removed",
		slog.String("slot_id", slotID.String()),
		slog.Int("removed", removed))

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"removed": removed,
	})
}
