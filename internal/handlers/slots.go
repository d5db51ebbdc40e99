// internal/handlers/slots.go
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/satyam-tomar/vending-machine-api/internal/core/ports"
)

// SlotHandler handles slot administration HTTP requests
type SlotHandler struct {
	service ports.SlotService
	logger  *slog.Logger
}

// NewSlotHandler creates a new slot handler
func NewSlotHandler(service ports.SlotService, logger *slog.Logger) *SlotHandler {
	return &SlotHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "slots")),
	}
}

// CreateSlotRequest represents the request body for creating a slot
type CreateSlotRequest struct {
	Code     string `json:"code"`
	Capacity int    `json:"capacity"`
}

// Validate validates the create slot request
func (r *CreateSlotRequest) Validate() error {
	if r.Code == "" {
		return fmt.Errorf("code is required")
	}
	if r.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive")
	}
	return nil
}

// CreateSlot handles POST /api/v1/slots
func (h *SlotHandler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	slot, err := h.service.Create(ctx, req.Code, req.Capacity)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create slot",
			slog.String("code", req.Code),
			slog.String("error", err.Error()))
		respondDomainError(w, h.logger, err)
		return
	}

	h.logger.InfoContext(ctx, "slot created",
		slog.String("slot_id", slot.ID.String()),
		slog.String("code", slot.Code))

	respondJSON(w, h.logger, http.StatusCreated, slot)
}

// ListSlots handles GET /api/v1/slots
func (h *SlotHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	slots, err := h.service.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list slots",
			slog.String("error", err.Error()))
		respondError(w, h.logger, http.StatusInternalServerError, "Failed to list slots")
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"slots": slots,
		"count": len(slots),
	})
}

// FullViewResponse is the machine-wide inventory report
type FullViewResponse struct {
	Slots           []ports.SlotView `json:"slots"`
	SlotCount       int              `json:"slot_count"`
	TotalItems      int              `json:"total_items"`
	TotalStockValue decimal.Decimal  `json:"total_stock_value"`
}

// FullView handles GET /api/v1/slots/full-view
func (h *SlotHandler) FullView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	views, err := h.service.FullView(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to build full view",
			slog.String("error", err.Error()))
		respondError(w, h.logger, http.StatusInternalServerError, "Failed to build inventory report")
		return
	}

	totalItems := 0
	totalValue := int64(0)
	for _, view := range views {
		for _, item := range view.Items {
			totalItems += item.Quantity
			totalValue += item.Price * int64(item.Quantity)
		}
	}

	respondJSON(w, h.logger, http.StatusOK, FullViewResponse{
		Slots:      views,
		SlotCount:  len(views),
		TotalItems: totalItems,
		// Prices are stored in minor units; the report shows currency units.
		TotalStockValue: decimal.NewFromInt(totalValue).Shift(-2),
	})
}

// DeleteSlot handles DELETE /api/v1/slots/{id}
func (h *SlotHandler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	idStr := r.PathValue("id")

	slotID, err := uuid.Parse(idStr)
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid slot ID format")
		return
	}

	if err := h.service.Delete(ctx, slotID); err != nil {
		h.logger.ErrorContext(ctx, "failed to delete slot",
			slog.String("slot_id", idStr),
			slog.String("error", err.Error()))
		respondDomainError(w, h.logger, err)
		return
	}

	h.logger.InfoContext(ctx, "slot deleted",
		slog.String("slot_id", idStr))

	respondJSON(w, h.logger, http.StatusOK, map[string]string{
		"message": "Slot deleted successfully",
		"slot_id": idStr,
	})
}
