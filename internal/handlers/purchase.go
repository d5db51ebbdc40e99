// internal/handlers/purchase.go
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/satyam-tomar/vending-machine-api/internal/core/ports"
)

// PurchaseHandler handles purchase HTTP requests
type PurchaseHandler struct {
	service ports.PurchaseService
	logger  *slog.Logger
}

// NewPurchaseHandler creates a new purchase handler
func NewPurchaseHandler(service ports.PurchaseService, logger *slog.Logger) *PurchaseHandler {
	return &PurchaseHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "purchase")),
	}
}

// PurchaseRequest represents the request body for a purchase
type PurchaseRequest struct {
	ItemID       uuid.UUID `json:"item_id"`
	CashInserted int64     `json:"cash_inserted"`
}

// Validate validates the purchase request
func (r *PurchaseRequest) Validate() error {
	if r.ItemID == uuid.Nil {
		return fmt.Errorf("item_id is required")
	}
	if r.CashInserted < 0 {
		return fmt.Errorf("cash_inserted cannot be negative")
	}
	return nil
}

// Purchase handles POST /api/v1/purchase
func (h *PurchaseHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	receipt, err := h.service.Purchase(ctx, req.ItemID, req.CashInserted)
	if err != nil {
		h.logger.WarnContext(ctx, "purchase rejected",
			slog.String("item_id", req.ItemID.String()),
			slog.Int64("cash_inserted", req.CashInserted),
			slog.String("error", err.Error()))
		respondDomainError(w, h.logger, err)
		return
	}

	h.logger.InfoContext(ctx, "purchase completed",
		slog.String("item_id", req.ItemID.String()),
		slog.String("item", receipt.Item),
		slog.Int64("change_returned", receipt.ChangeReturned))

	respondJSON(w, h.logger, http.StatusOK, receipt)
}

// ChangeBreakdown handles GET /api/v1/purchase/change/{amount}
func (h *PurchaseHandler) ChangeBreakdown(w http.ResponseWriter, r *http.Request) {
	amount, err := strconv.ParseInt(r.PathValue("amount"), 10, 64)
	if err != nil || amount < 0 {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid change amount")
		return
	}

	respondJSON(w, h.logger, http.StatusOK, h.service.ChangeBreakdown(amount))
}
