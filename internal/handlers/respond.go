// internal/handlers/respond.go
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/satyam-tomar/vending-machine-api/internal/core/domain"
)

func respondJSON(w http.ResponseWriter, logger *slog.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response",
			slog.String("error", err.Error()))
	}
}

func respondError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	respondJSON(w, logger, status, map[string]string{"error": message})
}

// respondDomainError translates service errors into HTTP responses. Errors
// outside the closed taxonomy are reported as 500 without leaking detail.
func respondDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var insufficient *domain.InsufficientCashError
	if errors.As(err, &insufficient) {
		respondJSON(w, logger, http.StatusBadRequest, map[string]interface{}{
			"error":    insufficient.Error(),
			"required": insufficient.Required,
			"inserted": insufficient.Inserted,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrSlotNotFound),
		errors.Is(err, domain.ErrItemNotFound),
		errors.Is(err, domain.ErrItemsNotFound):
		respondError(w, logger, http.StatusNotFound, err.Error())

	case errors.Is(err, domain.ErrSlotCodeExists),
		errors.Is(err, domain.ErrSlotNotEmpty),
		errors.Is(err, domain.ErrOutOfStock):
		respondError(w, logger, http.StatusConflict, err.Error())

	case errors.Is(err, domain.ErrSlotLimitReached),
		errors.Is(err, domain.ErrCapacityExceeded),
		errors.Is(err, domain.ErrQuantityMustBePositive),
		errors.Is(err, domain.ErrQuantityExceedsAvailable),
		errors.Is(err, domain.ErrPriceMustBePositive):
		respondError(w, logger, http.StatusBadRequest, err.Error())

	default:
		respondError(w, logger, http.StatusInternalServerError, "internal server error")
	}
}
