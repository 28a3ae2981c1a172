package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/username/paydown/backend/src/logger"
	"github.com/username/paydown/backend/src/model"
	"github.com/username/paydown/backend/src/planner"
	"github.com/username/paydown/backend/src/services"
	"github.com/username/paydown/backend/src/utils"
)

// handleServiceError maps service and model errors onto HTTP statuses.
func handleServiceError(w http.ResponseWriter, err error, context string) {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, planner.ErrValidation):
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, model.ErrDebtNotFound),
		errors.Is(err, model.ErrBillNotFound),
		errors.Is(err, model.ErrAccountNotFound),
		errors.Is(err, model.ErrGoalNotFound),
		errors.Is(err, model.ErrUserNotFound):
		utils.SendJSONError(w, err.Error(), http.StatusNotFound)
	default:
		logger.L.Error(context, "error", err)
		utils.SendJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.L.Error("Error encoding JSON response", "error", err)
		}
	}
}
