package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/username/paydown/backend/src/database"
	"github.com/username/paydown/backend/src/model"
	"github.com/username/paydown/backend/src/services"
	"github.com/username/paydown/backend/src/utils"
)

type DebtHandler struct {
	debtService services.DebtService
}

func NewDebtHandler(debtService services.DebtService) *DebtHandler {
	return &DebtHandler{
		debtService: debtService,
	}
}

func pathID(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(r.PathValue(name))
	return id, err == nil && id > 0
}

func (h *DebtHandler) HandleListDebts(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	debts, err := h.debtService.ListDebts(userID)
	if err != nil {
		handleServiceError(w, err, "Error listing debts")
		return
	}
	respondJSON(w, http.StatusOK, debts)
}

func (h *DebtHandler) HandleCreateDebt(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var in services.DebtInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	detail, err := h.debtService.CreateDebt(userID, in)
	if err != nil {
		handleServiceError(w, err, "Error creating debt")
		return
	}
	respondJSON(w, http.StatusCreated, detail)
}

func (h *DebtHandler) HandleGetDebt(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	debtID, ok := pathID(r, "id")
	if !ok {
		utils.SendJSONError(w, "Invalid debt ID", http.StatusBadRequest)
		return
	}

	detail, err := h.debtService.GetDebt(userID, debtID)
	if err != nil {
		handleServiceError(w, err, "Error loading debt")
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

func (h *DebtHandler) HandleUpdateDebt(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	debtID, ok := pathID(r, "id")
	if !ok {
		utils.SendJSONError(w, "Invalid debt ID", http.StatusBadRequest)
		return
	}

	var in services.DebtInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	detail, err := h.debtService.UpdateDebt(userID, debtID, in)
	if err != nil {
		handleServiceError(w, err, "Error updating debt")
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

func (h *DebtHandler) HandleDeleteDebt(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	debtID, ok := pathID(r, "id")
	if !ok {
		utils.SendJSONError(w, "Invalid debt ID", http.StatusBadRequest)
		return
	}

	if err := h.debtService.DeleteDebt(userID, debtID); err != nil {
		handleServiceError(w, err, "Error deleting debt")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DebtHandler) HandleRecordPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	debtID, ok := pathID(r, "id")
	if !ok {
		utils.SendJSONError(w, "Invalid debt ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Amount float64 `json:"amount"`
		PaidAt *string `json:"paidAt,omitempty"`
		Notes  string  `json:"notes,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	paidAt := time.Now()
	if req.PaidAt != nil {
		parsed := utils.ParseDate(*req.PaidAt)
		if parsed.IsZero() {
			utils.SendJSONError(w, "Invalid paidAt, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		paidAt = parsed
	}

	payment, err := h.debtService.RecordPayment(userID, debtID, req.Amount, paidAt, req.Notes)
	if err != nil {
		handleServiceError(w, err, "Error recording debt payment")
		return
	}
	respondJSON(w, http.StatusCreated, payment)
}

// HandlePayoffProjection contrasts the minimum-payment payoff with the same
// payment plus an extra monthly amount from the query string.
func (h *DebtHandler) HandlePayoffProjection(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	debtID, ok := pathID(r, "id")
	if !ok {
		utils.SendJSONError(w, "Invalid debt ID", http.StatusBadRequest)
		return
	}

	extra := 0.0
	if extraStr := r.URL.Query().Get("extra"); extraStr != "" {
		parsed, err := strconv.ParseFloat(extraStr, 64)
		if err != nil || parsed < 0 {
			utils.SendJSONError(w, "Invalid extra amount", http.StatusBadRequest)
			return
		}
		extra = parsed
	}

	comparison, err := h.debtService.PayoffProjection(userID, debtID, extra)
	if err != nil {
		handleServiceError(w, err, "Error computing payoff projection")
		return
	}
	respondJSON(w, http.StatusOK, comparison)
}

// HandleFreedomProjection runs the balance-ordered elimination simulation
// over the user's active debts.
func (h *DebtHandler) HandleFreedomProjection(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	result, err := h.debtService.FreedomProjection(userID)
	if err != nil {
		handleServiceError(w, err, "Error computing freedom projection")
		return
	}
	if result == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{"active": false})
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *DebtHandler) HandleCreateQuickPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var q model.QuickPayment
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if q.Description == "" || q.Amount <= 0 {
		utils.SendJSONError(w, "Description and a positive amount are required", http.StatusBadRequest)
		return
	}
	if q.PaidAt.IsZero() {
		q.PaidAt = time.Now()
	}
	q.UserID = userID

	if err := q.CreateQuickPayment(database.DB); err != nil {
		handleServiceError(w, err, "Error logging quick payment")
		return
	}
	respondJSON(w, http.StatusCreated, q)
}

func (h *DebtHandler) HandleListQuickPayments(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	payments, err := model.ListQuickPayments(database.DB, userID)
	if err != nil {
		handleServiceError(w, err, "Error listing quick payments")
		return
	}
	respondJSON(w, http.StatusOK, payments)
}
