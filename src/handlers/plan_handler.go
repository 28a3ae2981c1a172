package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/username/paydown/backend/src/database"
	"github.com/username/paydown/backend/src/model"
	"github.com/username/paydown/backend/src/services"
	"github.com/username/paydown/backend/src/utils"
)

type PlanHandler struct {
	planService services.PlanService
}

func NewPlanHandler(planService services.PlanService) *PlanHandler {
	return &PlanHandler{
		planService: planService,
	}
}

// HandleGetPlan returns the allocation plan for the pay period containing
// the requested date (today by default). The response carries an ETag so
// clients polling between paychecks can skip identical bodies.
func (h *PlanHandler) HandleGetPlan(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	forDate := time.Now()
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		parsed := utils.ParseDate(dateStr)
		if parsed.IsZero() {
			utils.SendJSONError(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		forDate = parsed
	}

	plan, err := h.planService.GetAllocationPlan(userID, forDate)
	if err != nil {
		handleServiceError(w, err, "Error building allocation plan")
		return
	}

	etag, err := utils.GenerateETag(plan)
	if err != nil {
		utils.SendJSONError(w, "Error encoding plan", http.StatusInternalServerError)
		return
	}
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	respondJSON(w, http.StatusOK, plan)
}

func (h *PlanHandler) HandleExtraPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		DebtID int     `json:"debtId"`
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	payment, err := h.planService.RecordExtraDebtPayment(userID, req.DebtID, req.Amount, time.Now())
	if err != nil {
		handleServiceError(w, err, "Error recording extra debt payment")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success":    true,
		"newBalance": payment.NewBalance,
		"payment":    payment,
	})
}

func (h *PlanHandler) HandleEmergencyFund(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	goal, err := h.planService.CreditEmergencyFund(userID, req.Amount)
	if err != nil {
		handleServiceError(w, err, "Error crediting emergency fund")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"newAmount": goal.CurrentAmount,
		"goal":      goal,
	})
}

func (h *PlanHandler) HandleSyncBaseline(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		PreserveStartDate bool `json:"preserveStartDate"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	sync, err := h.planService.SyncPayoffBaseline(userID, req.PreserveStartDate)
	if err != nil {
		handleServiceError(w, err, "Error syncing payoff baseline")
		return
	}
	respondJSON(w, http.StatusOK, sync)
}

func (h *PlanHandler) HandleGetStrategy(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	user, err := model.GetUserByID(database.DB, userID)
	if err != nil {
		handleServiceError(w, err, "Error loading strategy")
		return
	}
	respondJSON(w, http.StatusOK, services.StrategyUpdate{
		PaycheckAmount:        user.PaycheckAmount,
		PaycheckFrequency:     user.PaycheckFrequency,
		PaycheckAccountID:     user.PaycheckAccountID,
		SpendingAccountID:     user.SpendingAccountID,
		DiscretionaryMonthly:  user.DiscretionaryMonthly,
		EmergencyFundTarget:   user.EmergencyFundTarget,
		DebtSurplusPercent:    user.DebtSurplusPercent,
		SavingsSurplusPercent: user.SavingsSurplusPercent,
	})
}

func (h *PlanHandler) HandleUpdateStrategy(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req services.StrategyUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.planService.UpdateStrategy(userID, req)
	if err != nil {
		handleServiceError(w, err, "Error updating strategy")
		return
	}
	respondJSON(w, http.StatusOK, user)
}
