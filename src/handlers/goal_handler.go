package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/paydown/backend/src/database"
	"github.com/username/paydown/backend/src/model"
	"github.com/username/paydown/backend/src/services"
	"github.com/username/paydown/backend/src/utils"
)

type GoalHandler struct {
	planService services.PlanService
}

func NewGoalHandler(planService services.PlanService) *GoalHandler {
	return &GoalHandler{
		planService: planService,
	}
}

func (h *GoalHandler) HandleListGoals(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	goals, err := model.ListSavingsGoals(database.DB, userID)
	if err != nil {
		handleServiceError(w, err, "Error listing savings goals")
		return
	}
	respondJSON(w, http.StatusOK, goals)
}

func (h *GoalHandler) HandleCreateGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var goal model.SavingsGoal
	if err := json.NewDecoder(r.Body).Decode(&goal); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if goal.Name == "" || goal.TargetAmount <= 0 {
		utils.SendJSONError(w, "Name and a positive target amount are required", http.StatusBadRequest)
		return
	}
	goal.UserID = userID

	if err := goal.CreateSavingsGoal(database.DB); err != nil {
		handleServiceError(w, err, "Error creating savings goal")
		return
	}
	h.planService.InvalidateUserCache(userID)
	respondJSON(w, http.StatusCreated, goal)
}

func (h *GoalHandler) HandleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	goalID, ok := pathID(r, "id")
	if !ok {
		utils.SendJSONError(w, "Invalid goal ID", http.StatusBadRequest)
		return
	}

	if _, err := model.GetSavingsGoalByID(database.DB, goalID, userID); err != nil {
		handleServiceError(w, err, "Error loading savings goal")
		return
	}

	var goal model.SavingsGoal
	if err := json.NewDecoder(r.Body).Decode(&goal); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	goal.ID = goalID
	goal.UserID = userID

	if err := goal.UpdateSavingsGoal(database.DB); err != nil {
		handleServiceError(w, err, "Error updating savings goal")
		return
	}
	h.planService.InvalidateUserCache(userID)
	respondJSON(w, http.StatusOK, goal)
}

func (h *GoalHandler) HandleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	goalID, ok := pathID(r, "id")
	if !ok {
		utils.SendJSONError(w, "Invalid goal ID", http.StatusBadRequest)
		return
	}

	if err := model.DeleteSavingsGoal(database.DB, goalID, userID); err != nil {
		handleServiceError(w, err, "Error deleting savings goal")
		return
	}
	h.planService.InvalidateUserCache(userID)
	w.WriteHeader(http.StatusNoContent)
}
