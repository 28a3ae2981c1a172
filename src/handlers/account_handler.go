package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/paydown/backend/src/database"
	"github.com/username/paydown/backend/src/model"
	"github.com/username/paydown/backend/src/services"
	"github.com/username/paydown/backend/src/utils"
)

type AccountHandler struct {
	planService services.PlanService
}

func NewAccountHandler(planService services.PlanService) *AccountHandler {
	return &AccountHandler{
		planService: planService,
	}
}

func (h *AccountHandler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	accounts, err := model.ListBankAccounts(database.DB, userID)
	if err != nil {
		handleServiceError(w, err, "Error listing bank accounts")
		return
	}
	respondJSON(w, http.StatusOK, accounts)
}

func (h *AccountHandler) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var account model.BankAccount
	if err := json.NewDecoder(r.Body).Decode(&account); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if account.Name == "" {
		utils.SendJSONError(w, "Account name is required", http.StatusBadRequest)
		return
	}
	if account.Bank == "" {
		account.Bank = "OTHER"
	}
	account.UserID = userID

	if err := account.CreateBankAccount(database.DB); err != nil {
		handleServiceError(w, err, "Error creating bank account")
		return
	}
	h.planService.InvalidateUserCache(userID)
	respondJSON(w, http.StatusCreated, account)
}

func (h *AccountHandler) HandleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	accountID, ok := pathID(r, "id")
	if !ok {
		utils.SendJSONError(w, "Invalid account ID", http.StatusBadRequest)
		return
	}

	if _, err := model.GetBankAccountByID(database.DB, accountID, userID); err != nil {
		handleServiceError(w, err, "Error loading bank account")
		return
	}

	var account model.BankAccount
	if err := json.NewDecoder(r.Body).Decode(&account); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	account.ID = accountID
	account.UserID = userID

	if err := account.UpdateBankAccount(database.DB); err != nil {
		handleServiceError(w, err, "Error updating bank account")
		return
	}
	h.planService.InvalidateUserCache(userID)
	respondJSON(w, http.StatusOK, account)
}

func (h *AccountHandler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	accountID, ok := pathID(r, "id")
	if !ok {
		utils.SendJSONError(w, "Invalid account ID", http.StatusBadRequest)
		return
	}

	if err := model.DeleteBankAccount(database.DB, accountID, userID); err != nil {
		handleServiceError(w, err, "Error deleting bank account")
		return
	}
	h.planService.InvalidateUserCache(userID)
	w.WriteHeader(http.StatusNoContent)
}
