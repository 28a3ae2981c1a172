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

// BillHandler works against the model layer directly; bills have no derived
// state beyond what the planner reads through PlanService.
type BillHandler struct {
	planService services.PlanService
}

func NewBillHandler(planService services.PlanService) *BillHandler {
	return &BillHandler{
		planService: planService,
	}
}

func (h *BillHandler) HandleListBills(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	bills, err := model.ListBills(database.DB, userID, false)
	if err != nil {
		handleServiceError(w, err, "Error listing bills")
		return
	}
	respondJSON(w, http.StatusOK, bills)
}

func (h *BillHandler) HandleCreateBill(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var bill model.Bill
	if err := json.NewDecoder(r.Body).Decode(&bill); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if bill.Name == "" || bill.Amount <= 0 {
		utils.SendJSONError(w, "Name and a positive amount are required", http.StatusBadRequest)
		return
	}
	if bill.DueDay < 1 || bill.DueDay > 31 {
		utils.SendJSONError(w, "dueDay must be between 1 and 31", http.StatusBadRequest)
		return
	}
	bill.UserID = userID
	bill.IsActive = true

	if err := bill.CreateBill(database.DB); err != nil {
		handleServiceError(w, err, "Error creating bill")
		return
	}
	h.planService.InvalidateUserCache(userID)
	respondJSON(w, http.StatusCreated, bill)
}

func (h *BillHandler) HandleUpdateBill(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	billID, ok := pathID(r, "id")
	if !ok {
		utils.SendJSONError(w, "Invalid bill ID", http.StatusBadRequest)
		return
	}

	existing, err := model.GetBillByID(database.DB, billID, userID)
	if err != nil {
		handleServiceError(w, err, "Error loading bill")
		return
	}

	var bill model.Bill
	if err := json.NewDecoder(r.Body).Decode(&bill); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if bill.DueDay < 1 || bill.DueDay > 31 {
		utils.SendJSONError(w, "dueDay must be between 1 and 31", http.StatusBadRequest)
		return
	}
	bill.ID = existing.ID
	bill.UserID = userID
	bill.DebtID = existing.DebtID // the debt link never changes through this route

	if err := bill.UpdateBill(database.DB); err != nil {
		handleServiceError(w, err, "Error updating bill")
		return
	}
	h.planService.InvalidateUserCache(userID)
	respondJSON(w, http.StatusOK, bill)
}

func (h *BillHandler) HandleDeleteBill(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	billID, ok := pathID(r, "id")
	if !ok {
		utils.SendJSONError(w, "Invalid bill ID", http.StatusBadRequest)
		return
	}

	if err := model.DeleteBill(database.DB, billID, userID); err != nil {
		handleServiceError(w, err, "Error deleting bill")
		return
	}
	h.planService.InvalidateUserCache(userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *BillHandler) HandleListBillPayments(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	billID, ok := pathID(r, "id")
	if !ok {
		utils.SendJSONError(w, "Invalid bill ID", http.StatusBadRequest)
		return
	}

	if _, err := model.GetBillByID(database.DB, billID, userID); err != nil {
		handleServiceError(w, err, "Error loading bill")
		return
	}
	payments, err := model.ListBillPayments(database.DB, billID)
	if err != nil {
		handleServiceError(w, err, "Error listing bill payments")
		return
	}
	respondJSON(w, http.StatusOK, payments)
}

// HandleMarkBillPaid flips one occurrence of a bill to paid, which removes it
// from the current allocation plan.
func (h *BillHandler) HandleMarkBillPaid(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	billID, ok := pathID(r, "id")
	if !ok {
		utils.SendJSONError(w, "Invalid bill ID", http.StatusBadRequest)
		return
	}

	var req struct {
		DueDate string `json:"dueDate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	dueDate := utils.ParseDate(req.DueDate)
	if dueDate.IsZero() {
		utils.SendJSONError(w, "Invalid dueDate, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	bill, err := model.GetBillByID(database.DB, billID, userID)
	if err != nil {
		handleServiceError(w, err, "Error loading bill")
		return
	}

	occ, err := model.GetBillPayment(database.DB, billID, dueDate)
	if err != nil {
		handleServiceError(w, err, "Error loading bill payment")
		return
	}
	if occ == nil {
		occ, err = model.CreateBillPayment(database.DB, billID, dueDate, bill.Amount)
		if err != nil {
			handleServiceError(w, err, "Error creating bill payment")
			return
		}
	}

	if err := model.MarkBillPaymentPaid(database.DB, occ.ID, time.Now()); err != nil {
		handleServiceError(w, err, "Error marking bill paid")
		return
	}

	h.planService.InvalidateUserCache(userID)
	w.WriteHeader(http.StatusNoContent)
}
