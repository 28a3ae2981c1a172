package services

import (
	"database/sql"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/paydown/backend/src/logger"
	"github.com/username/paydown/backend/src/metrics"
	"github.com/username/paydown/backend/src/model"
	"github.com/username/paydown/backend/src/planner"
	"github.com/username/paydown/backend/src/utils"
)

type debtServiceImpl struct {
	db        *sql.DB
	planCache *cache.Cache
}

func NewDebtService(db *sql.DB, planCache *cache.Cache) DebtService {
	return &debtServiceImpl{
		db:        db,
		planCache: planCache,
	}
}

func validDebtType(t string) bool {
	switch t {
	case model.DebtTypeBNPL, model.DebtTypeCreditCard, model.DebtTypeLoan, model.DebtTypeOther:
		return true
	}
	return false
}

func (s *debtServiceImpl) validateInput(in DebtInput) error {
	if in.Name == "" {
		return fmt.Errorf("%w: debt name is required", ErrValidation)
	}
	if !validDebtType(in.Type) {
		return fmt.Errorf("%w: unrecognized debt type %q", ErrValidation, in.Type)
	}
	if in.CurrentBalance < 0 || in.OriginalBalance < 0 {
		return fmt.Errorf("%w: balances cannot be negative", ErrValidation)
	}
	if in.DueDay < 1 || in.DueDay > 31 {
		return fmt.Errorf("%w: dueDay must be between 1 and 31, got %d", ErrValidation, in.DueDay)
	}
	if in.Type == model.DebtTypeBNPL {
		if in.NumberOfPayments < 1 {
			return fmt.Errorf("%w: BNPL debts require numberOfPayments", ErrValidation)
		}
		if in.FirstPaymentDate == nil {
			return fmt.Errorf("%w: BNPL debts require firstPaymentDate", ErrValidation)
		}
	}
	return nil
}

// bnplFrequency normalizes the input cadence, defaulting BNPL plans without
// one to monthly.
func bnplFrequency(in DebtInput) planner.PaymentFrequency {
	if in.PaymentFrequency == "" {
		return planner.FrequencyMonthly
	}
	return planner.PaymentFrequency(in.PaymentFrequency)
}

func (s *debtServiceImpl) CreateDebt(userID int, in DebtInput) (*DebtDetail, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	debt := &model.Debt{
		UserID:          userID,
		Name:            in.Name,
		Type:            in.Type,
		Status:          model.DebtStatusCurrent,
		CurrentBalance:  in.CurrentBalance,
		OriginalBalance: in.OriginalBalance,
		InterestRate:    in.InterestRate,
		TotalRepayable:  in.TotalRepayable,
		MinimumPayment:  in.MinimumPayment,
		DueDay:          in.DueDay,
		StartDate:       time.Now(),
		DeferredUntil:   in.DeferredUntil,
		BankAccountID:   in.BankAccountID,
		IsActive:        true,
		Notes:           in.Notes,
	}
	if in.DeferredUntil != nil && in.DeferredUntil.After(time.Now()) {
		debt.Status = model.DebtStatusDeferred
	}

	var rateResult *planner.EffectiveAPRResult
	var schedule *planner.PaymentSchedule

	if in.Type == model.DebtTypeBNPL {
		freq := bnplFrequency(in)
		freqStr := string(freq)
		debt.PaymentFrequency = &freqStr

		total := in.OriginalBalance
		if in.TotalRepayable != nil {
			total = *in.TotalRepayable
		}
		debt.TotalRepayable = &total

		var err error
		schedule, err = planner.GeneratePaymentSchedule(planner.ScheduleInput{
			TotalAmount:      total,
			NumberOfPayments: in.NumberOfPayments,
			FirstPaymentDate: *in.FirstPaymentDate,
			Frequency:        freq,
		})
		if err != nil {
			return nil, err
		}
		if debt.MinimumPayment == 0 {
			debt.MinimumPayment = schedule.PaymentAmount
		}

		res, err := planner.CalculateEffectiveAPR(planner.EffectiveAPRInput{
			Principal:        in.OriginalBalance,
			TotalRepayable:   total,
			NumberOfPayments: in.NumberOfPayments,
			Frequency:        freq,
		})
		if err != nil {
			return nil, err
		}
		rateResult = &res
		if res.Implied {
			debt.EffectiveRate = &res.AnnualRate
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer tx.Rollback()

	if err := debt.CreateDebt(tx); err != nil {
		return nil, fmt.Errorf("error inserting debt: %w", err)
	}

	var installments []model.ScheduledPayment
	if schedule != nil {
		installments = installmentsFromSchedule(schedule)
		if err := model.ReplaceUnpaidSchedule(tx, debt.ID, installments); err != nil {
			return nil, fmt.Errorf("error writing installment schedule: %w", err)
		}
	}

	// Every debt with a recurring payment obligation gets a linked bill so the
	// allocation planner sees it as money due each period.
	if debt.MinimumPayment > 0 {
		bill := &model.Bill{
			UserID:        userID,
			Name:          debt.Name,
			Category:      "DEBT",
			Amount:        debt.MinimumPayment,
			DueDay:        debt.DueDay,
			IsRecurring:   true,
			Frequency:     "MONTHLY",
			DebtID:        &debt.ID,
			BankAccountID: debt.BankAccountID,
			IsActive:      true,
		}
		if err := bill.CreateBill(tx); err != nil {
			return nil, fmt.Errorf("error creating linked bill: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing debt creation: %w", err)
	}

	invalidateUserPlans(s.planCache, userID)
	logger.L.Info("Debt created", "userID", userID, "debtID", debt.ID, "type", debt.Type)

	return &DebtDetail{Debt: *debt, EffectiveRate: rateResult, Schedule: installments}, nil
}

func installmentsFromSchedule(schedule *planner.PaymentSchedule) []model.ScheduledPayment {
	installments := make([]model.ScheduledPayment, 0, len(schedule.Installments))
	for _, ins := range schedule.Installments {
		installments = append(installments, model.ScheduledPayment{
			DueDate: ins.DueDate,
			Amount:  ins.Amount,
		})
	}
	return installments
}

func (s *debtServiceImpl) UpdateDebt(userID, debtID int, in DebtInput) (*DebtDetail, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	debt, err := model.GetDebtByID(s.db, debtID, userID)
	if err != nil {
		return nil, err
	}

	debt.Name = in.Name
	debt.Type = in.Type
	debt.CurrentBalance = in.CurrentBalance
	debt.OriginalBalance = in.OriginalBalance
	debt.InterestRate = in.InterestRate
	debt.MinimumPayment = in.MinimumPayment
	debt.DueDay = in.DueDay
	debt.DeferredUntil = in.DeferredUntil
	debt.BankAccountID = in.BankAccountID
	debt.Notes = in.Notes

	switch {
	case in.DeferredUntil != nil && in.DeferredUntil.After(time.Now()):
		debt.Status = model.DebtStatusDeferred
	case debt.CurrentBalance <= 0.005:
		debt.Status = model.DebtStatusPaidOff
	default:
		debt.Status = model.DebtStatusCurrent
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer tx.Rollback()

	var rateResult *planner.EffectiveAPRResult
	if in.Type == model.DebtTypeBNPL {
		res, err := s.regenerateSchedule(tx, debt, in)
		if err != nil {
			return nil, err
		}
		rateResult = res
	}

	if err := debt.UpdateDebt(tx); err != nil {
		return nil, fmt.Errorf("error updating debt: %w", err)
	}

	if err := syncLinkedBill(tx, debt); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing debt update: %w", err)
	}

	invalidateUserPlans(s.planCache, userID)

	detail, err := s.GetDebt(userID, debtID)
	if err != nil {
		return nil, err
	}
	if rateResult != nil {
		detail.EffectiveRate = rateResult
	}
	return detail, nil
}

// regenerateSchedule rebuilds the unpaid remainder of a BNPL schedule. Paid
// installments stay as history; the remaining total is spread over the
// remaining payment count, with due dates continuing from the original
// cadence.
func (s *debtServiceImpl) regenerateSchedule(tx model.DBTX, debt *model.Debt, in DebtInput) (*planner.EffectiveAPRResult, error) {
	freq := bnplFrequency(in)
	freqStr := string(freq)
	debt.PaymentFrequency = &freqStr

	total := in.OriginalBalance
	if in.TotalRepayable != nil {
		total = *in.TotalRepayable
	}
	debt.TotalRepayable = &total

	existing, err := model.ListScheduledPayments(tx, debt.ID)
	if err != nil {
		return nil, fmt.Errorf("error loading installment schedule: %w", err)
	}
	paidCount := 0
	paidSum := 0.0
	for _, sp := range existing {
		if sp.IsPaid {
			paidCount++
			paidSum += sp.Amount
		}
	}

	remainingN := in.NumberOfPayments - paidCount
	remainingTotal := total - paidSum
	if remainingN > 0 && remainingTotal > 0 {
		firstDue := *in.FirstPaymentDate
		if paidCount > 0 {
			firstDue = advanceByFrequency(firstDue, freq, paidCount)
		}
		schedule, err := planner.GeneratePaymentSchedule(planner.ScheduleInput{
			TotalAmount:      remainingTotal,
			NumberOfPayments: remainingN,
			FirstPaymentDate: firstDue,
			Frequency:        freq,
		})
		if err != nil {
			return nil, err
		}
		if err := model.ReplaceUnpaidSchedule(tx, debt.ID, installmentsFromSchedule(schedule)); err != nil {
			return nil, fmt.Errorf("error rewriting installment schedule: %w", err)
		}
		if debt.MinimumPayment == 0 {
			debt.MinimumPayment = schedule.PaymentAmount
		}
	}

	res, err := planner.CalculateEffectiveAPR(planner.EffectiveAPRInput{
		Principal:        in.OriginalBalance,
		TotalRepayable:   total,
		NumberOfPayments: in.NumberOfPayments,
		Frequency:        freq,
	})
	if err != nil {
		return nil, err
	}
	if res.Implied {
		debt.EffectiveRate = &res.AnnualRate
	} else {
		debt.EffectiveRate = nil
	}
	return &res, nil
}

func advanceByFrequency(t time.Time, freq planner.PaymentFrequency, steps int) time.Time {
	switch freq {
	case planner.FrequencyWeekly:
		return t.AddDate(0, 0, 7*steps)
	case planner.FrequencyBiweekly:
		return t.AddDate(0, 0, 14*steps)
	default:
		return t.AddDate(steps/12, steps%12, 0)
	}
}

// syncLinkedBill keeps the debt's companion bill in step with its minimum
// payment and due day, creating or deactivating it as the debt changes.
func syncLinkedBill(tx model.DBTX, debt *model.Debt) error {
	bills, err := model.ListBillsForDebt(tx, debt.ID, debt.UserID)
	if err != nil {
		return fmt.Errorf("error loading linked bills: %w", err)
	}

	active := debt.IsActive && debt.Status != model.DebtStatusPaidOff && debt.MinimumPayment > 0

	if len(bills) == 0 {
		if !active {
			return nil
		}
		bill := &model.Bill{
			UserID:        debt.UserID,
			Name:          debt.Name,
			Category:      "DEBT",
			Amount:        debt.MinimumPayment,
			DueDay:        debt.DueDay,
			IsRecurring:   true,
			Frequency:     "MONTHLY",
			DebtID:        &debt.ID,
			BankAccountID: debt.BankAccountID,
			IsActive:      true,
		}
		if err := bill.CreateBill(tx); err != nil {
			return fmt.Errorf("error creating linked bill: %w", err)
		}
		return nil
	}

	for i := range bills {
		bill := bills[i]
		bill.Name = debt.Name
		bill.Amount = debt.MinimumPayment
		bill.DueDay = debt.DueDay
		bill.BankAccountID = debt.BankAccountID
		bill.IsActive = active
		if err := bill.UpdateBill(tx); err != nil {
			return fmt.Errorf("error updating linked bill: %w", err)
		}
	}
	return nil
}

func (s *debtServiceImpl) GetDebt(userID, debtID int) (*DebtDetail, error) {
	debt, err := model.GetDebtByID(s.db, debtID, userID)
	if err != nil {
		return nil, err
	}

	detail := &DebtDetail{Debt: *debt}
	if debt.Type == model.DebtTypeBNPL {
		detail.Schedule, err = model.ListScheduledPayments(s.db, debt.ID)
		if err != nil {
			return nil, err
		}
	}
	detail.Payments, err = model.ListDebtPayments(s.db, debt.ID)
	if err != nil {
		return nil, err
	}
	if debt.EffectiveRate != nil {
		detail.EffectiveRate = &planner.EffectiveAPRResult{AnnualRate: *debt.EffectiveRate, Implied: true}
	}
	return detail, nil
}

// ListDebts returns active debts ordered by the rate that matters: the
// effective rate when one is implied, the stated rate otherwise, highest
// first. This is the avalanche ordering.
func (s *debtServiceImpl) ListDebts(userID int) ([]model.Debt, error) {
	debts, err := model.ListDebts(s.db, userID, true)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(debts, func(i, j int) bool {
		return debtRate(debts[i]) > debtRate(debts[j])
	})
	return debts, nil
}

func debtRate(d model.Debt) float64 {
	rate := d.InterestRate
	if d.EffectiveRate != nil && *d.EffectiveRate > rate {
		rate = *d.EffectiveRate
	}
	return rate
}

func (s *debtServiceImpl) DeleteDebt(userID, debtID int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer tx.Rollback()

	if err := model.SoftDeleteDebt(tx, debtID, userID); err != nil {
		return err
	}
	if err := model.DeactivateBillsForDebt(tx, debtID, userID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing debt deletion: %w", err)
	}

	invalidateUserPlans(s.planCache, userID)
	logger.L.Info("Debt soft-deleted", "userID", userID, "debtID", debtID)
	return nil
}

func (s *debtServiceImpl) RecordPayment(userID, debtID int, amount float64, paidAt time.Time, notes string) (*model.DebtPayment, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: payment amount must be positive, got %.2f", ErrValidation, amount)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer tx.Rollback()

	debt, err := model.GetDebtByID(tx, debtID, userID)
	if err != nil {
		return nil, err
	}
	if !debt.IsActive {
		return nil, fmt.Errorf("%w: debt %d is not active", ErrValidation, debtID)
	}

	// BNPL installments carry no per-payment interest; the financing cost is
	// already baked into the repayable total. Everything else accrues one
	// month of interest at the stated rate before principal is applied.
	interest := 0.0
	if debt.Type != model.DebtTypeBNPL && debt.InterestRate > 0 {
		interest = utils.RoundCents(debt.CurrentBalance * debt.InterestRate / 100 / 12)
		if interest > amount {
			interest = amount
		}
	}
	principal := amount - interest
	newBalance := utils.RoundCents(math.Max(0, debt.CurrentBalance-principal))

	payment := &model.DebtPayment{
		DebtID:     debt.ID,
		Date:       paidAt,
		Amount:     amount,
		Principal:  principal,
		Interest:   interest,
		NewBalance: newBalance,
		Notes:      notes,
	}
	if err := payment.CreateDebtPayment(tx); err != nil {
		return nil, fmt.Errorf("error recording debt payment: %w", err)
	}

	if debt.Type == model.DebtTypeBNPL {
		next, err := model.NextUnpaidInstallment(tx, debt.ID)
		if err != nil {
			return nil, fmt.Errorf("error finding next installment: %w", err)
		}
		// An installment is only ticked off when the payment covers it; a
		// partial payment still reduces the balance but leaves the
		// installment due.
		if next != nil && amount+0.005 >= next.Amount {
			if err := model.MarkInstallmentPaid(tx, next.ID, paidAt, amount); err != nil {
				return nil, fmt.Errorf("error marking installment paid: %w", err)
			}
		}
	}

	if err := model.SettleDebtBillPayments(tx, debt.ID, userID, paidAt); err != nil {
		return nil, fmt.Errorf("error settling linked bill payments: %w", err)
	}

	debt.CurrentBalance = newBalance
	if newBalance <= 0.005 {
		debt.Status = model.DebtStatusPaidOff
		if err := model.DeactivateBillsForDebt(tx, debt.ID, userID); err != nil {
			return nil, err
		}
	}
	if err := debt.UpdateDebt(tx); err != nil {
		return nil, fmt.Errorf("error updating debt balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing debt payment: %w", err)
	}

	invalidateUserPlans(s.planCache, userID)
	metrics.DebtPayments.Inc()
	logger.L.Info("Debt payment recorded", "userID", userID, "debtID", debtID,
		"amount", amount, "newBalance", newBalance)
	return payment, nil
}

func (s *debtServiceImpl) PayoffProjection(userID, debtID int, extraMonthly float64) (*planner.PayoffComparison, error) {
	debt, err := model.GetDebtByID(s.db, debtID, userID)
	if err != nil {
		return nil, err
	}
	if debt.MinimumPayment <= 0 {
		return nil, fmt.Errorf("%w: debt %d has no minimum payment to project from", ErrValidation, debtID)
	}

	return planner.ComparePayoff(planner.PayoffInput{
		Balance:       debt.CurrentBalance,
		AnnualRate:    debtRate(*debt),
		Payment:       debt.MinimumPayment,
		DeferredUntil: debt.DeferredUntil,
	}, extraMonthly, time.Now())
}

// FreedomProjection runs the balance-ordered elimination simulation over the
// user's full debt list. Returns nil when there is nothing to simulate.
func (s *debtServiceImpl) FreedomProjection(userID int) (*planner.SnowballResult, error) {
	debts, err := model.ListDebts(s.db, userID, true)
	if err != nil {
		return nil, err
	}

	snowballDebts := make([]planner.SnowballDebt, 0, len(debts))
	for _, d := range debts {
		snowballDebts = append(snowballDebts, planner.SnowballDebt{
			ID:              int64(d.ID),
			Name:            d.Name,
			Balance:         d.CurrentBalance,
			OriginalBalance: d.OriginalBalance,
			AnnualRate:      debtRate(d),
			MinimumPayment:  d.MinimumPayment,
			PaidOff:         d.Status == model.DebtStatusPaidOff,
		})
	}
	return planner.CalculateSnowball(snowballDebts, time.Now()), nil
}
