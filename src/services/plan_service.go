package services

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/paydown/backend/src/config"
	"github.com/username/paydown/backend/src/logger"
	"github.com/username/paydown/backend/src/metrics"
	"github.com/username/paydown/backend/src/model"
	"github.com/username/paydown/backend/src/planner"
	"github.com/username/paydown/backend/src/utils"
)

const (
	ckAllocationPlan = "plan_user_%d_%s"

	DefaultCacheExpiration = 2 * time.Minute
	CacheCleanupInterval   = 10 * time.Minute
)

type planServiceImpl struct {
	db          *sql.DB
	debtService DebtService
	planCache   *cache.Cache
}

func NewPlanService(db *sql.DB, debtService DebtService, planCache *cache.Cache) PlanService {
	return &planServiceImpl{
		db:          db,
		debtService: debtService,
		planCache:   planCache,
	}
}

func payAnchor() time.Time {
	if config.Cfg != nil {
		return config.Cfg.PayAnchorDate
	}
	return time.Date(2025, time.November, 26, 0, 0, 0, 0, time.UTC)
}

func planCacheTTL() time.Duration {
	if config.Cfg != nil && config.Cfg.PlanCacheTTL > 0 {
		return config.Cfg.PlanCacheTTL
	}
	return DefaultCacheExpiration
}

func planCacheKey(userID int, paycheckDate time.Time) string {
	return fmt.Sprintf(ckAllocationPlan, userID, paycheckDate.Format(utils.DefaultDateFormat))
}

// invalidateUserPlans drops the cached plans for the periods a data change
// can affect: the current one and the next.
func invalidateUserPlans(c *cache.Cache, userID int) {
	now := time.Now()
	current := planner.CurrentPeriod(payAnchor(), now)
	next := planner.NextPeriod(payAnchor(), now)
	c.Delete(planCacheKey(userID, current.PaycheckDate))
	c.Delete(planCacheKey(userID, next.PaycheckDate))
}

func (s *planServiceImpl) InvalidateUserCache(userID int) {
	invalidateUserPlans(s.planCache, userID)
}

func (s *planServiceImpl) GetAllocationPlan(userID int, forDate time.Time) (*planner.AllocationPlan, error) {
	period := planner.PeriodForDate(payAnchor(), forDate)
	cacheKey := planCacheKey(userID, period.PaycheckDate)

	if cached, found := s.planCache.Get(cacheKey); found {
		metrics.PlanCacheHits.Inc()
		return cached.(*planner.AllocationPlan), nil
	}

	user, err := model.GetUserByID(s.db, userID)
	if err != nil {
		return nil, err
	}
	if user.PaycheckAmount <= 0 {
		return nil, fmt.Errorf("%w: paycheck amount is not configured", ErrValidation)
	}

	accounts, err := model.ListBankAccounts(s.db, userID)
	if err != nil {
		return nil, err
	}

	debts, err := model.ListDebts(s.db, userID, true)
	if err != nil {
		return nil, err
	}

	// Bills tied to a debt deferred past the period's end are not due yet.
	deferredDebts := map[int]bool{}
	for _, d := range debts {
		if d.DeferredUntil != nil && d.DeferredUntil.After(period.EndDate) {
			deferredDebts[d.ID] = true
		}
	}

	unpaid, err := s.collectUnpaidBillPayments(userID, period, deferredDebts)
	if err != nil {
		return nil, err
	}

	fundCurrent := 0.0
	var fundGoalID *int64
	goal, err := model.FindEmergencyFundGoal(s.db, userID)
	if err != nil {
		return nil, err
	}
	if goal != nil {
		fundCurrent = goal.CurrentAmount
		id := int64(goal.ID)
		fundGoalID = &id
	}

	now := time.Now()
	input := planner.PlanInput{
		Period:               period,
		Strategy:             strategyFromUser(user),
		UnpaidPayments:       unpaid,
		Accounts:             planAccounts(accounts),
		EmergencyFundCurrent: fundCurrent,
		EmergencyGoalID:      fundGoalID,
	}
	for _, d := range debts {
		input.Debts = append(input.Debts, planDebt(d, now))
		if d.Status != model.DebtStatusPaidOff {
			input.CurrentDebtTotal += d.CurrentBalance
		}
	}

	plan := planner.BuildAllocationPlan(input, now)
	metrics.PlansComputed.Inc()

	s.planCache.Set(cacheKey, plan, planCacheTTL())
	logger.L.Info("Allocation plan computed", "userID", userID,
		"paycheckDate", period.PaycheckDate.Format(utils.DefaultDateFormat),
		"steps", len(plan.Steps))
	return plan, nil
}

// collectUnpaidBillPayments materializes occurrence rows for every active
// bill due inside the period and returns the ones still unpaid. A monthly
// due day is clamped to the month's length, so a bill due on the 31st lands
// on Feb 28 in February.
func (s *planServiceImpl) collectUnpaidBillPayments(userID int, period planner.PayPeriod, deferredDebts map[int]bool) ([]planner.PlanBillPayment, error) {
	bills, err := model.ListBills(s.db, userID, true)
	if err != nil {
		return nil, err
	}

	var unpaid []planner.PlanBillPayment
	for _, bill := range bills {
		if bill.DebtID != nil && deferredDebts[*bill.DebtID] {
			continue
		}
		for _, dueDate := range dueDatesInPeriod(bill.DueDay, period) {
			occ, err := model.GetBillPayment(s.db, bill.ID, dueDate)
			if err != nil {
				return nil, err
			}
			if occ == nil {
				occ, err = model.CreateBillPayment(s.db, bill.ID, dueDate, bill.Amount)
				if err != nil {
					return nil, err
				}
			}
			if occ.Status == model.BillStatusPaid {
				continue
			}
			unpaid = append(unpaid, planner.PlanBillPayment{
				ID:            int64(occ.ID),
				BillID:        int64(bill.ID),
				BillName:      bill.Name,
				Amount:        occ.Amount,
				DueDate:       occ.DueDate,
				BankAccountID: intPtrTo64(bill.BankAccountID),
			})
		}
	}
	return unpaid, nil
}

// dueDatesInPeriod finds the concrete dates a monthly due day falls on inside
// a 14-day period. The period can straddle a month boundary, so both the
// start and end months are probed.
func dueDatesInPeriod(dueDay int, period planner.PayPeriod) []time.Time {
	var dates []time.Time
	seen := map[time.Time]bool{}
	for _, ref := range []time.Time{period.StartDate, period.EndDate} {
		day := dueDay
		if max := utils.DaysInMonth(ref.Year(), ref.Month()); day > max {
			day = max
		}
		candidate := time.Date(ref.Year(), ref.Month(), day, 0, 0, 0, 0, time.UTC)
		if planner.DateInPeriod(candidate, period) && !seen[candidate] {
			seen[candidate] = true
			dates = append(dates, candidate)
		}
	}
	return dates
}

func strategyFromUser(user *model.User) planner.StrategyConfig {
	freq := planner.PaymentFrequency(user.PaycheckFrequency)
	if !freq.Valid() {
		freq = planner.FrequencyBiweekly
	}
	return planner.StrategyConfig{
		PaycheckAmount:        user.PaycheckAmount,
		PaycheckFrequency:     freq,
		PaycheckAccountID:     intPtrTo64(user.PaycheckAccountID),
		SpendingAccountID:     intPtrTo64(user.SpendingAccountID),
		DiscretionaryMonthly:  user.DiscretionaryMonthly,
		EmergencyFundTarget:   user.EmergencyFundTarget,
		DebtSurplusPercent:    user.DebtSurplusPercent,
		SavingsSurplusPercent: user.SavingsSurplusPercent,
		Baseline: planner.Baseline{
			StartDate:      user.PayoffStartDate,
			StartTotalDebt: user.PayoffStartTotalDebt,
			TargetDate:     user.PayoffTargetDate,
		},
	}
}

func planAccounts(accounts []model.BankAccount) []planner.PlanAccount {
	out := make([]planner.PlanAccount, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, planner.PlanAccount{ID: int64(a.ID), Name: a.Name, Bank: a.Bank})
	}
	return out
}

func planDebt(d model.Debt, now time.Time) planner.PlanDebt {
	return planner.PlanDebt{
		ID:             int64(d.ID),
		Name:           d.Name,
		Balance:        d.CurrentBalance,
		StatedRate:     d.InterestRate,
		EffectiveRate:  d.EffectiveRate,
		MinimumPayment: d.MinimumPayment,
		BankAccountID:  intPtrTo64(d.BankAccountID),
		Active:         d.IsActive,
		PaidOff:        d.Status == model.DebtStatusPaidOff,
		Deferred:       d.DeferredUntil != nil && d.DeferredUntil.After(now),
	}
}

func intPtrTo64(p *int) *int64 {
	if p == nil {
		return nil
	}
	v := int64(*p)
	return &v
}

// RecordExtraDebtPayment applies a plan-driven extra payment and logs it as a
// quick payment so it shows up in the user's one-off spending history.
func (s *planServiceImpl) RecordExtraDebtPayment(userID, debtID int, amount float64, paidAt time.Time) (*model.DebtPayment, error) {
	payment, err := s.debtService.RecordPayment(userID, debtID, amount, paidAt, "Extra payment from allocation plan")
	if err != nil {
		return nil, err
	}

	quick := &model.QuickPayment{
		UserID:      userID,
		Description: "Extra debt payment",
		Amount:      amount,
		PaidAt:      paidAt,
		DebtID:      &debtID,
		Category:    "DEBT",
	}
	if err := quick.CreateQuickPayment(s.db); err != nil {
		logger.L.Error("Failed to log quick payment for extra debt payment",
			"userID", userID, "debtID", debtID, "error", err)
	}
	return payment, nil
}

// CreditEmergencyFund adds money to the user's emergency fund goal, creating
// the goal on first use with the configured target.
func (s *planServiceImpl) CreditEmergencyFund(userID int, amount float64) (*model.SavingsGoal, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %.2f", ErrValidation, amount)
	}

	goal, err := model.FindEmergencyFundGoal(s.db, userID)
	if err != nil {
		return nil, err
	}
	if goal == nil {
		user, err := model.GetUserByID(s.db, userID)
		if err != nil {
			return nil, err
		}
		goal = &model.SavingsGoal{
			UserID:       userID,
			Name:         "Emergency Fund",
			TargetAmount: user.EmergencyFundTarget,
			Milestone:    model.MilestoneEmergencyFund,
		}
		if err := goal.CreateSavingsGoal(s.db); err != nil {
			return nil, fmt.Errorf("error creating emergency fund goal: %w", err)
		}
		logger.L.Info("Emergency fund goal created", "userID", userID, "target", goal.TargetAmount)
	}

	goal.CurrentAmount += amount
	if err := goal.UpdateSavingsGoal(s.db); err != nil {
		return nil, fmt.Errorf("error crediting emergency fund: %w", err)
	}

	invalidateUserPlans(s.planCache, userID)
	logger.L.Info("Emergency fund credited", "userID", userID, "amount", amount, "balance", goal.CurrentAmount)
	return goal, nil
}

// SyncPayoffBaseline discards the payoff baseline and rebuilds it from the
// live sum of active debt balances. The start date resets to now unless the
// caller asks to preserve it. A user with no target date gets the elimination
// simulation's debt-free date; with no active debts the target stays nil.
func (s *planServiceImpl) SyncPayoffBaseline(userID int, preserveStartDate bool) (*BaselineSync, error) {
	user, err := model.GetUserByID(s.db, userID)
	if err != nil {
		return nil, err
	}

	debts, err := model.ListDebts(s.db, userID, true)
	if err != nil {
		return nil, err
	}
	total := 0.0
	for _, d := range debts {
		if d.Status != model.DebtStatusPaidOff {
			total += d.CurrentBalance
		}
	}

	result := &BaselineSync{
		PreviousStartDate:      user.PayoffStartDate,
		PreviousStartTotalDebt: user.PayoffStartTotalDebt,
		NewStartTotalDebt:      total,
	}

	now := time.Now()
	startDate := now
	if preserveStartDate && user.PayoffStartDate != nil {
		startDate = *user.PayoffStartDate
	}
	result.NewStartDate = startDate

	targetDate := user.PayoffTargetDate
	if targetDate == nil {
		projection, err := s.debtService.FreedomProjection(userID)
		if err != nil {
			return nil, err
		}
		if projection != nil {
			targetDate = &projection.DebtFreeDate
		}
	}
	result.TargetDate = targetDate

	user.PayoffStartDate = &startDate
	user.PayoffStartTotalDebt = &total
	user.PayoffTargetDate = targetDate
	if err := user.UpdatePayoffBaseline(s.db); err != nil {
		return nil, fmt.Errorf("error saving payoff baseline: %w", err)
	}

	invalidateUserPlans(s.planCache, userID)
	logger.L.Info("Payoff baseline synced", "userID", userID,
		"startTotalDebt", total, "preserveStartDate", preserveStartDate)
	return result, nil
}

// UpdateStrategy validates and saves the user's allocation settings. The two
// surplus percentages must cover the whole surplus between them.
func (s *planServiceImpl) UpdateStrategy(userID int, in StrategyUpdate) (*model.User, error) {
	if in.PaycheckAmount < 0 {
		return nil, fmt.Errorf("%w: paycheck amount cannot be negative", ErrValidation)
	}
	if !planner.PaymentFrequency(in.PaycheckFrequency).Valid() {
		return nil, fmt.Errorf("%w: unrecognized paycheck frequency %q", ErrValidation, in.PaycheckFrequency)
	}
	if in.DebtSurplusPercent < 0 || in.SavingsSurplusPercent < 0 {
		return nil, fmt.Errorf("%w: surplus percentages cannot be negative", ErrValidation)
	}
	if math.Abs(in.DebtSurplusPercent+in.SavingsSurplusPercent-1) > 1e-6 {
		return nil, fmt.Errorf("%w: debt and savings surplus percentages must sum to 1, got %.4f",
			ErrValidation, in.DebtSurplusPercent+in.SavingsSurplusPercent)
	}
	if in.DiscretionaryMonthly < 0 || in.EmergencyFundTarget < 0 {
		return nil, fmt.Errorf("%w: budget amounts cannot be negative", ErrValidation)
	}

	user, err := model.GetUserByID(s.db, userID)
	if err != nil {
		return nil, err
	}

	user.PaycheckAmount = in.PaycheckAmount
	user.PaycheckFrequency = in.PaycheckFrequency
	user.PaycheckAccountID = in.PaycheckAccountID
	user.SpendingAccountID = in.SpendingAccountID
	user.DiscretionaryMonthly = in.DiscretionaryMonthly
	user.EmergencyFundTarget = in.EmergencyFundTarget
	user.DebtSurplusPercent = in.DebtSurplusPercent
	user.SavingsSurplusPercent = in.SavingsSurplusPercent

	if err := user.UpdateStrategy(s.db); err != nil {
		return nil, fmt.Errorf("error saving strategy: %w", err)
	}

	invalidateUserPlans(s.planCache, userID)
	logger.L.Info("Strategy updated", "userID", userID, "paycheckAmount", in.PaycheckAmount,
		"frequency", in.PaycheckFrequency)
	return user, nil
}
