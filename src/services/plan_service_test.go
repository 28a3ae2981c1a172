package services

import (
	"database/sql"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/username/paydown/backend/src/model"
	"github.com/username/paydown/backend/src/planner"
)

// planFixture seeds a user with three accounts, a household bill due this
// period and a high-rate debt, mirroring a typical paycheck setup.
type planFixture struct {
	db       *sql.DB
	debts    DebtService
	user     *model.User
	checking *model.BankAccount
	billsAcc *model.BankAccount
	spending *model.BankAccount
	debtID   int
}

func setupPlanFixture(t *testing.T) (*planFixture, PlanService) {
	t.Helper()
	db, ds, planService := newTestServices(t)

	user := seedUser(t, db)
	checking := seedAccount(t, db, user.ID, "Checking")
	billsAcc := seedAccount(t, db, user.ID, "Bills")
	spending := seedAccount(t, db, user.ID, "Spending")

	user.PaycheckAmount = 2600
	user.PaycheckAccountID = &checking.ID
	user.SpendingAccountID = &spending.ID
	if err := user.UpdateStrategy(db); err != nil {
		t.Fatalf("saving strategy: %v", err)
	}

	// A bill due on the first day of the current period is always inside it.
	period := planner.CurrentPeriod(time.Date(2025, time.November, 26, 0, 0, 0, 0, time.UTC), time.Now())
	bill := &model.Bill{
		UserID:        user.ID,
		Name:          "Rent",
		Amount:        500,
		DueDay:        period.StartDate.Day(),
		IsRecurring:   true,
		BankAccountID: &billsAcc.ID,
		IsActive:      true,
	}
	if err := bill.CreateBill(db); err != nil {
		t.Fatalf("seeding bill: %v", err)
	}

	detail, err := ds.CreateDebt(user.ID, DebtInput{
		Name:            "Store card",
		Type:            model.DebtTypeCreditCard,
		CurrentBalance:  1500,
		OriginalBalance: 1500,
		InterestRate:    27,
		MinimumPayment:  60,
		DueDay:          period.StartDate.Day(),
		BankAccountID:   &billsAcc.ID,
	})
	if err != nil {
		t.Fatalf("seeding debt: %v", err)
	}

	return &planFixture{
		db:       db,
		debts:    ds,
		user:     user,
		checking: checking,
		billsAcc: billsAcc,
		spending: spending,
		debtID:   detail.Debt.ID,
	}, planService
}

func TestGetAllocationPlan(t *testing.T) {
	fx, planService := setupPlanFixture(t)

	plan, err := planService.GetAllocationPlan(fx.user.ID, time.Now())
	if err != nil {
		t.Fatalf("GetAllocationPlan: %v", err)
	}

	// Rent plus the debt's linked minimum-payment bill.
	if math.Abs(plan.BillsDueThisPeriod-560) > 1e-9 {
		t.Errorf("bills due = %.2f, want 560", plan.BillsDueThisPeriod)
	}

	// 650 a month over 26 paychecks a year is 300 per check.
	if math.Abs(plan.DiscretionaryThisCheck-300) > 1e-9 {
		t.Errorf("discretionary = %.2f, want 300", plan.DiscretionaryThisCheck)
	}

	// Surplus 2600 - 560 - 300 = 1740; savings capped at 20% = 348.
	if math.Abs(plan.SurplusSplit.Surplus-1740) > 1e-9 {
		t.Errorf("surplus = %.2f, want 1740", plan.SurplusSplit.Surplus)
	}
	if math.Abs(plan.SurplusSplit.SavingsAllocation-348) > 1e-9 {
		t.Errorf("savings allocation = %.2f, want 348", plan.SurplusSplit.SavingsAllocation)
	}
	if math.Abs(plan.SurplusSplit.DebtAllocation-1392) > 1e-9 {
		t.Errorf("debt allocation = %.2f, want 1392", plan.SurplusSplit.DebtAllocation)
	}

	if plan.AvalancheTarget == nil || plan.AvalancheTarget.DebtID != int64(fx.debtID) {
		t.Fatalf("avalanche target = %+v, want debt %d", plan.AvalancheTarget, fx.debtID)
	}

	// Transfers land money in the bills account (bills + extra payment) and
	// the spending account (discretionary); nothing moves into checking.
	if len(plan.Transfers) != 2 {
		t.Fatalf("transfers = %d, want 2", len(plan.Transfers))
	}
	for _, tr := range plan.Transfers {
		if tr.ToAccountID != nil && *tr.ToAccountID == int64(fx.checking.ID) {
			t.Error("no transfer should target the paycheck account")
		}
	}

	// Steps come out in execution order: transfers, bills, extra debt, savings.
	lastOrder := 0
	for _, step := range plan.Steps {
		if step.Order < lastOrder {
			t.Fatalf("steps out of order: %d after %d", step.Order, lastOrder)
		}
		lastOrder = step.Order
	}
	if plan.ExtraDebtStep == nil {
		t.Error("expected an extra debt step")
	}
	if plan.SavingsStep == nil {
		t.Error("expected a savings step while the fund is below target")
	}
}

func TestGetAllocationPlan_Caching(t *testing.T) {
	fx, planService := setupPlanFixture(t)

	first, err := planService.GetAllocationPlan(fx.user.ID, time.Now())
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := planService.GetAllocationPlan(fx.user.ID, time.Now())
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if first != second {
		t.Error("second call should be served from cache")
	}

	// Mutations through the service invalidate the cached plan.
	if _, err := planService.RecordExtraDebtPayment(fx.user.ID, fx.debtID, 200, time.Now()); err != nil {
		t.Fatalf("RecordExtraDebtPayment: %v", err)
	}
	third, err := planService.GetAllocationPlan(fx.user.ID, time.Now())
	if err != nil {
		t.Fatalf("third call: %v", err)
	}
	if third == first {
		t.Error("plan should be recomputed after a payment")
	}
}

func TestGetAllocationPlan_RequiresPaycheck(t *testing.T) {
	db, _, planService := newTestServices(t)
	user := seedUser(t, db)

	_, err := planService.GetAllocationPlan(user.ID, time.Now())
	if !errors.Is(err, ErrValidation) {
		t.Errorf("error = %v, want ErrValidation for unset paycheck", err)
	}
}

func TestCreditEmergencyFund(t *testing.T) {
	fx, planService := setupPlanFixture(t)

	// First credit creates the goal with the configured target.
	goal, err := planService.CreditEmergencyFund(fx.user.ID, 150)
	if err != nil {
		t.Fatalf("CreditEmergencyFund: %v", err)
	}
	if goal.Milestone != model.MilestoneEmergencyFund {
		t.Errorf("milestone = %q, want %q", goal.Milestone, model.MilestoneEmergencyFund)
	}
	if goal.TargetAmount != 1000 {
		t.Errorf("target = %.2f, want 1000", goal.TargetAmount)
	}
	if goal.CurrentAmount != 150 {
		t.Errorf("balance = %.2f, want 150", goal.CurrentAmount)
	}

	// Later credits accumulate on the same goal.
	goal, err = planService.CreditEmergencyFund(fx.user.ID, 50)
	if err != nil {
		t.Fatalf("second credit: %v", err)
	}
	if goal.CurrentAmount != 200 {
		t.Errorf("balance = %.2f, want 200", goal.CurrentAmount)
	}

	if _, err := planService.CreditEmergencyFund(fx.user.ID, 0); !errors.Is(err, ErrValidation) {
		t.Errorf("zero credit error = %v, want ErrValidation", err)
	}
}

func TestSyncPayoffBaseline(t *testing.T) {
	fx, planService := setupPlanFixture(t)

	sync, err := planService.SyncPayoffBaseline(fx.user.ID, false)
	if err != nil {
		t.Fatalf("SyncPayoffBaseline: %v", err)
	}
	if sync.PreviousStartDate != nil || sync.PreviousStartTotalDebt != nil {
		t.Error("first sync should report no previous baseline")
	}
	if math.Abs(sync.NewStartTotalDebt-1500) > 1e-9 {
		t.Errorf("baseline debt = %.2f, want 1500", sync.NewStartTotalDebt)
	}
	// With active debts and no explicit target, the elimination projection
	// supplies the debt-free date.
	if sync.TargetDate == nil {
		t.Error("target date should default to the projected debt-free date")
	}

	// Preserving the start date keeps it across a later reset.
	resync, err := planService.SyncPayoffBaseline(fx.user.ID, true)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if resync.PreviousStartDate == nil || resync.PreviousStartTotalDebt == nil {
		t.Fatal("second sync should report the previous baseline")
	}
	if !resync.NewStartDate.Equal(*resync.PreviousStartDate) {
		t.Errorf("preserved start date = %v, want %v", resync.NewStartDate, *resync.PreviousStartDate)
	}
	if math.Abs(*resync.PreviousStartTotalDebt-1500) > 1e-9 {
		t.Errorf("previous baseline debt = %.2f, want 1500", *resync.PreviousStartTotalDebt)
	}
}

func TestGetAllocationPlan_DeferredDebtBillsExcluded(t *testing.T) {
	fx, planService := setupPlanFixture(t)

	// Defer the store card far past the current period; its linked
	// minimum-payment bill drops out of the plan, leaving only rent.
	deferred := time.Now().AddDate(0, 3, 0)
	debt, err := model.GetDebtByID(fx.db, fx.debtID, fx.user.ID)
	if err != nil {
		t.Fatalf("loading debt: %v", err)
	}
	debt.DeferredUntil = &deferred
	debt.Status = model.DebtStatusDeferred
	if err := debt.UpdateDebt(fx.db); err != nil {
		t.Fatalf("deferring debt: %v", err)
	}

	plan, err := planService.GetAllocationPlan(fx.user.ID, time.Now())
	if err != nil {
		t.Fatalf("GetAllocationPlan: %v", err)
	}
	if math.Abs(plan.BillsDueThisPeriod-500) > 1e-9 {
		t.Errorf("bills due = %.2f, want 500 with the debt deferred", plan.BillsDueThisPeriod)
	}
	// A deferred debt is not an avalanche target either.
	if plan.AvalancheTarget != nil {
		t.Errorf("avalanche target = %+v, want none while the only debt is deferred", plan.AvalancheTarget)
	}
}

func TestUpdateStrategy_Validation(t *testing.T) {
	fx, planService := setupPlanFixture(t)

	valid := StrategyUpdate{
		PaycheckAmount:        2600,
		PaycheckFrequency:     "biweekly",
		DiscretionaryMonthly:  650,
		EmergencyFundTarget:   1000,
		DebtSurplusPercent:    0.7,
		SavingsSurplusPercent: 0.3,
	}

	tests := []struct {
		name    string
		mutate  func(*StrategyUpdate)
		wantErr bool
	}{
		{"valid", func(s *StrategyUpdate) {}, false},
		{"percentages not summing to one", func(s *StrategyUpdate) { s.SavingsSurplusPercent = 0.5 }, true},
		{"negative percent", func(s *StrategyUpdate) {
			s.DebtSurplusPercent = -0.2
			s.SavingsSurplusPercent = 1.2
		}, true},
		{"bad frequency", func(s *StrategyUpdate) { s.PaycheckFrequency = "fortnightly" }, true},
		{"negative paycheck", func(s *StrategyUpdate) { s.PaycheckAmount = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := planService.UpdateStrategy(fx.user.ID, in)
			if tt.wantErr && !errors.Is(err, ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}

	user, err := planService.UpdateStrategy(fx.user.ID, valid)
	if err != nil {
		t.Fatalf("UpdateStrategy: %v", err)
	}
	if user.DebtSurplusPercent != 0.7 || user.SavingsSurplusPercent != 0.3 {
		t.Errorf("persisted split = %.2f/%.2f, want 0.70/0.30",
			user.DebtSurplusPercent, user.SavingsSurplusPercent)
	}
}
