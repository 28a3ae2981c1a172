package planner

import (
	"math"
	"testing"
	"time"
)

func i64(v int64) *int64 { return &v }

func f64(v float64) *float64 { return &v }

func TestDiscretionaryPerPaycheck(t *testing.T) {
	tests := []struct {
		name    string
		monthly float64
		freq    PaymentFrequency
		want    float64
	}{
		{"biweekly", 650, FrequencyBiweekly, 300},
		{"weekly", 520, FrequencyWeekly, 120},
		{"monthly", 750, FrequencyMonthly, 750},
		{"zero budget", 0, FrequencyBiweekly, 0},
		{"negative budget", -100, FrequencyBiweekly, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DiscretionaryPerPaycheck(tt.monthly, tt.freq)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("DiscretionaryPerPaycheck(%.2f, %s) = %.4f, want %.4f", tt.monthly, tt.freq, got, tt.want)
			}
		})
	}
}

func TestComputeSurplusSplit(t *testing.T) {
	t.Run("worked example", func(t *testing.T) {
		// Paycheck 2000, bills 1200, discretionary 300 leaves 500; with a 200
		// emergency-fund gap and 20% savings share: savings 100, debt 400.
		split := ComputeSurplusSplit(2000, 1200, 300, 1000, 800, 0.2)
		if split.IsNegative {
			t.Fatal("surplus should be positive")
		}
		if split.Surplus != 500 || split.SavingsAllocation != 100 || split.DebtAllocation != 400 {
			t.Errorf("split = %+v, want surplus 500 / savings 100 / debt 400", split)
		}
	})

	t.Run("savings capped by fund gap", func(t *testing.T) {
		split := ComputeSurplusSplit(2000, 1000, 0, 1000, 950, 0.5)
		if split.SavingsAllocation != 50 {
			t.Errorf("savings = %.2f, want the 50 gap", split.SavingsAllocation)
		}
		if split.DebtAllocation != 950 {
			t.Errorf("debt = %.2f, want 950", split.DebtAllocation)
		}
	})

	t.Run("fund already full sends everything to debt", func(t *testing.T) {
		split := ComputeSurplusSplit(2000, 1000, 0, 1000, 1000, 0.5)
		if split.SavingsAllocation != 0 || split.DebtAllocation != 1000 {
			t.Errorf("split = %+v, want all 1000 to debt", split)
		}
	})

	t.Run("shortfall", func(t *testing.T) {
		split := ComputeSurplusSplit(1500, 1400, 300, 1000, 0, 0.2)
		if !split.IsNegative {
			t.Fatal("expected a shortfall flag")
		}
		if split.SavingsAllocation != 0 || split.DebtAllocation != 0 {
			t.Errorf("shortfall must allocate nothing, got %+v", split)
		}
	})
}

func TestFindAvalancheTarget(t *testing.T) {
	accounts := []PlanAccount{{ID: 7, Name: "Checking", Bank: "CHASE"}}

	t.Run("highest of effective and stated rate wins", func(t *testing.T) {
		debts := []PlanDebt{
			{ID: 1, Name: "Card", Balance: 900, StatedRate: 22, Active: true},
			{ID: 2, Name: "BNPL", Balance: 400, StatedRate: 0, EffectiveRate: f64(31.5), Active: true, BankAccountID: i64(7)},
		}
		target := FindAvalancheTarget(debts, accounts)
		if target == nil {
			t.Fatal("expected a target")
		}
		if target.DebtID != 2 {
			t.Errorf("target = %d, want the 31.5%% effective-rate debt", target.DebtID)
		}
		if target.InterestRate != 31.5 {
			t.Errorf("rate = %.2f, want 31.5", target.InterestRate)
		}
		if target.BankAccountName != "Checking" {
			t.Errorf("account name = %q, want Checking", target.BankAccountName)
		}
	})

	t.Run("ties keep input order", func(t *testing.T) {
		debts := []PlanDebt{
			{ID: 1, Name: "First", Balance: 100, StatedRate: 20, Active: true},
			{ID: 2, Name: "Second", Balance: 200, StatedRate: 20, Active: true},
		}
		target := FindAvalancheTarget(debts, nil)
		if target == nil || target.DebtID != 1 {
			t.Errorf("tie should keep input order, got %+v", target)
		}
	})

	t.Run("deferred, paid-off and inactive debts are skipped", func(t *testing.T) {
		debts := []PlanDebt{
			{ID: 1, Name: "Deferred", Balance: 500, StatedRate: 30, Active: true, Deferred: true},
			{ID: 2, Name: "Inactive", Balance: 500, StatedRate: 29, Active: false},
			{ID: 3, Name: "Paid", Balance: 0, StatedRate: 28, Active: true, PaidOff: true},
			{ID: 4, Name: "Live", Balance: 500, StatedRate: 5, Active: true},
		}
		target := FindAvalancheTarget(debts, nil)
		if target == nil || target.DebtID != 4 {
			t.Errorf("got %+v, want the only qualifying debt", target)
		}
	})

	t.Run("no candidates", func(t *testing.T) {
		if target := FindAvalancheTarget(nil, nil); target != nil {
			t.Errorf("got %+v, want nil", target)
		}
	})
}

func planFixture() PlanInput {
	period := PeriodForDate(date(2025, time.November, 26), date(2026, time.June, 3))
	return PlanInput{
		Period: period,
		Strategy: StrategyConfig{
			PaycheckAmount:        2000,
			PaycheckFrequency:     FrequencyBiweekly,
			PaycheckAccountID:     i64(1),
			SpendingAccountID:     i64(2),
			DiscretionaryMonthly:  650, // 300 per biweekly check
			EmergencyFundTarget:   1000,
			DebtSurplusPercent:    0.8,
			SavingsSurplusPercent: 0.2,
		},
		UnpaidPayments: []PlanBillPayment{
			{ID: 11, BillID: 1, BillName: "Electric", Amount: 200, DueDate: period.StartDate.AddDate(0, 0, 8), BankAccountID: i64(3)},
			{ID: 12, BillID: 2, BillName: "Car Loan", Amount: 400, DueDate: period.StartDate.AddDate(0, 0, 2), BankAccountID: i64(3)},
			{ID: 13, BillID: 3, BillName: "Streaming", Amount: 600, DueDate: period.StartDate.AddDate(0, 0, 5), BankAccountID: i64(1)},
		},
		Debts: []PlanDebt{
			{ID: 21, Name: "Visa", Balance: 3000, StatedRate: 24, MinimumPayment: 90, Active: true, BankAccountID: i64(3)},
			{ID: 22, Name: "Car", Balance: 9000, StatedRate: 7, MinimumPayment: 400, Active: true},
		},
		Accounts: []PlanAccount{
			{ID: 1, Name: "Main Checking", Bank: "NAVY_FEDERAL"},
			{ID: 2, Name: "Spending", Bank: "CHASE"},
			{ID: 3, Name: "Bills Checking", Bank: "PNC"},
		},
		EmergencyFundCurrent: 800,
		EmergencyGoalID:      i64(5),
		CurrentDebtTotal:     12000,
	}
}

func TestBuildAllocationPlan(t *testing.T) {
	now := date(2026, time.June, 3)
	in := planFixture()
	plan := BuildAllocationPlan(in, now)

	if plan.BillsDueThisPeriod != 1200 {
		t.Errorf("bills due = %.2f, want 1200", plan.BillsDueThisPeriod)
	}
	if plan.DiscretionaryThisCheck != 300 {
		t.Errorf("discretionary = %.2f, want 300", plan.DiscretionaryThisCheck)
	}
	if plan.SurplusSplit.Surplus != 500 || plan.SurplusSplit.SavingsAllocation != 100 || plan.SurplusSplit.DebtAllocation != 400 {
		t.Errorf("surplus split = %+v, want 500/100/400", plan.SurplusSplit)
	}

	if plan.AvalancheTarget == nil || plan.AvalancheTarget.DebtID != 21 {
		t.Fatalf("avalanche target = %+v, want the 24%% Visa", plan.AvalancheTarget)
	}

	// Transfers: bills account 3 gets 200+400 bills plus 400 extra debt
	// (Visa is funded from account 3); spending account 2 gets 300. The 600
	// bill paid from the paycheck account needs no transfer.
	if len(plan.Transfers) != 2 {
		t.Fatalf("got %d transfers, want 2", len(plan.Transfers))
	}
	var billsTransfer, spendingTransfer *PlanStep
	for i := range plan.Transfers {
		step := &plan.Transfers[i]
		switch *step.ToAccountID {
		case 3:
			billsTransfer = step
		case 2:
			spendingTransfer = step
		}
	}
	if billsTransfer == nil || billsTransfer.Amount != 1000 {
		t.Errorf("bills-account transfer = %+v, want amount 1000", billsTransfer)
	}
	if billsTransfer != nil && billsTransfer.Purpose != "Bills & Extra Debt Payment" {
		t.Errorf("bills-account purpose = %q, want combined purposes", billsTransfer.Purpose)
	}
	if spendingTransfer == nil || spendingTransfer.Amount != 300 || spendingTransfer.Purpose != "Spending" {
		t.Errorf("spending transfer = %+v, want 300 for Spending", spendingTransfer)
	}

	// Bill payment steps are in due-date order regardless of input order.
	if len(plan.BillPayments) != 3 {
		t.Fatalf("got %d bill payment steps, want 3", len(plan.BillPayments))
	}
	wantOrder := []int64{12, 13, 11}
	for i, want := range wantOrder {
		if *plan.BillPayments[i].BillPaymentID != want {
			t.Errorf("bill step %d pays occurrence %d, want %d", i, *plan.BillPayments[i].BillPaymentID, want)
		}
	}

	if plan.ExtraDebtStep == nil || plan.ExtraDebtStep.Amount != 400 || *plan.ExtraDebtStep.DebtID != 21 {
		t.Errorf("extra debt step = %+v, want 400 to debt 21", plan.ExtraDebtStep)
	}
	if plan.SavingsStep == nil || plan.SavingsStep.Amount != 100 || *plan.SavingsStep.SavingsGoalID != 5 {
		t.Errorf("savings step = %+v, want 100 to goal 5", plan.SavingsStep)
	}

	// Steps sort by order key: transfers (100s), bills (200s), extra debt
	// (300), savings (350).
	for i := 1; i < len(plan.Steps); i++ {
		if plan.Steps[i].Order < plan.Steps[i-1].Order {
			t.Fatalf("steps out of order at %d: %d before %d", i, plan.Steps[i-1].Order, plan.Steps[i].Order)
		}
	}
	wantTypes := []PlanStepType{StepTransfer, StepTransfer, StepBillPayment, StepBillPayment, StepBillPayment, StepExtraDebtPayment, StepSavingsTransfer}
	if len(plan.Steps) != len(wantTypes) {
		t.Fatalf("got %d steps, want %d", len(plan.Steps), len(wantTypes))
	}
	for i, want := range wantTypes {
		if plan.Steps[i].Type != want {
			t.Errorf("step %d type = %s, want %s", i, plan.Steps[i].Type, want)
		}
	}
}

func TestBuildAllocationPlan_Shortfall(t *testing.T) {
	now := date(2026, time.June, 3)
	in := planFixture()
	in.Strategy.PaycheckAmount = 1300 // bills 1200 + discretionary 300 exceed it

	plan := BuildAllocationPlan(in, now)
	if !plan.SurplusSplit.IsNegative {
		t.Fatal("expected a shortfall period")
	}
	if plan.ExtraDebtStep != nil || plan.SavingsStep != nil {
		t.Errorf("shortfall must not emit debt/savings steps, got %+v / %+v", plan.ExtraDebtStep, plan.SavingsStep)
	}
	if len(plan.BillPayments) != 3 {
		t.Errorf("bill steps still emitted on shortfall, got %d", len(plan.BillPayments))
	}
}

func TestBuildAllocationPlan_BaselineProgress(t *testing.T) {
	now := date(2026, time.June, 3)
	start := date(2026, time.January, 1)
	target := date(2027, time.January, 1)

	in := planFixture()
	in.Strategy.Baseline = Baseline{StartDate: &start, StartTotalDebt: f64(15000), TargetDate: &target}
	in.CurrentDebtTotal = 12000

	plan := BuildAllocationPlan(in, now)
	p := plan.PayoffProgress

	if p.DebtPaid == nil || *p.DebtPaid != 3000 {
		t.Fatalf("debt paid = %v, want 3000", p.DebtPaid)
	}
	if p.BaselineStale {
		t.Error("baseline should not be stale when debt shrank")
	}
	if p.DebtProgressPct == nil || math.Abs(*p.DebtProgressPct-0.2) > 1e-9 {
		t.Errorf("debt progress = %v, want 0.2", p.DebtProgressPct)
	}
	if p.TimeProgressPct == nil || *p.TimeProgressPct <= 0 || *p.TimeProgressPct >= 1 {
		t.Errorf("time progress = %v, want inside (0,1)", p.TimeProgressPct)
	}
	if p.MonthsRemaining == nil || *p.MonthsRemaining < 7 || *p.MonthsRemaining > 8 {
		t.Errorf("months remaining = %v, want about 7", p.MonthsRemaining)
	}
}
