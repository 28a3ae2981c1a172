package planner

import (
	"testing"
	"time"
)

func TestCalculateSnowball_SmallestBalanceFirst(t *testing.T) {
	now := date(2026, time.June, 1)
	debts := []SnowballDebt{
		{ID: 1, Name: "Big Card", Balance: 500, OriginalBalance: 600, AnnualRate: 15, MinimumPayment: 30},
		{ID: 2, Name: "Small Loan", Balance: 100, OriginalBalance: 100, AnnualRate: 10, MinimumPayment: 20},
	}

	result := CalculateSnowball(debts, now)
	if result == nil {
		t.Fatal("CalculateSnowball() returned nil for active debts")
	}

	if result.NextDebt == nil {
		t.Fatal("expected a first-eliminated milestone")
	}
	if result.NextDebt.Name != "Small Loan" {
		t.Errorf("first eliminated = %q, want the smaller balance %q", result.NextDebt.Name, "Small Loan")
	}
	// 100 at 10%/12 with a 20 minimum clears in about 6 months.
	if result.NextDebt.MonthsUntilPaid < 1 || result.NextDebt.MonthsUntilPaid > 8 {
		t.Errorf("months until first payoff = %d, want a small count", result.NextDebt.MonthsUntilPaid)
	}

	if result.Months <= result.NextDebt.MonthsUntilPaid {
		t.Errorf("overall months %d should exceed the first milestone %d", result.Months, result.NextDebt.MonthsUntilPaid)
	}
	if result.Months >= snowballHorizonMonths {
		t.Errorf("simulation hit the %d month cap", snowballHorizonMonths)
	}
	if result.TotalInterestSaved < 0 {
		t.Errorf("interest saved = %.2f, want >= 0", result.TotalInterestSaved)
	}

	wantFree := now.AddDate(0, result.Months, 0)
	if !result.DebtFreeDate.Equal(wantFree) {
		t.Errorf("debt-free date = %v, want %v", result.DebtFreeDate, wantFree)
	}
}

func TestCalculateSnowball_CascadeBeatsIsolatedMinimums(t *testing.T) {
	now := date(2026, time.June, 1)
	debts := []SnowballDebt{
		{ID: 1, Name: "A", Balance: 400, OriginalBalance: 400, AnnualRate: 20, MinimumPayment: 25},
		{ID: 2, Name: "B", Balance: 2500, OriginalBalance: 2500, AnnualRate: 22, MinimumPayment: 60},
	}

	result := CalculateSnowball(debts, now)
	if result == nil {
		t.Fatal("CalculateSnowball() returned nil")
	}

	// Freed minimums cascading into the larger debt must beat paying each
	// debt its own minimum in isolation.
	isolatedMonths := 0
	for _, d := range debts {
		r, err := CalculatePayoff(PayoffInput{Balance: d.Balance, AnnualRate: d.AnnualRate, Payment: d.MinimumPayment}, now)
		if err != nil {
			t.Fatalf("CalculatePayoff() error = %v", err)
		}
		if r.Months > isolatedMonths {
			isolatedMonths = r.Months
		}
	}
	if result.Months > isolatedMonths {
		t.Errorf("snowball months %d should not exceed slowest isolated payoff %d", result.Months, isolatedMonths)
	}
	if result.TotalInterestSaved <= 0 {
		t.Errorf("cascading should save interest, got %.2f", result.TotalInterestSaved)
	}
}

func TestCalculateSnowball_ProgressAndEliminatedCounts(t *testing.T) {
	now := date(2026, time.June, 1)
	debts := []SnowballDebt{
		{ID: 1, Name: "Paid", Balance: 0, OriginalBalance: 900, AnnualRate: 15, MinimumPayment: 25, PaidOff: true},
		{ID: 2, Name: "Half Done", Balance: 250, OriginalBalance: 1000, AnnualRate: 12, MinimumPayment: 50},
	}

	result := CalculateSnowball(debts, now)
	if result == nil {
		t.Fatal("CalculateSnowball() returned nil")
	}

	// Paid-off debts are excluded from the progress denominator:
	// (1000-250)/1000 = 75%.
	if result.ProgressPercent != 75 {
		t.Errorf("progress = %.2f%%, want 75%%", result.ProgressPercent)
	}
	if result.DebtsEliminated != 1 {
		t.Errorf("debts eliminated = %d, want 1", result.DebtsEliminated)
	}
	if result.TotalDebts != 2 {
		t.Errorf("total debts = %d, want 2", result.TotalDebts)
	}
}

func TestCalculateSnowball_NoActiveDebts(t *testing.T) {
	now := date(2026, time.June, 1)

	tests := []struct {
		name  string
		debts []SnowballDebt
	}{
		{"empty", nil},
		{"all paid off", []SnowballDebt{{ID: 1, Name: "Done", Balance: 0, OriginalBalance: 500, PaidOff: true}}},
		{"zero balances", []SnowballDebt{{ID: 1, Name: "Zero", Balance: 0, OriginalBalance: 500}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := CalculateSnowball(tt.debts, now); result != nil {
				t.Errorf("CalculateSnowball() = %+v, want nil", result)
			}
		})
	}
}
