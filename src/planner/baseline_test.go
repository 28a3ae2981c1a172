package planner

import (
	"testing"
	"time"
)

func TestComputePayoffProgress_NoBaseline(t *testing.T) {
	p := ComputePayoffProgress(Baseline{}, 4200, date(2026, time.June, 1))
	if p.CurrentDebt != 4200 {
		t.Errorf("current debt = %.2f, want 4200", p.CurrentDebt)
	}
	if p.StartDebt != nil || p.DebtProgressPct != nil || p.MonthsRemaining != nil {
		t.Errorf("unset baseline must leave progress fields nil, got %+v", p)
	}
}

func TestComputePayoffProgress_NewDebtNeverNegative(t *testing.T) {
	start := date(2026, time.January, 1)
	target := date(2027, time.January, 1)
	b := Baseline{StartDate: &start, StartTotalDebt: f64(10000), TargetDate: &target}

	// Current debt grew past the baseline: progress clamps at zero against
	// the adjusted denominator and the baseline is flagged stale.
	p := ComputePayoffProgress(b, 12500, date(2026, time.March, 1))

	if !p.BaselineStale {
		t.Error("expected stale baseline when debt was added")
	}
	if *p.DebtAdded != 2500 {
		t.Errorf("debt added = %.2f, want 2500", *p.DebtAdded)
	}
	if *p.AdjustedStartDebt != 12500 {
		t.Errorf("adjusted start debt = %.2f, want 12500", *p.AdjustedStartDebt)
	}
	if *p.DebtPaid != 0 {
		t.Errorf("debt paid = %.2f, want 0", *p.DebtPaid)
	}
	if *p.DebtProgressPct < 0 || *p.DebtProgressPct > 1 {
		t.Errorf("debt progress %.4f outside [0,1]", *p.DebtProgressPct)
	}
	if *p.DebtProgressPct != 0 {
		t.Errorf("debt progress = %.4f, want 0", *p.DebtProgressPct)
	}
	if *p.OnTrack {
		t.Error("growing debt two months in should not be on track")
	}
}

func TestComputePayoffProgress_Clamping(t *testing.T) {
	start := date(2026, time.January, 1)
	target := date(2026, time.July, 1)
	b := Baseline{StartDate: &start, StartTotalDebt: f64(1000), TargetDate: &target}

	// Past the target date with everything paid: both percentages clamp to 1
	// and months remaining bottoms out at zero.
	p := ComputePayoffProgress(b, 0, date(2026, time.October, 1))

	if *p.DebtProgressPct != 1 {
		t.Errorf("debt progress = %.4f, want 1", *p.DebtProgressPct)
	}
	if *p.TimeProgressPct != 1 {
		t.Errorf("time progress = %.4f, want 1", *p.TimeProgressPct)
	}
	if !*p.OnTrack {
		t.Error("fully paid should be on track")
	}
	if *p.MonthsRemaining != 0 {
		t.Errorf("months remaining = %d, want 0", *p.MonthsRemaining)
	}
}
