package planner

import (
	"testing"
	"time"
)

var referencePaycheck = date(2025, time.November, 26) // a Wednesday

func TestPeriodForDate(t *testing.T) {
	tests := []struct {
		name         string
		forDate      time.Time
		wantPaycheck time.Time
	}{
		{"on the paycheck date", date(2025, time.November, 26), date(2025, time.November, 26)},
		{"mid period", date(2025, time.December, 3), date(2025, time.November, 26)},
		{"last day of period", date(2025, time.December, 9), date(2025, time.November, 26)},
		{"first day of next period", date(2025, time.December, 10), date(2025, time.December, 10)},
		{"a later period", date(2026, time.January, 10), date(2026, time.January, 7)},
		{"before the reference", date(2025, time.November, 20), date(2025, time.November, 12)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			period := PeriodForDate(referencePaycheck, tt.forDate)
			if !period.PaycheckDate.Equal(tt.wantPaycheck) {
				t.Errorf("paycheck date = %v, want %v", period.PaycheckDate, tt.wantPaycheck)
			}
			if !period.StartDate.Equal(period.PaycheckDate) {
				t.Errorf("period start %v should equal paycheck date %v", period.StartDate, period.PaycheckDate)
			}
			wantEnd := tt.wantPaycheck.AddDate(0, 0, 13)
			if !period.EndDate.Equal(wantEnd) {
				t.Errorf("period end = %v, want %v", period.EndDate, wantEnd)
			}
			if !DateInPeriod(tt.forDate, period) {
				t.Errorf("date %v should fall inside its own period", tt.forDate)
			}
		})
	}
}

func TestNextPeriod(t *testing.T) {
	now := date(2025, time.December, 1)
	next := NextPeriod(referencePaycheck, now)
	if !next.PaycheckDate.Equal(date(2025, time.December, 10)) {
		t.Errorf("next paycheck = %v, want %v", next.PaycheckDate, date(2025, time.December, 10))
	}
}

func TestDateInPeriod_Bounds(t *testing.T) {
	period := PeriodForDate(referencePaycheck, referencePaycheck)

	tests := []struct {
		name string
		d    time.Time
		want bool
	}{
		{"start inclusive", date(2025, time.November, 26), true},
		{"end inclusive", date(2025, time.December, 9), true},
		{"day before start", date(2025, time.November, 25), false},
		{"day after end", date(2025, time.December, 10), false},
		{"time of day ignored", time.Date(2025, time.December, 9, 23, 45, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DateInPeriod(tt.d, period); got != tt.want {
				t.Errorf("DateInPeriod(%v) = %v, want %v", tt.d, got, tt.want)
			}
		})
	}
}
