package planner

import (
	"math"
	"time"
)

// Baseline is the user's payoff snapshot: total debt and date when the payoff
// effort started, plus the date it is supposed to finish. All fields are nil
// until the user sets a baseline.
type Baseline struct {
	StartDate      *time.Time
	StartTotalDebt *float64
	TargetDate     *time.Time
}

// PayoffProgress measures current debt against the baseline. Pointer fields
// stay nil when no baseline is configured; only CurrentDebt is always set.
type PayoffProgress struct {
	StartDate         *time.Time `json:"startDate,omitempty"`
	TargetDate        *time.Time `json:"targetDate,omitempty"`
	StartDebt         *float64   `json:"startDebt,omitempty"`
	CurrentDebt       float64    `json:"currentDebt"`
	DebtPaid          *float64   `json:"debtPaid,omitempty"`
	DebtAdded         *float64   `json:"debtAdded,omitempty"`
	AdjustedStartDebt *float64   `json:"adjustedStartDebt,omitempty"`
	DebtProgressPct   *float64   `json:"debtProgressPct,omitempty"`
	TimeProgressPct   *float64   `json:"timeProgressPct,omitempty"`
	OnTrack           *bool      `json:"onTrack,omitempty"`
	MonthsRemaining   *int       `json:"monthsRemaining,omitempty"`
	BaselineStale     bool       `json:"baselineStale"`
}

// ComputePayoffProgress compares the live debt total against the baseline.
// Debt taken on after the baseline was set never shows as negative progress:
// it is added to the denominator instead (adjusted start debt) and flags the
// baseline stale so the UI can suggest a resync.
func ComputePayoffProgress(b Baseline, currentDebt float64, now time.Time) PayoffProgress {
	if b.StartDate == nil || b.StartTotalDebt == nil || b.TargetDate == nil {
		return PayoffProgress{CurrentDebt: currentDebt}
	}

	startDebt := *b.StartTotalDebt
	debtPaid := math.Max(0, startDebt-currentDebt)
	debtAdded := math.Max(0, currentDebt-startDebt)
	adjustedStartDebt := startDebt + debtAdded
	stale := debtAdded > 0

	debtProgress := 0.0
	if adjustedStartDebt > 0 {
		debtProgress = clamp01(debtPaid / adjustedStartDebt)
	}

	progress := PayoffProgress{
		StartDate:         b.StartDate,
		TargetDate:        b.TargetDate,
		StartDebt:         &startDebt,
		CurrentDebt:       currentDebt,
		DebtPaid:          &debtPaid,
		DebtAdded:         &debtAdded,
		AdjustedStartDebt: &adjustedStartDebt,
		DebtProgressPct:   &debtProgress,
		BaselineStale:     stale,
	}

	total := b.TargetDate.Sub(*b.StartDate)
	if total > 0 {
		timeProgress := clamp01(float64(now.Sub(*b.StartDate)) / float64(total))
		progress.TimeProgressPct = &timeProgress
		onTrack := debtProgress >= timeProgress
		progress.OnTrack = &onTrack
	}

	remaining := b.TargetDate.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	monthsRemaining := int(math.Ceil(float64(remaining) / float64(30*24*time.Hour)))
	progress.MonthsRemaining = &monthsRemaining

	return progress
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
