package planner

import (
	"math"
	"sort"
	"time"

	"github.com/username/paydown/backend/src/utils"
)

// snowballHorizonMonths caps the elimination simulation at 30 years.
const snowballHorizonMonths = 360

// SnowballDebt is one debt fed into the balance-ordered elimination
// simulator.
type SnowballDebt struct {
	ID              int64
	Name            string
	Balance         float64
	OriginalBalance float64
	AnnualRate      float64 // percent
	MinimumPayment  float64
	PaidOff         bool
}

// NextDebtMilestone names the first debt the simulation eliminates.
type NextDebtMilestone struct {
	Name            string  `json:"name"`
	MonthsUntilPaid int     `json:"monthsUntilPaid"`
	InterestSaved   float64 `json:"interestSaved"`
}

// SnowballResult summarizes the balance-ordered elimination projection.
type SnowballResult struct {
	DebtFreeDate       time.Time          `json:"debtFreeDate"`
	Months             int                `json:"months"`
	TotalInterestSaved float64            `json:"totalInterestSaved"`
	NextDebt           *NextDebtMilestone `json:"nextDebt,omitempty"`
	TotalPaid          float64            `json:"totalPaid"`
	ProgressPercent    float64            `json:"progressPercent"`
	DebtsEliminated    int                `json:"debtsEliminated"`
	TotalDebts         int                `json:"totalDebts"`
}

// CalculateSnowball simulates paying all active debts smallest balance first
// with a fixed total budget: every debt gets its minimum each month, and each
// eliminated debt's minimum cascades into the extra pool applied to the next
// smallest survivor. Interest saved is measured against amortizing every debt
// at its own minimum with no cascading. Returns nil when nothing is active.
func CalculateSnowball(debts []SnowballDebt, now time.Time) *SnowballResult {
	active := make([]SnowballDebt, 0, len(debts))
	for _, d := range debts {
		if !d.PaidOff && d.Balance > 0 {
			active = append(active, d)
		}
	}
	if len(active) == 0 {
		return nil
	}

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Balance < active[j].Balance
	})

	type debtState struct {
		name       string
		balance    float64
		rate       float64
		minPayment float64
		paidOff    bool
	}
	states := make([]*debtState, len(active))
	for i, d := range active {
		states[i] = &debtState{
			name:       d.Name,
			balance:    d.Balance,
			rate:       d.AnnualRate / 100 / 12,
			minPayment: d.MinimumPayment,
		}
	}

	months := 0
	totalInterestPaid := 0.0
	extraPayment := 0.0
	var firstEliminated *NextDebtMilestone

	remaining := len(states)
	for remaining > 0 && months < snowballHorizonMonths {
		months++
		availableExtra := extraPayment

		for _, d := range states {
			if d.paidOff {
				continue
			}

			interest := d.balance * d.rate
			totalInterestPaid += interest
			d.balance += interest

			payment := d.minPayment + availableExtra
			availableExtra = 0

			if payment >= d.balance {
				payment = d.balance
				d.paidOff = true
				remaining--
				extraPayment += d.minPayment
				if firstEliminated == nil {
					firstEliminated = &NextDebtMilestone{
						Name:            d.name,
						MonthsUntilPaid: months,
					}
				}
			}
			d.balance = math.Max(0, d.balance-payment)
		}
	}

	// Baseline: each debt alone at its own minimum, no cascading.
	baselineInterest := 0.0
	for _, d := range active {
		balance := d.Balance
		rate := d.AnnualRate / 100 / 12
		for m := 0; m < snowballHorizonMonths && balance > 0; m++ {
			interest := balance * rate
			baselineInterest += interest
			balance = math.Max(0, balance+interest-d.MinimumPayment)
		}
	}
	interestSaved := math.Max(0, baselineInterest-totalInterestPaid)

	if firstEliminated != nil {
		firstEliminated.InterestSaved = math.Round(interestSaved / float64(len(active)))
	}

	totalOriginal := 0.0
	totalBalance := 0.0
	eliminated := 0
	for _, d := range debts {
		if d.PaidOff {
			eliminated++
			continue
		}
		totalOriginal += d.OriginalBalance
		totalBalance += d.Balance
	}
	progress := 0.0
	if totalOriginal > 0 {
		progress = (totalOriginal - totalBalance) / totalOriginal * 100
	}
	progress = math.Max(0, math.Min(100, progress))

	return &SnowballResult{
		DebtFreeDate:       utils.AddMonthsClamped(now, months),
		Months:             months,
		TotalInterestSaved: math.Round(interestSaved),
		NextDebt:           firstEliminated,
		TotalPaid:          totalOriginal - totalBalance,
		ProgressPercent:    progress,
		DebtsEliminated:    eliminated,
		TotalDebts:         len(debts),
	}
}
