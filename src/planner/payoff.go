package planner

import (
	"fmt"
	"math"
	"time"

	"github.com/username/paydown/backend/src/utils"
)

// payoffHorizonMonths caps the month-by-month amortization loop. A plan that
// does not finish inside 50 years is reported as non-amortizing.
const payoffHorizonMonths = 600

// PayoffInput describes a single debt and a fixed monthly payment against it.
type PayoffInput struct {
	Balance       float64
	AnnualRate    float64 // percent, e.g. 19.99
	Payment       float64 // total paid each month
	DeferredUntil *time.Time
}

// AmortizationEntry is one month of a payoff schedule.
type AmortizationEntry struct {
	Month     int     `json:"month"`
	Payment   float64 `json:"payment"`
	Principal float64 `json:"principal"`
	Interest  float64 `json:"interest"`
	Balance   float64 `json:"balance"`
}

// PayoffResult reports how a fixed payment retires a balance. NonAmortizing
// is a first-class outcome, not an error: it means the payment never covers
// the monthly interest, and the numeric fields are zero when it is set.
type PayoffResult struct {
	Months        int                 `json:"months"`
	TotalPayment  float64             `json:"totalPayment"`
	TotalInterest float64             `json:"totalInterest"`
	PayoffDate    time.Time           `json:"payoffDate"`
	NonAmortizing bool                `json:"nonAmortizing"`
	Schedule      []AmortizationEntry `json:"schedule,omitempty"`
}

// CalculatePayoff amortizes a balance at a fixed monthly payment.
//
// The month count comes from the closed form ceil(ln(A/(A-B*r))/ln(1+r))
// when the rate is positive and ceil(B/A) at zero rate; totals come from the
// month-by-month simulation so the final partial payment is priced exactly
// and the two never disagree. A debt still in deferment first has its balance
// compounded forward over the whole months remaining before payments start.
func CalculatePayoff(in PayoffInput, now time.Time) (*PayoffResult, error) {
	if in.Payment <= 0 {
		return nil, fmt.Errorf("%w: payment must be positive, got %.2f", ErrValidation, in.Payment)
	}
	if in.Balance <= 0 {
		return &PayoffResult{PayoffDate: now}, nil
	}

	monthlyRate := in.AnnualRate / 100 / 12
	balance := in.Balance

	if in.DeferredUntil != nil && in.DeferredUntil.After(now) {
		deferMonths := utils.WholeMonthsBetween(now, *in.DeferredUntil)
		if monthlyRate > 0 && deferMonths > 0 {
			balance *= math.Pow(1+monthlyRate, float64(deferMonths))
		}
	}

	if monthlyRate > 0 && in.Payment <= balance*monthlyRate {
		return &PayoffResult{NonAmortizing: true}, nil
	}

	var schedule []AmortizationEntry
	remaining := balance
	totalPayment := 0.0
	totalInterest := 0.0
	months := 0

	for remaining > 0.005 && months < payoffHorizonMonths {
		months++
		interest := remaining * monthlyRate
		payment := math.Min(in.Payment, remaining+interest)
		principal := payment - interest
		remaining = math.Max(0, remaining-principal)

		totalPayment += payment
		totalInterest += interest
		schedule = append(schedule, AmortizationEntry{
			Month:     months,
			Payment:   payment,
			Principal: principal,
			Interest:  interest,
			Balance:   remaining,
		})
	}

	if remaining > 0.005 {
		return &PayoffResult{NonAmortizing: true}, nil
	}

	return &PayoffResult{
		Months:        months,
		TotalPayment:  totalPayment,
		TotalInterest: totalInterest,
		PayoffDate:    utils.AddMonthsClamped(now, months),
		Schedule:      schedule,
	}, nil
}

// PayoffComparison contrasts a baseline payment with the same payment plus an
// extra amount. Savings are clamped at zero.
type PayoffComparison struct {
	WithMinimum   *PayoffResult `json:"withMinimum"`
	WithExtra     *PayoffResult `json:"withExtra"`
	MonthsSaved   int           `json:"monthsSaved"`
	InterestSaved float64       `json:"interestSaved"`
}

// ComparePayoff runs the baseline and extra-payment scenarios side by side.
func ComparePayoff(in PayoffInput, extraPayment float64, now time.Time) (*PayoffComparison, error) {
	withMinimum, err := CalculatePayoff(in, now)
	if err != nil {
		return nil, err
	}

	withExtra := withMinimum
	if extraPayment > 0 {
		boosted := in
		boosted.Payment += extraPayment
		withExtra, err = CalculatePayoff(boosted, now)
		if err != nil {
			return nil, err
		}
	}

	monthsSaved := 0
	interestSaved := 0.0
	if !withMinimum.NonAmortizing && !withExtra.NonAmortizing {
		monthsSaved = withMinimum.Months - withExtra.Months
		interestSaved = withMinimum.TotalInterest - withExtra.TotalInterest
	} else if withMinimum.NonAmortizing && !withExtra.NonAmortizing {
		// The extra payment is what makes the debt amortize at all; there is
		// no finite baseline to subtract from.
		monthsSaved = 0
		interestSaved = 0
	}
	if monthsSaved < 0 {
		monthsSaved = 0
	}
	if interestSaved < 0 {
		interestSaved = 0
	}

	return &PayoffComparison{
		WithMinimum:   withMinimum,
		WithExtra:     withExtra,
		MonthsSaved:   monthsSaved,
		InterestSaved: interestSaved,
	}, nil
}
