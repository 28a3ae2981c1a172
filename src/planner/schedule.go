package planner

import (
	"fmt"
	"math"
	"time"

	"github.com/username/paydown/backend/src/utils"
)

// PaymentFrequency is the cadence of an installment schedule or paycheck.
type PaymentFrequency string

const (
	FrequencyWeekly   PaymentFrequency = "weekly"
	FrequencyBiweekly PaymentFrequency = "biweekly"
	FrequencyMonthly  PaymentFrequency = "monthly"
)

// PeriodsPerYear returns how many payments (or paychecks) a year holds at
// this cadence, or 0 for an unrecognized value.
func (f PaymentFrequency) PeriodsPerYear() int {
	switch f {
	case FrequencyWeekly:
		return 52
	case FrequencyBiweekly:
		return 26
	case FrequencyMonthly:
		return 12
	default:
		return 0
	}
}

func (f PaymentFrequency) Valid() bool {
	return f.PeriodsPerYear() > 0
}

// ScheduleInput describes a pay-in-installments plan to expand into
// concrete due dates.
type ScheduleInput struct {
	TotalAmount      float64
	NumberOfPayments int
	FirstPaymentDate time.Time
	Frequency        PaymentFrequency
}

// Installment is one entry of a generated schedule.
type Installment struct {
	Number  int       `json:"number"`
	DueDate time.Time `json:"dueDate"`
	Amount  float64   `json:"amount"`
}

// PaymentSchedule holds the generated installments. PaymentAmount is the
// regular per-installment amount; the last installment absorbs the rounding
// remainder so the amounts sum to exactly TotalAmount.
type PaymentSchedule struct {
	PaymentAmount     float64       `json:"paymentAmount"`
	LastPaymentAmount float64       `json:"lastPaymentAmount"`
	Installments      []Installment `json:"installments"`
}

// GeneratePaymentSchedule expands a BNPL plan into N dated installments.
// Amounts are computed in integer cents: the regular installment is
// round(total/N) and the final one is total minus the first N-1, which keeps
// the sum exact regardless of how total/N rounds.
func GeneratePaymentSchedule(in ScheduleInput) (*PaymentSchedule, error) {
	if in.NumberOfPayments < 1 {
		return nil, fmt.Errorf("%w: numberOfPayments must be at least 1, got %d", ErrValidation, in.NumberOfPayments)
	}
	if in.TotalAmount <= 0 {
		return nil, fmt.Errorf("%w: totalAmount must be positive, got %.2f", ErrValidation, in.TotalAmount)
	}
	if !in.Frequency.Valid() {
		return nil, fmt.Errorf("%w: unrecognized payment frequency %q", ErrValidation, in.Frequency)
	}
	if in.FirstPaymentDate.IsZero() {
		return nil, fmt.Errorf("%w: firstPaymentDate is required", ErrValidation)
	}

	n := in.NumberOfPayments
	totalCents := int64(math.Round(in.TotalAmount * 100))
	perCents := int64(math.Round(float64(totalCents) / float64(n)))
	lastCents := totalCents - perCents*int64(n-1)

	installments := make([]Installment, 0, n)
	for i := 0; i < n; i++ {
		amountCents := perCents
		if i == n-1 {
			amountCents = lastCents
		}
		installments = append(installments, Installment{
			Number:  i + 1,
			DueDate: installmentDate(in.FirstPaymentDate, in.Frequency, i),
			Amount:  float64(amountCents) / 100,
		})
	}

	return &PaymentSchedule{
		PaymentAmount:     float64(perCents) / 100,
		LastPaymentAmount: float64(lastCents) / 100,
		Installments:      installments,
	}, nil
}

// installmentDate advances the first due date by step cadence intervals.
// Monthly stepping is always anchored on the first date's day-of-month and
// clamped to the target month's length, so a schedule starting on the 31st
// lands on Feb 28 and then back on Mar 31 rather than drifting to the 28th.
func installmentDate(first time.Time, freq PaymentFrequency, step int) time.Time {
	switch freq {
	case FrequencyWeekly:
		return first.AddDate(0, 0, 7*step)
	case FrequencyBiweekly:
		return first.AddDate(0, 0, 14*step)
	default:
		return utils.AddMonthsClamped(first, step)
	}
}
