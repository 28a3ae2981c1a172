package planner

import (
	"fmt"
	"math"
)

const (
	// Upper bound for the periodic rate search. 500% per period is far beyond
	// any plausible financing charge; a plan implying more falls back to the
	// linear approximation.
	maxPeriodicRate = 5.0

	rateTolerance     = 1e-6
	maxRateIterations = 200
)

// EffectiveAPRInput describes a fixed-installment plan whose total repayable
// may exceed the financed principal.
type EffectiveAPRInput struct {
	Principal        float64
	TotalRepayable   float64
	NumberOfPayments int
	Frequency        PaymentFrequency
}

// EffectiveAPRResult is the annualized rate implied by the plan. Implied is
// false when the total repayable equals the principal (interest-free plan).
// Approximate is true when the solver failed to converge and the linear
// finance-charge fallback was used instead.
type EffectiveAPRResult struct {
	AnnualRate  float64 `json:"annualRate"`
	Implied     bool    `json:"implied"`
	Approximate bool    `json:"approximate"`
}

// CalculateEffectiveAPR solves for the periodic rate r that makes the fixed
// installment A = T/N amortize the principal exactly over N periods:
//
//	P = A * (1 - (1+r)^-N) / r
//
// There is no closed form for r, so the root is found by bisection. The
// periodic rate is annualized by the cadence's periods per year.
func CalculateEffectiveAPR(in EffectiveAPRInput) (EffectiveAPRResult, error) {
	if in.Principal <= 0 {
		return EffectiveAPRResult{}, fmt.Errorf("%w: principal must be positive, got %.2f", ErrValidation, in.Principal)
	}
	if in.NumberOfPayments < 1 {
		return EffectiveAPRResult{}, fmt.Errorf("%w: numberOfPayments must be at least 1, got %d", ErrValidation, in.NumberOfPayments)
	}
	if !in.Frequency.Valid() {
		return EffectiveAPRResult{}, fmt.Errorf("%w: unrecognized payment frequency %q", ErrValidation, in.Frequency)
	}
	if in.TotalRepayable < in.Principal-0.01 {
		return EffectiveAPRResult{}, fmt.Errorf("%w: totalRepayable %.2f is below principal %.2f", ErrValidation, in.TotalRepayable, in.Principal)
	}

	// Within a cent of the principal there is no implied financing cost.
	if math.Abs(in.TotalRepayable-in.Principal) < 0.01 {
		return EffectiveAPRResult{}, nil
	}

	periodsPerYear := float64(in.Frequency.PeriodsPerYear())
	n := float64(in.NumberOfPayments)
	installment := in.TotalRepayable / n

	// presentValue(r) is strictly decreasing in r, from A*N (= T > P) toward
	// 0, so the root is bracketed as long as presentValue(hi) < P.
	presentValue := func(r float64) float64 {
		return installment * (1 - math.Pow(1+r, -n)) / r
	}

	lo, hi := 1e-9, maxPeriodicRate
	if presentValue(hi) > in.Principal {
		return linearFallback(in, periodsPerYear), nil
	}

	converged := false
	var mid float64
	for i := 0; i < maxRateIterations; i++ {
		mid = (lo + hi) / 2
		diff := presentValue(mid) - in.Principal
		if math.Abs(diff) < rateTolerance || hi-lo < rateTolerance {
			converged = true
			break
		}
		if diff > 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	if !converged {
		return linearFallback(in, periodsPerYear), nil
	}

	return EffectiveAPRResult{
		AnnualRate: mid * periodsPerYear * 100,
		Implied:    true,
	}, nil
}

// linearFallback spreads the total finance charge evenly across the payment
// count and annualizes it, ignoring compounding.
func linearFallback(in EffectiveAPRInput, periodsPerYear float64) EffectiveAPRResult {
	chargeFraction := (in.TotalRepayable - in.Principal) / in.Principal
	perPeriod := chargeFraction / float64(in.NumberOfPayments)
	return EffectiveAPRResult{
		AnnualRate:  perPeriod * periodsPerYear * 100,
		Implied:     true,
		Approximate: true,
	}
}
