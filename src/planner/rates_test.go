package planner

import (
	"math"
	"testing"
)

func TestCalculateEffectiveAPR_NoFinanceCharge(t *testing.T) {
	tests := []struct {
		name string
		n    int
		freq PaymentFrequency
	}{
		{"four weekly", 4, FrequencyWeekly},
		{"six biweekly", 6, FrequencyBiweekly},
		{"twelve monthly", 12, FrequencyMonthly},
		{"single payment", 1, FrequencyMonthly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := CalculateEffectiveAPR(EffectiveAPRInput{
				Principal:        500,
				TotalRepayable:   500,
				NumberOfPayments: tt.n,
				Frequency:        tt.freq,
			})
			if err != nil {
				t.Fatalf("CalculateEffectiveAPR() error = %v", err)
			}
			if result.Implied || result.AnnualRate != 0 {
				t.Errorf("got rate %.4f implied=%v, want 0 and not implied", result.AnnualRate, result.Implied)
			}
		})
	}
}

func TestCalculateEffectiveAPR_SolvesAnnuityEquation(t *testing.T) {
	tests := []struct {
		name           string
		principal      float64
		totalRepayable float64
		n              int
		freq           PaymentFrequency
	}{
		{"mild monthly charge", 1000, 1100, 12, FrequencyMonthly},
		{"biweekly plan", 800, 860, 8, FrequencyBiweekly},
		{"weekly plan", 250, 265, 4, FrequencyWeekly},
		{"long plan", 5000, 6200, 36, FrequencyMonthly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := CalculateEffectiveAPR(EffectiveAPRInput{
				Principal:        tt.principal,
				TotalRepayable:   tt.totalRepayable,
				NumberOfPayments: tt.n,
				Frequency:        tt.freq,
			})
			if err != nil {
				t.Fatalf("CalculateEffectiveAPR() error = %v", err)
			}
			if !result.Implied {
				t.Fatal("expected an implied rate")
			}
			if result.Approximate {
				t.Fatal("expected exact convergence, got approximate fallback")
			}
			if result.AnnualRate <= 0 {
				t.Fatalf("annual rate = %.6f, want > 0", result.AnnualRate)
			}

			// The solved periodic rate must satisfy P = A*(1-(1+r)^-N)/r.
			periodic := result.AnnualRate / 100 / float64(tt.freq.PeriodsPerYear())
			installment := tt.totalRepayable / float64(tt.n)
			pv := installment * (1 - math.Pow(1+periodic, -float64(tt.n))) / periodic
			if math.Abs(pv-tt.principal) > 0.01 {
				t.Errorf("present value at solved rate = %.4f, want %.2f", pv, tt.principal)
			}
		})
	}
}

func TestCalculateEffectiveAPR_MoreChargeMeansHigherRate(t *testing.T) {
	low, err := CalculateEffectiveAPR(EffectiveAPRInput{Principal: 1000, TotalRepayable: 1050, NumberOfPayments: 12, Frequency: FrequencyMonthly})
	if err != nil {
		t.Fatalf("low charge error = %v", err)
	}
	high, err := CalculateEffectiveAPR(EffectiveAPRInput{Principal: 1000, TotalRepayable: 1150, NumberOfPayments: 12, Frequency: FrequencyMonthly})
	if err != nil {
		t.Fatalf("high charge error = %v", err)
	}
	if high.AnnualRate <= low.AnnualRate {
		t.Errorf("rate for higher charge (%.4f) should exceed rate for lower charge (%.4f)", high.AnnualRate, low.AnnualRate)
	}
}

func TestCalculateEffectiveAPR_FallbackWhenOutOfBounds(t *testing.T) {
	// A single payment repaying 1000x the principal implies a periodic rate
	// of 999, far past the solver's bracket; the linear fallback kicks in.
	result, err := CalculateEffectiveAPR(EffectiveAPRInput{
		Principal:        100,
		TotalRepayable:   100000,
		NumberOfPayments: 1,
		Frequency:        FrequencyMonthly,
	})
	if err != nil {
		t.Fatalf("CalculateEffectiveAPR() error = %v", err)
	}
	if !result.Approximate {
		t.Error("expected the approximate fallback to be flagged")
	}
	wantRate := (100000.0 - 100.0) / 100.0 / 1.0 * 12 * 100
	if math.Abs(result.AnnualRate-wantRate) > 1e-9 {
		t.Errorf("fallback rate = %.4f, want %.4f", result.AnnualRate, wantRate)
	}
}

func TestCalculateEffectiveAPR_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   EffectiveAPRInput
	}{
		{"zero principal", EffectiveAPRInput{Principal: 0, TotalRepayable: 100, NumberOfPayments: 4, Frequency: FrequencyWeekly}},
		{"zero payments", EffectiveAPRInput{Principal: 100, TotalRepayable: 110, NumberOfPayments: 0, Frequency: FrequencyWeekly}},
		{"bad frequency", EffectiveAPRInput{Principal: 100, TotalRepayable: 110, NumberOfPayments: 4, Frequency: "daily"}},
		{"repayable below principal", EffectiveAPRInput{Principal: 100, TotalRepayable: 50, NumberOfPayments: 4, Frequency: FrequencyWeekly}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CalculateEffectiveAPR(tt.in); err == nil {
				t.Error("CalculateEffectiveAPR() expected validation error, got nil")
			}
		})
	}
}
