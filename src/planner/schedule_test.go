package planner

import (
	"math"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestGeneratePaymentSchedule_AmountsSumToTotal(t *testing.T) {
	tests := []struct {
		name  string
		total float64
		n     int
	}{
		{"even split", 400.00, 4},
		{"repeating decimal", 100.00, 3},
		{"single payment", 59.99, 1},
		{"odd cents", 123.45, 7},
		{"many payments", 1999.99, 26},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schedule, err := GeneratePaymentSchedule(ScheduleInput{
				TotalAmount:      tt.total,
				NumberOfPayments: tt.n,
				FirstPaymentDate: date(2026, time.March, 15),
				Frequency:        FrequencyBiweekly,
			})
			if err != nil {
				t.Fatalf("GeneratePaymentSchedule() error = %v", err)
			}
			if len(schedule.Installments) != tt.n {
				t.Fatalf("got %d installments, want %d", len(schedule.Installments), tt.n)
			}

			sumCents := int64(0)
			for _, inst := range schedule.Installments {
				sumCents += int64(math.Round(inst.Amount * 100))
			}
			wantCents := int64(math.Round(tt.total * 100))
			if sumCents != wantCents {
				t.Errorf("installments sum to %d cents, want %d", sumCents, wantCents)
			}

			for i, inst := range schedule.Installments[:tt.n-1] {
				if inst.Amount != schedule.PaymentAmount {
					t.Errorf("installment %d amount = %.2f, want regular amount %.2f", i+1, inst.Amount, schedule.PaymentAmount)
				}
			}
			if schedule.Installments[tt.n-1].Amount != schedule.LastPaymentAmount {
				t.Errorf("last installment = %.2f, want %.2f", schedule.Installments[tt.n-1].Amount, schedule.LastPaymentAmount)
			}
		})
	}
}

func TestGeneratePaymentSchedule_DateAdvancement(t *testing.T) {
	first := date(2026, time.January, 10)

	tests := []struct {
		name     string
		freq     PaymentFrequency
		step     int
		wantDate time.Time
	}{
		{"weekly step 1", FrequencyWeekly, 1, date(2026, time.January, 17)},
		{"weekly step 3", FrequencyWeekly, 3, date(2026, time.January, 31)},
		{"biweekly step 1", FrequencyBiweekly, 1, date(2026, time.January, 24)},
		{"biweekly step 2", FrequencyBiweekly, 2, date(2026, time.February, 7)},
		{"monthly step 1", FrequencyMonthly, 1, date(2026, time.February, 10)},
		{"monthly step 11", FrequencyMonthly, 11, date(2026, time.December, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schedule, err := GeneratePaymentSchedule(ScheduleInput{
				TotalAmount:      100,
				NumberOfPayments: tt.step + 1,
				FirstPaymentDate: first,
				Frequency:        tt.freq,
			})
			if err != nil {
				t.Fatalf("GeneratePaymentSchedule() error = %v", err)
			}
			got := schedule.Installments[tt.step].DueDate
			if !got.Equal(tt.wantDate) {
				t.Errorf("installment %d due %v, want %v", tt.step+1, got, tt.wantDate)
			}
		})
	}
}

func TestGeneratePaymentSchedule_MonthlyClampNoDrift(t *testing.T) {
	// Starting on Jan 31: February clamps to 28 but March must return to 31,
	// because the clamp is evaluated from the anchor day each step.
	schedule, err := GeneratePaymentSchedule(ScheduleInput{
		TotalAmount:      300,
		NumberOfPayments: 4,
		FirstPaymentDate: date(2026, time.January, 31),
		Frequency:        FrequencyMonthly,
	})
	if err != nil {
		t.Fatalf("GeneratePaymentSchedule() error = %v", err)
	}

	want := []time.Time{
		date(2026, time.January, 31),
		date(2026, time.February, 28),
		date(2026, time.March, 31),
		date(2026, time.April, 30),
	}
	for i, w := range want {
		if !schedule.Installments[i].DueDate.Equal(w) {
			t.Errorf("installment %d due %v, want %v", i+1, schedule.Installments[i].DueDate, w)
		}
	}
}

func TestGeneratePaymentSchedule_NoDateBeforeFirst(t *testing.T) {
	first := date(2026, time.May, 1)
	schedule, err := GeneratePaymentSchedule(ScheduleInput{
		TotalAmount:      500,
		NumberOfPayments: 12,
		FirstPaymentDate: first,
		Frequency:        FrequencyWeekly,
	})
	if err != nil {
		t.Fatalf("GeneratePaymentSchedule() error = %v", err)
	}
	for _, inst := range schedule.Installments {
		if inst.DueDate.Before(first) {
			t.Errorf("installment %d due %v precedes first payment date %v", inst.Number, inst.DueDate, first)
		}
	}
}

func TestGeneratePaymentSchedule_Idempotent(t *testing.T) {
	in := ScheduleInput{
		TotalAmount:      847.31,
		NumberOfPayments: 6,
		FirstPaymentDate: date(2026, time.August, 31),
		Frequency:        FrequencyMonthly,
	}
	first, err := GeneratePaymentSchedule(in)
	if err != nil {
		t.Fatalf("first GeneratePaymentSchedule() error = %v", err)
	}
	second, err := GeneratePaymentSchedule(in)
	if err != nil {
		t.Fatalf("second GeneratePaymentSchedule() error = %v", err)
	}
	for i := range first.Installments {
		if !first.Installments[i].DueDate.Equal(second.Installments[i].DueDate) ||
			first.Installments[i].Amount != second.Installments[i].Amount {
			t.Errorf("installment %d differs between runs: %+v vs %+v", i+1, first.Installments[i], second.Installments[i])
		}
	}
}

func TestGeneratePaymentSchedule_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   ScheduleInput
	}{
		{"zero payments", ScheduleInput{TotalAmount: 100, NumberOfPayments: 0, FirstPaymentDate: date(2026, time.January, 1), Frequency: FrequencyWeekly}},
		{"negative total", ScheduleInput{TotalAmount: -5, NumberOfPayments: 4, FirstPaymentDate: date(2026, time.January, 1), Frequency: FrequencyWeekly}},
		{"zero total", ScheduleInput{TotalAmount: 0, NumberOfPayments: 4, FirstPaymentDate: date(2026, time.January, 1), Frequency: FrequencyWeekly}},
		{"bad frequency", ScheduleInput{TotalAmount: 100, NumberOfPayments: 4, FirstPaymentDate: date(2026, time.January, 1), Frequency: "quarterly"}},
		{"missing first date", ScheduleInput{TotalAmount: 100, NumberOfPayments: 4, Frequency: FrequencyWeekly}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := GeneratePaymentSchedule(tt.in); err == nil {
				t.Error("GeneratePaymentSchedule() expected validation error, got nil")
			}
		})
	}
}
