package planner

import "time"

// PayPeriod is a biweekly window opened by a paycheck deposit. EndDate is
// inclusive: the period spans paycheck day plus the following 13 days.
type PayPeriod struct {
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	PaycheckDate time.Time `json:"paycheckDate"`
}

const payPeriodDays = 14

// PaycheckDateFor returns the paycheck date whose period contains the given
// date, based on a biweekly schedule anchored at the reference paycheck.
func PaycheckDateFor(reference, date time.Time) time.Time {
	target := startOfDay(date)
	anchor := startOfDay(reference)

	diffDays := int(target.Sub(anchor).Hours() / 24)
	periods := floorDiv(floorDiv(diffDays, 7), 2)
	paycheck := anchor.AddDate(0, 0, periods*payPeriodDays)

	if paycheck.After(target) {
		paycheck = paycheck.AddDate(0, 0, -payPeriodDays)
	}
	return paycheck
}

// PeriodForDate returns the pay period containing the given date.
func PeriodForDate(reference, date time.Time) PayPeriod {
	paycheck := PaycheckDateFor(reference, date)
	return PayPeriod{
		StartDate:    paycheck,
		EndDate:      paycheck.AddDate(0, 0, payPeriodDays-1),
		PaycheckDate: paycheck,
	}
}

// CurrentPeriod returns the pay period containing now.
func CurrentPeriod(reference, now time.Time) PayPeriod {
	return PeriodForDate(reference, now)
}

// NextPeriod returns the period after the one containing now.
func NextPeriod(reference, now time.Time) PayPeriod {
	current := PeriodForDate(reference, now)
	return PeriodForDate(reference, current.EndDate.AddDate(0, 0, 1))
}

// DateInPeriod reports whether the date falls inside the period, comparing
// whole days on both ends inclusive.
func DateInPeriod(date time.Time, p PayPeriod) bool {
	target := startOfDay(date)
	start := startOfDay(p.StartDate)
	end := startOfDay(p.EndDate)
	return !target.Before(start) && !target.After(end)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// floorDiv divides rounding toward negative infinity, so dates before the
// reference paycheck land in the correct earlier period.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
