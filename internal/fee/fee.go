// Package fee computes late fees for loans. It is pure: same
// inputs always give the same output, no clock, no I/O.
package fee

import (
	"math"
	"time"
)

const (
	earlyRate = 0.50 // per day, first week overdue
	lateRate  = 1.00 // per day past the first week
	earlyDays = 7
	maxFee    = 15.00
)

// Compute returns whole days overdue and the owed amount for a loan
// due at due, evaluated as of asOf. Days are counted on calendar
// dates, so the due date itself is never overdue.
func Compute(due, asOf time.Time) (daysOverdue int, amount float64) {
	daysOverdue = overdueDays(due, asOf)
	if daysOverdue <= 0 {
		return 0, 0
	}

	amount = earlyRate*float64(min(daysOverdue, earlyDays)) +
		lateRate*float64(max(daysOverdue-earlyDays, 0))
	amount = math.Min(amount, maxFee)

	return daysOverdue, round2(amount)
}

func overdueDays(due, asOf time.Time) int {
	d := truncateToDate(asOf).Sub(truncateToDate(due))
	days := int(d.Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
