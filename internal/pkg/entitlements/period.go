package entitlements

import (
	"time"

	"github.com/FeWoHub/fewohub/app/models"
)

// periodMonths maps a billing cadence to its length in calendar months.
var periodMonths = map[string]int{
	models.BillingPeriodMonthly:    1,
	models.BillingPeriodQuarterly:  3,
	models.BillingPeriodSemiAnnual: 6,
	models.BillingPeriodYearly:     12,
}

// AddBillingPeriod advances t by one billing period using calendar-month
// arithmetic with month-end clamping: Jan 31 + monthly lands on Feb 28 (or
// Feb 29 in a leap year), never on Mar 3.
func AddBillingPeriod(t time.Time, period string) (time.Time, error) {
	months, ok := periodMonths[period]
	if !ok {
		return time.Time{}, NewValidationError("unknown billing period %q", period)
	}
	return addMonthsClamped(t, months), nil
}

// NewSlotExpiry computes the expiry of a freshly created subscription slot:
// one full billing period from the slot's own creation date plus any review
// compensation days, normalized to end of day. The slot is deliberately not
// prorated to the host's current billing cycle; a host publishing mid-cycle
// still gets full value.
func NewSlotExpiry(creationDate time.Time, period string, compensationDays int) (time.Time, error) {
	base, err := AddBillingPeriod(creationDate, period)
	if err != nil {
		return time.Time{}, err
	}
	return endOfDay(base.AddDate(0, 0, compensationDays)), nil
}

// RenewalExpiry computes the expiry applied at renewal or plan change: the
// new period end plus remaining compensation days, end of day.
func RenewalExpiry(periodEnd time.Time, compensationDays int) time.Time {
	return endOfDay(periodEnd.AddDate(0, 0, compensationDays))
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	// Normalize via the first of the target month, then clamp the day.
	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day zero of the following month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func endOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 23, 59, 59, 0, t.Location())
}
