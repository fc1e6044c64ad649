package entitlements

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FeWoHub/fewohub/app/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddBillingPeriod(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		start  time.Time
		period string
		want   time.Time
	}{
		{
			name:   "monthly mid-month",
			start:  date(2026, time.March, 15),
			period: models.BillingPeriodMonthly,
			want:   date(2026, time.April, 15),
		},
		{
			name:   "monthly across year end",
			start:  date(2026, time.December, 15),
			period: models.BillingPeriodMonthly,
			want:   date(2027, time.January, 15),
		},
		{
			name:   "monthly clamps jan 31 to feb 28",
			start:  date(2026, time.January, 31),
			period: models.BillingPeriodMonthly,
			want:   date(2026, time.February, 28),
		},
		{
			name:   "monthly clamps jan 31 to feb 29 in leap year",
			start:  date(2028, time.January, 31),
			period: models.BillingPeriodMonthly,
			want:   date(2028, time.February, 29),
		},
		{
			name:   "quarterly",
			start:  date(2026, time.November, 30),
			period: models.BillingPeriodQuarterly,
			want:   date(2027, time.February, 28),
		},
		{
			name:   "semi annual",
			start:  date(2026, time.August, 31),
			period: models.BillingPeriodSemiAnnual,
			want:   date(2027, time.February, 28),
		},
		{
			name:   "yearly from leap day",
			start:  date(2028, time.February, 29),
			period: models.BillingPeriodYearly,
			want:   date(2029, time.February, 28),
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := AddBillingPeriod(tc.start, tc.period)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAddBillingPeriodUnknownPeriod(t *testing.T) {
	t.Parallel()

	_, err := AddBillingPeriod(date(2026, time.March, 1), "weekly")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestNewSlotExpiry(t *testing.T) {
	t.Parallel()

	creation := time.Date(2026, time.December, 15, 9, 30, 0, 0, time.UTC)

	got, err := NewSlotExpiry(creation, models.BillingPeriodMonthly, 0)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2027, time.January, 15, 23, 59, 59, 0, time.UTC), got)

	// Compensation days push the expiry out before end-of-day normalization.
	got, err = NewSlotExpiry(creation, models.BillingPeriodMonthly, 9)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2027, time.January, 24, 23, 59, 59, 0, time.UTC), got)
}

func TestRenewalExpiry(t *testing.T) {
	t.Parallel()

	periodEnd := time.Date(2026, time.June, 1, 4, 12, 0, 0, time.UTC)

	assert.Equal(t,
		time.Date(2026, time.June, 1, 23, 59, 59, 0, time.UTC),
		RenewalExpiry(periodEnd, 0))
	assert.Equal(t,
		time.Date(2026, time.June, 4, 23, 59, 59, 0, time.UTC),
		RenewalExpiry(periodEnd, 3))
}
