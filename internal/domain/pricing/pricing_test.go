package pricing

import (
	"testing"
	"time"

	domainErrors "github.com/growshare/marketplace/internal/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDays_RoundsPartialDaysUp(t *testing.T) {
	start := date(2026, 6, 1)

	assert.Equal(t, 3, Days(start, start.Add(72*time.Hour)))
	assert.Equal(t, 3, Days(start, start.Add(49*time.Hour)), "2 days 1 hour bills as 3")
	assert.Equal(t, 1, Days(start, start.Add(time.Hour)))
}

func TestRentalCost_DailyRate(t *testing.T) {
	cost, err := RentalCost(1000, 0, date(2026, 6, 1), date(2026, 6, 4))
	require.NoError(t, err)
	assert.Equal(t, int64(3000), cost)
}

func TestRentalCost_WeeklyTier(t *testing.T) {
	// 10 days with a weekly rate: one week at 5000 plus 3 days at 1000.
	cost, err := RentalCost(1000, 5000, date(2026, 6, 1), date(2026, 6, 11))
	require.NoError(t, err)
	assert.Equal(t, int64(8000), cost)

	// Exactly two weeks.
	cost, err = RentalCost(1000, 5000, date(2026, 6, 1), date(2026, 6, 15))
	require.NoError(t, err)
	assert.Equal(t, int64(10000), cost)

	// Six days stays on the daily rate even with a weekly rate set.
	cost, err = RentalCost(1000, 5000, date(2026, 6, 1), date(2026, 6, 7))
	require.NoError(t, err)
	assert.Equal(t, int64(6000), cost)
}

func TestRentalCost_NoWeeklyRateFallsBackToDaily(t *testing.T) {
	cost, err := RentalCost(1000, 0, date(2026, 6, 1), date(2026, 6, 11))
	require.NoError(t, err)
	assert.Equal(t, int64(10000), cost)
}

func TestRentalCost_WeeklyNeverCostsMoreThanDaily(t *testing.T) {
	// With weekly < 7*daily, the tiered price stays at or below the pure
	// daily price for any duration.
	for days := 7; days <= 30; days++ {
		end := date(2026, 6, 1).AddDate(0, 0, days)
		tiered, err := RentalCost(1000, 6000, date(2026, 6, 1), end)
		require.NoError(t, err)
		assert.LessOrEqual(t, tiered, int64(days)*1000, "%d days", days)
	}
}

func TestRentalCost_InvalidInput(t *testing.T) {
	_, err := RentalCost(0, 0, date(2026, 6, 1), date(2026, 6, 4))
	assert.Error(t, err, "zero daily rate")

	_, err = RentalCost(1000, 0, date(2026, 6, 4), date(2026, 6, 1))
	assert.ErrorIs(t, err, domainErrors.ErrInvalidDateRange)

	_, err = RentalCost(1000, 0, date(2026, 6, 1), date(2026, 6, 1))
	assert.ErrorIs(t, err, domainErrors.ErrInvalidDateRange, "zero-length range")
}

func TestOrderCost(t *testing.T) {
	cost, err := OrderCost(250, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), cost)

	_, err = OrderCost(0, 4)
	assert.Error(t, err)

	_, err = OrderCost(250, 0)
	assert.Error(t, err)
}
