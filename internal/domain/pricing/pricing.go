// Package pricing computes transactable totals from listing rates.
package pricing

import (
	"math"
	"time"

	"github.com/growshare/marketplace/internal/domain/errors"
)

const daysPerWeek = 7

// Days returns the rental duration in whole days, rounding partial days up.
func Days(start, end time.Time) int {
	return int(math.Ceil(end.Sub(start).Hours() / 24))
}

// RentalCost prices a date range against a daily rate with an optional
// weekly rate. For durations of a week or more with a weekly rate, full
// weeks are billed at the weekly rate and the remainder at the daily rate.
func RentalCost(dailyRateCents, weeklyRateCents int64, start, end time.Time) (int64, error) {
	if dailyRateCents <= 0 {
		return 0, errors.NewValidationError("daily_rate", "must be greater than 0")
	}

	days := Days(start, end)
	if days <= 0 {
		return 0, errors.NewDomainError("invalid_date_range", "end date must be after start date", errors.ErrInvalidDateRange)
	}

	if days >= daysPerWeek && weeklyRateCents > 0 {
		weeks := int64(days / daysPerWeek)
		rem := int64(days % daysPerWeek)
		return weeks*weeklyRateCents + rem*dailyRateCents, nil
	}
	return int64(days) * dailyRateCents, nil
}

// OrderCost prices a quantity purchase. Availability is not checked here;
// the listing repository re-checks it atomically at commit time.
func OrderCost(unitPriceCents int64, quantity int) (int64, error) {
	if unitPriceCents <= 0 {
		return 0, errors.NewValidationError("unit_price", "must be greater than 0")
	}
	if quantity <= 0 {
		return 0, errors.NewValidationError("quantity", "must be greater than 0")
	}
	return unitPriceCents * int64(quantity), nil
}
