// Package refund implements the cancellation refund policy: the refund
// percentage shrinks as the service start date approaches. Both functions
// are pure; callers inject "now" so eligibility is testable.
package refund

import (
	"math"
	"time"
)

// Refund windows in whole days before service start.
const (
	fullRefundDays = 7
	halfRefundDays = 3
)

// Percentage returns the refund percentage (100, 50 or 0) for a
// cancellation at now against the stored service start date.
func Percentage(now, serviceStart time.Time) int {
	days := int(math.Ceil(serviceStart.Sub(now).Hours() / 24))
	switch {
	case days >= fullRefundDays:
		return 100
	case days >= halfRefundDays:
		return 50
	default:
		return 0
	}
}

// Amount applies a percentage to a gross amount in minor units, rounding
// half away from zero.
func Amount(grossCents int64, percentage int) int64 {
	return int64(math.Round(float64(grossCents) * float64(percentage) / 100))
}
