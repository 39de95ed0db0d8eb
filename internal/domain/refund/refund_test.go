package refund

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func TestPercentage_Windows(t *testing.T) {
	tests := []struct {
		name     string
		start    time.Time
		expected int
	}{
		{"ten days out", now.AddDate(0, 0, 10), 100},
		{"exactly seven days", now.Add(7 * 24 * time.Hour), 100},
		{"five days out", now.AddDate(0, 0, 5), 50},
		{"exactly three days", now.Add(3 * 24 * time.Hour), 50},
		{"one day out", now.AddDate(0, 0, 1), 0},
		{"same day", now.Add(2 * time.Hour), 0},
		{"already started", now.AddDate(0, 0, -1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Percentage(now, tt.start))
		})
	}
}

func TestPercentage_PartialDaysRoundUp(t *testing.T) {
	// 6 days 1 hour before start counts as 7 days.
	start := now.Add(6*24*time.Hour + time.Hour)
	assert.Equal(t, 100, Percentage(now, start))

	// 2 days 1 hour counts as 3 days.
	start = now.Add(2*24*time.Hour + time.Hour)
	assert.Equal(t, 50, Percentage(now, start))
}

func TestPercentage_MonotonicInLeadTime(t *testing.T) {
	// Cancelling earlier never refunds less.
	prev := 0
	for days := 0; days <= 14; days++ {
		pct := Percentage(now, now.AddDate(0, 0, days))
		assert.GreaterOrEqual(t, pct, prev, "lead time %d days", days)
		prev = pct
	}
}

func TestAmount(t *testing.T) {
	assert.Equal(t, int64(10000), Amount(10000, 100))
	assert.Equal(t, int64(5000), Amount(10000, 50))
	assert.Equal(t, int64(0), Amount(10000, 0))

	// Half cents round half away from zero.
	assert.Equal(t, int64(50), Amount(99, 50))
	assert.Equal(t, int64(13), Amount(25, 50))
}
