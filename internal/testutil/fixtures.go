package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/growshare/marketplace/internal/domain/listing"
	"github.com/growshare/marketplace/internal/domain/transactable"
	"github.com/growshare/marketplace/internal/infrastructure/observability"
	"github.com/prometheus/client_golang/prometheus"
)

// NewMetrics returns metrics registered against a throwaway registry so
// parallel tests never collide on the default registerer.
func NewMetrics() *observability.Metrics {
	return observability.NewMetrics("growshare_test", prometheus.NewRegistry())
}

// ProduceListing returns an available produce listing with the given stock.
func ProduceListing(ownerID uuid.UUID, unitPriceCents int64, quantity int) *listing.Listing {
	l, err := listing.New(ownerID, listing.TypeProduce, "heirloom tomatoes", quantity, "USD")
	if err != nil {
		panic(err)
	}
	l.UnitPriceCents = unitPriceCents
	return l
}

// ToolListing returns an available tool listing with daily and weekly rates.
func ToolListing(ownerID uuid.UUID, dailyRateCents, weeklyRateCents int64) *listing.Listing {
	l, err := listing.New(ownerID, listing.TypeTool, "rototiller", 1, "USD")
	if err != nil {
		panic(err)
	}
	l.DailyRateCents = dailyRateCents
	l.WeeklyRateCents = weeklyRateCents
	return l
}

// PlotListing returns an available plot listing with daily and weekly rates.
func PlotListing(ownerID uuid.UUID, dailyRateCents, weeklyRateCents int64) *listing.Listing {
	l, err := listing.New(ownerID, listing.TypePlot, "community plot 12B", 1, "USD")
	if err != nil {
		panic(err)
	}
	l.DailyRateCents = dailyRateCents
	l.WeeklyRateCents = weeklyRateCents
	return l
}

// Rental returns a pending tool rental between two fresh users.
func Rental(listingID uuid.UUID, start, end time.Time) *transactable.Transactable {
	t, err := transactable.New(transactable.KindRental, uuid.New(), uuid.New(), listingID, 5000, "USD")
	if err != nil {
		panic(err)
	}
	t.StartDate = &start
	t.EndDate = &end
	return t
}

// Order returns a pending produce order between two fresh users.
func Order(listingID uuid.UUID, quantity int, amountCents int64) *transactable.Transactable {
	t, err := transactable.New(transactable.KindOrder, uuid.New(), uuid.New(), listingID, amountCents, "USD")
	if err != nil {
		panic(err)
	}
	t.Quantity = quantity
	t.InventoryHeld = true
	return t
}
