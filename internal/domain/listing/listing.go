package listing

import (
	"time"

	"github.com/google/uuid"
	"github.com/growshare/marketplace/internal/domain/errors"
)

// Type distinguishes the listed asset classes.
type Type string

const (
	TypeProduce Type = "produce" // quantity-based marketplace listing
	TypeTool    Type = "tool"    // availability-based tool listing
	TypePlot    Type = "plot"    // availability-based plot listing
)

// Status represents listing availability.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusSold        Status = "sold"
	StatusUnavailable Status = "unavailable"
)

// Listing is the inventory side of a transactable: a produce listing with a
// quantity, or a tool/plot with boolean availability (quantity 1).
type Listing struct {
	ID              uuid.UUID
	OwnerID         uuid.UUID
	Type            Type
	Title           string
	UnitPriceCents  int64 // produce
	DailyRateCents  int64 // tool/plot
	WeeklyRateCents int64 // optional, 0 when absent
	Currency        string
	Quantity        int
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// New creates an available listing.
func New(ownerID uuid.UUID, typ Type, title string, quantity int, currency string) (*Listing, error) {
	if title == "" {
		return nil, errors.NewValidationError("title", "cannot be empty")
	}
	if quantity < 0 {
		return nil, errors.NewValidationError("quantity", "cannot be negative")
	}
	if len(currency) != 3 {
		return nil, errors.NewValidationError("currency", "must be a 3-letter ISO code")
	}
	if typ != TypeProduce {
		quantity = 1
	}

	now := time.Now()
	return &Listing{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Type:      typ,
		Title:     title,
		Currency:  currency,
		Quantity:  quantity,
		Status:    StatusAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Reserve decrements quantity, flipping the listing to sold when it
// reaches zero. The in-memory check mirrors the repository's atomic
// conditional update; the repository result is authoritative under
// concurrency.
func (l *Listing) Reserve(quantity int) error {
	if l.Status != StatusAvailable {
		return errors.ErrListingUnavailable
	}
	if quantity <= 0 {
		return errors.NewValidationError("quantity", "must be greater than 0")
	}
	if quantity > l.Quantity {
		return errors.ErrInsufficientQuantity
	}
	l.Quantity -= quantity
	if l.Quantity == 0 {
		l.Status = StatusSold
	}
	l.UpdatedAt = time.Now()
	return nil
}

// Restore credits quantity back after a cancellation and reopens a sold
// listing. Double-credit protection lives on the transactable's
// inventory-held flag, not here.
func (l *Listing) Restore(quantity int) {
	l.Quantity += quantity
	if l.Status == StatusSold {
		l.Status = StatusAvailable
	}
	l.UpdatedAt = time.Now()
}
