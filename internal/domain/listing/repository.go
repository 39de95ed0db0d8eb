package listing

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for listing persistence.
//
// ReserveQuantity and RestoreQuantity must be single atomic conditional
// updates at the datastore: two concurrent reservations against the same
// listing must never both succeed past the available stock.
type Repository interface {
	// Create inserts a new listing
	Create(ctx context.Context, l *Listing) error

	// GetByID retrieves a listing by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Listing, error)

	// ReserveQuantity atomically decrements quantity if the listing is
	// available and holds at least the requested amount, marking it sold
	// at zero. Returns ErrInsufficientQuantity or ErrListingUnavailable
	// when the conditional update matches no row.
	ReserveQuantity(ctx context.Context, id uuid.UUID, quantity int) error

	// RestoreQuantity atomically credits quantity back and reopens a sold
	// listing.
	RestoreQuantity(ctx context.Context, id uuid.UUID, quantity int) error

	// SetAvailability flips a tool/plot listing between available and
	// unavailable.
	SetAvailability(ctx context.Context, id uuid.UUID, available bool) error
}
