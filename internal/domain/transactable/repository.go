package transactable

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for transactable persistence
type Repository interface {
	// Create inserts a new transactable
	Create(ctx context.Context, t *Transactable) error

	// GetByID retrieves a transactable by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Transactable, error)

	// UpdateStatus persists the in-memory state with a compare-and-set on
	// the status the caller read. Returns ErrStaleState if another request
	// committed a different status in the meantime.
	UpdateStatus(ctx context.Context, t *Transactable, expected Status) error

	// SetInventoryHeld flips the inventory-held flag. The transition
	// false->true (or true->false) is atomic: the bool result reports
	// whether this call performed the flip, so a cancellation restore
	// cannot double-credit under concurrent retries.
	SetInventoryHeld(ctx context.Context, id uuid.UUID, held bool) (bool, error)

	// List lists transactables with filters
	List(ctx context.Context, filter ListFilter) ([]*Transactable, error)
}

// ListFilter defines filters for listing transactables
type ListFilter struct {
	UserID  *uuid.UUID
	Kind    *Kind
	Status  *Status
	Limit   int
	Offset  int
	SortBy  string
	SortOrder string
}
