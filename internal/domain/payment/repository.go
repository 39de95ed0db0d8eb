package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for payment record persistence
type Repository interface {
	// Create inserts a new record. The schema enforces one record per
	// transactable; a second concurrent insert surfaces
	// ErrPaymentAlreadyPending.
	Create(ctx context.Context, r *Record) error

	// GetByID retrieves a record by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)

	// GetByTransactableID retrieves the record for a transactable
	GetByTransactableID(ctx context.Context, transactableID uuid.UUID) (*Record, error)

	// GetByExternalRef retrieves a record by its provider reference
	GetByExternalRef(ctx context.Context, externalRef string) (*Record, error)

	// Update updates an existing record
	Update(ctx context.Context, r *Record) error

	// AddEvent adds a payment event for audit trail
	AddEvent(ctx context.Context, event *Event) error

	// GetEvents retrieves events for a record
	GetEvents(ctx context.Context, recordID uuid.UUID) ([]*Event, error)
}

// Event represents an entry in the payment audit trail
type Event struct {
	ID        uuid.UUID
	RecordID  uuid.UUID
	EventType string
	EventData map[string]any
	CreatedAt time.Time
}
