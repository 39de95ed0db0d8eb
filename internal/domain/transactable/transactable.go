package transactable

import (
	"time"

	"github.com/google/uuid"
	"github.com/growshare/marketplace/internal/domain/errors"
)

// Kind distinguishes the three payment-linked lifecycles on the platform.
type Kind string

const (
	KindBooking Kind = "booking" // plot rental
	KindRental  Kind = "rental"  // tool rental
	KindOrder   Kind = "order"   // produce order
)

// Status represents a position in the lifecycle state machine. Bookings and
// rentals use StatusActive for the in-progress phase; orders use StatusReady
// (paid, awaiting pickup).
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusActive    Status = "active"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Role identifies which side of the transactable an actor is on.
type Role string

const (
	RoleOwner        Role = "owner"        // landowner, tool owner, seller
	RoleCounterparty Role = "counterparty" // renter, buyer
)

// Transactable is a booking, tool rental, or produce order. It is owned
// jointly by the two counterparties and mutated only through validated
// transitions.
type Transactable struct {
	ID             uuid.UUID
	Kind           Kind
	OwnerID        uuid.UUID
	CounterpartyID uuid.UUID
	ListingID      uuid.UUID
	Quantity       int // orders only, 0 otherwise
	AmountCents    int64
	Currency       string
	StartDate      *time.Time // bookings and rentals
	EndDate        *time.Time
	// InventoryHeld records whether this transactable currently holds a
	// decrement against its listing. Restoration on cancellation happens
	// only while this is set, so a restore can never double-credit.
	InventoryHeld bool
	Notes         string
	Status        Status
	ApprovedAt    *time.Time
	PaidAt        *time.Time
	CompletedAt   *time.Time
	CancelledAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// New creates a transactable in the pending state.
func New(kind Kind, ownerID, counterpartyID, listingID uuid.UUID, amountCents int64, currency string) (*Transactable, error) {
	if amountCents <= 0 {
		return nil, errors.NewValidationError("amount", "must be greater than 0")
	}
	if currency == "" {
		return nil, errors.NewValidationError("currency", "cannot be empty")
	}
	if len(currency) != 3 {
		return nil, errors.NewValidationError("currency", "must be a 3-letter ISO code")
	}
	if ownerID == counterpartyID {
		return nil, errors.NewValidationError("counterparty_id", "cannot equal owner")
	}

	now := time.Now()
	return &Transactable{
		ID:             uuid.New(),
		Kind:           kind,
		OwnerID:        ownerID,
		CounterpartyID: counterpartyID,
		ListingID:      listingID,
		Status:         StatusPending,
		AmountCents:    amountCents,
		Currency:       currency,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// RoleOf returns the role of the given user on this transactable, or
// ErrForbidden if the user is neither party.
func (t *Transactable) RoleOf(userID uuid.UUID) (Role, error) {
	switch userID {
	case t.OwnerID:
		return RoleOwner, nil
	case t.CounterpartyID:
		return RoleCounterparty, nil
	default:
		return "", errors.ErrForbidden
	}
}

// OtherParty returns the counterpart of the given role, used to address
// notifications away from the actor.
func (t *Transactable) OtherParty(role Role) uuid.UUID {
	if role == RoleOwner {
		return t.CounterpartyID
	}
	return t.OwnerID
}

// IsTerminal reports whether the transactable can no longer transition.
func (t *Transactable) IsTerminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusCancelled
}

// PayableStatus returns the status a transactable of this kind must be in
// for payment initiation: owners approve bookings and rentals before money
// moves, while orders are paid straight from pending.
func PayableStatus(kind Kind) Status {
	if kind == KindOrder {
		return StatusPending
	}
	return StatusConfirmed
}

// PaidStatus returns the status a transactable of this kind advances to
// when its payment succeeds.
func PaidStatus(kind Kind) Status {
	if kind == KindOrder {
		return StatusConfirmed
	}
	return StatusActive
}

// MarkPaid stamps the payment time and advances the status along the paid
// path for this kind. The caller persists with a compare-and-set on the
// previous status.
func (t *Transactable) MarkPaid() error {
	if t.Status != PayableStatus(t.Kind) {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot mark paid from status "+string(t.Status),
			errors.ErrInvalidStateTransition,
		)
	}
	now := time.Now()
	t.PaidAt = &now
	t.applyStatus(PaidStatus(t.Kind), now)
	return nil
}

func (t *Transactable) applyStatus(s Status, now time.Time) {
	t.Status = s
	t.UpdatedAt = now
	switch s {
	case StatusConfirmed:
		t.ApprovedAt = &now
	case StatusCompleted:
		t.CompletedAt = &now
	case StatusCancelled:
		t.CancelledAt = &now
	}
}
