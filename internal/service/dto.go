package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/growshare/marketplace/internal/domain/payment"
	"github.com/growshare/marketplace/internal/domain/transactable"
)

// CreateBookingRequest holds the input for booking a plot.
type CreateBookingRequest struct {
	ListingID      uuid.UUID
	CounterpartyID uuid.UUID
	StartDate      time.Time
	EndDate        time.Time
	Notes          string
}

// CreateRentalRequest holds the input for renting a tool.
type CreateRentalRequest struct {
	ListingID      uuid.UUID
	CounterpartyID uuid.UUID
	StartDate      time.Time
	EndDate        time.Time
	Notes          string
}

// CreateOrderRequest holds the input for ordering produce.
type CreateOrderRequest struct {
	ListingID      uuid.UUID
	CounterpartyID uuid.UUID
	Quantity       int
	Notes          string
}

// TransitionRequest asks to move a transactable to a target status on behalf
// of the acting user. The actor's role is derived from the transactable, not
// supplied by the caller.
type TransitionRequest struct {
	TransactableID uuid.UUID
	ActorID        uuid.UUID
	Target         transactable.Status
}

// InitiatePaymentResponse carries what a client needs to complete payment
// at the provider.
type InitiatePaymentResponse struct {
	Record       *payment.Record
	ClientSecret string
}

// RefundResponse reports the applied refund policy outcome.
type RefundResponse struct {
	Record      *payment.Record
	Percentage  int
	AmountCents int64
	RefundRef   string
}
