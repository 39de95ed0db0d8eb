package controller

import (
	"time"

	"github.com/growshare/marketplace/internal/domain/listing"
	"github.com/growshare/marketplace/internal/domain/notification"
	"github.com/growshare/marketplace/internal/domain/payment"
	"github.com/growshare/marketplace/internal/domain/transactable"
)

// --- Request DTOs ---
// Amounts ride the wire in minor units; dates as RFC 3339. Controllers
// convert these to service layer DTOs before calling business logic.

// CreateListingRequest holds the input for creating a listing.
type CreateListingRequest struct {
	Type            string `json:"type" validate:"required,oneof=produce tool plot"`
	Title           string `json:"title" validate:"required,max=200"`
	UnitPriceCents  int64  `json:"unit_price_cents" validate:"gte=0"`
	DailyRateCents  int64  `json:"daily_rate_cents" validate:"gte=0"`
	WeeklyRateCents int64  `json:"weekly_rate_cents" validate:"gte=0"`
	Currency        string `json:"currency" validate:"required,len=3"`
	Quantity        int    `json:"quantity" validate:"gte=0"`
}

// CreateBookingRequest holds the input for booking a plot.
type CreateBookingRequest struct {
	ListingID string    `json:"listing_id" validate:"required,uuid"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
	Notes     string    `json:"notes" validate:"max=1000"`
}

// CreateRentalRequest holds the input for renting a tool.
type CreateRentalRequest struct {
	ListingID string    `json:"listing_id" validate:"required,uuid"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
	Notes     string    `json:"notes" validate:"max=1000"`
}

// CreateOrderRequest holds the input for ordering produce.
type CreateOrderRequest struct {
	ListingID string `json:"listing_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
	Notes     string `json:"notes" validate:"max=1000"`
}

// TransitionRequest asks to move a transactable to a target status.
type TransitionRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed active ready completed cancelled"`
}

// --- Response DTOs ---

// ListingResponse represents a listing in API responses.
type ListingResponse struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"owner_id"`
	Type            string    `json:"type"`
	Title           string    `json:"title"`
	UnitPriceCents  int64     `json:"unit_price_cents,omitempty"`
	DailyRateCents  int64     `json:"daily_rate_cents,omitempty"`
	WeeklyRateCents int64     `json:"weekly_rate_cents,omitempty"`
	Currency        string    `json:"currency"`
	Quantity        int       `json:"quantity"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

func FromListing(l *listing.Listing) ListingResponse {
	return ListingResponse{
		ID:              l.ID.String(),
		OwnerID:         l.OwnerID.String(),
		Type:            string(l.Type),
		Title:           l.Title,
		UnitPriceCents:  l.UnitPriceCents,
		DailyRateCents:  l.DailyRateCents,
		WeeklyRateCents: l.WeeklyRateCents,
		Currency:        l.Currency,
		Quantity:        l.Quantity,
		Status:          string(l.Status),
		CreatedAt:       l.CreatedAt,
	}
}

// TransactableResponse represents a booking, rental or order.
type TransactableResponse struct {
	ID             string     `json:"id"`
	Kind           string     `json:"kind"`
	OwnerID        string     `json:"owner_id"`
	CounterpartyID string     `json:"counterparty_id"`
	ListingID      string     `json:"listing_id"`
	Quantity       int        `json:"quantity,omitempty"`
	AmountCents    int64      `json:"amount_cents"`
	Currency       string     `json:"currency"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	Status         string     `json:"status"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func FromTransactable(t *transactable.Transactable) TransactableResponse {
	return TransactableResponse{
		ID:             t.ID.String(),
		Kind:           string(t.Kind),
		OwnerID:        t.OwnerID.String(),
		CounterpartyID: t.CounterpartyID.String(),
		ListingID:      t.ListingID.String(),
		Quantity:       t.Quantity,
		AmountCents:    t.AmountCents,
		Currency:       t.Currency,
		StartDate:      t.StartDate,
		EndDate:        t.EndDate,
		Notes:          t.Notes,
		Status:         string(t.Status),
		ApprovedAt:     t.ApprovedAt,
		PaidAt:         t.PaidAt,
		CompletedAt:    t.CompletedAt,
		CancelledAt:    t.CancelledAt,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

// PaymentRecordResponse represents a payment record. The client secret is
// only present on initiation.
type PaymentRecordResponse struct {
	ID             string     `json:"id"`
	TransactableID string     `json:"transactable_id"`
	Provider       string     `json:"provider"`
	ExternalRef    string     `json:"external_ref,omitempty"`
	ClientSecret   string     `json:"client_secret,omitempty"`
	AmountCents    int64      `json:"amount_cents"`
	FeeCents       int64      `json:"fee_cents"`
	NetCents       int64      `json:"net_cents"`
	Currency       string     `json:"currency"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	SucceededAt    *time.Time `json:"succeeded_at,omitempty"`
}

func FromPaymentRecord(r *payment.Record, includeSecret bool) PaymentRecordResponse {
	resp := PaymentRecordResponse{
		ID:             r.ID.String(),
		TransactableID: r.TransactableID.String(),
		Provider:       r.Provider,
		ExternalRef:    r.ExternalRef,
		AmountCents:    r.AmountCents,
		FeeCents:       r.FeeCents,
		NetCents:       r.NetCents,
		Currency:       r.Currency,
		Status:         string(r.Status),
		CreatedAt:      r.CreatedAt,
		SucceededAt:    r.SucceededAt,
	}
	if includeSecret {
		resp.ClientSecret = r.ClientSecret
	}
	return resp
}

// RefundResponse reports a processed refund.
type RefundResponse struct {
	Payment     PaymentRecordResponse `json:"payment"`
	Percentage  int                   `json:"percentage"`
	AmountCents int64                 `json:"amount_cents"`
	RefundRef   string                `json:"refund_ref,omitempty"`
}

// NotificationResponse represents a notification.
type NotificationResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Link      string    `json:"link,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func FromNotification(n *notification.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID.String(),
		Type:      string(n.Type),
		Title:     n.Title,
		Body:      n.Body,
		Link:      n.Link,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}
