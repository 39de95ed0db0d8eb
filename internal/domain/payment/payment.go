package payment

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/growshare/marketplace/internal/domain/errors"
)

// PlatformFeePercent is the share of the gross amount the platform retains;
// the remainder is the owner's earnings.
const PlatformFeePercent = 10

// Status represents the payment record status in the state machine
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

// Record ties a transactable to a payment at the external provider. A
// transactable has at most one record; the uniqueness lives in the
// datastore schema, not application locking.
type Record struct {
	ID             uuid.UUID
	TransactableID uuid.UUID
	Provider       string
	ExternalRef    string
	ClientSecret   string
	AmountCents    int64
	FeeCents       int64
	NetCents       int64
	Currency       string
	Status         Status
	Metadata       map[string]any
	CreatedAt      time.Time
	UpdatedAt      time.Time
	SucceededAt    *time.Time
}

// NewRecord creates a pending payment record with the platform-fee split
// applied to the gross amount.
func NewRecord(transactableID uuid.UUID, provider string, amountCents int64, currency string) (*Record, error) {
	if amountCents <= 0 {
		return nil, errors.NewValidationError("amount", "must be greater than 0")
	}
	if len(currency) != 3 {
		return nil, errors.NewValidationError("currency", "must be a 3-letter ISO code")
	}

	fee := FeeFor(amountCents)
	now := time.Now()
	return &Record{
		ID:             uuid.New(),
		TransactableID: transactableID,
		Provider:       provider,
		AmountCents:    amountCents,
		FeeCents:       fee,
		NetCents:       amountCents - fee,
		Currency:       currency,
		Status:         StatusPending,
		Metadata:       make(map[string]any),
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// FeeFor returns the platform fee for a gross amount in minor units.
func FeeFor(amountCents int64) int64 {
	return int64(math.Round(float64(amountCents) * PlatformFeePercent / 100))
}

// CanTransitionTo checks if the record can transition to the given status
func (r *Record) CanTransitionTo(newStatus Status) bool {
	transitions := map[Status][]Status{
		StatusPending: {
			StatusSucceeded,
			StatusFailed,
			StatusCancelled,
		},
		StatusSucceeded: {
			StatusRefunded,
		},
		StatusFailed:    {},
		StatusCancelled: {},
		StatusRefunded:  {},
	}

	allowed, exists := transitions[r.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == newStatus {
			return true
		}
	}
	return false
}

// TransitionTo transitions the record to a new status
func (r *Record) TransitionTo(newStatus Status) error {
	if !r.CanTransitionTo(newStatus) {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition payment from "+string(r.Status)+" to "+string(newStatus),
			errors.ErrInvalidStateTransition,
		)
	}
	r.Status = newStatus
	r.UpdatedAt = time.Now()
	return nil
}

// MarkSucceeded transitions the record to succeeded and stamps the time.
func (r *Record) MarkSucceeded() error {
	if err := r.TransitionTo(StatusSucceeded); err != nil {
		return err
	}
	now := time.Now()
	r.SucceededAt = &now
	return nil
}

// MarkFailed transitions the record to failed, recording the reason.
func (r *Record) MarkFailed(reason string) error {
	if err := r.TransitionTo(StatusFailed); err != nil {
		return err
	}
	r.Metadata["failure_reason"] = reason
	return nil
}

// MarkCancelled transitions the record to cancelled.
func (r *Record) MarkCancelled() error {
	return r.TransitionTo(StatusCancelled)
}

// Reopen resets a failed or cancelled record back to pending so payment can
// be attempted again under the same one-record-per-transactable row. The
// previous attempt's provider references are cleared and the fee split is
// recomputed from the gross amount.
func (r *Record) Reopen() error {
	if r.Status != StatusFailed && r.Status != StatusCancelled {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot reopen a "+string(r.Status)+" payment",
			errors.ErrInvalidStateTransition,
		)
	}
	r.Status = StatusPending
	r.ExternalRef = ""
	r.ClientSecret = ""
	r.SucceededAt = nil
	delete(r.Metadata, "failure_reason")
	fee := FeeFor(r.AmountCents)
	r.FeeCents = fee
	r.NetCents = r.AmountCents - fee
	r.UpdatedAt = time.Now()
	return nil
}

// MarkRefunded transitions the record to refunded, storing the refund
// reference, percentage and amount in metadata. Refunded is terminal; a
// second refund attempt fails in CanTransitionTo.
func (r *Record) MarkRefunded(refundRef string, percentage int, amountCents int64) error {
	if r.Status == StatusRefunded {
		return errors.ErrAlreadyRefunded
	}
	if err := r.TransitionTo(StatusRefunded); err != nil {
		return err
	}
	r.Metadata["refund_ref"] = refundRef
	r.Metadata["refund_percentage"] = percentage
	r.Metadata["refund_amount_cents"] = amountCents
	return nil
}

// IsTerminal checks if the record is in a terminal state
func (r *Record) IsTerminal() bool {
	return r.Status == StatusFailed ||
		r.Status == StatusCancelled ||
		r.Status == StatusRefunded
}
