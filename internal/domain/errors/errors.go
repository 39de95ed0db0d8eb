package errors

import (
	"errors"
	"fmt"
)

var (
	// Listing errors
	ErrListingNotFound      = errors.New("listing not found")
	ErrListingUnavailable   = errors.New("listing is not available")
	ErrInsufficientQuantity = errors.New("insufficient quantity")

	// Transactable errors
	ErrTransactableNotFound   = errors.New("transactable not found")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrStaleState             = errors.New("state changed concurrently")
	ErrInvalidDateRange       = errors.New("invalid date range")

	// Payment errors
	ErrPaymentNotFound       = errors.New("payment record not found")
	ErrAlreadyPaid           = errors.New("transactable already paid")
	ErrPaymentAlreadyPending = errors.New("payment already pending")
	ErrNotPayable            = errors.New("transactable not in a payable status")
	ErrAlreadyRefunded       = errors.New("payment already refunded")
	ErrNotRefundable         = errors.New("payment not refundable")

	// Provider errors
	ErrProviderNotFound    = errors.New("payment provider not found")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrProviderRejected    = errors.New("payment rejected by provider")
	ErrProviderTimeout     = errors.New("provider request timeout")
	ErrInvalidSignature    = errors.New("invalid webhook signature")

	// Auth errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Idempotency errors
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidInput     = errors.New("invalid input")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
