// Package outbox implements the transactional outbox used to hand side
// effects (notification fan-out, reconciliation flags) to the worker
// without losing them when the process dies between commit and publish.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types published through the outbox.
const (
	EventNotificationCreated  = "notification.created"
	EventPaymentSucceeded     = "payment.succeeded"
	EventPaymentRefunded      = "payment.refunded"
	EventReconciliationNeeded = "payment.reconciliation_needed"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusFailed    Status = "failed"
)

// Entry is one pending publication. AggregateType names the owning entity
// ("transactable", "payment", "notification"); Payload is the event body.
type Entry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       map[string]any
	Status        Status
	RetryCount    int
	MaxRetries    int
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

func NewEntry(aggregateType string, aggregateID uuid.UUID, eventType string, payload map[string]any) *Entry {
	return &Entry{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		Status:        StatusPending,
		MaxRetries:    5,
		CreatedAt:     time.Now(),
	}
}

// Repository defines the interface for outbox persistence.
type Repository interface {
	Insert(ctx context.Context, entry *Entry) error
	// GetPending returns pending entries oldest-first, locked against
	// concurrent workers (FOR UPDATE SKIP LOCKED in the postgres impl).
	GetPending(ctx context.Context, limit int) ([]*Entry, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
}
