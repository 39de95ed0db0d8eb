package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type classifies notifications for client-side rendering and deep links.
type Type string

const (
	TypeRequestCreated  Type = "request_created"
	TypeApproved        Type = "approved"
	TypeActivated       Type = "activated"
	TypeReady           Type = "ready"
	TypeCancelled       Type = "cancelled"
	TypePaymentReceived Type = "payment_received"
	TypeRefundIssued    Type = "refund_issued"
)

// Notification is a fire-and-forget record addressed to one user. Creation
// failures are logged and never propagated to the request that caused them.
type Notification struct {
	ID          uuid.UUID
	RecipientID uuid.UUID
	Type        Type
	Title       string
	Body        string
	Link        string
	Read        bool
	CreatedAt   time.Time
}

// New creates a notification for a recipient.
func New(recipientID uuid.UUID, typ Type, title, body, link string) *Notification {
	return &Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		Type:        typ,
		Title:       title,
		Body:        body,
		Link:        link,
		CreatedAt:   time.Now(),
	}
}

// Repository defines the interface for notification persistence
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit, offset int) ([]*Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}
