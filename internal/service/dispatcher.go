package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/growshare/marketplace/internal/domain/notification"
	"github.com/growshare/marketplace/internal/domain/outbox"
	"github.com/growshare/marketplace/internal/domain/payment"
	"github.com/growshare/marketplace/internal/domain/transactable"
	"github.com/growshare/marketplace/internal/infrastructure/observability"
	"github.com/rs/zerolog/log"
)

// RewardsHook is an optional integration point for the community rewards
// program. Awards are best-effort like every other side effect here.
type RewardsHook interface {
	Award(ctx context.Context, userID uuid.UUID, points int, reason string) error
}

// Points awarded when a transactable completes.
const completionRewardPoints = 10

// Dispatcher fans out the side effects of lifecycle changes: persisted
// notifications, outbox entries for the worker to publish, and reward
// points. Every failure is logged and swallowed; a lost notification must
// never fail the state change that caused it.
type Dispatcher struct {
	notificationRepo notification.Repository
	outboxRepo       outbox.Repository
	rewards          RewardsHook // may be nil
	metrics          *observability.Metrics
}

func NewDispatcher(
	notificationRepo notification.Repository,
	outboxRepo outbox.Repository,
	rewards RewardsHook,
	metrics *observability.Metrics,
) *Dispatcher {
	return &Dispatcher{
		notificationRepo: notificationRepo,
		outboxRepo:       outboxRepo,
		rewards:          rewards,
		metrics:          metrics,
	}
}

// RequestCreated notifies the owner that a new request arrived.
func (d *Dispatcher) RequestCreated(ctx context.Context, t *transactable.Transactable) {
	d.notify(ctx, t, t.OwnerID, notification.TypeRequestCreated,
		"New "+string(t.Kind)+" request",
		"You have a new "+string(t.Kind)+" request awaiting your approval.")
}

// StatusChanged fans out notifications for a committed transition. The
// recipient is always the party who did not act. Completion sends no
// notification; it awards reward points to both parties instead.
func (d *Dispatcher) StatusChanged(ctx context.Context, t *transactable.Transactable, actor transactable.Role) {
	recipient := t.OtherParty(actor)

	switch t.Status {
	case transactable.StatusConfirmed:
		d.notify(ctx, t, recipient, notification.TypeApproved,
			"Request approved",
			"Your "+string(t.Kind)+" request was approved. You can now pay to confirm it.")
	case transactable.StatusActive:
		d.notify(ctx, t, recipient, notification.TypeActivated,
			string(t.Kind)+" started",
			"Your "+string(t.Kind)+" is now active.")
	case transactable.StatusReady:
		d.notify(ctx, t, recipient, notification.TypeReady,
			"Order ready",
			"Your order is ready for pickup.")
	case transactable.StatusCancelled:
		d.notify(ctx, t, recipient, notification.TypeCancelled,
			string(t.Kind)+" cancelled",
			"The "+string(t.Kind)+" was cancelled.")
	case transactable.StatusCompleted:
		d.award(ctx, t.OwnerID, t)
		d.award(ctx, t.CounterpartyID, t)
	}
}

// PaymentReceived notifies the owner that the counterparty's payment
// settled. Called from the webhook path, never from a user request.
func (d *Dispatcher) PaymentReceived(ctx context.Context, t *transactable.Transactable, rec *payment.Record) {
	d.notify(ctx, t, t.OwnerID, notification.TypePaymentReceived,
		"Payment received",
		"Payment for your "+string(t.Kind)+" has been received.")

	d.publish(ctx, t, outbox.EventPaymentSucceeded, map[string]any{
		"transactable_id": t.ID.String(),
		"payment_id":      rec.ID.String(),
		"amount_cents":    rec.AmountCents,
		"net_cents":       rec.NetCents,
		"currency":        rec.Currency,
	})
}

// RefundIssued notifies the counterparty of the refund outcome. Inside the
// no-refund window the cancellation still settles, so the message says no
// money is coming back rather than claiming a refund was processed.
func (d *Dispatcher) RefundIssued(ctx context.Context, t *transactable.Transactable, rec *payment.Record, percentage int, amountCents int64) {
	title, body := "Refund issued", "Your refund has been processed."
	if percentage == 0 {
		title, body = "Cancellation processed",
			"Your cancellation was inside the no-refund window, so no refund applies."
	}
	d.notify(ctx, t, t.CounterpartyID, notification.TypeRefundIssued, title, body)

	d.publish(ctx, t, outbox.EventPaymentRefunded, map[string]any{
		"transactable_id": t.ID.String(),
		"payment_id":      rec.ID.String(),
		"percentage":      percentage,
		"amount_cents":    amountCents,
		"currency":        rec.Currency,
	})
}

func (d *Dispatcher) notify(ctx context.Context, t *transactable.Transactable, recipient uuid.UUID, typ notification.Type, title, body string) {
	n := notification.New(recipient, typ, title, body, "/transactables/"+t.ID.String())
	if err := d.notificationRepo.Create(ctx, n); err != nil {
		log.Warn().Err(err).
			Str("transactable_id", t.ID.String()).
			Str("type", string(typ)).
			Msg("failed to create notification")
		return
	}
	d.metrics.NotificationsTotal.WithLabelValues(string(typ)).Inc()

	d.publish(ctx, t, outbox.EventNotificationCreated, map[string]any{
		"notification_id": n.ID.String(),
		"recipient_id":    recipient.String(),
		"type":            string(typ),
	})
}

func (d *Dispatcher) publish(ctx context.Context, t *transactable.Transactable, eventType string, payload map[string]any) {
	entry := outbox.NewEntry("transactable", t.ID, eventType, payload)
	if err := d.outboxRepo.Insert(ctx, entry); err != nil {
		log.Warn().Err(err).
			Str("transactable_id", t.ID.String()).
			Str("event_type", eventType).
			Msg("failed to insert outbox entry")
	}
}

func (d *Dispatcher) award(ctx context.Context, userID uuid.UUID, t *transactable.Transactable) {
	if d.rewards == nil {
		return
	}
	if err := d.rewards.Award(ctx, userID, completionRewardPoints, string(t.Kind)+" completed"); err != nil {
		log.Warn().Err(err).
			Str("user_id", userID.String()).
			Str("transactable_id", t.ID.String()).
			Msg("failed to award reward points")
	}
}
