package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	domainErrors "github.com/growshare/marketplace/internal/domain/errors"
	"github.com/growshare/marketplace/internal/domain/outbox"
	"github.com/growshare/marketplace/internal/domain/payment"
	"github.com/growshare/marketplace/internal/domain/refund"
	"github.com/growshare/marketplace/internal/domain/transactable"
	"github.com/growshare/marketplace/internal/infrastructure/observability"
	"github.com/growshare/marketplace/internal/providers"
	"github.com/growshare/marketplace/pkg/retry"
	"github.com/rs/zerolog/log"
)

// PaymentService orchestrates money movement: intent creation at the
// provider, webhook settlement, and policy-based refunds. Provider calls
// run behind a circuit breaker with a bounded timeout and retries; state
// writes happen only after the provider has answered.
type PaymentService struct {
	paymentRepo      payment.Repository
	transactableRepo transactable.Repository
	outboxRepo       outbox.Repository
	txManager        TransactionManager
	providerFactory  *providers.Factory
	dispatcher       *Dispatcher
	metrics          *observability.Metrics

	providerName    string
	providerTimeout time.Duration
	retryConfig     retry.Config

	// now is swappable so refund-window eligibility is testable.
	now func() time.Time
}

func NewPaymentService(
	paymentRepo payment.Repository,
	transactableRepo transactable.Repository,
	outboxRepo outbox.Repository,
	txManager TransactionManager,
	providerFactory *providers.Factory,
	dispatcher *Dispatcher,
	metrics *observability.Metrics,
	providerName string,
	providerTimeout time.Duration,
) *PaymentService {
	return &PaymentService{
		paymentRepo:      paymentRepo,
		transactableRepo: transactableRepo,
		outboxRepo:       outboxRepo,
		txManager:        txManager,
		providerFactory:  providerFactory,
		dispatcher:       dispatcher,
		metrics:          metrics,
		providerName:     providerName,
		providerTimeout:  providerTimeout,
		retryConfig:      retry.DefaultConfig(),
		now:              time.Now,
	}
}

// InitiatePayment creates a payment intent for a transactable. Only the
// counterparty pays, and only from the payable status for the kind (orders
// from pending, bookings and rentals after owner approval). The pending
// record is inserted before the provider call so a concurrent duplicate
// initiation loses on the uniqueness constraint, not at the provider. A
// failed earlier attempt reopens the same record for a fresh intent.
func (s *PaymentService) InitiatePayment(ctx context.Context, transactableID, actorID uuid.UUID) (*InitiatePaymentResponse, error) {
	t, err := s.transactableRepo.GetByID(ctx, transactableID)
	if err != nil {
		return nil, err
	}
	role, err := t.RoleOf(actorID)
	if err != nil {
		return nil, err
	}
	if role != transactable.RoleCounterparty {
		return nil, domainErrors.ErrForbidden
	}
	if t.PaidAt != nil {
		return nil, domainErrors.ErrAlreadyPaid
	}
	if t.Status != transactable.PayableStatus(t.Kind) {
		return nil, domainErrors.NewDomainError(
			"not_payable",
			"cannot pay a "+string(t.Kind)+" in status "+string(t.Status),
			domainErrors.ErrNotPayable,
		)
	}

	var rec *payment.Record
	if existing, err := s.paymentRepo.GetByTransactableID(ctx, transactableID); err == nil && existing != nil {
		switch existing.Status {
		case payment.StatusPending:
			// Re-initiation returns the open intent instead of creating
			// a second charge.
			return &InitiatePaymentResponse{Record: existing, ClientSecret: existing.ClientSecret}, nil
		case payment.StatusSucceeded:
			return nil, domainErrors.ErrAlreadyPaid
		case payment.StatusFailed, payment.StatusCancelled:
			// A declined attempt must not block the transactable forever.
			// Reopen the row under the uniqueness constraint and issue a
			// fresh intent.
			if err := existing.Reopen(); err != nil {
				return nil, err
			}
			if err := s.paymentRepo.Update(ctx, existing); err != nil {
				return nil, err
			}
			rec = existing
		}
	}

	if rec == nil {
		newRec, err := payment.NewRecord(t.ID, s.providerName, t.AmountCents, t.Currency)
		if err != nil {
			return nil, err
		}
		if err := s.paymentRepo.Create(ctx, newRec); err != nil {
			return nil, err
		}
		rec = newRec
	}

	result, err := s.callProvider(ctx, "create_intent", func(ctx context.Context, p providers.Provider) (*providers.Result, error) {
		return p.CreateIntent(ctx, providers.IntentRequest{
			TransactableID: t.ID.String(),
			AmountCents:    rec.AmountCents,
			FeeCents:       rec.FeeCents,
			Currency:       rec.Currency,
			Metadata:       map[string]any{"kind": string(t.Kind)},
		})
	})
	if err != nil {
		if markErr := rec.MarkFailed(err.Error()); markErr == nil {
			if updErr := s.paymentRepo.Update(ctx, rec); updErr != nil {
				log.Error().Err(updErr).Str("payment_id", rec.ID.String()).Msg("failed to persist failed payment")
			}
		}
		s.metrics.PaymentsTotal.WithLabelValues(string(t.Kind), string(payment.StatusFailed)).Inc()
		return nil, err
	}

	rec.ExternalRef = result.Reference
	rec.ClientSecret = result.ClientSecret
	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.paymentRepo.Update(ctx, rec); err != nil {
			return err
		}
		return s.paymentRepo.AddEvent(ctx, &payment.Event{
			ID:        uuid.New(),
			RecordID:  rec.ID,
			EventType: "intent_created",
			EventData: map[string]any{"external_ref": rec.ExternalRef},
			CreatedAt: s.now(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PaymentsTotal.WithLabelValues(string(t.Kind), string(payment.StatusPending)).Inc()
	return &InitiatePaymentResponse{Record: rec, ClientSecret: rec.ClientSecret}, nil
}

// HandleWebhookEvent processes a provider webhook whose signature has
// already been verified by the caller. Webhooks are at-least-once: a replay
// for an already-settled payment is a no-op, and an unknown reference is
// logged and acknowledged so the provider stops retrying it.
func (s *PaymentService) HandleWebhookEvent(ctx context.Context, ev *providers.WebhookEvent) error {
	rec, err := s.paymentRepo.GetByExternalRef(ctx, ev.Data.Reference)
	if err != nil {
		if errors.Is(err, domainErrors.ErrPaymentNotFound) {
			log.Warn().Str("external_ref", ev.Data.Reference).Str("event_type", ev.Type).
				Msg("webhook for unknown payment reference, ignoring")
			return nil
		}
		return err
	}

	switch ev.Type {
	case providers.EventIntentSucceeded:
		return s.settleSucceeded(ctx, rec, ev)
	case providers.EventIntentFailed:
		return s.settleFailed(ctx, rec, ev)
	default:
		log.Warn().Str("event_type", ev.Type).Msg("unhandled webhook event type, ignoring")
		return nil
	}
}

func (s *PaymentService) settleSucceeded(ctx context.Context, rec *payment.Record, ev *providers.WebhookEvent) error {
	if rec.Status == payment.StatusSucceeded || rec.Status == payment.StatusRefunded {
		return nil // replay
	}

	t, err := s.transactableRepo.GetByID(ctx, rec.TransactableID)
	if err != nil {
		return err
	}

	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if err := rec.MarkSucceeded(); err != nil {
			return err
		}
		if err := s.paymentRepo.Update(ctx, rec); err != nil {
			return err
		}
		if err := s.paymentRepo.AddEvent(ctx, &payment.Event{
			ID:        uuid.New(),
			RecordID:  rec.ID,
			EventType: "webhook_" + ev.Type,
			EventData: map[string]any{"webhook_id": ev.ID},
			CreatedAt: s.now(),
		}); err != nil {
			return err
		}

		if t.Status == transactable.PaidStatus(t.Kind) {
			return nil // transactable already advanced
		}
		expected := t.Status
		if err := t.MarkPaid(); err != nil {
			return err
		}
		return s.transactableRepo.UpdateStatus(ctx, t, expected)
	})
	if err != nil {
		return err
	}

	s.metrics.PaymentsTotal.WithLabelValues(string(t.Kind), string(payment.StatusSucceeded)).Inc()
	s.dispatcher.PaymentReceived(ctx, t, rec)
	return nil
}

func (s *PaymentService) settleFailed(ctx context.Context, rec *payment.Record, ev *providers.WebhookEvent) error {
	if rec.Status != payment.StatusPending {
		// Replay, or a failure event arriving after the intent already
		// settled. Acknowledge so the provider stops redelivering.
		log.Warn().Str("payment_id", rec.ID.String()).Str("status", string(rec.Status)).
			Str("event_type", ev.Type).Msg("failure webhook for settled payment, ignoring")
		return nil
	}
	return s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if err := rec.MarkFailed("provider reported failure"); err != nil {
			return err
		}
		if err := s.paymentRepo.Update(ctx, rec); err != nil {
			return err
		}
		return s.paymentRepo.AddEvent(ctx, &payment.Event{
			ID:        uuid.New(),
			RecordID:  rec.ID,
			EventType: "webhook_" + ev.Type,
			EventData: map[string]any{"webhook_id": ev.ID},
			CreatedAt: s.now(),
		})
	})
}

// Refund refunds a cancelled transactable's payment according to the
// cancellation policy: full refund a week or more before the start date,
// half within three to six days, nothing closer than that. Orders have no
// start date and always refund in full. A zero-percentage window settles
// the record as refunded without calling the provider.
func (s *PaymentService) Refund(ctx context.Context, transactableID, actorID uuid.UUID) (*RefundResponse, error) {
	t, err := s.transactableRepo.GetByID(ctx, transactableID)
	if err != nil {
		return nil, err
	}
	if _, err := t.RoleOf(actorID); err != nil {
		return nil, err
	}
	if t.Status != transactable.StatusCancelled {
		return nil, domainErrors.NewDomainError(
			"not_refundable",
			"refunds apply to cancelled transactables only",
			domainErrors.ErrNotRefundable,
		)
	}

	rec, err := s.paymentRepo.GetByTransactableID(ctx, transactableID)
	if err != nil {
		return nil, err
	}
	if rec.Status == payment.StatusRefunded {
		return nil, domainErrors.ErrAlreadyRefunded
	}
	if rec.Status != payment.StatusSucceeded {
		return nil, domainErrors.ErrNotRefundable
	}

	percentage := 100
	if t.StartDate != nil {
		percentage = refund.Percentage(s.now(), *t.StartDate)
	}
	amount := refund.Amount(rec.AmountCents, percentage)

	var refundRef string
	if percentage > 0 {
		result, err := s.callProvider(ctx, "refund", func(ctx context.Context, p providers.Provider) (*providers.Result, error) {
			return p.Refund(ctx, providers.RefundRequest{
				IntentRef:   rec.ExternalRef,
				AmountCents: amount,
				Currency:    rec.Currency,
			})
		})
		if err != nil {
			return nil, err
		}
		refundRef = result.Reference
	}

	if err := rec.MarkRefunded(refundRef, percentage, amount); err != nil {
		return nil, err
	}
	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.paymentRepo.Update(ctx, rec); err != nil {
			return err
		}
		return s.paymentRepo.AddEvent(ctx, &payment.Event{
			ID:        uuid.New(),
			RecordID:  rec.ID,
			EventType: "refund_issued",
			EventData: map[string]any{
				"refund_ref":   refundRef,
				"percentage":   percentage,
				"amount_cents": amount,
			},
			CreatedAt: s.now(),
		})
	})
	if err != nil {
		// Money moved at the provider but the record did not settle.
		// Flag it for reconciliation rather than retrying a live refund.
		s.flagReconciliation(ctx, rec, refundRef, amount, err)
		return nil, err
	}

	s.metrics.RefundsTotal.WithLabelValues(percentageBucket(percentage)).Inc()
	s.dispatcher.RefundIssued(ctx, t, rec, percentage, amount)
	return &RefundResponse{
		Record:      rec,
		Percentage:  percentage,
		AmountCents: amount,
		RefundRef:   refundRef,
	}, nil
}

// GetRecord returns the payment record for a transactable, restricted to
// its parties.
func (s *PaymentService) GetRecord(ctx context.Context, transactableID, actorID uuid.UUID) (*payment.Record, error) {
	t, err := s.transactableRepo.GetByID(ctx, transactableID)
	if err != nil {
		return nil, err
	}
	if _, err := t.RoleOf(actorID); err != nil {
		return nil, err
	}
	return s.paymentRepo.GetByTransactableID(ctx, transactableID)
}

// callProvider runs a provider operation behind its circuit breaker with a
// bounded timeout and retries. Rejections from the provider are not
// retried; transport failures and timeouts are.
func (s *PaymentService) callProvider(
	ctx context.Context,
	operation string,
	fn func(ctx context.Context, p providers.Provider) (*providers.Result, error),
) (*providers.Result, error) {
	p, breaker, err := s.providerFactory.Get(s.providerName)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := retry.DoWithResult(ctx, s.retryConfig, func() (*providers.Result, error) {
		return breaker.Execute(func() (*providers.Result, error) {
			callCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
			defer cancel()

			res, err := fn(callCtx, p)
			if err != nil {
				if errors.Is(err, domainErrors.ErrProviderRejected) {
					return nil, retry.Unrecoverable(err)
				}
				return nil, err
			}
			return res, nil
		})
	})
	s.metrics.ProviderLatency.WithLabelValues(s.providerName, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.ProviderErrors.WithLabelValues(s.providerName, operation).Inc()
		return nil, err
	}
	return result, nil
}

func (s *PaymentService) flagReconciliation(ctx context.Context, rec *payment.Record, refundRef string, amount int64, cause error) {
	entry := outbox.NewEntry("payment", rec.ID, outbox.EventReconciliationNeeded, map[string]any{
		"payment_id":   rec.ID.String(),
		"refund_ref":   refundRef,
		"amount_cents": amount,
		"error":        cause.Error(),
	})
	if err := s.outboxRepo.Insert(ctx, entry); err != nil {
		log.Error().Err(err).
			Str("payment_id", rec.ID.String()).
			Str("refund_ref", refundRef).
			Msg("failed to flag refund for reconciliation")
	}
}

func percentageBucket(p int) string {
	switch p {
	case 100:
		return "full"
	case 50:
		return "half"
	default:
		return "none"
	}
}
