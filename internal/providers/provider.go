package providers

import (
	"context"
	"encoding/json"
)

// Webhook event types delivered by the payment provider.
const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
)

// Result is the outcome of a provider call.
type Result struct {
	Reference    string // intent or refund reference at the provider
	ClientSecret string // set on intent creation
	Status       string // "success", "failed", "pending"
	ErrorMessage string
}

// Provider is the narrow capability surface the orchestrator needs from an
// external payment API. Implementations must respect ctx deadlines; the
// orchestrator bounds every call.
type Provider interface {
	// Name returns the provider name.
	Name() string
	// CreateIntent registers a payment intent for the given amount and
	// returns its external reference and client secret.
	CreateIntent(ctx context.Context, req IntentRequest) (*Result, error)
	// Refund refunds part or all of a previously succeeded intent.
	Refund(ctx context.Context, req RefundRequest) (*Result, error)
	// VerifyWebhookSignature checks the signature header of a webhook
	// payload before any processing happens.
	VerifyWebhookSignature(payload []byte, signature string) error
}

type IntentRequest struct {
	TransactableID string
	AmountCents    int64
	FeeCents       int64
	Currency       string
	Metadata       map[string]any
}

type RefundRequest struct {
	IntentRef   string
	AmountCents int64
	Currency    string
}

// WebhookEvent is the decoded webhook payload.
type WebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

// ParseWebhookEvent decodes a verified webhook payload.
func ParseWebhookEvent(payload []byte) (*WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
