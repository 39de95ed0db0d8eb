package providers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	domainErrors "github.com/growshare/marketplace/internal/domain/errors"
)

// MockProvider simulates the external payment API for local development and
// tests. Webhook signatures use HMAC-SHA256 over the raw payload, the same
// scheme the real provider integration would verify.
type MockProvider struct {
	name          string
	webhookSecret []byte
	failureRate   float64 // 0.0 to 1.0
	latency       time.Duration
	timeoutRate   float64 // 0.0 to 1.0
}

type MockProviderOption func(*MockProvider)

func WithFailureRate(rate float64) MockProviderOption {
	return func(p *MockProvider) { p.failureRate = rate }
}

func WithLatency(d time.Duration) MockProviderOption {
	return func(p *MockProvider) { p.latency = d }
}

func WithTimeoutRate(rate float64) MockProviderOption {
	return func(p *MockProvider) { p.timeoutRate = rate }
}

func NewMockProvider(name string, webhookSecret []byte, opts ...MockProviderOption) *MockProvider {
	p := &MockProvider{
		name:          name,
		webhookSecret: webhookSecret,
		latency:       50 * time.Millisecond,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *MockProvider) Name() string { return p.name }

func (p *MockProvider) CreateIntent(ctx context.Context, req IntentRequest) (*Result, error) {
	if err := p.simulate(ctx); err != nil {
		return nil, err
	}

	if rand.Float64() < p.failureRate {
		return &Result{
			Status:       "failed",
			ErrorMessage: fmt.Sprintf("%s: simulated intent failure for %s", p.name, req.TransactableID),
		}, domainErrors.ErrProviderRejected
	}

	ref := fmt.Sprintf("%s_pi_%s", p.name, uuid.New().String()[:8])
	return &Result{
		Reference:    ref,
		ClientSecret: ref + "_secret_" + uuid.New().String()[:8],
		Status:       "pending",
	}, nil
}

func (p *MockProvider) Refund(ctx context.Context, req RefundRequest) (*Result, error) {
	if err := p.simulate(ctx); err != nil {
		return nil, err
	}

	if rand.Float64() < p.failureRate {
		return &Result{
			Status:       "failed",
			ErrorMessage: fmt.Sprintf("%s: simulated refund failure for %s", p.name, req.IntentRef),
		}, domainErrors.ErrProviderRejected
	}

	return &Result{
		Reference: fmt.Sprintf("%s_re_%s", p.name, uuid.New().String()[:8]),
		Status:    "success",
	}, nil
}

func (p *MockProvider) VerifyWebhookSignature(payload []byte, signature string) error {
	if signature == "" {
		return domainErrors.ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, p.webhookSecret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return domainErrors.ErrInvalidSignature
	}
	return nil
}

// SignWebhookPayload produces the signature the provider would attach to a
// webhook delivery. Exposed for tests and the local webhook simulator.
func (p *MockProvider) SignWebhookPayload(payload []byte) string {
	mac := hmac.New(sha256.New, p.webhookSecret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (p *MockProvider) simulate(ctx context.Context) error {
	select {
	case <-time.After(p.latency):
	case <-ctx.Done():
		return ctx.Err()
	}
	if rand.Float64() < p.timeoutRate {
		return domainErrors.ErrProviderTimeout
	}
	return nil
}
