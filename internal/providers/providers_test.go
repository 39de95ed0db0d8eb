package providers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	domainErrors "github.com/growshare/marketplace/internal/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProvider_CreateIntent(t *testing.T) {
	p := NewMockProvider("mockpay", []byte("secret"), WithLatency(0))

	res, err := p.CreateIntent(context.Background(), IntentRequest{
		TransactableID: uuid.New().String(),
		AmountCents:    5000,
		Currency:       "USD",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Reference)
	assert.NotEmpty(t, res.ClientSecret)
	assert.Equal(t, "pending", res.Status)
}

func TestMockProvider_AlwaysFailing(t *testing.T) {
	p := NewMockProvider("mockpay", []byte("secret"), WithLatency(0), WithFailureRate(1))

	_, err := p.CreateIntent(context.Background(), IntentRequest{
		TransactableID: uuid.New().String(),
		AmountCents:    5000,
		Currency:       "USD",
	})
	assert.ErrorIs(t, err, domainErrors.ErrProviderRejected)
}

func TestMockProvider_RespectsContextCancellation(t *testing.T) {
	p := NewMockProvider("mockpay", []byte("secret"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.CreateIntent(ctx, IntentRequest{TransactableID: uuid.New().String()})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWebhookSignatureRoundTrip(t *testing.T) {
	p := NewMockProvider("mockpay", []byte("whsec_abc"))

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"reference":"pi_1"}}`)
	sig := p.SignWebhookPayload(payload)

	assert.NoError(t, p.VerifyWebhookSignature(payload, sig))
	assert.ErrorIs(t, p.VerifyWebhookSignature([]byte(`{}`), sig), domainErrors.ErrInvalidSignature)
	assert.ErrorIs(t, p.VerifyWebhookSignature(payload, ""), domainErrors.ErrInvalidSignature)

	other := NewMockProvider("mockpay", []byte("whsec_other"))
	assert.ErrorIs(t, other.VerifyWebhookSignature(payload, sig), domainErrors.ErrInvalidSignature)
}

func TestParseWebhookEvent(t *testing.T) {
	payload, err := json.Marshal(map[string]any{
		"id":   "evt_42",
		"type": EventIntentSucceeded,
		"data": map[string]string{"reference": "pi_42"},
	})
	require.NoError(t, err)

	ev, err := ParseWebhookEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, "evt_42", ev.ID)
	assert.Equal(t, EventIntentSucceeded, ev.Type)
	assert.Equal(t, "pi_42", ev.Data.Reference)

	_, err = ParseWebhookEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestFactory_GetUnknownProvider(t *testing.T) {
	f := NewFactory(NewMockProvider("mockpay", []byte("secret")))

	p, cb, err := f.Get("mockpay")
	require.NoError(t, err)
	assert.NotNil(t, p)
	assert.NotNil(t, cb)

	_, _, err = f.Get("acme")
	assert.ErrorIs(t, err, domainErrors.ErrProviderNotFound)
}

func TestFactory_DefaultProvider(t *testing.T) {
	f := NewFactory()
	_, _, err := f.Get("growpay")
	assert.NoError(t, err)
}
