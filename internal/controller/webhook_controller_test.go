package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/growshare/marketplace/internal/providers"
	"github.com/growshare/marketplace/internal/service"
	"github.com/growshare/marketplace/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupWebhookController() (*WebhookController, *providers.MockProvider) {
	provider := providers.NewMockProvider("mockpay", []byte("whsec_test"), providers.WithLatency(0))
	factory := providers.NewFactory(provider)

	notificationRepo := testutil.NewMockNotificationRepository()
	outboxRepo := testutil.NewMockOutboxRepository()
	metrics := testutil.NewMetrics()
	dispatcher := service.NewDispatcher(notificationRepo, outboxRepo, nil, metrics)
	paymentService := service.NewPaymentService(
		testutil.NewMockPaymentRepository(),
		testutil.NewMockTransactableRepository(),
		outboxRepo,
		&testutil.MockTxManager{},
		factory,
		dispatcher,
		metrics,
		"mockpay",
		2*time.Second,
	)
	return NewWebhookController(paymentService, factory), provider
}

func postWebhook(h *WebhookController, providerName string, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments/"+providerName, bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("X-Webhook-Signature", signature)
	}
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("provider", providerName)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	h.HandlePaymentWebhook(rec, req)
	return rec
}

func webhookPayload(t *testing.T, eventType, ref string) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":   "evt_test_1",
		"type": eventType,
		"data": map[string]string{"reference": ref},
	})
	require.NoError(t, err)
	return payload
}

func TestHandlePaymentWebhook_ValidSignature(t *testing.T) {
	h, provider := setupWebhookController()

	payload := webhookPayload(t, providers.EventIntentSucceeded, "pi_unknown_ref")
	rec := postWebhook(h, "mockpay", payload, provider.SignWebhookPayload(payload))

	// Unknown references are acknowledged so the provider stops retrying.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"received"}`, rec.Body.String())
}

func TestHandlePaymentWebhook_BadSignature(t *testing.T) {
	h, _ := setupWebhookController()

	payload := webhookPayload(t, providers.EventIntentSucceeded, "pi_ref")
	rec := postWebhook(h, "mockpay", payload, "deadbeef")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_signature", resp.Code)
}

func TestHandlePaymentWebhook_MissingSignature(t *testing.T) {
	h, _ := setupWebhookController()

	payload := webhookPayload(t, providers.EventIntentSucceeded, "pi_ref")
	rec := postWebhook(h, "mockpay", payload, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlePaymentWebhook_TamperedPayload(t *testing.T) {
	h, provider := setupWebhookController()

	payload := webhookPayload(t, providers.EventIntentSucceeded, "pi_ref")
	signature := provider.SignWebhookPayload(payload)
	tampered := bytes.Replace(payload, []byte("pi_ref"), []byte("pi_xyz"), 1)

	rec := postWebhook(h, "mockpay", tampered, signature)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlePaymentWebhook_UnknownProvider(t *testing.T) {
	h, _ := setupWebhookController()

	payload := webhookPayload(t, providers.EventIntentSucceeded, "pi_ref")
	rec := postWebhook(h, "acme", payload, "anything")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlePaymentWebhook_MalformedJSON(t *testing.T) {
	h, provider := setupWebhookController()

	payload := []byte(`{"type": broken`)
	rec := postWebhook(h, "mockpay", payload, provider.SignWebhookPayload(payload))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_payload", resp.Code)
}

func TestHandlePaymentWebhook_SignatureCoversRawBytes(t *testing.T) {
	h, provider := setupWebhookController()

	// Same JSON value, different byte layout: only the exact signed bytes
	// pass verification.
	payload := webhookPayload(t, providers.EventIntentSucceeded, "pi_ref")
	reformatted := []byte(fmt.Sprintf(" %s ", payload))

	rec := postWebhook(h, "mockpay", reformatted, provider.SignWebhookPayload(payload))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
