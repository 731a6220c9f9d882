package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csrgive.com/app/internal/modules/payments"
)

func TestSendWebhook_SignsBody(t *testing.T) {
	now := time.Now()
	var gotHeader string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get(payments.SignatureHeader)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	err := sendWebhook(context.Background(), &out, webhookOpts{
		url:        srv.URL,
		secret:     "whsec",
		eventID:    "evt_1",
		eventType:  "payment.succeeded",
		paymentRef: "mock_ref",
		amount:     1250,
		currency:   "USD",
		timeout:    time.Second,
	}, now)
	require.NoError(t, err)

	require.NoError(t, payments.VerifySignature("whsec", gotHeader, gotBody, now, time.Minute))

	var ev payments.MockWebhookEvent
	require.NoError(t, json.Unmarshal(gotBody, &ev))
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, "mock_ref", ev.Data.PaymentRef)
	assert.Equal(t, int64(1250), ev.Data.AmountCents)
	assert.Contains(t, out.String(), "Status: 200")
}

func TestSendWebhook_DryRunAndErrors(t *testing.T) {
	var out bytes.Buffer
	err := sendWebhook(context.Background(), &out, webhookOpts{secret: "s", paymentRef: "p", dryRun: true}, time.Now())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "[dry run]")
	assert.Contains(t, out.String(), "evt_")

	err = sendWebhook(context.Background(), &out, webhookOpts{paymentRef: "p"}, time.Now())
	assert.Error(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	err = sendWebhook(context.Background(), &out, webhookOpts{url: srv.URL, secret: "s", paymentRef: "p", timeout: time.Second}, time.Now())
	assert.Error(t, err)
}
