package payments

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csrgive.com/app/internal/config"
	"csrgive.com/app/internal/modules/donations"
)

func donation(amount string) donations.Donation {
	return donations.Donation{ID: 7, CampaignID: 1, UserID: 2, Amount: decimal.RequireFromString(amount), PaymentMethod: donations.MethodCreditCard}
}

func TestMockProvider_ValidatePaymentData(t *testing.T) {
	m := NewMockProvider(MockConfig{ForceSuccess: true})
	for _, method := range donations.PaymentMethods {
		assert.True(t, m.ValidatePaymentData(PaymentData{PaymentMethod: method}), method)
	}
	assert.False(t, m.ValidatePaymentData(PaymentData{PaymentMethod: "crypto"}))
	assert.False(t, m.ValidatePaymentData(PaymentData{}))
}

func TestMockProvider_ForceSuccess(t *testing.T) {
	m := NewMockProvider(MockConfig{ForceSuccess: true, SuccessRate: 0})

	r, err := m.ProcessPayment(context.Background(), ChargeRequest{Donation: donation("150"), Data: PaymentData{PaymentMethod: "credit_card"}, Currency: "USD"})
	require.NoError(t, err)

	assert.True(t, r.Success)
	assert.True(t, strings.HasPrefix(r.TransactionID, "mock_"))
	assert.Empty(t, r.ErrorMessage)
	assert.Equal(t, r.TransactionID, r.LedgerID())
	assert.Equal(t, "mock", r.Response.Provider)
	assert.Equal(t, TxStatusCompleted, r.Response.Status)
	assert.True(t, r.Response.Amount.Equal(decimal.NewFromInt(150)))
	require.NotNil(t, r.Response.Mock)
	assert.Nil(t, r.Response.Stripe)
}

func TestMockProvider_SuccessRate(t *testing.T) {
	m := NewMockProvider(MockConfig{SuccessRate: 0.9})

	m.roll = func() float64 { return 0.89 }
	r, err := m.ProcessPayment(context.Background(), ChargeRequest{Donation: donation("10"), Currency: "USD"})
	require.NoError(t, err)
	assert.True(t, r.Success)

	m.roll = func() float64 { return 0.9 }
	r, err = m.ProcessPayment(context.Background(), ChargeRequest{Donation: donation("10"), Currency: "USD"})
	require.NoError(t, err)
	assert.False(t, r.Success)
}

func TestMockProvider_FailureIDsAreUnique(t *testing.T) {
	m := NewMockProvider(MockConfig{SuccessRate: 0})

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		r, err := m.ProcessPayment(context.Background(), ChargeRequest{Donation: donation("10"), Currency: "USD"})
		require.NoError(t, err)
		require.False(t, r.Success)
		require.NotEmpty(t, r.ErrorMessage)
		require.False(t, seen[r.TransactionID], "duplicate id %s", r.TransactionID)
		seen[r.TransactionID] = true
	}
}

func TestMockProvider_RefundAlwaysSucceeds(t *testing.T) {
	m := NewMockProvider(MockConfig{SuccessRate: 0})

	r, err := m.RefundPayment(context.Background(), RefundRequest{Donation: donation("25.50"), Currency: "USD", Reason: "duplicate"})
	require.NoError(t, err)
	assert.True(t, r.Success)
	require.NotNil(t, r.Response.Refund)
	assert.Equal(t, "duplicate", r.Response.Refund.Reason)
	assert.True(t, r.Response.Refund.Amount.Equal(decimal.RequireFromString("25.5")))
}

func TestMockProvider_HandleWebhook(t *testing.T) {
	m := NewMockProvider(MockConfig{})

	r, ok := m.HandleWebhook([]byte(`{"id":"evt_1","type":"payment.succeeded","data":{"payment_ref":"mock_abc","amount_cents":15000,"currency":"USD"}}`))
	require.True(t, ok)
	assert.True(t, r.Success)
	assert.Equal(t, "mock_abc", r.LedgerID())
	require.NotNil(t, r.Response.Webhook)
	assert.Equal(t, "evt_1", r.Response.Webhook.EventID)
	assert.True(t, r.Response.Amount.Equal(decimal.NewFromInt(150)))

	r, ok = m.HandleWebhook([]byte(`{"id":"evt_2","type":"payment.failed","data":{"payment_ref":"mock_abc"}}`))
	require.True(t, ok)
	assert.False(t, r.Success)
	assert.Equal(t, "mock_abc", r.ExternalTransactionID)

	_, ok = m.HandleWebhook([]byte(`{"id":"evt_3","type":"subscription.created","data":{"payment_ref":"x"}}`))
	assert.False(t, ok)
	_, ok = m.HandleWebhook([]byte(`not json`))
	assert.False(t, ok)
	_, ok = m.HandleWebhook([]byte(`{"id":"evt_4","type":"payment.succeeded","data":{}}`))
	assert.False(t, ok)
}

func TestStripeProvider(t *testing.T) {
	p := NewStripeProvider("sk_test_x")

	assert.True(t, p.ValidatePaymentData(PaymentData{PaymentMethod: "credit_card", Token: "pm_card_visa"}))
	assert.True(t, p.ValidatePaymentData(PaymentData{PaymentMethod: "debit_card", Token: "tok_123"}))
	assert.False(t, p.ValidatePaymentData(PaymentData{PaymentMethod: "credit_card"}))
	assert.False(t, p.ValidatePaymentData(PaymentData{PaymentMethod: "paypal", Token: "pm_x"}))

	r, err := p.ProcessPayment(context.Background(), ChargeRequest{Donation: donation("12.34"), Data: PaymentData{PaymentMethod: "credit_card", Token: "pm_card_visa"}, Currency: "USD"})
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.True(t, strings.HasPrefix(r.ExternalTransactionID, "pi_"))
	require.NotNil(t, r.Response.Stripe)
	assert.Equal(t, int64(1234), r.Response.Stripe.AmountCents)
	assert.Equal(t, "usd", r.Response.Stripe.Currency)

	ref, err := p.RefundPayment(context.Background(), RefundRequest{Donation: donation("12.34"), ExternalID: r.ExternalTransactionID, Currency: "USD"})
	require.NoError(t, err)
	assert.True(t, ref.Success)
	assert.True(t, strings.HasPrefix(ref.ExternalTransactionID, "re_"))
	assert.Equal(t, r.ExternalTransactionID, ref.Response.Stripe.PaymentIntent)

	ref, err = p.RefundPayment(context.Background(), RefundRequest{Donation: donation("12.34"), Currency: "USD"})
	require.NoError(t, err)
	assert.False(t, ref.Success)
}

func TestStripeProvider_HandleWebhook(t *testing.T) {
	p := NewStripeProvider("sk_test_x")

	body, _ := json.Marshal(map[string]any{
		"id":   "evt_1",
		"type": "charge.refunded",
		"data": map[string]any{"object": map[string]any{"id": "ch_1", "amount": 500, "currency": "usd", "payment_intent": "pi_1"}},
	})
	r, ok := p.HandleWebhook(body)
	require.True(t, ok)
	assert.Equal(t, "pi_1", r.LedgerID())
	assert.Equal(t, TxStatusRefunded, r.Response.Status)
	assert.Equal(t, "USD", r.Response.Currency)

	_, ok = p.HandleWebhook([]byte(`{"id":"evt_2","type":"customer.created","data":{"object":{"id":"cus_1"}}}`))
	assert.False(t, ok)
}

func TestPayPalProvider(t *testing.T) {
	p := NewPayPalProvider("client", "secret")

	assert.True(t, p.ValidatePaymentData(PaymentData{PaymentMethod: "paypal", Token: "5O190127TN364715T"}))
	assert.False(t, p.ValidatePaymentData(PaymentData{PaymentMethod: "paypal"}))
	assert.False(t, p.ValidatePaymentData(PaymentData{PaymentMethod: "credit_card", Token: "x"}))

	r, err := p.ProcessPayment(context.Background(), ChargeRequest{Donation: donation("20"), Data: PaymentData{PaymentMethod: "paypal", Token: "ORDER1"}, Currency: "EUR"})
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.True(t, strings.HasPrefix(r.TransactionID, "PAYID-"))
	assert.Len(t, r.ExternalTransactionID, 17)
	assert.Equal(t, "ORDER1", r.Response.PayPal.OrderID)

	wh, ok := p.HandleWebhook([]byte(`{"id":"WH-1","event_type":"PAYMENT.CAPTURE.COMPLETED","resource":{"id":"` + r.ExternalTransactionID + `","status":"COMPLETED","amount":{"value":"20.00","currency_code":"EUR"}}}`))
	require.True(t, ok)
	assert.Equal(t, r.ExternalTransactionID, wh.LedgerID())
	assert.True(t, wh.Response.Amount.Equal(decimal.NewFromInt(20)))
}

func TestNewProviders(t *testing.T) {
	names := func(ps []Provider) []string {
		out := make([]string, 0, len(ps))
		for _, p := range ps {
			out = append(out, p.Name())
		}
		return out
	}

	assert.Equal(t, []string{"mock"}, names(NewProviders(config.PaymentConfig{})))
	assert.Equal(t, []string{"mock", "stripe", "paypal"}, names(NewProviders(config.PaymentConfig{
		Stripe: config.StripeConfig{SecretKey: "sk"},
		PayPal: config.PayPalConfig{ClientID: "id", ClientSecret: "secret"},
	})))
	assert.Equal(t, []string{"mock"}, names(NewProviders(config.PaymentConfig{
		PayPal: config.PayPalConfig{ClientID: "id"},
	})))
}

func TestIDs(t *testing.T) {
	h := randHex(12)
	assert.Len(t, h, 24)
	assert.Equal(t, strings.ToLower(h), h)
	assert.NotEqual(t, h, randHex(12))

	id := NewTransactionID("txn")
	parts := strings.Split(id, "_")
	require.Len(t, parts, 3)
	assert.Equal(t, "txn", parts[0])
	assert.Len(t, parts[1], len("20060102150405"))
	assert.Len(t, parts[2], 12)
}
