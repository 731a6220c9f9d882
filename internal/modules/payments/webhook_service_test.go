package payments_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csrgive.com/app/internal/modules/donations"
	"csrgive.com/app/internal/modules/payments"
	"csrgive.com/app/internal/testutil"
)

func mockEvent(id, typ, ref string) []byte {
	var ev payments.MockWebhookEvent
	ev.ID = id
	ev.Type = typ
	ev.Data.PaymentRef = ref
	ev.Data.AmountCents = 2500
	ev.Data.Currency = "USD"
	b, _ := json.Marshal(ev)
	return b
}

func TestWebhookService_RecordLinksAndDedupes(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newService(db)
	ws := payments.NewWebhookService(db)
	ctx := context.Background()

	donor := testutil.SeedUser(t, db, "")
	c := testutil.SeedCampaign(t, db, testutil.CampaignOpts{})
	d := testutil.SeedDonation(t, db, donations.Donation{CampaignID: c.ID, UserID: donor.ID, Amount: dec("25")})

	paid, err := svc.ProcessPayment(ctx, &d, payments.PaymentData{PaymentMethod: donations.MethodCreditCard}, "")
	require.NoError(t, err)

	body := mockEvent("evt_1", "payment.succeeded", paid.LedgerID())
	r, ok, err := svc.HandleWebhook("mock", body)
	require.NoError(t, err)
	require.True(t, ok)

	out, err := ws.Record(ctx, "mock", r, body)
	require.NoError(t, err)
	assert.False(t, out.Duplicate)
	require.NotNil(t, out.TransactionID)

	out, err = ws.Record(ctx, "mock", r, body)
	require.NoError(t, err)
	assert.True(t, out.Duplicate)

	var events int64
	require.NoError(t, db.Model(&payments.ProviderEvent{}).Count(&events).Error)
	assert.Equal(t, int64(1), events)

	pt, err := svc.TransactionFor(ctx, d.ID)
	require.NoError(t, err)
	var env payments.ResponseData
	require.NoError(t, json.Unmarshal(pt.ResponseData, &env))
	require.NotNil(t, env.Webhook)
	assert.Equal(t, "evt_1", env.Webhook.EventID)

	// webhooks are a record only
	assert.Equal(t, donations.StatusCompleted, loadDonation(t, db, d.ID).Status)
	assert.True(t, dec("25").Equal(loadCampaign(t, db, c.ID).CurrentAmount))
}

func TestWebhookService_UnknownTransactionIsKept(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newService(db)
	ws := payments.NewWebhookService(db)

	body := mockEvent("evt_9", "payment.failed", "mock_nope")
	r, ok, err := svc.HandleWebhook("mock", body)
	require.NoError(t, err)
	require.True(t, ok)

	out, err := ws.Record(context.Background(), "mock", r, body)
	require.NoError(t, err)
	assert.Nil(t, out.TransactionID)

	var pe payments.ProviderEvent
	require.NoError(t, db.First(&pe, "event_id = ?", "evt_9").Error)
	require.NotNil(t, pe.ProcessError)
	assert.Nil(t, pe.ProcessedAt)
}

func TestWebhookService_RequiresEventID(t *testing.T) {
	ws := payments.NewWebhookService(testutil.NewDB(t))
	_, err := ws.Record(context.Background(), "mock", payments.Result{}, []byte(`{}`))
	assert.ErrorIs(t, err, payments.ErrMissingEventID)
}

func TestHandleWebhook_UnknownProvider(t *testing.T) {
	svc := newService(testutil.NewDB(t))
	_, _, err := svc.HandleWebhook("adyen", []byte(`{}`))
	assert.ErrorIs(t, err, payments.ErrProviderNotFound)
}
