package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"csrgive.com/app/internal/config"
	apphttp "csrgive.com/app/internal/http"
	"csrgive.com/app/internal/http/middleware"
	"csrgive.com/app/internal/modules/audit"
	"csrgive.com/app/internal/modules/campaigns"
	"csrgive.com/app/internal/modules/donations"
	"csrgive.com/app/internal/modules/giving"
	"csrgive.com/app/internal/modules/payments"
	"csrgive.com/app/internal/modules/users"
	"csrgive.com/app/internal/storage"
	"csrgive.com/app/internal/testutil"
)

const (
	jwtSecret     = "router-test-secret"
	webhookSecret = "whsec_test"
)

type app struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
}

type opts struct {
	mock            payments.MockConfig
	rateLimit       int
	defaultProvider string
}

func newApp(t *testing.T, o opts) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if o.rateLimit == 0 {
		o.rateLimit = 100
	}
	if o.defaultProvider == "" {
		o.defaultProvider = "mock"
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := testutil.NewDB(t)

	cfg := &config.Config{
		App:     config.AppConfig{Env: "test"},
		Auth:    config.AuthConfig{JWTSecret: jwtSecret},
		Payment: config.PaymentConfig{
			DefaultProvider: "mock",
			Currency:        "USD",
			Mock:            config.MockConfig{WebhookSecret: webhookSecret},
			WebhookTTL:      5 * time.Minute,
		},
	}

	pay := payments.NewService(db, o.defaultProvider, "USD")
	pay.RegisterProvider("mock", payments.NewMockProvider(o.mock))
	auditor := audit.NewService(db)

	deps := apphttp.Deps{
		Payments: pay,
		Webhooks: payments.NewWebhookService(db),
		Giving:   giving.NewService(db, pay, nil, auditor, 30*24*time.Hour),
		Archiver: donations.NewReceiptArchiver(donations.NewRepo(db), storage.NewLocal(t.TempDir(), "/receipts")),
		Audit:    auditor,
		Limiter:  middleware.NewMemoryLimiter(o.rateLimit, time.Minute),
	}
	return &app{t: t, db: db, router: apphttp.NewRouter(logger, db, cfg, deps)}
}

func (a *app) token(u users.User) string {
	a.t.Helper()
	tok, err := middleware.IssueToken([]byte(jwtSecret), u.ID, time.Hour)
	require.NoError(a.t, err)
	return tok
}

func (a *app) do(method, path string, u *users.User, body any) (*httptest.ResponseRecorder, map[string]any) {
	a.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if u != nil {
		req.Header.Set("Authorization", "Bearer "+a.token(*u))
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func donationBody(campaignID uint, amount string) map[string]any {
	return map[string]any{
		"campaign_id":    campaignID,
		"amount":         amount,
		"payment_method": donations.MethodCreditCard,
		"payment_token":  "tok_visa",
	}
}

func TestHealthz(t *testing.T) {
	a := newApp(t, opts{})
	w, body := a.do(http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["ok"])
}

func TestCreateDonation_Flow(t *testing.T) {
	a := newApp(t, opts{mock: payments.MockConfig{ForceSuccess: true}})
	donor := testutil.SeedUser(t, a.db, users.RoleEmployee)
	other := testutil.SeedUser(t, a.db, users.RoleEmployee)
	c := testutil.SeedCampaign(t, a.db, testutil.CampaignOpts{Target: "100.00"})

	w, body := a.do(http.MethodPost, "/api/donations", &donor, donationBody(c.ID, "40.50"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	d := body["donation"].(map[string]any)
	assert.Equal(t, donations.StatusCompleted, d["status"])
	assert.Equal(t, true, body["payment"].(map[string]any)["success"])
	id := uint(d["id"].(float64))

	var got campaigns.Campaign
	require.NoError(t, a.db.First(&got, c.ID).Error)
	assert.True(t, got.CurrentAmount.Equal(decimal.RequireFromString("40.50")))

	w, body = a.do(http.MethodGet, "/api/donations", &donor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["total"])

	w, body = a.do(http.MethodGet, "/api/donations/stats", &donor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "40.5", body["total_donated"])

	path := fmt.Sprintf("/api/donations/%d", id)
	w, _ = a.do(http.MethodGet, path, &donor, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = a.do(http.MethodGet, path, &other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "other users cannot see it")

	w, body = a.do(http.MethodGet, path+"/receipt", &donor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "$40.50", body["amount_formatted"])

	w, body = a.do(http.MethodGet, fmt.Sprintf("/api/campaigns/%d/stats", c.ID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 40.5, body["progress_percentage"])
}

func TestCreateDonation_Declined(t *testing.T) {
	a := newApp(t, opts{mock: payments.MockConfig{SuccessRate: 0}})
	donor := testutil.SeedUser(t, a.db, users.RoleEmployee)
	c := testutil.SeedCampaign(t, a.db, testutil.CampaignOpts{})

	w, body := a.do(http.MethodPost, "/api/donations", &donor, donationBody(c.ID, "10"))
	require.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, donations.StatusFailed, body["donation"].(map[string]any)["status"])
	assert.Equal(t, "payment declined by mock provider", body["error"])

	var got campaigns.Campaign
	require.NoError(t, a.db.First(&got, c.ID).Error)
	assert.True(t, got.CurrentAmount.IsZero())
}

func TestCreateDonation_Rejections(t *testing.T) {
	a := newApp(t, opts{mock: payments.MockConfig{ForceSuccess: true}})
	donor := testutil.SeedUser(t, a.db, users.RoleEmployee)
	active := testutil.SeedCampaign(t, a.db, testutil.CampaignOpts{})
	draft := testutil.SeedCampaign(t, a.db, testutil.CampaignOpts{Status: campaigns.StatusDraft})

	w, _ := a.do(http.MethodPost, "/api/donations", nil, donationBody(active.ID, "10"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body := a.do(http.MethodPost, "/api/donations", &donor, map[string]any{"campaign_id": active.ID})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	fields := body["fields"].(map[string]any)
	assert.Contains(t, fields, "amount")
	assert.Contains(t, fields, "payment_method")

	w, _ = a.do(http.MethodPost, "/api/donations", &donor, donationBody(active.ID, "-5"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, body = a.do(http.MethodPost, "/api/donations", &donor, donationBody(draft.ID, "10"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, campaigns.ErrNotActive.Error(), body["error"])

	w, _ = a.do(http.MethodPost, "/api/donations", &donor, donationBody(9999, "10"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	in := donationBody(active.ID, "10")
	in["provider"] = "bitcoin"
	w, _ = a.do(http.MethodPost, "/api/donations", &donor, in)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var n int64
	require.NoError(t, a.db.Model(&donations.Donation{}).Count(&n).Error)
	assert.Zero(t, n, "rejections write nothing")
}

func TestCreateDonation_RateLimited(t *testing.T) {
	a := newApp(t, opts{mock: payments.MockConfig{ForceSuccess: true}, rateLimit: 1})
	donor := testutil.SeedUser(t, a.db, users.RoleEmployee)
	c := testutil.SeedCampaign(t, a.db, testutil.CampaignOpts{})

	w, _ := a.do(http.MethodPost, "/api/donations", &donor, donationBody(c.ID, "1"))
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = a.do(http.MethodPost, "/api/donations", &donor, donationBody(c.ID, "1"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestAdminRefund(t *testing.T) {
	a := newApp(t, opts{mock: payments.MockConfig{ForceSuccess: true}})
	admin := testutil.SeedUser(t, a.db, users.RoleAdmin)
	donor := testutil.SeedUser(t, a.db, users.RoleEmployee)
	c := testutil.SeedCampaign(t, a.db, testutil.CampaignOpts{Target: "50.00"})

	w, body := a.do(http.MethodPost, "/api/donations", &donor, donationBody(c.ID, "50"))
	require.Equal(t, http.StatusCreated, w.Code)
	id := uint(body["donation"].(map[string]any)["id"].(float64))
	path := fmt.Sprintf("/api/admin/donations/%d/refund", id)

	var got campaigns.Campaign
	require.NoError(t, a.db.First(&got, c.ID).Error)
	require.Equal(t, campaigns.StatusCompleted, got.Status)

	w, _ = a.do(http.MethodPost, path, &donor, map[string]any{"reason": "mine"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body = a.do(http.MethodPost, path, &admin, map[string]any{"reason": "duplicate charge"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, donations.StatusRefunded, body["donation"].(map[string]any)["status"])

	require.NoError(t, a.db.First(&got, c.ID).Error)
	assert.True(t, got.CurrentAmount.IsZero())
	assert.Equal(t, campaigns.StatusActive, got.Status)

	w, _ = a.do(http.MethodPost, path, &admin, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "second refund is rejected")

	w, body = a.do(http.MethodGet, fmt.Sprintf("/api/admin/audit?entity_type=donation&entity_id=%d", id), &admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := body["items"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, audit.ActionDonationRefunded, items[0].(map[string]any)["action"])
}

func TestCreateDonation_DefaultProviderNotRegistered(t *testing.T) {
	a := newApp(t, opts{defaultProvider: "stripe"})
	donor := testutil.SeedUser(t, a.db, users.RoleEmployee)
	c := testutil.SeedCampaign(t, a.db, testutil.CampaignOpts{})

	w, body := a.do(http.MethodPost, "/api/donations", &donor, donationBody(c.ID, "10"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Equal(t, payments.ErrProviderNotConfigured.Error(), body["error"])

	var n int64
	require.NoError(t, a.db.Model(&donations.Donation{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestAdminRefund_NoLedgerRow(t *testing.T) {
	a := newApp(t, opts{mock: payments.MockConfig{ForceSuccess: true}})
	admin := testutil.SeedUser(t, a.db, users.RoleAdmin)
	donor := testutil.SeedUser(t, a.db, users.RoleEmployee)
	c := testutil.SeedCampaign(t, a.db, testutil.CampaignOpts{})
	d := testutil.SeedDonation(t, a.db, donations.Donation{
		CampaignID: c.ID,
		UserID:     donor.ID,
		Amount:     decimal.RequireFromString("20"),
		Status:     donations.StatusCompleted,
	})

	w, body := a.do(http.MethodPost, fmt.Sprintf("/api/admin/donations/%d/refund", d.ID), &admin, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Equal(t, payments.ErrNoTransaction.Error(), body["error"])

	var got donations.Donation
	require.NoError(t, a.db.First(&got, d.ID).Error)
	assert.Equal(t, donations.StatusCompleted, got.Status)
}

func TestAdminArchiveReceiptAndReports(t *testing.T) {
	a := newApp(t, opts{mock: payments.MockConfig{ForceSuccess: true}})
	admin := testutil.SeedUser(t, a.db, users.RoleAdmin)
	c := testutil.SeedCampaign(t, a.db, testutil.CampaignOpts{})

	w, body := a.do(http.MethodPost, "/api/donations", &admin, donationBody(c.ID, "25"))
	require.Equal(t, http.StatusCreated, w.Code)
	id := uint(body["donation"].(map[string]any)["id"].(float64))

	w, body = a.do(http.MethodPost, fmt.Sprintf("/api/admin/donations/%d/receipt/archive", id), &admin, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	key := body["key"].(string)
	require.NotEmpty(t, key)

	w, _ = a.do(http.MethodGet, "/api/admin/receipts/"+key, &admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rc donations.Receipt
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rc))
	assert.Equal(t, id, rc.DonationID)

	w, _ = a.do(http.MethodGet, "/api/admin/receipts/../../etc/passwd", &admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = a.do(http.MethodGet, "/api/admin/reports/overview", &admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "25", body["total_raised"])
	assert.Equal(t, float64(1), body["unique_donors"])

	w, _ = a.do(http.MethodGet, "/api/admin/reports/overview?from=yesterday", &admin, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func signedWebhook(t *testing.T, a *app, body []byte, header string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/mock", bytes.NewReader(body))
	if header != "" {
		req.Header.Set(payments.SignatureHeader, header)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestWebhook(t *testing.T) {
	a := newApp(t, opts{mock: payments.MockConfig{ForceSuccess: true}})
	donor := testutil.SeedUser(t, a.db, users.RoleEmployee)
	c := testutil.SeedCampaign(t, a.db, testutil.CampaignOpts{})

	w, body := a.do(http.MethodPost, "/api/donations", &donor, donationBody(c.ID, "12"))
	require.Equal(t, http.StatusCreated, w.Code)
	txID := body["payment"].(map[string]any)["transaction_id"].(string)

	ev := payments.MockWebhookEvent{ID: "evt_1", Type: "payment.succeeded"}
	ev.Data.PaymentRef = txID
	ev.Data.AmountCents = 1200
	ev.Data.Currency = "USD"
	raw, err := json.Marshal(ev)
	require.NoError(t, err)

	w, _ = signedWebhook(t, a, raw, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code, "unsigned")

	w, _ = signedWebhook(t, a, raw, payments.SignatureHeaderValue([]byte("wrong"), time.Now().Unix(), raw))
	assert.Equal(t, http.StatusUnauthorized, w.Code, "bad signature")

	header := payments.SignatureHeaderValue([]byte(webhookSecret), time.Now().Unix(), raw)
	w, body = signedWebhook(t, a, raw, header)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	event := body["event"].(map[string]any)
	assert.Equal(t, false, event["duplicate"])
	assert.NotNil(t, event["payment_transaction_id"])

	w, body = signedWebhook(t, a, raw, header)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["event"].(map[string]any)["duplicate"])

	junk := []byte(`{"hello":"world"}`)
	w, body = signedWebhook(t, a, junk, payments.SignatureHeaderValue([]byte(webhookSecret), time.Now().Unix(), junk))
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, false, body["recognized"])

	var d donations.Donation
	require.NoError(t, a.db.Where("user_id = ?", donor.ID).First(&d).Error)
	assert.Equal(t, donations.StatusCompleted, d.Status, "webhooks never change donation state")
}

func TestWebhook_UnknownProvider(t *testing.T) {
	a := newApp(t, opts{})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/venmo", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCampaignsList(t *testing.T) {
	a := newApp(t, opts{})
	testutil.SeedCampaign(t, a.db, testutil.CampaignOpts{})
	testutil.SeedCampaign(t, a.db, testutil.CampaignOpts{Status: campaigns.StatusDraft})

	w, body := a.do(http.MethodGet, "/api/campaigns?status=active", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["total"])

	w, _ = a.do(http.MethodGet, "/api/campaigns/abc", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
