package payments

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"slices"
	"time"

	"csrgive.com/app/internal/modules/donations"
	"csrgive.com/app/internal/shared/money"
)

type MockConfig struct {
	// ForceSuccess makes every charge succeed. Tests and CI set it explicitly.
	ForceSuccess bool
	// SuccessRate is the probability in [0,1] that a charge succeeds when
	// ForceSuccess is off.
	SuccessRate float64
}

// MockProvider simulates a gateway in-process. It is always registered.
type MockProvider struct {
	cfg  MockConfig
	roll func() float64
	now  func() time.Time
}

func NewMockProvider(cfg MockConfig) *MockProvider {
	return &MockProvider{cfg: cfg, roll: rand.Float64, now: time.Now}
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) ValidatePaymentData(data PaymentData) bool {
	return slices.Contains(donations.PaymentMethods, data.PaymentMethod)
}

func (m *MockProvider) shouldSucceed() bool {
	if m.cfg.ForceSuccess {
		return true
	}
	return m.roll() < m.cfg.SuccessRate
}

func (m *MockProvider) ProcessPayment(ctx context.Context, req ChargeRequest) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	resp := ResponseData{
		Provider:  m.Name(),
		Amount:    req.Donation.Amount,
		Currency:  req.Currency,
		Timestamp: m.now().UTC(),
		Mock:      &MockPayload{PaymentMethod: req.Data.PaymentMethod, Simulated: true},
	}

	if !m.shouldSucceed() {
		resp.Status = TxStatusFailed
		return NewFailure(NewTransactionID("mock"), "", "payment declined by mock provider", resp), nil
	}
	resp.Status = TxStatusCompleted
	return NewSuccess(NewTransactionID("mock"), "", resp), nil
}

func (m *MockProvider) RefundPayment(ctx context.Context, req RefundRequest) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	now := m.now().UTC()
	refundID := NewTransactionID("mock_refund")
	return NewSuccess(refundID, "", ResponseData{
		Provider:  m.Name(),
		Amount:    req.Donation.Amount,
		Currency:  req.Currency,
		Status:    TxStatusRefunded,
		Timestamp: now,
		Mock:      &MockPayload{PaymentMethod: req.Donation.PaymentMethod, Simulated: true},
		Refund: &RefundMetadata{
			RefundID:   refundID,
			Amount:     req.Donation.Amount,
			Reason:     req.Reason,
			RefundedAt: now,
		},
	}), nil
}

// MockWebhookEvent is the JSON the mock gateway posts to /webhooks/mock.
type MockWebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"` // payment.succeeded|payment.failed|refund.succeeded
	Data struct {
		PaymentRef  string `json:"payment_ref"`
		RefundRef   string `json:"refund_ref,omitempty"`
		AmountCents int64  `json:"amount_cents"`
		Currency    string `json:"currency"`
	} `json:"data"`
}

func (m *MockProvider) HandleWebhook(body []byte) (Result, bool) {
	var ev MockWebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return Result{}, false
	}
	if ev.ID == "" || ev.Data.PaymentRef == "" {
		return Result{}, false
	}

	now := m.now().UTC()
	resp := ResponseData{
		Provider:  m.Name(),
		Amount:    money.FromCents(ev.Data.AmountCents),
		Currency:  ev.Data.Currency,
		Timestamp: now,
		Mock:      &MockPayload{Simulated: true},
		Webhook:   &WebhookMetadata{EventID: ev.ID, EventType: ev.Type, ReceivedAt: now},
	}

	switch ev.Type {
	case "payment.succeeded":
		resp.Status = TxStatusCompleted
		return NewSuccess(ev.Data.PaymentRef, ev.Data.PaymentRef, resp), true
	case "payment.failed":
		resp.Status = TxStatusFailed
		return NewFailure(ev.Data.PaymentRef, ev.Data.PaymentRef, "payment failed", resp), true
	case "refund.succeeded":
		resp.Status = TxStatusRefunded
		return NewSuccess(ev.Data.PaymentRef, ev.Data.PaymentRef, resp), true
	default:
		return Result{}, false
	}
}
