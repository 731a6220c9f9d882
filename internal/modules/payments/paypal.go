package payments

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"csrgive.com/app/internal/modules/donations"
)

// PayPalProvider mirrors the Orders v2 capture flow without network calls.
// The client approves an order and sends its id as the payment token.
type PayPalProvider struct {
	clientID     string
	clientSecret string
	now          func() time.Time
}

func NewPayPalProvider(clientID, clientSecret string) *PayPalProvider {
	return &PayPalProvider{clientID: clientID, clientSecret: clientSecret, now: time.Now}
}

func (p *PayPalProvider) Name() string { return "paypal" }

func (p *PayPalProvider) ValidatePaymentData(data PaymentData) bool {
	return data.PaymentMethod == donations.MethodPayPal && strings.TrimSpace(data.Token) != ""
}

func paypalID() string {
	return strings.ToUpper(randHex(9))[:17]
}

func (p *PayPalProvider) ProcessPayment(ctx context.Context, req ChargeRequest) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	captureID := paypalID()
	resp := ResponseData{
		Provider:  p.Name(),
		Amount:    req.Donation.Amount,
		Currency:  req.Currency,
		Status:    TxStatusCompleted,
		Timestamp: p.now().UTC(),
		PayPal:    &PayPalPayload{OrderID: req.Data.Token, CaptureID: captureID, Status: "COMPLETED"},
	}
	return NewSuccess("PAYID-"+strings.ToUpper(randHex(12)), captureID, resp), nil
}

func (p *PayPalProvider) RefundPayment(ctx context.Context, req RefundRequest) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	now := p.now().UTC()
	resp := ResponseData{
		Provider:  p.Name(),
		Amount:    req.Donation.Amount,
		Currency:  req.Currency,
		Timestamp: now,
	}
	if req.ExternalID == "" {
		resp.Status = TxStatusFailed
		resp.PayPal = &PayPalPayload{Status: "FAILED"}
		return NewFailure("PAYID-"+strings.ToUpper(randHex(12)), "", "no capture to refund", resp), nil
	}

	refundID := paypalID()
	resp.Status = TxStatusRefunded
	resp.PayPal = &PayPalPayload{CaptureID: req.ExternalID, RefundID: refundID, Status: "COMPLETED"}
	resp.Refund = &RefundMetadata{RefundID: refundID, Amount: req.Donation.Amount, Reason: req.Reason, RefundedAt: now}
	return NewSuccess("PAYID-"+strings.ToUpper(randHex(12)), refundID, resp), nil
}

type paypalEvent struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	Resource  struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Amount struct {
			Value        string `json:"value"`
			CurrencyCode string `json:"currency_code"`
		} `json:"amount"`
		// refunds reference the capture they reverse
		CaptureID string `json:"capture_id,omitempty"`
	} `json:"resource"`
}

func (p *PayPalProvider) HandleWebhook(body []byte) (Result, bool) {
	var ev paypalEvent
	if err := json.Unmarshal(body, &ev); err != nil || ev.ID == "" {
		return Result{}, false
	}
	res := ev.Resource

	captureID := res.ID
	if res.CaptureID != "" {
		captureID = res.CaptureID
	}
	if captureID == "" {
		return Result{}, false
	}

	amount, err := decimal.NewFromString(res.Amount.Value)
	if err != nil {
		amount = decimal.Zero
	}

	now := p.now().UTC()
	resp := ResponseData{
		Provider:  p.Name(),
		Amount:    amount,
		Currency:  res.Amount.CurrencyCode,
		Timestamp: now,
		PayPal:    &PayPalPayload{CaptureID: captureID, Status: res.Status},
		Webhook:   &WebhookMetadata{EventID: ev.ID, EventType: ev.EventType, ReceivedAt: now},
	}

	switch ev.EventType {
	case "PAYMENT.CAPTURE.COMPLETED":
		resp.Status = TxStatusCompleted
		return NewSuccess(captureID, captureID, resp), true
	case "PAYMENT.CAPTURE.DENIED", "PAYMENT.CAPTURE.DECLINED":
		resp.Status = TxStatusFailed
		return NewFailure(captureID, captureID, "capture denied", resp), true
	case "PAYMENT.CAPTURE.REFUNDED":
		resp.Status = TxStatusRefunded
		return NewSuccess(captureID, captureID, resp), true
	default:
		return Result{}, false
	}
}
