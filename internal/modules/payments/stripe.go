package payments

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"csrgive.com/app/internal/modules/donations"
	"csrgive.com/app/internal/shared/money"
)

// StripeProvider mirrors the shape of a Stripe PaymentIntents integration
// without calling the network. Ids follow Stripe's prefixes (pi_, re_, evt_).
type StripeProvider struct {
	secretKey string
	now       func() time.Time
}

func NewStripeProvider(secretKey string) *StripeProvider {
	return &StripeProvider{secretKey: secretKey, now: time.Now}
}

func (p *StripeProvider) Name() string { return "stripe" }

// ValidatePaymentData requires a card method and a PaymentMethod or token id.
func (p *StripeProvider) ValidatePaymentData(data PaymentData) bool {
	if data.PaymentMethod != donations.MethodCreditCard && data.PaymentMethod != donations.MethodDebitCard {
		return false
	}
	return strings.HasPrefix(data.Token, "pm_") || strings.HasPrefix(data.Token, "tok_")
}

func (p *StripeProvider) ProcessPayment(ctx context.Context, req ChargeRequest) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	intentID := "pi_" + randHex(12)
	resp := ResponseData{
		Provider:  p.Name(),
		Amount:    req.Donation.Amount,
		Currency:  req.Currency,
		Status:    TxStatusCompleted,
		Timestamp: p.now().UTC(),
		Stripe: &StripePayload{
			Object:        "payment_intent",
			ID:            intentID,
			AmountCents:   money.Cents(req.Donation.Amount),
			Currency:      strings.ToLower(req.Currency),
			Status:        "succeeded",
			PaymentMethod: req.Data.Token,
		},
	}
	return NewSuccess(NewTransactionID("stripe"), intentID, resp), nil
}

func (p *StripeProvider) RefundPayment(ctx context.Context, req RefundRequest) (Result, error) {
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
	if !strings.HasPrefix(req.ExternalID, "pi_") {
		resp.Status = TxStatusFailed
		resp.Stripe = &StripePayload{Object: "refund", Status: "failed", PaymentIntent: req.ExternalID}
		return NewFailure(NewTransactionID("stripe_refund"), "", "no payment intent to refund", resp), nil
	}

	refundID := "re_" + randHex(12)
	resp.Status = TxStatusRefunded
	resp.Stripe = &StripePayload{
		Object:        "refund",
		ID:            refundID,
		AmountCents:   money.Cents(req.Donation.Amount),
		Currency:      strings.ToLower(req.Currency),
		Status:        "succeeded",
		PaymentIntent: req.ExternalID,
	}
	resp.Refund = &RefundMetadata{RefundID: refundID, Amount: req.Donation.Amount, Reason: req.Reason, RefundedAt: now}
	return NewSuccess(NewTransactionID("stripe_refund"), refundID, resp), nil
}

type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID            string `json:"id"`
			Amount        int64  `json:"amount"`
			Currency      string `json:"currency"`
			Status        string `json:"status"`
			PaymentIntent string `json:"payment_intent"`
		} `json:"object"`
	} `json:"data"`
}

func (p *StripeProvider) HandleWebhook(body []byte) (Result, bool) {
	var ev stripeEvent
	if err := json.Unmarshal(body, &ev); err != nil || ev.ID == "" {
		return Result{}, false
	}
	obj := ev.Data.Object

	// charge.refunded carries the charge; the ledger is keyed by the intent.
	intentID := obj.ID
	if obj.PaymentIntent != "" {
		intentID = obj.PaymentIntent
	}
	if intentID == "" {
		return Result{}, false
	}

	now := p.now().UTC()
	resp := ResponseData{
		Provider:  p.Name(),
		Amount:    money.FromCents(obj.Amount),
		Currency:  strings.ToUpper(obj.Currency),
		Timestamp: now,
		Stripe: &StripePayload{
			Object:        "event",
			ID:            obj.ID,
			AmountCents:   obj.Amount,
			Currency:      obj.Currency,
			Status:        obj.Status,
			PaymentIntent: intentID,
		},
		Webhook: &WebhookMetadata{EventID: ev.ID, EventType: ev.Type, ReceivedAt: now},
	}

	switch ev.Type {
	case "payment_intent.succeeded":
		resp.Status = TxStatusCompleted
		return NewSuccess(intentID, intentID, resp), true
	case "payment_intent.payment_failed":
		resp.Status = TxStatusFailed
		return NewFailure(intentID, intentID, "payment intent failed", resp), true
	case "payment_intent.canceled":
		resp.Status = TxStatusCancelled
		return NewFailure(intentID, intentID, "payment intent canceled", resp), true
	case "charge.refunded":
		resp.Status = TxStatusRefunded
		return NewSuccess(intentID, intentID, resp), true
	default:
		return Result{}, false
	}
}
