package payments

import (
	"time"

	"github.com/shopspring/decimal"
)

// ResponseData is the uniform envelope persisted in
// payment_transactions.response_data. Exactly one provider payload is set.
type ResponseData struct {
	Provider  string          `json:"provider"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	Timestamp time.Time       `json:"timestamp"`

	Mock   *MockPayload   `json:"mock,omitempty"`
	Stripe *StripePayload `json:"stripe,omitempty"`
	PayPal *PayPalPayload `json:"paypal,omitempty"`

	Refund  *RefundMetadata  `json:"refund,omitempty"`
	Webhook *WebhookMetadata `json:"webhook,omitempty"`
}

type MockPayload struct {
	PaymentMethod string `json:"payment_method"`
	Simulated     bool   `json:"simulated"`
}

type StripePayload struct {
	Object        string `json:"object"` // payment_intent|refund|event
	ID            string `json:"id"`
	AmountCents   int64  `json:"amount"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	PaymentMethod string `json:"payment_method,omitempty"`
	PaymentIntent string `json:"payment_intent,omitempty"`
}

type PayPalPayload struct {
	OrderID   string `json:"order_id,omitempty"`
	CaptureID string `json:"capture_id,omitempty"`
	RefundID  string `json:"refund_id,omitempty"`
	Status    string `json:"status"`
}

type RefundMetadata struct {
	RefundID   string          `json:"refund_id"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason,omitempty"`
	RefundedAt time.Time       `json:"refunded_at"`
}

type WebhookMetadata struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	ReceivedAt time.Time `json:"received_at"`
}

// Result is the outcome of one provider call. Build it with NewSuccess or
// NewFailure; it is a value and is never modified afterwards.
type Result struct {
	Success               bool         `json:"success"`
	TransactionID         string       `json:"transaction_id"`
	ExternalTransactionID string       `json:"external_transaction_id,omitempty"`
	ErrorMessage          string       `json:"error_message,omitempty"`
	Response              ResponseData `json:"response_data"`
}

func NewSuccess(transactionID, externalID string, resp ResponseData) Result {
	return Result{
		Success:               true,
		TransactionID:         transactionID,
		ExternalTransactionID: externalID,
		Response:              resp,
	}
}

func NewFailure(transactionID, externalID, msg string, resp ResponseData) Result {
	if msg == "" {
		msg = "payment failed"
	}
	return Result{
		Success:               false,
		TransactionID:         transactionID,
		ExternalTransactionID: externalID,
		ErrorMessage:          msg,
		Response:              resp,
	}
}

// LedgerID is the id stored in payment_transactions.external_transaction_id:
// the provider's id when it issued one, our own id otherwise.
func (r Result) LedgerID() string {
	if r.ExternalTransactionID != "" {
		return r.ExternalTransactionID
	}
	return r.TransactionID
}
