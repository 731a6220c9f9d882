package payments

import (
	"context"

	"csrgive.com/app/internal/modules/donations"
)

// PaymentData is the raw, provider-agnostic payment input from the client.
type PaymentData struct {
	PaymentMethod string            `json:"payment_method"`
	Token         string            `json:"payment_token,omitempty"` // pm_/tok_ for stripe, order id for paypal
	Metadata      map[string]string `json:"metadata,omitempty"`
}

type ChargeRequest struct {
	Donation donations.Donation
	Data     PaymentData
	Currency string
}

type RefundRequest struct {
	Donation   donations.Donation
	ExternalID string // payment_transactions.external_transaction_id
	Currency   string
	Reason     string
}

type Provider interface {
	// Name is the registry key and the value stored in payment_transactions.provider.
	Name() string

	// ValidatePaymentData is a pure structural check run before any charge.
	ValidatePaymentData(data PaymentData) bool

	ProcessPayment(ctx context.Context, req ChargeRequest) (Result, error)

	// RefundPayment is only called for donations whose stored status is completed.
	RefundPayment(ctx context.Context, req RefundRequest) (Result, error)

	// HandleWebhook parses an inbound notification; ok is false for payloads
	// the provider does not recognize. Signatures are checked by the caller.
	HandleWebhook(body []byte) (Result, bool)
}
