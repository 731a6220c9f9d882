package payments

import "errors"

var (
	ErrProviderNotFound      = errors.New("payment provider not found")
	ErrProviderNotConfigured = errors.New("no payment provider configured")
	ErrInvalidPaymentData    = errors.New("invalid payment data")
	ErrNotPending            = errors.New("donation is not pending")
	ErrNotRefundable         = errors.New("only completed donations can be refunded")
	ErrNoTransaction         = errors.New("no payment transaction recorded for donation")
	ErrMissingEventID        = errors.New("webhook event id missing")
)
