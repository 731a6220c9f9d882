package handlers

import (
	"errors"

	"csrgive.com/app/internal/modules/campaigns"
	"csrgive.com/app/internal/modules/donations"
	"csrgive.com/app/internal/modules/giving"
	"csrgive.com/app/internal/modules/payments"
	"csrgive.com/app/internal/shared/apperr"
)

// businessRules answer 422 with the sentinel's own message. Callers wrap these
// with ids and provider names, which stay in the logs only.
var businessRules = []error{
	campaigns.ErrNotActive,
	campaigns.ErrEnded,
	campaigns.ErrNotStarted,
	giving.ErrInvalidAmount,
	giving.ErrNotRefundable,
	giving.ErrRefundWindowExpired,
	donations.ErrNoReceipt,
	payments.ErrProviderNotConfigured,
	payments.ErrNoTransaction,
	payments.ErrNotPending,
}

// AppError maps domain errors onto their HTTP-facing kind. Anything it does
// not recognize becomes an internal error with the generic message.
func AppError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, campaigns.ErrNotFound):
		return apperr.NotFoundErr("Campaign not found.")
	case errors.Is(err, donations.ErrNotFound):
		return apperr.NotFoundErr("Donation not found.")
	case errors.Is(err, payments.ErrProviderNotFound):
		return apperr.InvalidErr("Unknown payment provider.", map[string]string{"provider": "Unknown payment provider."})
	case errors.Is(err, giving.ErrRefundDeclined):
		return &apperr.AppError{Kind: apperr.PaymentDeclined, PublicMsg: err.Error(), Err: err}
	}
	for _, rule := range businessRules {
		if errors.Is(err, rule) {
			return &apperr.AppError{Kind: apperr.Invalid, PublicMsg: rule.Error(), Err: err}
		}
	}
	return apperr.Wrap(err)
}
