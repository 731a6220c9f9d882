package giving

import "errors"

var (
	ErrInvalidAmount       = errors.New("donation amount must be greater than zero with at most two decimals")
	ErrNotRefundable       = errors.New("only completed donations can be refunded")
	ErrRefundWindowExpired = errors.New("refund window has expired for this donation")
	ErrRefundDeclined      = errors.New("refund was declined by the payment provider")
)
