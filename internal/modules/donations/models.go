package donations

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusRefunded  = "refunded"
)

const (
	MethodCreditCard   = "credit_card"
	MethodDebitCard    = "debit_card"
	MethodPayPal       = "paypal"
	MethodBankTransfer = "bank_transfer"
)

// PaymentMethods is the set accepted at the HTTP boundary; each provider
// narrows it further in ValidatePaymentData.
var PaymentMethods = []string{MethodCreditCard, MethodDebitCard, MethodPayPal, MethodBankTransfer}

type Donation struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	CampaignID    uint            `gorm:"not null;index:ix_donations_campaign_id" json:"campaign_id"`
	UserID        uint            `gorm:"not null;index:ix_donations_user_id" json:"user_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	PaymentMethod string          `gorm:"type:varchar(32);not null" json:"payment_method"`
	Status        string          `gorm:"type:varchar(16);not null;default:'pending';index:ix_donations_status" json:"status"`
	TransactionID *string         `gorm:"type:varchar(128)" json:"transaction_id,omitempty"`
	Anonymous     bool            `gorm:"not null;default:false" json:"anonymous"`
	Message       *string         `gorm:"type:varchar(500)" json:"message,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Donation) TableName() string { return "donations" }

func (d Donation) IsRefundable() bool { return d.Status == StatusCompleted }

// RefundDeadline is the last instant a refund may be requested.
func (d Donation) RefundDeadline(window time.Duration) time.Time {
	return d.CreatedAt.Add(window)
}
