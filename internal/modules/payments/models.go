package payments

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// payment_transactions.status
const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
	TxStatusCancelled = "cancelled"
	TxStatusRefunded  = "refunded"
)

// PaymentTransaction is the durable record of what the provider said about a
// donation. One row per donation, written when the donation settles and
// updated by refunds and webhooks afterwards.
type PaymentTransaction struct {
	ID                    uint            `gorm:"primaryKey" json:"id"`
	DonationID            uint            `gorm:"not null;uniqueIndex:ux_payment_transactions_donation_id" json:"donation_id"`
	Provider              string          `gorm:"type:varchar(64);not null;index:ix_payment_transactions_provider_ext,priority:1" json:"provider"`
	ExternalTransactionID string          `gorm:"type:varchar(128);not null;index:ix_payment_transactions_provider_ext,priority:2" json:"external_transaction_id"`
	Amount                decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency              string          `gorm:"type:char(3);not null" json:"currency"`
	Status                string          `gorm:"type:varchar(16);not null" json:"status"`
	ResponseData          datatypes.JSON  `gorm:"type:json" json:"response_data"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

func (PaymentTransaction) TableName() string { return "payment_transactions" }

// ProviderEvent stores every inbound webhook once, keyed by (provider, event_id).
type ProviderEvent struct {
	ID                   string         `gorm:"type:char(36);primaryKey"`
	Provider             string         `gorm:"type:varchar(64);not null;uniqueIndex:ux_provider_events_provider_event,priority:1"`
	EventID              string         `gorm:"type:varchar(128);not null;uniqueIndex:ux_provider_events_provider_event,priority:2"`
	EventType            string         `gorm:"type:varchar(64);not null"`
	PaymentTransactionID *uint          `gorm:"index:ix_provider_events_payment_tx"`
	PayloadJSON          datatypes.JSON `gorm:"type:json;not null"`

	ReceivedAt   time.Time  `gorm:"not null"`
	ProcessedAt  *time.Time
	ProcessError *string `gorm:"type:varchar(255)"`
}

func (ProviderEvent) TableName() string { return "provider_events" }
