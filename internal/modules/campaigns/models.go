package campaigns

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusDraft     = "draft"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusEnded     = "ended"
)

type Campaign struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	OwnerID       uint            `gorm:"not null;index:ix_campaigns_owner_id" json:"owner_id"`
	Title         string          `gorm:"type:varchar(191);not null" json:"title"`
	Description   *string         `gorm:"type:text" json:"description,omitempty"`
	TargetAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"target_amount"`
	CurrentAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"current_amount"`
	Currency      string          `gorm:"type:char(3);not null;default:'USD'" json:"currency"`
	Status        string          `gorm:"type:varchar(16);not null;default:'draft';index:ix_campaigns_status" json:"status"`
	StartDate     *time.Time      `json:"start_date,omitempty"`
	EndDate       *time.Time      `json:"end_date,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Campaign) TableName() string { return "campaigns" }

var hundred = decimal.NewFromInt(100)

// ProgressPercentage is current/target as a percentage, capped at 100.
func (c Campaign) ProgressPercentage() float64 {
	if !c.TargetAmount.IsPositive() {
		return 0
	}
	pct := c.CurrentAmount.Div(c.TargetAmount).Mul(hundred).Round(2)
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	f, _ := pct.Float64()
	return f
}

func (c Campaign) IsActive(now time.Time) bool {
	return c.CheckDonatable(now) == nil
}

// CheckDonatable reports why a campaign cannot take donations right now.
func (c Campaign) CheckDonatable(now time.Time) error {
	if c.Status != StatusActive {
		return ErrNotActive
	}
	if c.EndDate != nil && c.EndDate.Before(now) {
		return ErrEnded
	}
	if c.StartDate != nil && c.StartDate.After(now) {
		return ErrNotStarted
	}
	return nil
}

func (c Campaign) TargetReached() bool {
	return c.CurrentAmount.GreaterThanOrEqual(c.TargetAmount)
}
