package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"csrgive.com/app/internal/modules/campaigns"
	"csrgive.com/app/internal/modules/donations"
)

// Range bounds donations by created_at. Nil ends are open.
type Range struct {
	From *time.Time
	To   *time.Time
}

type CampaignTotal struct {
	CampaignID uint            `json:"campaign_id"`
	Title      string          `json:"title"`
	Raised     decimal.Decimal `json:"raised"`
	Donations  int64           `json:"donations"`
}

type Overview struct {
	TotalRaised     decimal.Decimal  `json:"total_raised"`
	TotalRefunded   decimal.Decimal  `json:"total_refunded"`
	ByStatus        map[string]int64 `json:"by_status"`
	UniqueDonors    int64            `json:"unique_donors"`
	ActiveCampaigns int64            `json:"active_campaigns"`
	TopCampaigns    []CampaignTotal  `json:"top_campaigns"`
}

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) donations(ctx context.Context, r Range) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&donations.Donation{})
	if r.From != nil {
		q = q.Where("donations.created_at >= ?", *r.From)
	}
	if r.To != nil {
		q = q.Where("donations.created_at < ?", *r.To)
	}
	return q
}

func (s *Service) Overview(ctx context.Context, r Range) (Overview, error) {
	out := Overview{
		TotalRaised:   decimal.Zero,
		TotalRefunded: decimal.Zero,
		ByStatus:      map[string]int64{},
		TopCampaigns:  []CampaignTotal{},
	}

	var rows []struct {
		Status string
		Cnt    int64
		Total  decimal.Decimal
	}
	if err := s.donations(ctx, r).
		Select("status, COUNT(*) AS cnt, COALESCE(SUM(amount), 0) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return Overview{}, err
	}
	for _, row := range rows {
		out.ByStatus[row.Status] = row.Cnt
		switch row.Status {
		case donations.StatusCompleted:
			out.TotalRaised = row.Total
		case donations.StatusRefunded:
			out.TotalRefunded = row.Total
		}
	}

	if err := s.donations(ctx, r).
		Where("status = ?", donations.StatusCompleted).
		Distinct("user_id").
		Count(&out.UniqueDonors).Error; err != nil {
		return Overview{}, err
	}

	if err := s.db.WithContext(ctx).Model(&campaigns.Campaign{}).
		Where("status = ?", campaigns.StatusActive).
		Count(&out.ActiveCampaigns).Error; err != nil {
		return Overview{}, err
	}

	if err := s.donations(ctx, r).
		Select("donations.campaign_id AS campaign_id, campaigns.title AS title, SUM(donations.amount) AS raised, COUNT(*) AS donations").
		Joins("JOIN campaigns ON campaigns.id = donations.campaign_id").
		Where("donations.status = ?", donations.StatusCompleted).
		Group("donations.campaign_id, campaigns.title").
		Order("raised DESC").
		Limit(5).
		Scan(&out.TopCampaigns).Error; err != nil {
		return Overview{}, err
	}
	return out, nil
}
