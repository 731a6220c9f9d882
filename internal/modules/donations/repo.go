package donations

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Get(ctx context.Context, id uint) (Donation, error) {
	var d Donation
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Donation{}, ErrNotFound
		}
		return Donation{}, err
	}
	return d, nil
}

type ListByUserParams struct {
	UserID   uint
	Status   string // optional filter
	Page     int
	PageSize int
}

type ListResult struct {
	Items []Donation `json:"items"`
	Total int64      `json:"total"`
}

func (r *Repo) ListByUser(ctx context.Context, in ListByUserParams) (ListResult, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	size := in.PageSize
	if size < 1 || size > 100 {
		size = 20
	}

	q := r.db.WithContext(ctx).Model(&Donation{}).Where("user_id = ?", in.UserID)
	if in.Status != "" {
		q = q.Where("status = ?", in.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return ListResult{}, err
	}

	var items []Donation
	if err := q.Order("created_at DESC").
		Order("id DESC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&items).Error; err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total}, nil
}

type UserStats struct {
	TotalDonated       decimal.Decimal `json:"total_donated"`
	DonationCount      int64           `json:"donation_count"`
	CampaignsSupported int64           `json:"campaigns_supported"`
}

// UserStats aggregates the completed donations of one user.
func (r *Repo) UserStats(ctx context.Context, userID uint) (UserStats, error) {
	var row struct {
		Total     decimal.Decimal
		Cnt       int64
		Campaigns int64
	}
	err := r.db.WithContext(ctx).Model(&Donation{}).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS cnt, COUNT(DISTINCT campaign_id) AS campaigns").
		Where("user_id = ? AND status = ?", userID, StatusCompleted).
		Scan(&row).Error
	if err != nil {
		return UserStats{}, err
	}
	return UserStats{TotalDonated: row.Total, DonationCount: row.Cnt, CampaignsSupported: row.Campaigns}, nil
}

type CampaignStats struct {
	TotalRaised   decimal.Decimal  `json:"total_raised"`
	DonorCount    int64            `json:"donor_count"`
	AverageAmount decimal.Decimal  `json:"average_amount"`
	ByStatus      map[string]int64 `json:"by_status"`
}

func (r *Repo) CampaignStats(ctx context.Context, campaignID uint) (CampaignStats, error) {
	var rows []struct {
		Status string
		Cnt    int64
		Total  decimal.Decimal
	}
	if err := r.db.WithContext(ctx).Model(&Donation{}).
		Select("status, COUNT(*) AS cnt, COALESCE(SUM(amount), 0) AS total").
		Where("campaign_id = ?", campaignID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return CampaignStats{}, err
	}

	out := CampaignStats{
		TotalRaised:   decimal.Zero,
		AverageAmount: decimal.Zero,
		ByStatus:      map[string]int64{},
	}
	var completed int64
	for _, row := range rows {
		out.ByStatus[row.Status] = row.Cnt
		if row.Status == StatusCompleted {
			out.TotalRaised = row.Total
			completed = row.Cnt
		}
	}
	if completed > 0 {
		out.AverageAmount = out.TotalRaised.Div(decimal.NewFromInt(completed)).Round(2)
	}

	if err := r.db.WithContext(ctx).Model(&Donation{}).
		Where("campaign_id = ? AND status = ?", campaignID, StatusCompleted).
		Distinct("user_id").
		Count(&out.DonorCount).Error; err != nil {
		return CampaignStats{}, err
	}
	return out, nil
}
