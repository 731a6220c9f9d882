package campaigns

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

type ListParams struct {
	Status   string // optional filter
	Page     int
	PageSize int
}

type ListResult struct {
	Items []Campaign `json:"items"`
	Total int64      `json:"total"`
}

func (r *Repo) Get(ctx context.Context, id uint) (Campaign, error) {
	var c Campaign
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Campaign{}, ErrNotFound
		}
		return Campaign{}, err
	}
	return c, nil
}

func (r *Repo) List(ctx context.Context, in ListParams) (ListResult, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	size := in.PageSize
	if size < 1 || size > 100 {
		size = 20
	}

	q := r.db.WithContext(ctx).Model(&Campaign{})
	if status := strings.TrimSpace(in.Status); status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return ListResult{}, err
	}

	var items []Campaign
	if err := q.Order("created_at DESC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&items).Error; err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total}, nil
}

// Create inserts a campaign; current_amount always starts at zero.
func (r *Repo) Create(ctx context.Context, c *Campaign) error {
	c.CurrentAmount = decimal.Zero
	if c.Status == "" {
		c.Status = StatusDraft
	}
	return r.db.WithContext(ctx).Create(c).Error
}
