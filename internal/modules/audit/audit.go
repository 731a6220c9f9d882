package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActionDonationCreated  = "donation.created"
	ActionDonationFailed   = "donation.failed"
	ActionDonationRefunded = "donation.refunded"
	ActionReceiptArchived  = "donation.receipt_archived"
)

// Entry is an append-only audit row. Before/After hold JSON snapshots.
type Entry struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ActorID    *uint          `gorm:"index:ix_audit_logs_actor_id" json:"actor_id,omitempty"`
	Action     string         `gorm:"type:varchar(64);not null" json:"action"`
	EntityType string         `gorm:"type:varchar(32);not null;index:ix_audit_logs_entity,priority:1" json:"entity_type"`
	EntityID   uint           `gorm:"not null;index:ix_audit_logs_entity,priority:2" json:"entity_id"`
	Before     datatypes.JSON `gorm:"type:json" json:"before,omitempty"`
	After      datatypes.JSON `gorm:"type:json" json:"after,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (Entry) TableName() string { return "audit_logs" }

// Record is the input to Service.Record. Before and After are marshalled as JSON.
type Record struct {
	ActorID    *uint
	Action     string
	EntityType string
	EntityID   uint
	Before     any
	After      any
}

type Service struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, logger: slog.Default()}
}

func (s *Service) SetLogger(logger *slog.Logger) { s.logger = logger }

func (s *Service) Record(ctx context.Context, r Record) (Entry, error) {
	before, err := snapshot(r.Before)
	if err != nil {
		return Entry{}, fmt.Errorf("audit before: %w", err)
	}
	after, err := snapshot(r.After)
	if err != nil {
		return Entry{}, fmt.Errorf("audit after: %w", err)
	}

	e := Entry{
		ActorID:    r.ActorID,
		Action:     r.Action,
		EntityType: r.EntityType,
		EntityID:   r.EntityID,
		Before:     before,
		After:      after,
	}
	if err := s.db.WithContext(ctx).Create(&e).Error; err != nil {
		return Entry{}, err
	}
	return e, nil
}

// List returns entries for one entity, newest first. An empty entityType
// lists everything, capped at limit (default 100).
func (s *Service) List(ctx context.Context, entityType string, entityID uint, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := s.db.WithContext(ctx).Model(&Entry{})
	if entityType != "" {
		q = q.Where("entity_type = ?", entityType)
		if entityID != 0 {
			q = q.Where("entity_id = ?", entityID)
		}
	}

	var out []Entry
	err := q.Order("id DESC").Limit(limit).Find(&out).Error
	return out, err
}

func snapshot(v any) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
