package giving

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"csrgive.com/app/internal/modules/audit"
	"csrgive.com/app/internal/modules/campaigns"
	"csrgive.com/app/internal/modules/donations"
	"csrgive.com/app/internal/modules/payments"
	"csrgive.com/app/internal/modules/users"
)

type Notifier interface {
	DonationConfirmation(ctx context.Context, donor users.User, d donations.Donation, c campaigns.Campaign) error
	CampaignOwnerNotice(ctx context.Context, owner, donor users.User, d donations.Donation, c campaigns.Campaign) error
	RefundNotice(ctx context.Context, donor users.User, d donations.Donation, c campaigns.Campaign, reason string) error
}

type Auditor interface {
	Record(ctx context.Context, r audit.Record) (audit.Entry, error)
}

// Service runs the donation lifecycle: create and charge, then refund.
type Service struct {
	db           *gorm.DB
	donations    *donations.Repo
	campaigns    *campaigns.Repo
	users        *users.Repo
	payments     *payments.Service
	notifier     Notifier
	auditor      Auditor
	refundWindow time.Duration

	logger *slog.Logger
	now    func() time.Time
}

func NewService(db *gorm.DB, pay *payments.Service, notifier Notifier, auditor Auditor, refundWindow time.Duration) *Service {
	return &Service{
		db:           db,
		donations:    donations.NewRepo(db),
		campaigns:    campaigns.NewRepo(db),
		users:        users.NewRepo(db),
		payments:     pay,
		notifier:     notifier,
		auditor:      auditor,
		refundWindow: refundWindow,
		logger:       slog.Default(),
		now:          time.Now,
	}
}

func (s *Service) SetLogger(logger *slog.Logger) { s.logger = logger }

// SetClock overrides time.Now for campaign date and refund window checks.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

type CreateDonationInput struct {
	CampaignID    uint
	Amount        decimal.Decimal
	PaymentMethod string
	PaymentToken  string
	Provider      string // empty uses the default provider
	Anonymous     bool
	Message       *string
}

type CreateDonationResult struct {
	Donation donations.Donation `json:"donation"`
	Payment  payments.Result    `json:"payment"`
}

// CreateDonation validates the campaign, commits a pending donation and then
// charges it. A declined or invalid payment is not an error: the donation is
// marked failed and returned with the failed Result. An error from the
// payment step also marks the donation failed, and is returned.
func (s *Service) CreateDonation(ctx context.Context, in CreateDonationInput, donor users.User) (CreateDonationResult, error) {
	if !in.Amount.IsPositive() || !in.Amount.Equal(in.Amount.Round(2)) {
		return CreateDonationResult{}, ErrInvalidAmount
	}

	c, err := s.campaigns.Get(ctx, in.CampaignID)
	if err != nil {
		return CreateDonationResult{}, err
	}
	if err := c.CheckDonatable(s.now()); err != nil {
		return CreateDonationResult{}, err
	}
	if _, err := s.payments.Provider(in.Provider); err != nil {
		return CreateDonationResult{}, err
	}

	d := donations.Donation{
		CampaignID:    c.ID,
		UserID:        donor.ID,
		Amount:        in.Amount,
		PaymentMethod: in.PaymentMethod,
		Status:        donations.StatusPending,
		Anonymous:     in.Anonymous,
		Message:       in.Message,
	}
	if err := s.db.WithContext(ctx).Create(&d).Error; err != nil {
		return CreateDonationResult{}, fmt.Errorf("create donation: %w", err)
	}

	res, err := s.payments.ProcessPayment(ctx, &d, payments.PaymentData{
		PaymentMethod: in.PaymentMethod,
		Token:         in.PaymentToken,
	}, in.Provider)
	if err != nil {
		s.logger.ErrorContext(ctx, "payment processing failed", "donation_id", d.ID, "campaign_id", c.ID, "err", err)
		s.markFailed(ctx, &d)
		s.record(ctx, &donor.ID, audit.ActionDonationFailed, d.ID, nil, d)
		return CreateDonationResult{Donation: d}, fmt.Errorf("process payment for donation %d: %w", d.ID, err)
	}
	if !res.Success {
		s.markFailed(ctx, &d)
	}

	if fresh, err := s.donations.Get(ctx, d.ID); err == nil {
		d = fresh
	}

	if res.Success {
		s.notifyCreated(ctx, donor, d, c.ID)
		s.record(ctx, &donor.ID, audit.ActionDonationCreated, d.ID, nil, d)
	} else {
		s.record(ctx, &donor.ID, audit.ActionDonationFailed, d.ID, nil, d)
	}
	return CreateDonationResult{Donation: d, Payment: res}, nil
}

// markFailed moves a still-pending donation to failed. It never touches a
// donation that payment processing already settled.
func (s *Service) markFailed(ctx context.Context, d *donations.Donation) {
	err := s.db.WithContext(ctx).Model(&donations.Donation{}).
		Where("id = ? AND status = ?", d.ID, donations.StatusPending).
		Updates(map[string]any{"status": donations.StatusFailed, "updated_at": s.now()}).Error
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to mark donation failed", "donation_id", d.ID, "err", err)
		return
	}
	if d.Status == donations.StatusPending {
		d.Status = donations.StatusFailed
	}
}

func (s *Service) notifyCreated(ctx context.Context, donor users.User, d donations.Donation, campaignID uint) {
	if s.notifier == nil {
		return
	}
	c, err := s.campaigns.Get(ctx, campaignID)
	if err != nil {
		s.logger.WarnContext(ctx, "notification skipped", "donation_id", d.ID, "err", err)
		return
	}

	if err := s.notifier.DonationConfirmation(ctx, donor, d, c); err != nil {
		s.logger.WarnContext(ctx, "donation confirmation not sent", "donation_id", d.ID, "err", err)
	}

	owner, err := s.users.Get(ctx, c.OwnerID)
	if err != nil {
		s.logger.WarnContext(ctx, "campaign owner notice skipped", "donation_id", d.ID, "owner_id", c.OwnerID, "err", err)
		return
	}
	if err := s.notifier.CampaignOwnerNotice(ctx, owner, donor, d, c); err != nil {
		s.logger.WarnContext(ctx, "campaign owner notice not sent", "donation_id", d.ID, "err", err)
	}
}

type RefundResult struct {
	Donation donations.Donation `json:"donation"`
	Payment  payments.Result    `json:"payment"`
}

// RefundDonation refunds a completed donation inside the refund window.
// Rejections perform no writes.
func (s *Service) RefundDonation(ctx context.Context, donationID uint, actor users.User, reason string) (RefundResult, error) {
	d, err := s.donations.Get(ctx, donationID)
	if err != nil {
		return RefundResult{}, err
	}
	if !d.IsRefundable() {
		return RefundResult{}, ErrNotRefundable
	}
	if s.now().After(d.RefundDeadline(s.refundWindow)) {
		return RefundResult{}, ErrRefundWindowExpired
	}

	before := d
	res, err := s.payments.RefundPayment(ctx, &d, "", reason)
	if errors.Is(err, payments.ErrNotRefundable) {
		return RefundResult{}, ErrNotRefundable
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "refund failed", "donation_id", d.ID, "err", err)
		return RefundResult{}, fmt.Errorf("refund donation %d: %w", d.ID, err)
	}
	if !res.Success {
		s.logger.WarnContext(ctx, "refund declined", "donation_id", d.ID, "error_message", res.ErrorMessage)
		return RefundResult{Donation: d, Payment: res}, ErrRefundDeclined
	}

	if fresh, err := s.donations.Get(ctx, d.ID); err == nil {
		d = fresh
	}
	s.record(ctx, &actor.ID, audit.ActionDonationRefunded, d.ID, before, map[string]any{"donation": d, "reason": reason})
	s.notifyRefunded(ctx, d, reason)
	return RefundResult{Donation: d, Payment: res}, nil
}

func (s *Service) notifyRefunded(ctx context.Context, d donations.Donation, reason string) {
	if s.notifier == nil {
		return
	}
	donor, err := s.users.Get(ctx, d.UserID)
	if err != nil {
		s.logger.WarnContext(ctx, "refund notice skipped", "donation_id", d.ID, "err", err)
		return
	}
	c, err := s.campaigns.Get(ctx, d.CampaignID)
	if err != nil {
		s.logger.WarnContext(ctx, "refund notice skipped", "donation_id", d.ID, "err", err)
		return
	}
	if err := s.notifier.RefundNotice(ctx, donor, d, c, reason); err != nil {
		s.logger.WarnContext(ctx, "refund notice not sent", "donation_id", d.ID, "err", err)
	}
}

func (s *Service) record(ctx context.Context, actorID *uint, action string, donationID uint, before, after any) {
	if s.auditor == nil {
		return
	}
	if _, err := s.auditor.Record(ctx, audit.Record{
		ActorID:    actorID,
		Action:     action,
		EntityType: "donation",
		EntityID:   donationID,
		Before:     before,
		After:      after,
	}); err != nil {
		s.logger.WarnContext(ctx, "audit record not written", "donation_id", donationID, "action", action, "err", err)
	}
}
