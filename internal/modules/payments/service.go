package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"csrgive.com/app/internal/modules/campaigns"
	"csrgive.com/app/internal/modules/donations"
)

// Service owns the provider registry and the payment ledger. It is built once
// at startup and shared by handlers; all methods are safe for concurrent use.
type Service struct {
	db       *gorm.DB
	logger   *slog.Logger
	currency string

	mu              sync.RWMutex
	providers       map[string]Provider
	defaultProvider string
}

func NewService(db *gorm.DB, defaultProvider, currency string) *Service {
	if currency == "" {
		currency = "USD"
	}
	return &Service{
		db:              db,
		logger:          slog.Default(),
		currency:        currency,
		providers:       map[string]Provider{},
		defaultProvider: defaultProvider,
	}
}

func (s *Service) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// RegisterProvider adds p under name, replacing any previous entry.
func (s *Service) RegisterProvider(name string, p Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[name] = p
}

// SetProvider changes the default provider used when a call names none.
func (s *Service) SetProvider(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.providers[name]; !ok {
		return fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	s.defaultProvider = name
	return nil
}

// Provider resolves name, or the default provider when name is empty.
func (s *Service) Provider(name string) (Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if name == "" {
		if s.defaultProvider == "" {
			return nil, ErrProviderNotConfigured
		}
		p, ok := s.providers[s.defaultProvider]
		if !ok {
			return nil, fmt.Errorf("%w: default provider %q is not registered", ErrProviderNotConfigured, s.defaultProvider)
		}
		return p, nil
	}

	p, ok := s.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	return p, nil
}

func (s *Service) Providers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.providers))
	for n := range s.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *Service) Currency() string { return s.currency }

// ProcessPayment charges d through the named (or default) provider. Only a
// pending donation can be charged; completed and failed are terminal, so a
// second call returns ErrNotPending without reaching the provider. Invalid
// payment data yields a failed Result with no writes. Otherwise the provider
// call, the ledger row, the donation status and the campaign total commit in
// one transaction. On success d is updated in place.
func (s *Service) ProcessPayment(ctx context.Context, d *donations.Donation, data PaymentData, providerName string) (Result, error) {
	if d.Status != donations.StatusPending {
		return Result{}, fmt.Errorf("%w: donation %d is %s", ErrNotPending, d.ID, d.Status)
	}

	p, err := s.Provider(providerName)
	if err != nil {
		return Result{}, err
	}

	if !p.ValidatePaymentData(data) {
		return NewFailure(NewTransactionID("txn"), "", ErrInvalidPaymentData.Error(), ResponseData{
			Provider:  p.Name(),
			Amount:    d.Amount,
			Currency:  s.currency,
			Status:    TxStatusFailed,
			Timestamp: time.Now().UTC(),
		}), nil
	}

	var res Result
	donStatus := donations.StatusFailed

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// d may be a stale copy; the locked row decides.
		var cur donations.Donation
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&cur, "id = ?", d.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return donations.ErrNotFound
			}
			return err
		}
		if cur.Status != donations.StatusPending {
			return fmt.Errorf("%w: donation %d is %s", ErrNotPending, cur.ID, cur.Status)
		}

		r, err := p.ProcessPayment(ctx, ChargeRequest{Donation: cur, Data: data, Currency: s.currency})
		if err != nil {
			return fmt.Errorf("%s: process payment: %w", p.Name(), err)
		}
		res = r

		txStatus := TxStatusFailed
		if r.Success {
			txStatus = TxStatusCompleted
			donStatus = donations.StatusCompleted
		}

		payload, err := json.Marshal(r.Response)
		if err != nil {
			return fmt.Errorf("encode response data: %w", err)
		}

		now := time.Now()
		if err := upsertTransaction(ctx, tx, PaymentTransaction{
			DonationID:            cur.ID,
			Provider:              p.Name(),
			ExternalTransactionID: r.LedgerID(),
			Amount:                cur.Amount,
			Currency:              s.currency,
			Status:                txStatus,
			ResponseData:          datatypes.JSON(payload),
		}, now); err != nil {
			return err
		}

		if err := tx.WithContext(ctx).Model(&donations.Donation{}).
			Where("id = ? AND status = ?", cur.ID, donations.StatusPending).
			Updates(map[string]any{
				"status":         donStatus,
				"transaction_id": r.TransactionID,
				"updated_at":     now,
			}).Error; err != nil {
			return err
		}

		if !r.Success {
			return nil
		}
		return creditCampaign(ctx, tx, cur.CampaignID, cur.Amount, now)
	})
	if err != nil {
		return Result{}, err
	}

	txID := res.TransactionID
	d.Status = donStatus
	d.TransactionID = &txID

	s.logger.InfoContext(ctx, "payment processed",
		"donation_id", d.ID,
		"provider", p.Name(),
		"success", res.Success,
		"transaction_id", res.TransactionID,
	)
	return res, nil
}

// TransactionFor returns the ledger row for a donation.
func (s *Service) TransactionFor(ctx context.Context, donationID uint) (PaymentTransaction, error) {
	var pt PaymentTransaction
	err := s.db.WithContext(ctx).First(&pt, "donation_id = ?", donationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PaymentTransaction{}, ErrNoTransaction
	}
	return pt, err
}

// HandleWebhook delegates parsing to the named provider. ok is false when the
// payload is not a shape the provider recognizes.
func (s *Service) HandleWebhook(providerName string, body []byte) (Result, bool, error) {
	if providerName == "" {
		return Result{}, false, ErrProviderNotFound
	}
	p, err := s.Provider(providerName)
	if err != nil {
		return Result{}, false, err
	}
	r, ok := p.HandleWebhook(body)
	return r, ok, nil
}

// upsertTransaction inserts the ledger row for a donation, or overwrites the
// one left by an earlier attempt. The conflict is resolved by the unique
// donation_id index, so concurrent first writes cannot both insert.
func upsertTransaction(ctx context.Context, tx *gorm.DB, row PaymentTransaction, now time.Time) error {
	row.CreatedAt = now
	row.UpdatedAt = now
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "donation_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"provider",
				"external_transaction_id",
				"amount",
				"currency",
				"status",
				"response_data",
				"updated_at",
			}),
		}).
		Create(&row).Error
}

// creditCampaign adds amount to the campaign and completes it in the same
// transaction once the target is met. The completion is a conditional update
// so it is decided on the row the database holds, not on a value read earlier.
func creditCampaign(ctx context.Context, tx *gorm.DB, campaignID uint, amount decimal.Decimal, now time.Time) error {
	res := tx.WithContext(ctx).Model(&campaigns.Campaign{}).
		Where("id = ?", campaignID).
		Updates(map[string]any{
			"current_amount": gorm.Expr("current_amount + CAST(? AS DECIMAL(12,2))", amount),
			"updated_at":     now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return campaigns.ErrNotFound
	}

	return tx.WithContext(ctx).Model(&campaigns.Campaign{}).
		Where("id = ? AND status = ? AND current_amount >= target_amount", campaignID, campaigns.StatusActive).
		Updates(map[string]any{
			"status":     campaigns.StatusCompleted,
			"updated_at": now,
		}).Error
}

// debitCampaign reverses creditCampaign and reopens a completed campaign that
// fell back below target.
func debitCampaign(ctx context.Context, tx *gorm.DB, campaignID uint, amount decimal.Decimal, now time.Time) error {
	res := tx.WithContext(ctx).Model(&campaigns.Campaign{}).
		Where("id = ?", campaignID).
		Updates(map[string]any{
			"current_amount": gorm.Expr("current_amount - CAST(? AS DECIMAL(12,2))", amount),
			"updated_at":     now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return campaigns.ErrNotFound
	}

	return tx.WithContext(ctx).Model(&campaigns.Campaign{}).
		Where("id = ? AND status = ? AND current_amount < target_amount", campaignID, campaigns.StatusCompleted).
		Updates(map[string]any{
			"status":     campaigns.StatusActive,
			"updated_at": now,
		}).Error
}
