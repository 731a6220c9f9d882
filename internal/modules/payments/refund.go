package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"csrgive.com/app/internal/modules/donations"
)

// RefundPayment reverses a completed donation. The provider is the one named,
// or the one that took the payment. The donation row is re-read under lock so
// two concurrent refunds cannot both pass the completed gate. A declined
// refund is returned as a failed Result with no writes.
func (s *Service) RefundPayment(ctx context.Context, d *donations.Donation, providerName, reason string) (Result, error) {
	if d.Status != donations.StatusCompleted {
		return Result{}, ErrNotRefundable
	}

	p, err := s.refundProvider(ctx, d.ID, providerName)
	if err != nil {
		return Result{}, err
	}

	var res Result
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur donations.Donation
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&cur, "id = ?", d.ID).Error; err != nil {
			return err
		}
		if cur.Status != donations.StatusCompleted {
			return ErrNotRefundable
		}

		var pt PaymentTransaction
		err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&pt, "donation_id = ?", cur.ID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		currency := pt.Currency
		if currency == "" {
			currency = s.currency
		}

		r, err := p.RefundPayment(ctx, RefundRequest{
			Donation:   cur,
			ExternalID: pt.ExternalTransactionID,
			Currency:   currency,
			Reason:     reason,
		})
		if err != nil {
			return fmt.Errorf("%s: refund payment: %w", p.Name(), err)
		}
		res = r
		if !r.Success {
			return nil
		}

		now := time.Now()
		if err := tx.WithContext(ctx).Model(&donations.Donation{}).
			Where("id = ?", cur.ID).
			Updates(map[string]any{
				"status":     donations.StatusRefunded,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		if pt.ID != 0 {
			merged, err := mergeRefund(pt.ResponseData, r, cur, reason, now)
			if err != nil {
				return err
			}
			if err := tx.WithContext(ctx).Model(&PaymentTransaction{}).
				Where("id = ?", pt.ID).
				Updates(map[string]any{
					"status":        TxStatusRefunded,
					"response_data": merged,
					"updated_at":    now,
				}).Error; err != nil {
				return err
			}
		}

		return debitCampaign(ctx, tx, cur.CampaignID, cur.Amount, now)
	})
	if err != nil {
		return Result{}, err
	}

	if res.Success {
		d.Status = donations.StatusRefunded
	}
	s.logger.InfoContext(ctx, "refund processed",
		"donation_id", d.ID,
		"provider", p.Name(),
		"success", res.Success,
	)
	return res, nil
}

func (s *Service) refundProvider(ctx context.Context, donationID uint, name string) (Provider, error) {
	if name != "" {
		return s.Provider(name)
	}
	pt, err := s.TransactionFor(ctx, donationID)
	if err != nil {
		return nil, err
	}
	return s.Provider(pt.Provider)
}

// mergeRefund adds refund metadata to the stored payment envelope, keeping
// the original charge payload intact.
func mergeRefund(stored datatypes.JSON, r Result, d donations.Donation, reason string, now time.Time) (datatypes.JSON, error) {
	var env ResponseData
	if len(stored) > 0 {
		if err := json.Unmarshal(stored, &env); err != nil {
			return nil, fmt.Errorf("decode stored response data: %w", err)
		}
	}

	meta := RefundMetadata{
		RefundID:   r.LedgerID(),
		Amount:     d.Amount,
		Reason:     reason,
		RefundedAt: now.UTC(),
	}
	if r.Response.Refund != nil {
		meta = *r.Response.Refund
	}
	env.Refund = &meta
	env.Status = TxStatusRefunded

	b, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode response data: %w", err)
	}
	return datatypes.JSON(b), nil
}
