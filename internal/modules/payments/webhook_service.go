package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WebhookService persists parsed provider notifications. It is a record of
// what providers reported and never changes donation or campaign state.
type WebhookService struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewWebhookService(db *gorm.DB) *WebhookService {
	return &WebhookService{db: db, logger: slog.Default()}
}

func (s *WebhookService) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

type RecordOutcome struct {
	EventID       string `json:"event_id"`
	Duplicate     bool   `json:"duplicate"`
	TransactionID *uint  `json:"payment_transaction_id,omitempty"`
}

// Record stores the event once per (provider, event id) and links it to the
// ledger row with the same external transaction id, merging the webhook
// metadata into that row's response payload.
func (s *WebhookService) Record(ctx context.Context, providerName string, r Result, rawBody []byte) (RecordOutcome, error) {
	meta := r.Response.Webhook
	if meta == nil || meta.EventID == "" {
		return RecordOutcome{}, ErrMissingEventID
	}
	out := RecordOutcome{EventID: meta.EventID}

	payload := rawBody
	if !json.Valid(payload) {
		payload, _ = json.Marshal(map[string]string{"raw": string(rawBody)})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seen int64
		if err := tx.WithContext(ctx).Model(&ProviderEvent{}).
			Where("provider = ? AND event_id = ?", providerName, meta.EventID).
			Count(&seen).Error; err != nil {
			return err
		}
		if seen > 0 {
			out.Duplicate = true
			return nil
		}

		now := time.Now()
		pe := ProviderEvent{
			ID:          uuid.NewString(),
			Provider:    providerName,
			EventID:     meta.EventID,
			EventType:   meta.EventType,
			PayloadJSON: datatypes.JSON(payload),
			ReceivedAt:  now,
		}

		// dedupe: unique(provider,event_id) catches a concurrent delivery
		if err := tx.WithContext(ctx).Create(&pe).Error; err != nil {
			if isDup(err) {
				out.Duplicate = true
				return nil
			}
			return err
		}

		var pt PaymentTransaction
		err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&pt, "provider = ? AND external_transaction_id = ?", providerName, r.LedgerID()).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			msg := "no matching payment transaction"
			return tx.WithContext(ctx).Model(&ProviderEvent{}).
				Where("id = ?", pe.ID).
				Updates(map[string]any{"process_error": msg}).Error
		}
		if err != nil {
			return err
		}

		merged, err := mergeWebhook(pt.ResponseData, *meta)
		if err != nil {
			msg := truncate(err.Error(), 250)
			return tx.WithContext(ctx).Model(&ProviderEvent{}).
				Where("id = ?", pe.ID).
				Updates(map[string]any{"process_error": msg}).Error
		}
		if err := tx.WithContext(ctx).Model(&PaymentTransaction{}).
			Where("id = ?", pt.ID).
			Updates(map[string]any{"response_data": merged, "updated_at": now}).Error; err != nil {
			return err
		}

		processed := now
		if err := tx.WithContext(ctx).Model(&ProviderEvent{}).
			Where("id = ?", pe.ID).
			Updates(map[string]any{"payment_transaction_id": pt.ID, "processed_at": &processed}).Error; err != nil {
			return err
		}
		id := pt.ID
		out.TransactionID = &id
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record provider event", "provider", providerName, "event_id", meta.EventID, "err", err)
		return RecordOutcome{}, err
	}

	if out.Duplicate {
		s.logger.InfoContext(ctx, "webhook event deduplicated", "provider", providerName, "event_id", meta.EventID, "type", meta.EventType)
	} else {
		s.logger.InfoContext(ctx, "webhook event recorded", "provider", providerName, "event_id", meta.EventID, "type", meta.EventType, "linked", out.TransactionID != nil)
	}
	return out, nil
}

func mergeWebhook(stored datatypes.JSON, meta WebhookMetadata) (datatypes.JSON, error) {
	var env ResponseData
	if len(stored) > 0 {
		if err := json.Unmarshal(stored, &env); err != nil {
			return nil, fmt.Errorf("decode stored response data: %w", err)
		}
	}
	env.Webhook = &meta
	b, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func isDup(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
