package donations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"csrgive.com/app/internal/modules/campaigns"
	"csrgive.com/app/internal/modules/users"
	"csrgive.com/app/internal/shared/money"
	"csrgive.com/app/internal/shared/slug"
	"csrgive.com/app/internal/storage"
)

var ErrNoReceipt = errors.New("receipt is only available for completed donations")

const anonymousDonor = "Anonymous"

type Receipt struct {
	ReceiptNumber   string          `json:"receipt_number"`
	DonationID      uint            `json:"donation_id"`
	IssuedAt        time.Time       `json:"issued_at"`
	DonatedAt       time.Time       `json:"donated_at"`
	DonorName       string          `json:"donor_name"`
	DonorEmail      string          `json:"donor_email"`
	CampaignID      uint            `json:"campaign_id"`
	CampaignTitle   string          `json:"campaign_title"`
	Amount          decimal.Decimal `json:"amount"`
	AmountFormatted string          `json:"amount_formatted"`
	Currency        string          `json:"currency"`
	PaymentMethod   string          `json:"payment_method"`
	TransactionID   string          `json:"transaction_id"`
	Message         string          `json:"message,omitempty"`
}

func ReceiptNumber(d Donation) string {
	return fmt.Sprintf("RCPT-%s-%06d", d.CreatedAt.UTC().Format("20060102"), d.ID)
}

// Receipt assembles the data a PDF/email renderer needs for one donation.
func (r *Repo) Receipt(ctx context.Context, donationID uint) (Receipt, error) {
	d, err := r.Get(ctx, donationID)
	if err != nil {
		return Receipt{}, err
	}
	if d.Status != StatusCompleted {
		return Receipt{}, ErrNoReceipt
	}

	var c campaigns.Campaign
	if err := r.db.WithContext(ctx).First(&c, "id = ?", d.CampaignID).Error; err != nil {
		return Receipt{}, fmt.Errorf("load campaign %d: %w", d.CampaignID, err)
	}
	var u users.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", d.UserID).Error; err != nil {
		return Receipt{}, fmt.Errorf("load donor %d: %w", d.UserID, err)
	}

	donor := u.Name
	if d.Anonymous {
		donor = anonymousDonor
	}
	rc := Receipt{
		ReceiptNumber:   ReceiptNumber(d),
		DonationID:      d.ID,
		IssuedAt:        time.Now().UTC(),
		DonatedAt:       d.CreatedAt,
		DonorName:       donor,
		DonorEmail:      u.Email,
		CampaignID:      c.ID,
		CampaignTitle:   c.Title,
		Amount:          d.Amount,
		AmountFormatted: money.Format(d.Amount, c.Currency),
		Currency:        c.Currency,
		PaymentMethod:   d.PaymentMethod,
	}
	if d.TransactionID != nil {
		rc.TransactionID = *d.TransactionID
	}
	if d.Message != nil {
		rc.Message = *d.Message
	}
	return rc, nil
}

// ReceiptArchiver writes receipts as JSON documents to the configured storage.
type ReceiptArchiver struct {
	repo    *Repo
	storage storage.Storage
	logger  *slog.Logger
}

func NewReceiptArchiver(repo *Repo, s storage.Storage) *ReceiptArchiver {
	return &ReceiptArchiver{repo: repo, storage: s, logger: slog.Default()}
}

func (a *ReceiptArchiver) SetLogger(logger *slog.Logger) { a.logger = logger }

func (a *ReceiptArchiver) Archive(ctx context.Context, donationID uint) (storage.PutResult, error) {
	rc, err := a.repo.Receipt(ctx, donationID)
	if err != nil {
		return storage.PutResult{}, err
	}
	body, err := json.MarshalIndent(rc, "", "  ")
	if err != nil {
		return storage.PutResult{}, err
	}

	res, err := a.storage.Put(ctx, bytes.NewReader(body), storage.PutInput{
		Filename:    rc.ReceiptNumber + "-" + slug.Make(rc.CampaignTitle, "campaign") + ".json",
		ContentType: "application/json",
		Size:        int64(len(body)),
		Folder:      rc.DonatedAt.UTC().Format("2006/01"),
		Metadata: map[string]string{
			"donation-id":    strconv.FormatUint(uint64(rc.DonationID), 10),
			"receipt-number": rc.ReceiptNumber,
		},
	})
	if err != nil {
		return storage.PutResult{}, fmt.Errorf("archive receipt %s: %w", rc.ReceiptNumber, err)
	}
	a.logger.InfoContext(ctx, "receipt archived", "donation_id", donationID, "key", res.Key)
	return res, nil
}

// Open streams a previously archived receipt by its storage key.
func (a *ReceiptArchiver) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return a.storage.Get(ctx, key)
}
