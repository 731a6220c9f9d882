package donations_test

import (
	"context"
	"encoding/json"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csrgive.com/app/internal/modules/donations"
	"csrgive.com/app/internal/storage"
	"csrgive.com/app/internal/testutil"
)

func TestRepo_Stats(t *testing.T) {
	db := testutil.NewDB(t)
	repo := donations.NewRepo(db)
	ctx := context.Background()

	u := testutil.SeedUser(t, db, "")
	other := testutil.SeedUser(t, db, "")
	c1 := testutil.SeedCampaign(t, db, testutil.CampaignOpts{})
	c2 := testutil.SeedCampaign(t, db, testutil.CampaignOpts{})

	seed := func(c, user uint, amount, status string) {
		testutil.SeedDonation(t, db, donations.Donation{CampaignID: c, UserID: user, Amount: decimal.RequireFromString(amount), Status: status})
	}
	seed(c1.ID, u.ID, "10", donations.StatusCompleted)
	seed(c1.ID, u.ID, "20", donations.StatusCompleted)
	seed(c2.ID, u.ID, "30", donations.StatusCompleted)
	seed(c2.ID, u.ID, "99", donations.StatusFailed)
	seed(c1.ID, other.ID, "60", donations.StatusCompleted)

	us, err := repo.UserStats(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(60).Equal(us.TotalDonated))
	assert.Equal(t, int64(3), us.DonationCount)
	assert.Equal(t, int64(2), us.CampaignsSupported)

	cs, err := repo.CampaignStats(ctx, c1.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(90).Equal(cs.TotalRaised))
	assert.Equal(t, int64(2), cs.DonorCount)
	assert.True(t, decimal.NewFromInt(30).Equal(cs.AverageAmount))
	assert.Equal(t, int64(3), cs.ByStatus[donations.StatusCompleted])

	list, err := repo.ListByUser(ctx, donations.ListByUserParams{UserID: u.ID, Status: donations.StatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Total)
}

func TestRepo_Receipt(t *testing.T) {
	db := testutil.NewDB(t)
	repo := donations.NewRepo(db)
	ctx := context.Background()

	u := testutil.SeedUser(t, db, "")
	c := testutil.SeedCampaign(t, db, testutil.CampaignOpts{})
	txID := "mock_1"
	d := testutil.SeedDonation(t, db, donations.Donation{
		CampaignID:    c.ID,
		UserID:        u.ID,
		Amount:        decimal.RequireFromString("12.5"),
		Status:        donations.StatusCompleted,
		TransactionID: &txID,
		Anonymous:     true,
		CreatedAt:     time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
	})

	rc, err := repo.Receipt(ctx, d.ID)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^RCPT-20260304-\d{6}$`), rc.ReceiptNumber)
	assert.Equal(t, "Anonymous", rc.DonorName)
	assert.Equal(t, "$12.50", rc.AmountFormatted)
	assert.Equal(t, "mock_1", rc.TransactionID)
	assert.Equal(t, c.Title, rc.CampaignTitle)

	pending := testutil.SeedDonation(t, db, donations.Donation{CampaignID: c.ID, UserID: u.ID, Amount: decimal.NewFromInt(1)})
	_, err = repo.Receipt(ctx, pending.ID)
	assert.ErrorIs(t, err, donations.ErrNoReceipt)

	_, err = repo.Receipt(ctx, 9999)
	assert.ErrorIs(t, err, donations.ErrNotFound)
}

func TestReceiptArchiver_Archive(t *testing.T) {
	db := testutil.NewDB(t)
	u := testutil.SeedUser(t, db, "")
	c := testutil.SeedCampaign(t, db, testutil.CampaignOpts{})
	d := testutil.SeedDonation(t, db, donations.Donation{CampaignID: c.ID, UserID: u.ID, Amount: decimal.NewFromInt(5), Status: donations.StatusCompleted})

	st := storage.NewLocal(t.TempDir(), "/receipts")
	a := donations.NewReceiptArchiver(donations.NewRepo(db), st)

	res, err := a.Archive(context.Background(), d.ID)
	require.NoError(t, err)
	folder := d.CreatedAt.UTC().Format("2006/01") + "/"
	assert.True(t, strings.HasPrefix(res.Key, folder+"RCPT-"), res.Key)
	assert.True(t, strings.HasSuffix(res.Key, ".json"))

	body, err := st.Get(context.Background(), res.Key)
	require.NoError(t, err)
	defer body.Close()
	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	var rc donations.Receipt
	require.NoError(t, json.Unmarshal(raw, &rc))
	assert.Equal(t, d.ID, rc.DonationID)
}
