package campaigns_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csrgive.com/app/internal/modules/campaigns"
	"csrgive.com/app/internal/testutil"
)

func TestRepo_CreateGetList(t *testing.T) {
	db := testutil.NewDB(t)
	repo := campaigns.NewRepo(db)
	ctx := context.Background()
	owner := testutil.SeedUser(t, db, "")

	c := campaigns.Campaign{
		OwnerID:       owner.ID,
		Title:         "Books for schools",
		TargetAmount:  decimal.NewFromInt(500),
		CurrentAmount: decimal.NewFromInt(499),
		Currency:      "USD",
	}
	require.NoError(t, repo.Create(ctx, &c))
	assert.Equal(t, campaigns.StatusDraft, c.Status)

	got, err := repo.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentAmount.IsZero(), "current amount starts at zero")

	_, err = repo.Get(ctx, 9999)
	assert.ErrorIs(t, err, campaigns.ErrNotFound)

	testutil.SeedCampaign(t, db, testutil.CampaignOpts{OwnerID: owner.ID})
	testutil.SeedCampaign(t, db, testutil.CampaignOpts{OwnerID: owner.ID})

	all, err := repo.List(ctx, campaigns.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)

	active, err := repo.List(ctx, campaigns.ListParams{Status: campaigns.StatusActive, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), active.Total)
	assert.Len(t, active.Items, 1)
}
