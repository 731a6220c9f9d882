// Package testutil builds migrated in-memory databases and fixtures for tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"csrgive.com/app/internal/database"
	"csrgive.com/app/internal/modules/campaigns"
	"csrgive.com/app/internal/modules/donations"
	"csrgive.com/app/internal/modules/users"
)

// NewDB returns a private, migrated SQLite database that lives for the test.
// A single connection serializes transactions the way row locks would.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_busy_timeout=5000", name, uuid.NewString()[:8])

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func SeedUser(t testing.TB, db *gorm.DB, role string) users.User {
	t.Helper()
	if role == "" {
		role = users.RoleEmployee
	}
	id := uuid.NewString()[:8]
	u := users.User{
		Name:  "User " + id,
		Email: "user-" + id + "@example.com",
		Role:  role,
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

type CampaignOpts struct {
	OwnerID   uint
	Target    string
	Current   string
	Status    string
	StartDate *time.Time
	EndDate   *time.Time
}

// SeedCampaign inserts an active USD campaign; zero opts fields get defaults
// (target 1000.00, current 0.00).
func SeedCampaign(t testing.TB, db *gorm.DB, o CampaignOpts) campaigns.Campaign {
	t.Helper()
	if o.Target == "" {
		o.Target = "1000.00"
	}
	if o.Current == "" {
		o.Current = "0"
	}
	if o.Status == "" {
		o.Status = campaigns.StatusActive
	}
	if o.OwnerID == 0 {
		o.OwnerID = SeedUser(t, db, users.RoleEmployee).ID
	}

	c := campaigns.Campaign{
		OwnerID:       o.OwnerID,
		Title:         "Campaign " + uuid.NewString()[:8],
		TargetAmount:  decimal.RequireFromString(o.Target),
		CurrentAmount: decimal.RequireFromString(o.Current),
		Currency:      "USD",
		Status:        o.Status,
		StartDate:     o.StartDate,
		EndDate:       o.EndDate,
	}
	require.NoError(t, db.Create(&c).Error)
	return c
}

// SeedDonation inserts a donation row directly, bypassing payment processing.
func SeedDonation(t testing.TB, db *gorm.DB, d donations.Donation) donations.Donation {
	t.Helper()
	if d.PaymentMethod == "" {
		d.PaymentMethod = donations.MethodCreditCard
	}
	if d.Status == "" {
		d.Status = donations.StatusPending
	}
	require.NoError(t, db.Create(&d).Error)
	return d
}

func Ptr[T any](v T) *T { return &v }
