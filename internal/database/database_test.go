package database

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csrgive.com/app/internal/config"
)

func TestOpenAndMigrate_SQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "app.db")
	db, err := Open(config.DatabaseConfig{Driver: "sqlite", DSN: dsn, MaxOpenConns: 1}, false, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	require.NoError(t, Migrate(db))
	for _, table := range []string{"users", "campaigns", "donations", "payment_transactions", "provider_events", "audit_logs"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.Len(t, Models(), 6)

	// idempotent
	require.NoError(t, Migrate(db))
}

func TestOpen_ConfigErrors(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "sqlite"}, false, nil)
	assert.ErrorContains(t, err, "DB_DSN")

	_, err = Open(config.DatabaseConfig{Driver: "oracle", DSN: "x"}, false, nil)
	assert.ErrorContains(t, err, "unsupported")
}
