package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"csrgive.com/app/internal/config"
	"csrgive.com/app/internal/database"
)

func migrateCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Long: `Runs GORM auto-migration for users, campaigns, donations,
payment_transactions, provider_events and audit_logs.

Connection settings come from the same env/.env/CONFIG_FILE sources as the web server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

			db, err := database.Open(cfg.Database, verbose, logger)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %d tables (%s)\n", len(database.Models()), cfg.Database.Driver)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log SQL statements")
	return cmd
}
