package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edvin/siteinstaller/internal/db"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending history database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.HistoryDatabaseURL == "" {
				return fmt.Errorf("HISTORY_DATABASE_URL is not set")
			}
			logger.Info().Msg("running history database migrations")
			if err := db.RunMigrations(cfg.HistoryDatabaseURL); err != nil {
				return err
			}
			logger.Info().Msg("history database is up to date")
			return nil
		},
	}
}
