package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edvin/siteinstaller/internal/db"
	"github.com/edvin/siteinstaller/internal/history"
	"github.com/edvin/siteinstaller/internal/installer"
	"github.com/edvin/siteinstaller/internal/mysql"
)

func newProvisionCommand() *cobra.Command {
	var (
		archiveFile       string
		seedFile          string
		accounts          string
		generatePasswords bool
	)

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision accounts from a staged archive",
		Long: `Provision runs one batch for the given accounts, in order, using an
archive that is already in the staging directory (TEMP_PATHS). The batch
result is printed as JSON.

Without --generate-passwords each account name doubles as database name,
username and password.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := installer.ParseAccounts(accounts)
			if len(ids) == 0 {
				return fmt.Errorf("--accounts is required")
			}
			for _, id := range ids {
				if err := installer.ValidateIdentifier(id); err != nil {
					return err
				}
			}
			if err := installer.ValidateSeedName(seedFile); err != nil {
				return err
			}
			if err := installer.ValidateArchiveName(archiveFile); err != nil {
				return err
			}
			return runProvision(cmd, archiveFile, seedFile, ids, generatePasswords)
		},
	}

	cmd.Flags().StringVar(&archiveFile, "archive", "", "Archive file name in the staging directory")
	cmd.Flags().StringVar(&seedFile, "seed", "", "Seed SQL base name inside the archive, without .sql")
	cmd.Flags().StringVar(&accounts, "accounts", "", "Comma-separated account identifiers")
	cmd.Flags().BoolVar(&generatePasswords, "generate-passwords", false, "Use random database passwords")
	cmd.MarkFlagRequired("archive")
	cmd.MarkFlagRequired("seed")
	cmd.MarkFlagRequired("accounts")

	return cmd
}

func runProvision(cmd *cobra.Command, archiveFile, seedFile string, ids []string, generatePasswords bool) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx := cmd.Context()

	dc, err := mysql.DriverConfig(cfg)
	if err != nil {
		return err
	}
	pool, err := mysql.Open(logger, dc)
	if err != nil {
		return err
	}
	defer pool.Close()

	opts := []installer.Option{installer.WithLogger(logger)}
	if generatePasswords {
		opts = append(opts, installer.WithCredentials(installer.GeneratedPassword))
	}
	if cfg.HistoryDatabaseURL != "" {
		historyPool, err := db.NewHistoryPool(ctx, cfg.HistoryDatabaseURL)
		if err != nil {
			return err
		}
		defer historyPool.Close()
		opts = append(opts, installer.WithRecorder(history.NewPGRecorder(historyPool)))
	}

	pipeline := installer.New(installer.Config{
		StagingDir:      cfg.StagingDir,
		ExportRoot:      cfg.ExportRoot,
		MaxExtractBytes: cfg.MaxExtractBytes,
	}, opts...)

	session := pool.Session()
	defer session.Close()

	result := pipeline.RunBatch(ctx, session, archiveFile, seedFile, ids)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}
	if len(result.Canceled) > 0 {
		return fmt.Errorf("%d of %d accounts canceled", len(result.Canceled), len(ids))
	}
	return nil
}
