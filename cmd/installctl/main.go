package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/edvin/siteinstaller/internal/config"
	"github.com/edvin/siteinstaller/internal/logging"
)

var (
	verbose bool
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "installctl",
	Short: "Operator tool for the site installer",
	Long: `installctl runs site provisioning outside the HTTP service: provision
tenants from an archive already in the staging directory, rewrite the
database settings of a single wp-config.php, or migrate the history database.

Configuration comes from the same environment variables as installer-api,
optionally loaded from a dotenv file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file")

	rootCmd.AddCommand(newProvisionCommand())
	rootCmd.AddCommand(newRewriteConfigCommand())
	rootCmd.AddCommand(newMigrateCommand())
}

// loadConfig reads the environment and builds a logger on stderr so stdout
// stays reserved for command output.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	cfg.ServiceName = "installctl"
	logger := logging.NewLogger(cfg).Output(zerolog.ConsoleWriter{Out: os.Stderr})
	return cfg, logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
