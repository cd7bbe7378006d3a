package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edvin/siteinstaller/internal/installer"
	"github.com/edvin/siteinstaller/internal/wpconfig"
)

func newRewriteConfigCommand() *cobra.Command {
	var (
		file     string
		dbName   string
		dbUser   string
		password string
	)

	cmd := &cobra.Command{
		Use:   "rewrite-config",
		Short: "Point a wp-config.php at another database",
		Long: `Rewrite-config replaces the DB_NAME, DB_USER and DB_PASSWORD declarations
of a single wp-config.php in place. Declarations that do not use the
define( 'KEY', 'value' ); form are left untouched and reported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := installer.ValidateIdentifier(dbUser); err != nil {
				return err
			}
			if err := installer.ValidatePassword(password); err != nil {
				return err
			}
			if err := installer.ValidateDatabaseName(dbName); err != nil {
				return err
			}

			keys, err := wpconfig.NewRewriter().RewriteFile(file, wpconfig.Settings{
				DBName:     dbName,
				DBUser:     dbUser,
				DBPassword: password,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(keys) == 0 {
				fmt.Fprintf(out, "%s: no database declarations found, file unchanged\n", file)
				return nil
			}
			fmt.Fprintf(out, "%s: rewrote %s\n", file, strings.Join(keys, ", "))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", wpconfig.FileName, "Path to wp-config.php")
	cmd.Flags().StringVar(&dbName, "db-name", "", "Database name")
	cmd.Flags().StringVar(&dbUser, "db-user", "", "Database username")
	cmd.Flags().StringVar(&password, "db-password", "", "Database password")
	cmd.MarkFlagRequired("db-name")
	cmd.MarkFlagRequired("db-user")
	cmd.MarkFlagRequired("db-password")

	return cmd
}
