// Package commands wires the CLI surface: convert, sync, budgets, auth.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/buildinfo"
	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/config"
	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/logger"
	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/secrets"
)

// app carries state shared by all subcommands, resolved once before any
// of them runs.
type app struct {
	settings config.Settings
	secrets  *secrets.Store
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:     "nbg-ynab-export",
		Short:   "Convert NBG and Revolut bank exports for YNAB and Actual Budget",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.SettingsDir()
			if err != nil {
				return err
			}
			settings, err := config.Load(cmd.Context(), dir)
			if err != nil {
				return err
			}
			logger.Init(settings.LogLevel)
			a.settings = settings
			a.secrets = secrets.NewStore(dir)
			return nil
		},
	}

	rootCmd.AddCommand(newConvertCommand(a))
	rootCmd.AddCommand(newSyncCommand(a))
	rootCmd.AddCommand(newBudgetsCommand(a))
	rootCmd.AddCommand(newAuthCommand(a))

	return rootCmd
}
