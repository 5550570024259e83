package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/bridge"
	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/secrets"
)

// newBudgetsCommand lists budgets and their accounts, mainly to discover
// the ids the sync command wants.
func newBudgetsCommand(a *app) *cobra.Command {
	var (
		target   string
		timeout  time.Duration
		override secrets.Credentials
	)

	cmd := &cobra.Command{
		Use:   "budgets",
		Short: "List budgets and accounts on the configured backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			switch target {
			case targetActual:
				client, err := a.dialActual(ctx, timeout, override)
				if err != nil {
					return err
				}
				defer client.Close()

				budgets, err := client.Budgets(ctx)
				if err != nil {
					return err
				}
				for _, b := range budgets {
					fmt.Fprintf(out, "%s\t%s\n", b.ID, b.Name)
					accounts, err := client.Accounts(ctx, b.ID)
					if err != nil {
						fmt.Fprintf(out, "\t(accounts unavailable: %v)\n", err)
						continue
					}
					for _, acc := range accounts {
						fmt.Fprintf(out, "\t%s\t%s\n", acc.ID, acc.Name)
					}
				}
				return nil
			case targetYNAB:
				client, err := a.ynabClient()
				if err != nil {
					return err
				}
				budgets, err := client.Budgets(ctx)
				if err != nil {
					return err
				}
				for _, b := range budgets {
					fmt.Fprintf(out, "%s\t%s\n", b.ID, b.Name)
					accounts, err := client.Accounts(ctx, b.ID)
					if err != nil {
						fmt.Fprintf(out, "\t(accounts unavailable: %v)\n", err)
						continue
					}
					for _, acc := range accounts {
						fmt.Fprintf(out, "\t%s\t%s\n", acc.ID, acc.Name)
					}
				}
				return nil
			default:
				return fmt.Errorf("unknown target %q (want %s or %s)", target, targetActual, targetYNAB)
			}
		},
	}

	cmd.Flags().StringVar(&target, "target", targetActual, "backend to list: actual or ynab")
	cmd.Flags().DurationVar(&timeout, "timeout", bridge.DefaultTimeout, "per-call worker timeout")
	cmd.Flags().StringVar(&override.URL, "url", "", "Actual server URL (overrides stored credentials)")
	cmd.Flags().StringVar(&override.Password, "password", "", "Actual server password (overrides stored credentials)")

	return cmd
}
