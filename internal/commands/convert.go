package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/convert"
	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/dedupe"
)

func newConvertCommand(a *app) *cobra.Command {
	var (
		previous    string
		outputDir   string
		cutoffDedup bool
		noOutput    bool
		today       bool
	)

	cmd := &cobra.Command{
		Use:   "convert <input.csv>",
		Short: "Convert a bank export to the canonical CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := convert.Options{
				PreviousPath: previous,
				Policy:       a.dedupePolicy(cmd, cutoffDedup),
				OutputDir:    outputDir,
				ForceToday:   today,
				NoOutput:     noOutput,
			}
			if opts.OutputDir == "" {
				opts.OutputDir = a.settings.OutputDir
			}

			result, err := convert.Run(args[0], opts)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d transactions (%d duplicates dropped)\n",
				result.Format, len(result.Transactions), result.Duplicates)
			if result.OutputPath != "" {
				fmt.Fprintln(cmd.OutOrStdout(), result.OutputPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&previous, "previous", "", "earlier output CSV to dedupe against")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "directory for the output CSV (default: next to the input)")
	cmd.Flags().BoolVar(&cutoffDedup, "cutoff-dedup", false, "also drop rows dated before the newest reference row")
	cmd.Flags().BoolVar(&noOutput, "no-output", false, "convert and report without writing a file")
	cmd.Flags().BoolVar(&today, "today", false, "stamp the output filename with today's date")

	return cmd
}

// dedupePolicy folds the flag and the configured default together: the
// flag wins when set on the command line.
func (a *app) dedupePolicy(cmd *cobra.Command, flagValue bool) dedupe.Policy {
	cutoff := a.settings.CutoffDedupe
	if cmd.Flags().Changed("cutoff-dedup") {
		cutoff = flagValue
	}
	if cutoff {
		return dedupe.PolicyCutoff
	}
	return dedupe.PolicyExact
}
