package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/actual"
	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/bridge"
	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/convert"
	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/importid"
	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/model"
	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/secrets"
	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/ynab"
)

const (
	targetActual = "actual"
	targetYNAB   = "ynab"
)

// referenceCount bounds how many remote transactions are fetched as the
// dedupe reference on sync.
const referenceCount = 200

// budgetUploader is the slice of the two backends the sync command needs.
type budgetUploader interface {
	Transactions(ctx context.Context, budgetID, accountID string) ([]model.Transaction, error)
	Upload(ctx context.Context, budgetID, accountID string, txns []model.Transaction) (int, error)
}

func newSyncCommand(a *app) *cobra.Command {
	var (
		target      string
		budget      string
		account     string
		timeout     time.Duration
		previous    string
		cutoffDedup bool
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "sync <input.csv>",
		Short: "Convert a bank export and upload the new transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			uploader, budgetID, accountID, cleanup, err := a.connect(ctx, target, budget, account, timeout)
			if err != nil {
				return err
			}
			defer cleanup()

			reference, err := uploader.Transactions(ctx, budgetID, accountID)
			if err != nil {
				return fmt.Errorf("fetching remote transactions: %w", err)
			}

			result, err := convert.Run(args[0], convert.Options{
				PreviousPath: previous,
				Reference:    reference,
				Policy:       a.dedupePolicy(cmd, cutoffDedup),
				NoOutput:     true,
			})
			if err != nil {
				return err
			}

			if len(result.Transactions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing new to upload")
				return nil
			}
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "would upload %d transactions (%d duplicates dropped)\n",
					len(result.Transactions), result.Duplicates)
				return nil
			}

			importid.Assign(result.Transactions)
			uploaded, err := uploader.Upload(ctx, budgetID, accountID, result.Transactions)
			if err != nil {
				return fmt.Errorf("uploading: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %d of %d transactions (%d duplicates dropped)\n",
				uploaded, len(result.Transactions), result.Duplicates)
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", targetActual, "upload target: actual or ynab")
	cmd.Flags().StringVar(&budget, "budget", "", "budget name or id (required)")
	cmd.Flags().StringVar(&account, "account", "", "account name or id (required)")
	cmd.Flags().DurationVar(&timeout, "timeout", bridge.DefaultTimeout, "per-call worker timeout")
	cmd.Flags().StringVar(&previous, "previous", "", "earlier output CSV to dedupe against as well")
	cmd.Flags().BoolVar(&cutoffDedup, "cutoff-dedup", false, "also drop rows dated before the newest reference row")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "convert and dedupe without uploading")
	_ = cmd.MarkFlagRequired("budget")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

// connect resolves the target backend plus the budget and account ids.
// The returned cleanup is always safe to call.
func (a *app) connect(ctx context.Context, target, budget, account string, timeout time.Duration) (budgetUploader, string, string, func(), error) {
	noop := func() {}
	switch target {
	case targetActual:
		client, err := a.dialActual(ctx, timeout, secrets.Credentials{})
		if err != nil {
			return nil, "", "", noop, err
		}
		budgetID, accountID, err := resolveActual(ctx, client, budget, account)
		if err != nil {
			client.Close()
			return nil, "", "", noop, err
		}
		return &actualUploader{client}, budgetID, accountID, func() { client.Close() }, nil
	case targetYNAB:
		client, err := a.ynabClient()
		if err != nil {
			return nil, "", "", noop, err
		}
		budgetID, accountID, err := resolveYNAB(ctx, client, budget, account)
		if err != nil {
			return nil, "", "", noop, err
		}
		client.Select(budgetID, accountID)
		return client, budgetID, accountID, noop, nil
	default:
		return nil, "", "", noop, fmt.Errorf("unknown target %q (want %s or %s)", target, targetActual, targetYNAB)
	}
}

// dialActual connects to the Actual server, using stored credentials
// unless an override provides both URL and password.
func (a *app) dialActual(ctx context.Context, timeout time.Duration, override secrets.Credentials) (*actual.Client, error) {
	creds := override
	if creds.URL == "" || creds.Password == "" {
		stored, err := a.secrets.LoadCredentials()
		if errors.Is(err, secrets.ErrNotFound) {
			return nil, errors.New("no Actual credentials stored; run: nbg-ynab-export auth actual")
		}
		if err != nil {
			return nil, err
		}
		creds = stored
	}
	if a.settings.BridgeScript == "" {
		return nil, errors.New("bridge_script is not configured")
	}

	dataDir := creds.DataDir
	if dataDir == "" {
		dataDir = a.settings.DataDir
	}
	cfg := bridge.Config{
		NodeBin: a.settings.NodeBin,
		Script:  a.settings.BridgeScript,
		Timeout: timeout,
	}
	return actual.Dial(ctx, cfg, creds.URL, creds.Password, actual.Options{
		DataDir:   dataDir,
		Provision: actual.NpmProvisioner(a.settings.BridgeScript),
	})
}

func (a *app) ynabClient() (*ynab.Client, error) {
	token, err := a.secrets.LoadToken()
	if errors.Is(err, secrets.ErrNotFound) {
		return nil, errors.New("no YNAB token stored; run: nbg-ynab-export auth ynab")
	}
	if err != nil {
		return nil, err
	}
	return ynab.New(token, ynab.DefaultBaseURL, nil), nil
}

func resolveActual(ctx context.Context, client *actual.Client, budget, account string) (string, string, error) {
	budgets, err := client.Budgets(ctx)
	if err != nil {
		return "", "", fmt.Errorf("listing budgets: %w", err)
	}
	var budgetID string
	for _, b := range budgets {
		if b.ID == budget || strings.EqualFold(b.Name, budget) {
			budgetID = b.ID
			break
		}
	}
	if budgetID == "" {
		return "", "", fmt.Errorf("budget %q not found", budget)
	}

	accounts, err := client.Accounts(ctx, budgetID)
	if err != nil {
		return "", "", fmt.Errorf("listing accounts: %w", err)
	}
	for _, acc := range accounts {
		if acc.ID == account || strings.EqualFold(acc.Name, account) {
			return budgetID, acc.ID, nil
		}
	}
	return "", "", fmt.Errorf("account %q not found in budget %q", account, budget)
}

func resolveYNAB(ctx context.Context, client *ynab.Client, budget, account string) (string, string, error) {
	budgets, err := client.Budgets(ctx)
	if err != nil {
		return "", "", fmt.Errorf("listing budgets: %w", err)
	}
	var budgetID string
	for _, b := range budgets {
		if b.ID == budget || strings.EqualFold(b.Name, budget) {
			budgetID = b.ID
			break
		}
	}
	if budgetID == "" {
		return "", "", fmt.Errorf("budget %q not found", budget)
	}

	accounts, err := client.Accounts(ctx, budgetID)
	if err != nil {
		return "", "", fmt.Errorf("listing accounts: %w", err)
	}
	for _, acc := range accounts {
		if acc.ID == account || strings.EqualFold(acc.Name, account) {
			return budgetID, acc.ID, nil
		}
	}
	return "", "", fmt.Errorf("account %q not found in budget %q", account, budget)
}

// actualUploader adapts actual.Client to budgetUploader by fixing the
// reference fetch size.
type actualUploader struct {
	*actual.Client
}

func (u *actualUploader) Transactions(ctx context.Context, budgetID, accountID string) ([]model.Transaction, error) {
	return u.Client.Transactions(ctx, budgetID, accountID, referenceCount)
}
