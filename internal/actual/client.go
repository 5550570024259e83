// Package actual synchronizes transactions with an Actual Budget server
// through the bridge worker, adding the migration-mismatch recovery policy
// on top of the raw protocol.
package actual

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/bridge"
	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/model"
)

// migrationSignature marks the remote error class meaning the worker's data
// schema is behind the server's. It triggers exactly one recovery attempt.
const migrationSignature = "out-of-sync-migrations"

// worker is the slice of *bridge.Bridge the client drives. Narrowed to an
// interface so recovery can be tested without a real process.
type worker interface {
	Init(ctx context.Context, serverURL, password, dataDir string) error
	ListBudgets(ctx context.Context) ([]bridge.Budget, error)
	ListAccounts(ctx context.Context, budgetID, budgetPassword string) ([]bridge.Account, error)
	ListTransactions(ctx context.Context, budgetID, accountID string, count int, budgetPassword string) ([]bridge.Transaction, error)
	UploadTransactions(ctx context.Context, budgetID, accountID string, txns []bridge.Transaction, budgetPassword string) (int, error)
	RecentStderr(limit int) string
	Close() error
}

// Options tunes a Client beyond the server URL and password.
type Options struct {
	// EncryptionPassword unlocks end-to-end encrypted budget files; the
	// server password is used when empty.
	EncryptionPassword string
	// DataDir is where the worker caches downloaded budgets.
	DataDir string
	// Provision re-provisions the worker's dependency state during the
	// migration-mismatch recovery (typically an npm install). Optional.
	Provision func(ctx context.Context) error
}

// Client wraps one bridge worker. Safe for use from one goroutine at a
// time; the underlying bridge serializes round trips regardless.
type Client struct {
	url              string
	password         string
	downloadPassword string
	dataDir          string
	provision        func(ctx context.Context) error

	start  func() (worker, error)
	bridge worker
}

// Dial starts a bridge worker and initializes it against the server.
func Dial(ctx context.Context, cfg bridge.Config, serverURL, password string, opts Options) (*Client, error) {
	start := func() (worker, error) { return bridge.Start(cfg) }
	return newClient(ctx, start, serverURL, password, opts)
}

func newClient(ctx context.Context, start func() (worker, error), serverURL, password string, opts Options) (*Client, error) {
	downloadPassword := opts.EncryptionPassword
	if downloadPassword == "" {
		downloadPassword = password
	}
	c := &Client{
		url:              strings.TrimRight(serverURL, "/"),
		password:         password,
		downloadPassword: downloadPassword,
		dataDir:          opts.DataDir,
		provision:        opts.Provision,
		start:            start,
	}

	b, err := start()
	if err != nil {
		return nil, fmt.Errorf("starting bridge worker: %w", err)
	}
	c.bridge = b
	if err := b.Init(ctx, c.url, c.password, c.dataDir); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("initializing bridge: %w", err)
	}
	return c, nil
}

// Close terminates the worker process.
func (c *Client) Close() error {
	if c.bridge == nil {
		return nil
	}
	return c.bridge.Close()
}

// outOfSync reports whether an error carries the migration-mismatch
// signature, checking the message, the details, and recent worker stderr.
func (c *Client) outOfSync(err error) bool {
	var upstream *bridge.UpstreamError
	if !errors.As(err, &upstream) {
		return false
	}
	if strings.Contains(upstream.Message, migrationSignature) ||
		strings.Contains(upstream.Details, migrationSignature) {
		return true
	}
	return strings.Contains(c.bridge.RecentStderr(10), migrationSignature)
}

// restart replaces the worker process and re-initializes it.
func (c *Client) restart(ctx context.Context) error {
	_ = c.bridge.Close()
	b, err := c.start()
	if err != nil {
		return fmt.Errorf("restarting bridge worker: %w", err)
	}
	if err := b.Init(ctx, c.url, c.password, c.dataDir); err != nil {
		_ = b.Close()
		return fmt.Errorf("re-initializing bridge: %w", err)
	}
	c.bridge = b
	return nil
}

// call runs op with the recovery policy: on a migration-mismatch error the
// client provisions, restarts the worker, re-inits, and retries op exactly
// once. Any other failure, and any failure of the retry, surfaces as-is.
// A timed-out worker is restarted too, but the timeout is still surfaced.
func (c *Client) call(ctx context.Context, name string, op func() error) error {
	err := op()
	if err == nil {
		return nil
	}

	if errors.Is(err, bridge.ErrTimeout) {
		slog.Warn("bridge worker unresponsive, restarting", "op", name)
		if rerr := c.restart(ctx); rerr != nil {
			slog.Error("bridge restart failed", "op", name, "error", rerr)
		}
		return err
	}

	if !c.outOfSync(err) {
		return err
	}

	slog.Warn("remote schema ahead of worker, attempting recovery", "op", name)
	if c.provision != nil {
		if perr := c.provision(ctx); perr != nil {
			slog.Error("worker provisioning failed", "op", name, "error", perr)
			return err
		}
	}
	if rerr := c.restart(ctx); rerr != nil {
		slog.Error("bridge restart failed", "op", name, "error", rerr)
		return err
	}
	return op()
}

// Budgets lists budgets, de-duplicated by id and by name with remote
// copies preferred over local ones.
func (c *Client) Budgets(ctx context.Context) ([]bridge.Budget, error) {
	var raw []bridge.Budget
	err := c.call(ctx, "listBudgets", func() error {
		var err error
		raw, err = c.bridge.ListBudgets(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(raw))
	byName := make(map[string]bridge.Budget)
	var order []string
	for _, b := range raw {
		// Prefer groupId: downloading a budget wants the sync id.
		if b.GroupID != "" {
			b.ID = b.GroupID
		} else if b.ID == "" {
			b.ID = b.CloudFileID
		}
		if b.ID == "" || seen[b.ID] {
			continue
		}
		seen[b.ID] = true

		existing, ok := byName[b.Name]
		if !ok {
			byName[b.Name] = b
			order = append(order, b.Name)
			continue
		}
		if strings.EqualFold(b.State, "remote") && !strings.EqualFold(existing.State, "remote") {
			byName[b.Name] = b
		}
	}

	budgets := make([]bridge.Budget, 0, len(order))
	for _, name := range order {
		budgets = append(budgets, byName[name])
	}
	return budgets, nil
}

// Accounts lists the accounts of a budget.
func (c *Client) Accounts(ctx context.Context, budgetID string) ([]bridge.Account, error) {
	var accounts []bridge.Account
	err := c.call(ctx, "listAccounts", func() error {
		var err error
		accounts, err = c.bridge.ListAccounts(ctx, budgetID, c.downloadPassword)
		return err
	})
	return accounts, err
}

// Transactions fetches account transactions as canonical records for use
// as a dedupe reference. count <= 0 fetches everything.
func (c *Client) Transactions(ctx context.Context, budgetID, accountID string, count int) ([]model.Transaction, error) {
	var remote []bridge.Transaction
	err := c.call(ctx, "listTransactions", func() error {
		var err error
		remote, err = c.bridge.ListTransactions(ctx, budgetID, accountID, count, c.downloadPassword)
		return err
	})
	if err != nil {
		return nil, err
	}

	txns := make([]model.Transaction, 0, len(remote))
	for _, r := range remote {
		date, err := time.Parse(model.DateFormat, r.Date)
		if err != nil {
			slog.Debug("skipping remote transaction with bad date", "id", r.ID, "date", r.Date)
			continue
		}
		txns = append(txns, model.Transaction{
			Date:     date,
			Payee:    r.PayeeName,
			Amount:   model.AmountFromMilliunits(r.Amount),
			Memo:     r.Memo,
			ImportID: r.ImportID,
		})
	}
	return txns, nil
}

// Upload sends canonical transactions to an account and returns how many
// the server accepted.
func (c *Client) Upload(ctx context.Context, budgetID, accountID string, txns []model.Transaction) (int, error) {
	wire := make([]bridge.Transaction, len(txns))
	for i, txn := range txns {
		wire[i] = bridge.Transaction{
			Date:      txn.DateString(),
			PayeeName: txn.Payee,
			Memo:      txn.Memo,
			Amount:    txn.Milliunits(),
			ImportID:  txn.ImportID,
		}
	}

	var uploaded int
	err := c.call(ctx, "uploadTransactions", func() error {
		var err error
		uploaded, err = c.bridge.UploadTransactions(ctx, budgetID, accountID, wire, c.downloadPassword)
		return err
	})
	return uploaded, err
}

// NpmProvisioner returns a Provision hook that runs "npm install" in the
// worker script's directory, pulling the API client the worker loads up to
// the server's schema.
func NpmProvisioner(scriptPath string) func(ctx context.Context) error {
	dir := filepath.Dir(scriptPath)
	return func(ctx context.Context) error {
		cmd := exec.CommandContext(ctx, "npm", "install")
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("npm install: %w: %s", err, strings.TrimSpace(string(out)))
		}
		return nil
	}
}
