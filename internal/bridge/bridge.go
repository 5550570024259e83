// Package bridge drives the long-lived Node worker that talks to an Actual
// Budget server. One JSON command per line goes to the worker's stdin, one
// JSON response per line comes back on its stdout, strictly in order; the
// worker has no request correlation, so a single round trip is in flight
// at any time.
package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	// ErrNotInitialized is returned when a command is issued before a
	// successful init.
	ErrNotInitialized = errors.New("bridge not initialized")
	// ErrTimeout is returned when the worker does not answer in time; the
	// worker is killed before it is surfaced.
	ErrTimeout = errors.New("bridge timed out")
	// ErrClosed is returned once the worker process is gone.
	ErrClosed = errors.New("bridge process is not running")
	// ErrProtocol is returned when the worker keeps producing output that
	// is not a valid response line.
	ErrProtocol = errors.New("malformed bridge response")
)

// UpstreamError is an ok:false response from the worker.
type UpstreamError struct {
	Message string
	Details string
}

func (e *UpstreamError) Error() string { return e.Message }

// Budget as listed by the worker.
type Budget struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	GroupID     string `json:"groupId,omitempty"`
	CloudFileID string `json:"cloudFileId,omitempty"`
	State       string `json:"state,omitempty"`
}

// Account as listed by the worker.
type Account struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Transaction on the bridge API. Amount is integer milliunits on this side
// of the boundary; the wire to the worker carries minor currency units.
type Transaction struct {
	ID        string `json:"id,omitempty"`
	Date      string `json:"date"`
	PayeeName string `json:"payee_name"`
	Memo      string `json:"memo"`
	Amount    int64  `json:"amount"`
	ImportID  string `json:"import_id,omitempty"`
}

const (
	cmdInit               = "init"
	cmdListBudgets        = "listBudgets"
	cmdListAccounts       = "listAccounts"
	cmdListTransactions   = "listTransactions"
	cmdUploadTransactions = "uploadTransactions"
)

type command struct {
	Cmd            string        `json:"cmd"`
	ServerURL      string        `json:"serverURL,omitempty"`
	Password       string        `json:"password,omitempty"`
	DataDir        string        `json:"dataDir,omitempty"`
	BudgetID       string        `json:"budgetId,omitempty"`
	AccountID      string        `json:"accountId,omitempty"`
	Count          int           `json:"count,omitempty"`
	BudgetPassword string        `json:"budgetPassword,omitempty"`
	Transactions   []Transaction `json:"transactions,omitempty"`
}

type response struct {
	OK           bool          `json:"ok"`
	Error        string        `json:"error"`
	Details      string        `json:"details"`
	Budgets      []Budget      `json:"budgets"`
	Accounts     []Account     `json:"accounts"`
	Transactions []Transaction `json:"transactions"`
	Uploaded     int           `json:"uploaded"`
}

// maxSkippedLines bounds how much non-protocol stdout noise is tolerated
// per round trip before giving up.
const maxSkippedLines = 100

// DefaultTimeout is the per-command response timeout.
const DefaultTimeout = 30 * time.Second

// Config describes how to start the worker process.
type Config struct {
	NodeBin string        // defaults to "node"
	Script  string        // path to the worker script
	Timeout time.Duration // per-command; defaults to DefaultTimeout
}

// Bridge owns one worker process. All commands serialize on an internal
// mutex: a new command is never written before the previous response has
// been read.
type Bridge struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  chan string
	stderr *stderrRing

	done       chan struct{} // closed by kill; releases the stdout drain
	stdoutDone chan struct{} // closed when the stdout drain returns

	mu          sync.Mutex
	initialized bool
	closed      bool

	timeout time.Duration
}

// Start launches the worker and begins draining its streams.
func Start(cfg Config) (*Bridge, error) {
	if cfg.Script == "" {
		return nil, errors.New("bridge script path is empty")
	}
	if _, err := os.Stat(cfg.Script); err != nil {
		return nil, fmt.Errorf("bridge script missing: %w", err)
	}
	nodeBin := cfg.NodeBin
	if nodeBin == "" {
		nodeBin = "node"
	}

	cmd := exec.Command(nodeBin, cfg.Script)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting bridge worker: %w", err)
	}

	b := newBridge(stdin, stdout, cmd, cfg.Timeout)
	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		b.drainStderr(stderr)
	}()
	// Wait closes the pipes and discards buffered data, so the process may
	// only be reaped after both drains have hit EOF; otherwise a response
	// written just before a worker exit can be lost.
	go func() {
		<-b.stdoutDone
		<-stderrDone
		_ = cmd.Wait()
	}()
	return b, nil
}

// newBridge wires a bridge over raw streams. cmd may be nil in tests.
func newBridge(stdin io.WriteCloser, stdout io.Reader, cmd *exec.Cmd, timeout time.Duration) *Bridge {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	b := &Bridge{
		cmd:        cmd,
		stdin:      stdin,
		lines:      make(chan string, 200),
		stderr:     newStderrRing(50),
		done:       make(chan struct{}),
		stdoutDone: make(chan struct{}),
		timeout:    timeout,
	}
	go b.drainStdout(stdout)
	return b
}

func (b *Bridge) drainStdout(stdout io.Reader) {
	defer close(b.stdoutDone)
	defer close(b.lines)
	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		// A killed worker can keep spewing with nobody left reading;
		// the done channel keeps this goroutine from wedging on a full
		// lines channel.
		select {
		case b.lines <- line:
		case <-b.done:
			return
		}
	}
}

func (b *Bridge) drainStderr(stderr io.Reader) {
	sc := bufio.NewScanner(stderr)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r\n")
		if line == "" {
			continue
		}
		b.stderr.append(line)
		slog.Debug("bridge worker stderr", "line", line)
	}
}

// RecentStderr returns up to limit of the newest worker stderr lines,
// joined by newlines. Diagnostic only; never part of the protocol.
func (b *Bridge) RecentStderr(limit int) string {
	return b.stderr.tail(limit)
}

// roundTrip performs one write-then-read exchange. Cancellation is honored
// only before the command is dispatched: a request already on the wire
// cannot be aborted without desynchronizing the protocol.
func (b *Bridge) roundTrip(ctx context.Context, c command) (*response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.closed {
		return nil, ErrClosed
	}
	if c.Cmd != cmdInit && !b.initialized {
		return nil, ErrNotInitialized
	}

	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal %s command: %w", c.Cmd, err)
	}
	if _, err := fmt.Fprintf(b.stdin, "%s\n", data); err != nil {
		b.kill()
		return nil, fmt.Errorf("writing %s command: %w", c.Cmd, err)
	}

	deadline := time.NewTimer(b.timeout)
	defer deadline.Stop()

	for skipped := 0; skipped <= maxSkippedLines; skipped++ {
		select {
		case line, ok := <-b.lines:
			if !ok {
				b.kill()
				return nil, fmt.Errorf("%s: worker output closed: %w", c.Cmd, ErrClosed)
			}
			var resp response
			if err := json.Unmarshal([]byte(line), &resp); err != nil {
				// Workers occasionally log to stdout ("Loading fresh
				// spreadsheet"); such lines are skipped, not fatal.
				slog.Debug("skipping non-protocol bridge output", "line", line)
				continue
			}
			return &resp, nil
		case <-deadline.C:
			// An unresponsive worker cannot be trusted to stay in sync.
			b.kill()
			return nil, fmt.Errorf("%s: no response within %s: %w", c.Cmd, b.timeout, ErrTimeout)
		}
	}
	b.kill()
	return nil, fmt.Errorf("%s: no valid response line: %w", c.Cmd, ErrProtocol)
}

// kill terminates the worker. Caller holds b.mu.
func (b *Bridge) kill() {
	if b.closed {
		return
	}
	b.closed = true
	b.initialized = false
	close(b.done)
	_ = b.stdin.Close()
	if b.cmd != nil && b.cmd.Process != nil {
		_ = b.cmd.Process.Kill()
	}
}

// Close terminates the worker process.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.kill()
	return nil
}

// Init connects the worker to the server. It may be retried; any other
// command before a successful Init fails with ErrNotInitialized.
func (b *Bridge) Init(ctx context.Context, serverURL, password, dataDir string) error {
	resp, err := b.roundTrip(ctx, command{
		Cmd:       cmdInit,
		ServerURL: serverURL,
		Password:  password,
		DataDir:   dataDir,
	})
	if err != nil {
		return err
	}
	if !resp.OK {
		return &UpstreamError{Message: resp.Error, Details: resp.Details}
	}
	b.mu.Lock()
	b.initialized = true
	b.mu.Unlock()
	return nil
}

// ListBudgets returns the budgets known to the worker, filtered to entries
// with a non-empty name.
func (b *Bridge) ListBudgets(ctx context.Context) ([]Budget, error) {
	resp, err := b.roundTrip(ctx, command{Cmd: cmdListBudgets})
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, &UpstreamError{Message: resp.Error, Details: resp.Details}
	}
	budgets := make([]Budget, 0, len(resp.Budgets))
	for _, budget := range resp.Budgets {
		if budget.Name == "" {
			continue
		}
		budgets = append(budgets, budget)
	}
	return budgets, nil
}

// ListAccounts returns the accounts of a budget, filtered to non-empty names.
func (b *Bridge) ListAccounts(ctx context.Context, budgetID, budgetPassword string) ([]Account, error) {
	resp, err := b.roundTrip(ctx, command{
		Cmd:            cmdListAccounts,
		BudgetID:       budgetID,
		BudgetPassword: budgetPassword,
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, &UpstreamError{Message: resp.Error, Details: resp.Details}
	}
	accounts := make([]Account, 0, len(resp.Accounts))
	for _, a := range resp.Accounts {
		if a.Name == "" {
			continue
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

// ListTransactions returns account transactions sorted ascending by date,
// truncated to the newest count entries when count > 0. Amounts come back
// in milliunits.
func (b *Bridge) ListTransactions(ctx context.Context, budgetID, accountID string, count int, budgetPassword string) ([]Transaction, error) {
	resp, err := b.roundTrip(ctx, command{
		Cmd:            cmdListTransactions,
		BudgetID:       budgetID,
		AccountID:      accountID,
		Count:          count,
		BudgetPassword: budgetPassword,
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, &UpstreamError{Message: resp.Error, Details: resp.Details}
	}

	txns := resp.Transactions
	for i := range txns {
		txns[i].Amount = MinorToMilliunits(txns[i].Amount)
	}
	sort.SliceStable(txns, func(i, j int) bool { return txns[i].Date < txns[j].Date })
	if count > 0 && len(txns) > count {
		txns = txns[len(txns)-count:]
	}
	return txns, nil
}

// UploadTransactions sends transactions (amounts in milliunits) to the
// worker and returns the uploaded count.
func (b *Bridge) UploadTransactions(ctx context.Context, budgetID, accountID string, txns []Transaction, budgetPassword string) (int, error) {
	wire := make([]Transaction, len(txns))
	for i, txn := range txns {
		wire[i] = txn
		wire[i].Amount = MilliunitsToMinor(txn.Amount)
	}

	resp, err := b.roundTrip(ctx, command{
		Cmd:            cmdUploadTransactions,
		BudgetID:       budgetID,
		AccountID:      accountID,
		Transactions:   wire,
		BudgetPassword: budgetPassword,
	})
	if err != nil {
		return 0, err
	}
	if !resp.OK {
		return 0, &UpstreamError{Message: resp.Error, Details: resp.Details}
	}
	return resp.Uploaded, nil
}

// stderrRing keeps the newest n stderr lines for diagnostics.
type stderrRing struct {
	mu    sync.Mutex
	max   int
	lines []string
}

func newStderrRing(max int) *stderrRing {
	return &stderrRing{max: max}
}

func (r *stderrRing) append(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
	if len(r.lines) > r.max {
		r.lines = r.lines[len(r.lines)-r.max:]
	}
}

func (r *stderrRing) tail(limit int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 || len(r.lines) == 0 {
		return ""
	}
	if limit > len(r.lines) {
		limit = len(r.lines)
	}
	return strings.Join(r.lines[len(r.lines)-limit:], "\n")
}
