// Package ynab is a client for the YNAB HTTP API, the secondary
// synchronization target.
package ynab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/Nikolay-Sergeev/nbg-ynab-export/internal/model"
)

// DefaultBaseURL is the public YNAB API endpoint.
const DefaultBaseURL = "https://api.ynab.com/v1"

// ErrAuthenticationFailed marks 401/403 responses so callers can prompt
// for a new token instead of treating them as network failures.
var ErrAuthenticationFailed = errors.New("authentication failed")

// APIError is a non-auth error response from the API.
type APIError struct {
	Status int
	Name   string
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("ynab: %s (%d): %s", e.Name, e.Status, e.Detail)
	}
	return fmt.Sprintf("ynab: request failed with status %d", e.Status)
}

// pageSize is the server's transactions page size; a shorter page means
// the last one.
const pageSize = 30

// Budget is a YNAB budget.
type Budget struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Account is a YNAB account.
type Account struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Closed bool   `json:"closed"`
}

type wireTransaction struct {
	ID        string `json:"id,omitempty"`
	AccountID string `json:"account_id,omitempty"`
	Date      string `json:"date"`
	Amount    int64  `json:"amount"` // milliunits
	PayeeName string `json:"payee_name,omitempty"`
	Memo      string `json:"memo,omitempty"`
	Cleared   string `json:"cleared,omitempty"`
	ImportID  string `json:"import_id,omitempty"`
}

// Client talks to the YNAB API. It is safe for concurrent use; the
// transaction cache is keyed by (budget, account) and flushed whenever the
// selection changes.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	cache   *gocache.Cache

	mu              sync.Mutex
	selectedBudget  string
	selectedAccount string
}

// New creates a client. baseURL and httpc may be empty for defaults.
func New(token, baseURL string, httpc *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpc == nil {
		httpc = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpc:   httpc,
		cache:   gocache.New(5*time.Minute, 10*time.Minute),
	}
}

// Select records the active (budget, account) pair. Changing either side
// invalidates the transaction cache.
func (c *Client) Select(budgetID, accountID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if budgetID != c.selectedBudget || accountID != c.selectedAccount {
		c.cache.Flush()
	}
	c.selectedBudget = budgetID
	c.selectedAccount = accountID
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%s %s: status %d: %w", req.Method, req.URL.Path, resp.StatusCode, ErrAuthenticationFailed)
	}
	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope struct {
			Error struct {
				Name   string `json:"name"`
				Detail string `json:"detail"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
			apiErr.Name = envelope.Error.Name
			apiErr.Detail = envelope.Error.Detail
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Budgets lists the token's budgets.
func (c *Client) Budgets(ctx context.Context) ([]Budget, error) {
	var envelope struct {
		Data struct {
			Budgets []Budget `json:"budgets"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/budgets", nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data.Budgets, nil
}

// Accounts lists the accounts of a budget.
func (c *Client) Accounts(ctx context.Context, budgetID string) ([]Account, error) {
	var envelope struct {
		Data struct {
			Accounts []Account `json:"accounts"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/budgets/"+budgetID+"/accounts", nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data.Accounts, nil
}

func (c *Client) transactionsPage(ctx context.Context, budgetID, accountID string, count, page int) ([]wireTransaction, error) {
	query := url.Values{}
	if count > 0 {
		query.Set("count", strconv.Itoa(count))
	}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	var envelope struct {
		Data struct {
			Transactions []wireTransaction `json:"transactions"`
		} `json:"data"`
	}
	path := "/budgets/" + budgetID + "/accounts/" + accountID + "/transactions"
	if err := c.get(ctx, path, query, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data.Transactions, nil
}

// Transactions returns the account's transactions as canonical records,
// paginating until exhausted. The most recent response per (budget,
// account) is cached until the selection changes or the entry expires.
func (c *Client) Transactions(ctx context.Context, budgetID, accountID string) ([]model.Transaction, error) {
	key := budgetID + "|" + accountID
	if cached, ok := c.cache.Get(key); ok {
		return cached.([]model.Transaction), nil
	}

	var all []wireTransaction
	for page := 1; ; page++ {
		txns, err := c.transactionsPage(ctx, budgetID, accountID, 0, page)
		if err != nil {
			return nil, err
		}
		all = append(all, txns...)
		if len(txns) < pageSize {
			break
		}
	}

	canonical := make([]model.Transaction, 0, len(all))
	for _, w := range all {
		date, err := time.Parse(model.DateFormat, w.Date)
		if err != nil {
			slog.Debug("skipping remote transaction with bad date", "id", w.ID, "date", w.Date)
			continue
		}
		canonical = append(canonical, model.Transaction{
			Date:     date,
			Payee:    w.PayeeName,
			Amount:   model.AmountFromMilliunits(w.Amount),
			Memo:     w.Memo,
			ImportID: w.ImportID,
		})
	}
	c.cache.SetDefault(key, canonical)
	return canonical, nil
}

// Upload creates transactions in a budget account. Amounts go up as
// milliunits. Returns the number of transactions the server created.
func (c *Client) Upload(ctx context.Context, budgetID, accountID string, txns []model.Transaction) (int, error) {
	payload := struct {
		Transactions []wireTransaction `json:"transactions"`
	}{Transactions: make([]wireTransaction, len(txns))}
	for i, txn := range txns {
		payload.Transactions[i] = wireTransaction{
			AccountID: accountID,
			Date:      txn.DateString(),
			Amount:    txn.Milliunits(),
			PayeeName: txn.Payee,
			Memo:      txn.Memo,
			Cleared:   "cleared",
			ImportID:  txn.ImportID,
		}
	}

	var envelope struct {
		Data struct {
			TransactionIDs []string `json:"transaction_ids"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/budgets/"+budgetID+"/transactions", payload, &envelope); err != nil {
		return 0, err
	}
	// A successful upload makes the cached listing stale.
	c.cache.Delete(budgetID + "|" + accountID)
	return len(envelope.Data.TransactionIDs), nil
}
