// Package client is a Go client for the fintrack HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fintrack/apiserver/internal/stats"
	"github.com/fintrack/apiserver/types"
	"github.com/shopspring/decimal"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fintrack: %d %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Session is the result of a register or login call.
type Session struct {
	Token      string    `json:"token"`
	Expiration time.Time `json:"expiration"`
	UserID     string    `json:"userId"`
	UserEmail  string    `json:"userEmail"`
	UserName   string    `json:"userName"`
	FirstName  string    `json:"firstName,omitempty"`
	LastName   string    `json:"lastName,omitempty"`
}

// Registration is the body of a register call.
type Registration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// TransactionInput is the body of create and update calls.
type TransactionInput struct {
	Description string                `json:"description"`
	Amount      decimal.Decimal       `json:"amount"`
	Type        types.TransactionType `json:"type"`
	Category    string                `json:"category"`
	Date        types.Date            `json:"date"`
}

// Client talks to one server. After Login or Register it sends the session
// token with every request.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithToken starts the client with an existing session token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the current session token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Register(ctx context.Context, reg Registration) (Session, error) {
	var session Session
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, reg, &session); err != nil {
		return Session{}, err
	}
	c.setToken(session.Token)
	return session, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	body := map[string]string{"email": email, "password": password}
	var session Session
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &session); err != nil {
		return Session{}, err
	}
	c.setToken(session.Token)
	return session, nil
}

// Logout forgets the session token. Tokens are stateless, so nothing is sent.
func (c *Client) Logout() {
	c.setToken("")
}

func (c *Client) Me(ctx context.Context) (types.User, error) {
	var user types.User
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &user)
	return user, err
}

func (c *Client) ListTransactions(ctx context.Context, filter types.TransactionFilter) ([]types.Transaction, error) {
	var txs []types.Transaction
	err := c.do(ctx, http.MethodGet, "/transactions", filterQuery(filter), nil, &txs)
	return txs, err
}

func (c *Client) GetTransaction(ctx context.Context, id int64) (types.Transaction, error) {
	var tx types.Transaction
	err := c.do(ctx, http.MethodGet, transactionPath(id), nil, nil, &tx)
	return tx, err
}

func (c *Client) CreateTransaction(ctx context.Context, in TransactionInput) (types.Transaction, error) {
	var tx types.Transaction
	err := c.do(ctx, http.MethodPost, "/transactions", nil, in, &tx)
	return tx, err
}

func (c *Client) UpdateTransaction(ctx context.Context, id int64, in TransactionInput) (types.Transaction, error) {
	var tx types.Transaction
	err := c.do(ctx, http.MethodPut, transactionPath(id), nil, in, &tx)
	return tx, err
}

func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, transactionPath(id), nil, nil, nil)
}

// Statistics asks the server for totals over the filtered transactions. If
// the statistics endpoint fails for any reason other than authentication, the
// totals are computed locally from the transaction list instead.
func (c *Client) Statistics(ctx context.Context, filter types.TransactionFilter) (types.Statistics, error) {
	var s types.Statistics
	err := c.do(ctx, http.MethodGet, "/transactions/statistics", filterQuery(filter), nil, &s)
	if err == nil {
		return s, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		return types.Statistics{}, err
	}
	if ctx.Err() != nil {
		return types.Statistics{}, ctx.Err()
	}
	return c.LocalStatistics(ctx, filter)
}

// LocalStatistics computes totals from the transaction list.
func (c *Client) LocalStatistics(ctx context.Context, filter types.TransactionFilter) (types.Statistics, error) {
	txs, err := c.ListTransactions(ctx, filter)
	if err != nil {
		return types.Statistics{}, err
	}
	return stats.Compute(txs), nil
}

func (c *Client) CategoryBreakdown(ctx context.Context, filter types.TransactionFilter) ([]types.CategoryBucket, error) {
	var buckets []types.CategoryBucket
	err := c.do(ctx, http.MethodGet, "/transactions/statistics/categories", filterQuery(filter), nil, &buckets)
	return buckets, err
}

func (c *Client) MonthlyBreakdown(ctx context.Context, filter types.TransactionFilter) ([]types.MonthBucket, error) {
	var buckets []types.MonthBucket
	err := c.do(ctx, http.MethodGet, "/transactions/statistics/monthly", filterQuery(filter), nil, &buckets)
	return buckets, err
}

// RequestExport starts a CSV export of every transaction.
func (c *Client) RequestExport(ctx context.Context) (types.Export, error) {
	var export types.Export
	err := c.do(ctx, http.MethodPost, "/transactions/exports", nil, nil, &export)
	return export, err
}

func (c *Client) GetExport(ctx context.Context, id string) (types.Export, error) {
	var export types.Export
	err := c.do(ctx, http.MethodGet, "/transactions/exports/"+url.PathEscape(id), nil, nil, &export)
	return export, err
}

// DownloadExport returns the CSV body of a ready export. The caller closes it.
func (c *Client) DownloadExport(ctx context.Context, id string) (io.ReadCloser, error) {
	resp, err := c.send(ctx, http.MethodGet, "/transactions/exports/"+url.PathEscape(id)+"/download", nil, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	resp, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// send performs the request and converts non-2xx responses into *APIError.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var payload struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&payload); err == nil && payload.Error != "" {
		apiErr.Message = payload.Error
		apiErr.Fields = payload.Fields
	}
	return nil, apiErr
}

func transactionPath(id int64) string {
	return "/transactions/" + strconv.FormatInt(id, 10)
}

func filterQuery(filter types.TransactionFilter) url.Values {
	q := url.Values{}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	if filter.Type != "" {
		q.Set("type", string(filter.Type))
	}
	if filter.Category != "" {
		q.Set("category", filter.Category)
	}
	if !filter.From.IsZero() {
		q.Set("from", filter.From.String())
	}
	if !filter.To.IsZero() {
		q.Set("to", filter.To.String())
	}
	return q
}
