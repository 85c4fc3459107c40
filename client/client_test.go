package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fintrack/apiserver/config"
	"github.com/fintrack/apiserver/internal/server"
	"github.com/fintrack/apiserver/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPI(t *testing.T, wrap func(http.Handler) http.Handler) *httptest.Server {
	t.Helper()
	cfg := config.Config{
		ServerPort: 8080,
		Database:   config.DatabaseConfig{Driver: config.DriverMemory},
		Auth: config.AuthConfig{
			JWTSecret:         "client-test-secret",
			Issuer:            "fintrack",
			Audience:          "fintrack-web",
			TokenTTL:          time.Hour,
			PasswordMinLength: 6,
		},
		CORS:    config.CORSConfig{AllowedOrigins: []string{"*"}},
		Log:     config.LogConfig{Level: "info", Format: "text"},
		MQ:      config.MQConfig{Backend: config.BackendNone},
		Storage: config.StorageConfig{Backend: config.BackendNone},
	}
	stores, err := server.OpenStores(context.Background(), cfg.Database)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stores.Close() })

	router, err := server.NewRouter(cfg, stores, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	var handler http.Handler = router
	if wrap != nil {
		handler = wrap(router)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func seed(t *testing.T, c *Client) {
	t.Helper()
	ctx := context.Background()
	_, err := c.Register(ctx, Registration{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)

	inputs := []TransactionInput{
		{Description: "Salary", Amount: decimal.RequireFromString("3000"), Type: types.TransactionTypeIncome, Category: "Work", Date: types.NewDate(2024, 1, 31)},
		{Description: "Rent", Amount: decimal.RequireFromString("1200.50"), Type: types.TransactionTypeExpense, Category: "Housing", Date: types.NewDate(2024, 2, 1)},
		{Description: "Groceries", Amount: decimal.RequireFromString("85.25"), Type: types.TransactionTypeExpense, Category: "Food", Date: types.NewDate(2024, 2, 3)},
		{Description: "Refund", Amount: decimal.RequireFromString("19.99"), Type: types.TransactionTypeIncome, Date: types.NewDate(2024, 2, 10)},
	}
	for _, in := range inputs {
		_, err := c.CreateTransaction(ctx, in)
		require.NoError(t, err)
	}
}

func assertSameStatistics(t *testing.T, want, got types.Statistics) {
	t.Helper()
	assert.True(t, want.TotalIncome.Equal(got.TotalIncome), "income %s != %s", want.TotalIncome, got.TotalIncome)
	assert.True(t, want.TotalExpenses.Equal(got.TotalExpenses), "expenses %s != %s", want.TotalExpenses, got.TotalExpenses)
	assert.True(t, want.Balance.Equal(got.Balance), "balance %s != %s", want.Balance, got.Balance)
	assert.True(t, want.NetBalance.Equal(got.NetBalance), "net balance %s != %s", want.NetBalance, got.NetBalance)
	assert.Equal(t, want.TransactionCount, got.TransactionCount)
}

func TestServerAndLocalStatisticsAgree(t *testing.T) {
	srv := newAPI(t, nil)
	c := New(srv.URL)
	seed(t, c)
	ctx := context.Background()

	for _, filter := range []types.TransactionFilter{
		{},
		{Type: types.TransactionTypeExpense},
		{From: types.NewDate(2024, 2, 1), To: types.NewDate(2024, 2, 28)},
		{Search: "rent"},
	} {
		remote, err := c.Statistics(ctx, filter)
		require.NoError(t, err)
		local, err := c.LocalStatistics(ctx, filter)
		require.NoError(t, err)
		assertSameStatistics(t, remote, local)
	}

	all, err := c.Statistics(ctx, types.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, "3019.99", all.TotalIncome.StringFixed(2))
	assert.Equal(t, "1285.75", all.TotalExpenses.StringFixed(2))
	assert.Equal(t, "1734.24", all.Balance.StringFixed(2))
	assert.Equal(t, 4, all.TransactionCount)
}

func TestStatisticsFallsBackWhenEndpointFails(t *testing.T) {
	broken := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/transactions/statistics" {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	srv := newAPI(t, broken)
	c := New(srv.URL)
	seed(t, c)

	got, err := c.Statistics(context.Background(), types.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, "1734.24", got.Balance.StringFixed(2))
	assert.Equal(t, 4, got.TransactionCount)
}

func TestStatisticsDoesNotFallBackOnUnauthorized(t *testing.T) {
	srv := newAPI(t, nil)
	c := New(srv.URL)

	_, err := c.Statistics(context.Background(), types.TransactionFilter{})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestTransactionLifecycle(t *testing.T) {
	srv := newAPI(t, nil)
	c := New(srv.URL)
	ctx := context.Background()

	session, err := c.Register(ctx, Registration{Username: "bob", Email: "bob@example.com", Password: "secret1", FirstName: "Bob"})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, session.Token, c.Token())

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.UserID, me.ID)
	assert.Equal(t, "Bob", me.FirstName)

	created, err := c.CreateTransaction(ctx, TransactionInput{
		Description: "Coffee",
		Amount:      decimal.RequireFromString("3.5"),
		Type:        types.TransactionTypeExpense,
		Category:    "Food",
		Date:        types.NewDate(2024, 5, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, "3.50", created.Amount.StringFixed(2))

	updated, err := c.UpdateTransaction(ctx, created.ID, TransactionInput{
		Description: "Espresso",
		Amount:      decimal.RequireFromString("2.8"),
		Type:        types.TransactionTypeExpense,
		Category:    "Food",
		Date:        types.NewDate(2024, 5, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, "Espresso", updated.Description)

	got, err := c.GetTransaction(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Espresso", got.Description)

	categories, err := c.CategoryBreakdown(ctx, types.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "Food", categories[0].Category)

	months, err := c.MonthlyBreakdown(ctx, types.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, months, 1)
	assert.Equal(t, "2024-05", months[0].Month)

	require.NoError(t, c.DeleteTransaction(ctx, created.ID))
	_, err = c.GetTransaction(ctx, created.ID)
	assert.True(t, IsNotFound(err))

	list, err := c.ListTransactions(ctx, types.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestLoginErrorsCarryServerMessage(t *testing.T) {
	srv := newAPI(t, nil)
	c := New(srv.URL)
	ctx := context.Background()

	_, err := c.Register(ctx, Registration{Username: "carol", Email: "carol@example.com", Password: "secret1"})
	require.NoError(t, err)
	c.Logout()
	assert.Empty(t, c.Token())

	_, err = c.Login(ctx, "carol@example.com", "wrong-password")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.NotEmpty(t, apiErr.Message)

	_, err = c.Register(ctx, Registration{Username: "x", Email: "not-an-email", Password: "1"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Fields, "email")

	session, err := c.Login(ctx, "carol@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "carol", session.UserName)
}
