package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"finance-tracker/internal/config"
	"finance-tracker/internal/database"
	"finance-tracker/internal/events"
	"finance-tracker/internal/record"
	"finance-tracker/internal/server"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, secret string) *Client {
	t.Helper()
	cfg := &config.Config{
		DatabaseDriver: config.DriverSQLite,
		DatabaseDSN:    "file::memory:",
		MaxOpenConns:   1,
		MaxIdleConns:   1,
		JWTSecret:      secret,
		CORSOrigins:    "*",
		LogLevel:       "error",
	}
	db, err := database.Open(cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(adaptor.FiberApp(server.New(cfg, db, events.Noop{})))
	t.Cleanup(srv.Close)
	return New(srv.URL, WithHTTPClient(srv.Client()))
}

func input(desc, amount string, d record.Date) record.Input {
	a := decimal.RequireFromString(amount)
	return record.Input{Description: desc, Amount: &a, Date: &d}
}

func TestCollectionLifecycle(t *testing.T) {
	c := newTestClient(t, "")
	ctx := context.Background()

	created, err := c.Expenses.Create(ctx, input("Rent", "1000", record.NewDate(2024, 1, 1)))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Rent", created.Description)

	got, err := c.Expenses.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, "2024-01-01", got.Date.String())

	require.NoError(t, c.Expenses.Update(ctx, created.ID, input("Rent (adjusted)", "1100", record.NewDate(2024, 1, 1))))
	got, err = c.Expenses.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rent (adjusted)", got.Description)

	require.NoError(t, c.Expenses.Delete(ctx, created.ID))
	_, err = c.Expenses.Get(ctx, created.ID)
	assert.True(t, IsNotFound(err))

	err = c.Expenses.Delete(ctx, created.ID)
	assert.True(t, IsNotFound(err))
}

func TestListParams(t *testing.T) {
	c := newTestClient(t, "")
	ctx := context.Background()

	_, err := c.Incomes.Create(ctx, input("Bonus", "1000", record.NewDate(2024, 1, 1)))
	require.NoError(t, err)
	_, err = c.Incomes.Create(ctx, input("Interest", "200", record.NewDate(2024, 1, 2)))
	require.NoError(t, err)

	page, err := c.Incomes.List(ctx, ListParams{SortBy: "amount", SortDirection: "asc"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Interest", page.Items[0].Description)
	assert.Equal(t, "Bonus", page.Items[1].Description)
	assert.EqualValues(t, 2, page.TotalCount)
	assert.Equal(t, 1, page.PageNumber)
	assert.Equal(t, 10, page.PageSize)

	page, err = c.Incomes.List(ctx, ListParams{PageNumber: 2, PageSize: 1})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Bonus", page.Items[0].Description)

	expenses, err := c.Expenses.List(ctx, ListParams{})
	require.NoError(t, err)
	assert.Empty(t, expenses.Items)
}

func TestValidationErrorFields(t *testing.T) {
	c := newTestClient(t, "")

	_, err := c.Expenses.Create(context.Background(), record.Input{Description: "Rent"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, []string{"Amount is required."}, apiErr.Fields["amount"])
	assert.Equal(t, []string{"Date is required."}, apiErr.Fields["date"])
	assert.False(t, IsNotFound(err))
}

func TestSummary(t *testing.T) {
	c := newTestClient(t, "")
	ctx := context.Background()

	_, err := c.Incomes.Create(ctx, input("Salary", "2000", record.NewDate(2024, 1, 1)))
	require.NoError(t, err)
	_, err = c.Expenses.Create(ctx, input("Rent", "1000", record.NewDate(2024, 1, 5)))
	require.NoError(t, err)
	_, err = c.Expenses.Create(ctx, input("Rent", "1000", record.NewDate(2024, 2, 5)))
	require.NoError(t, err)

	from, to := record.NewDate(2024, 1, 1), record.NewDate(2024, 1, 31)
	sum, err := c.Summary(ctx, &from, &to)
	require.NoError(t, err)
	assert.True(t, sum.TotalIncome.Equal(decimal.NewFromInt(2000)))
	assert.True(t, sum.TotalExpense.Equal(decimal.NewFromInt(1000)))
	assert.True(t, sum.Balance.Equal(decimal.NewFromInt(1000)))
	require.NotNil(t, sum.From)
	assert.Equal(t, "2024-01-01", sum.From.String())

	all, err := c.Summary(ctx, nil, nil)
	require.NoError(t, err)
	assert.True(t, all.Balance.Equal(decimal.Zero))
	assert.Nil(t, all.From)
}

func TestLoginWithAuthEnabled(t *testing.T) {
	c := newTestClient(t, "0123456789abcdef0123456789abcdef")
	ctx := context.Background()

	_, err := c.Expenses.List(ctx, ListParams{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	require.NoError(t, c.do(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "correct horse",
	}, nil))

	err = c.Login(ctx, "ada@example.com", "wrong password")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	require.NoError(t, c.Login(ctx, "ada@example.com", "correct horse"))
	_, err = c.Expenses.List(ctx, ListParams{})
	assert.NoError(t, err)
}
