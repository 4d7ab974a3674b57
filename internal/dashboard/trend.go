package dashboard

import (
	"context"

	"finance-tracker/internal/record"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

const maxPoints = 366

type TrendPoint struct {
	Label   string          `json:"label"` // day, week start or month
	From    record.Date     `json:"from"`
	To      record.Date     `json:"to"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

type TrendTotals struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

type TrendResponse struct {
	Period      string       `json:"period"` // daily | weekly | monthly
	From        record.Date  `json:"from"`
	To          record.Date  `json:"to"`
	Points      []TrendPoint `json:"points"`
	GrandTotals TrendTotals  `json:"grandTotals"`
}

type bucket struct {
	label    string
	from, to record.Date
}

// buckets returns count consecutive periods, oldest first, the last one
// containing end.
func buckets(period string, count int, end record.Date) []bucket {
	out := make([]bucket, count)
	for i := 0; i < count; i++ {
		back := count - 1 - i
		var b bucket
		switch period {
		case "weekly":
			// weeks start on Monday
			offset := (int(end.Weekday()) + 6) % 7
			start := record.DateOf(end.AddDate(0, 0, -offset-7*back))
			b = bucket{label: start.String(), from: start, to: record.DateOf(start.AddDate(0, 0, 6))}
		case "monthly":
			first := record.NewDate(end.Year(), end.Month(), 1)
			start := record.DateOf(first.AddDate(0, -back, 0))
			b = bucket{label: start.Format("2006-01"), from: start, to: record.DateOf(start.AddDate(0, 1, -1))}
		default:
			d := record.DateOf(end.AddDate(0, 0, -back))
			b = bucket{label: d.String(), from: d, to: d}
		}
		out[i] = b
	}
	return out
}

// Trend sums incomes and expenses per bucket.
func Trend(ctx context.Context, expenses, incomes record.Repository, period string, count int, end record.Date) (*TrendResponse, error) {
	bs := buckets(period, count, end)
	res := &TrendResponse{
		Period: period,
		From:   bs[0].from,
		To:     bs[len(bs)-1].to,
		Points: make([]TrendPoint, 0, len(bs)),
	}

	for _, b := range bs {
		from, to := b.from, b.to
		r := record.DateRange{From: &from, To: &to}

		income, err := incomes.Total(ctx, r)
		if err != nil {
			return nil, err
		}
		expense, err := expenses.Total(ctx, r)
		if err != nil {
			return nil, err
		}

		res.Points = append(res.Points, TrendPoint{
			Label:   b.label,
			From:    b.from,
			To:      b.to,
			Income:  income,
			Expense: expense,
			Balance: income.Sub(expense),
		})
		res.GrandTotals.Income = res.GrandTotals.Income.Add(income)
		res.GrandTotals.Expense = res.GrandTotals.Expense.Add(expense)
	}
	res.GrandTotals.Balance = res.GrandTotals.Income.Sub(res.GrandTotals.Expense)
	return res, nil
}

// GET /api/dashboard/trend?period=daily&count=7&end=2024-01-31
func TrendHandler(expenses, incomes record.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		period := c.Query("period", "daily")

		var count int
		switch period {
		case "weekly":
			count = 8
		case "monthly":
			count = 12
		default:
			period = "daily"
			count = 7
		}
		if c.Query("count") != "" {
			count = c.QueryInt("count", 0)
			if count <= 0 || count > maxPoints {
				return fiber.NewError(fiber.StatusBadRequest, "invalid count")
			}
		}

		end := record.Today()
		if s := c.Query("end"); s != "" {
			d, err := record.ParseDate(s)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid end date, expected YYYY-MM-DD")
			}
			end = d
		}

		res, err := Trend(c.UserContext(), expenses, incomes, period, count, end)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}
