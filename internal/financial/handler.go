package financial

import (
	"context"
	"fmt"
	"time"

	"finance-tracker/internal/record"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type SummaryResponse struct {
	From         *record.Date    `json:"from"`
	To           *record.Date    `json:"to"`
	TotalIncome  decimal.Decimal `json:"totalIncome"`
	TotalExpense decimal.Decimal `json:"totalExpense"`
	Balance      decimal.Decimal `json:"balance"`
}

// Service sums incomes against expenses.
type Service struct {
	expenses record.Repository
	incomes  record.Repository
}

func NewService(expenses, incomes record.Repository) *Service {
	return &Service{expenses: expenses, incomes: incomes}
}

func (s *Service) Summary(ctx context.Context, r record.DateRange) (*SummaryResponse, error) {
	income, err := s.incomes.Total(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("total income: %w", err)
	}
	expense, err := s.expenses.Total(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("total expense: %w", err)
	}

	return &SummaryResponse{
		From:         r.From,
		To:           r.To,
		TotalIncome:  income,
		TotalExpense: expense,
		Balance:      income.Sub(expense),
	}, nil
}

// -----------------------------------
// GET /api/summary?from=2024-01-01&to=2024-01-31
// GET /api/summary?year=2024&month=1
// Both bounds are optional and inclusive.
// -----------------------------------
func SummaryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := parseRange(c)
		if err != nil {
			return err
		}

		res, err := svc.Summary(c.UserContext(), r)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

func parseRange(c *fiber.Ctx) (record.DateRange, error) {
	var r record.DateRange

	if c.Query("year") != "" || c.Query("month") != "" {
		year := c.QueryInt("year", 0)
		month := c.QueryInt("month", 0)
		if year < 2000 {
			return r, fiber.NewError(fiber.StatusBadRequest, "invalid year")
		}
		if month < 1 || month > 12 {
			return r, fiber.NewError(fiber.StatusBadRequest, "invalid month")
		}
		first := record.NewDate(year, time.Month(month), 1)
		last := record.DateOf(first.AddDate(0, 1, -1))
		return record.DateRange{From: &first, To: &last}, nil
	}

	if s := c.Query("from"); s != "" {
		d, err := record.ParseDate(s)
		if err != nil {
			return r, fiber.NewError(fiber.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
		}
		r.From = &d
	}
	if s := c.Query("to"); s != "" {
		d, err := record.ParseDate(s)
		if err != nil {
			return r, fiber.NewError(fiber.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
		}
		r.To = &d
	}
	if r.From != nil && r.To != nil && r.From.After(*r.To) {
		return r, fiber.NewError(fiber.StatusBadRequest, "from must not be after to")
	}
	return r, nil
}
