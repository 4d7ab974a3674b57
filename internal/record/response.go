package record

import (
	"finance-tracker/internal/models"

	"github.com/shopspring/decimal"
)

func init() {
	// amounts go over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

type Response struct {
	ID          uint            `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        Date            `json:"date"`
}

type ListResponse struct {
	Items      []Response `json:"items"`
	TotalCount int64      `json:"totalCount"`
	PageNumber int        `json:"pageNumber"`
	PageSize   int        `json:"pageSize"`
}

func ToResponse(r models.Record) Response {
	return Response{
		ID:          r.ID,
		Description: r.Description,
		Amount:      r.Amount,
		Date:        DateOf(r.Date),
	}
}

func ToResponses(rows []models.Record) []Response {
	res := make([]Response, 0, len(rows))
	for _, r := range rows {
		res = append(res, ToResponse(r))
	}
	return res
}
