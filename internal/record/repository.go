package record

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"finance-tracker/internal/models"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("record not found")

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxPageNumber keeps (PageNumber-1)*PageSize within an int.
	MaxPageNumber = math.MaxInt / MaxPageSize
)

type SortField string

const (
	SortByDate        SortField = "date"
	SortByAmount      SortField = "amount"
	SortByDescription SortField = "description"
)

// ListQuery is a normalized list request. PageSize 0 means "no limit" and is
// only produced by AllQuery.
type ListQuery struct {
	PageNumber int
	PageSize   int
	SortBy     SortField
	Desc       bool
}

// NewListQuery applies the list defaults: unknown sort fields fall back to
// date, anything but "asc" sorts descending, and paging values are clamped.
func NewListQuery(pageNumber, pageSize int, sortBy, sortDirection string) ListQuery {
	if pageNumber < 1 {
		pageNumber = 1
	}
	if pageNumber > MaxPageNumber {
		pageNumber = MaxPageNumber
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return ListQuery{
		PageNumber: pageNumber,
		PageSize:   pageSize,
		SortBy:     parseSortField(sortBy),
		Desc:       !strings.EqualFold(strings.TrimSpace(sortDirection), "asc"),
	}
}

// AllQuery lists every record in the given order.
func AllQuery(sortBy, sortDirection string) ListQuery {
	q := NewListQuery(1, DefaultPageSize, sortBy, sortDirection)
	q.PageSize = 0
	return q
}

func (q ListQuery) Offset() int {
	if q.PageSize == 0 {
		return 0
	}
	return (q.PageNumber - 1) * q.PageSize
}

func parseSortField(s string) SortField {
	switch SortField(strings.ToLower(strings.TrimSpace(s))) {
	case SortByAmount:
		return SortByAmount
	case SortByDescription:
		return SortByDescription
	default:
		return SortByDate
	}
}

// DateRange is inclusive on both ends; nil bounds are open.
type DateRange struct {
	From *Date
	To   *Date
}

func (r DateRange) Contains(t time.Time) bool {
	d := DateOf(t)
	if r.From != nil && r.From.After(d) {
		return false
	}
	if r.To != nil && d.After(*r.To) {
		return false
	}
	return true
}

// Repository is the storage contract for one record kind.
type Repository interface {
	Kind() models.Kind
	// List returns the requested page and the unfiltered total count.
	List(ctx context.Context, q ListQuery) ([]models.Record, int64, error)
	Get(ctx context.Context, id uint) (*models.Record, error)
	// Insert assigns rec.ID.
	Insert(ctx context.Context, rec *models.Record) error
	// Update overwrites description, amount and date of rec.ID.
	Update(ctx context.Context, rec *models.Record) error
	Delete(ctx context.Context, id uint) error
	Total(ctx context.Context, r DateRange) (decimal.Decimal, error)
}
