package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind selects which collection a Record belongs to.
type Kind string

const (
	KindExpense Kind = "expense"
	KindIncome  Kind = "income"
)

// Kinds lists every record kind in route order.
var Kinds = []Kind{KindExpense, KindIncome}

// Table is the relational table backing the kind.
func (k Kind) Table() string {
	return string(k) + "s"
}

// Collection is the URL segment under /api.
func (k Kind) Collection() string {
	return string(k) + "s"
}

// ParseKind accepts both the singular kind ("expense") and the collection name ("expenses").
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if s == string(k) || s == k.Collection() {
			return k, true
		}
	}
	return "", false
}

// Record is the persisted shape shared by expenses and incomes. The table is
// picked at query time from the Kind, so there is no TableName method.
type Record struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Description string          `gorm:"size:200;not null" json:"description"`
	Amount      decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"amount"`
	Date        time.Time       `gorm:"type:date;not null" json:"date"`
	CreatedAt   time.Time       `json:"-"`
	UpdatedAt   time.Time       `json:"-"`
}
