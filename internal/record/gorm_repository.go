package record

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finance-tracker/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRepository stores one record kind in its own table.
type GormRepository struct {
	db   *gorm.DB
	kind models.Kind
}

func NewGormRepository(db *gorm.DB, kind models.Kind) *GormRepository {
	return &GormRepository{db: db, kind: kind}
}

func (r *GormRepository) Kind() models.Kind { return r.kind }

func (r *GormRepository) table(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table(r.kind.Table())
}

func (r *GormRepository) List(ctx context.Context, q ListQuery) ([]models.Record, int64, error) {
	var total int64
	if err := r.table(ctx).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", r.kind.Table(), err)
	}

	dbq := r.table(ctx).
		Order(clause.OrderByColumn{Column: clause.Column{Name: string(q.SortBy)}, Desc: q.Desc}).
		Order("id asc")
	if q.PageSize > 0 {
		dbq = dbq.Offset(q.Offset()).Limit(q.PageSize)
	}

	rows := make([]models.Record, 0)
	if err := dbq.Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", r.kind.Table(), err)
	}
	return rows, total, nil
}

func (r *GormRepository) Get(ctx context.Context, id uint) (*models.Record, error) {
	var rec models.Record
	if err := r.table(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s %d: %w", r.kind, id, err)
	}
	return &rec, nil
}

func (r *GormRepository) Insert(ctx context.Context, rec *models.Record) error {
	rec.ID = 0
	if err := r.table(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("insert %s: %w", r.kind, err)
	}
	return nil
}

// Update is a conditional write: if the row vanished after the caller looked
// it up, no row matches and ErrNotFound is returned.
func (r *GormRepository) Update(ctx context.Context, rec *models.Record) error {
	res := r.table(ctx).
		Where("id = ?", rec.ID).
		Updates(map[string]interface{}{
			"description": rec.Description,
			"amount":      rec.Amount,
			"date":        rec.Date,
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("update %s %d: %w", r.kind, rec.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepository) Delete(ctx context.Context, id uint) error {
	res := r.table(ctx).Where("id = ?", id).Delete(&models.Record{})
	if res.Error != nil {
		return fmt.Errorf("delete %s %d: %w", r.kind, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepository) Total(ctx context.Context, dr DateRange) (decimal.Decimal, error) {
	dbq := r.table(ctx).Select("SUM(amount)")
	if dr.From != nil {
		dbq = dbq.Where("date >= ?", dr.From.Time)
	}
	if dr.To != nil {
		dbq = dbq.Where("date <= ?", dr.To.Time)
	}

	var sum decimal.NullDecimal
	if err := dbq.Row().Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum %s: %w", r.kind.Table(), err)
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}
