package record

import (
	"context"
	"sort"
	"sync"
	"time"

	"finance-tracker/internal/models"

	"github.com/shopspring/decimal"
)

// MemoryRepository keeps records in insertion order behind a mutex. It
// satisfies the same contract as GormRepository and backs the tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	kind   models.Kind
	rows   []models.Record
	nextID uint
}

func NewMemoryRepository(kind models.Kind) *MemoryRepository {
	return &MemoryRepository{kind: kind, nextID: 1}
}

func (r *MemoryRepository) Kind() models.Kind { return r.kind }

func (r *MemoryRepository) List(_ context.Context, q ListQuery) ([]models.Record, int64, error) {
	r.mu.RLock()
	rows := make([]models.Record, len(r.rows))
	copy(rows, r.rows)
	r.mu.RUnlock()

	sort.SliceStable(rows, func(i, j int) bool {
		c := compareRecords(rows[i], rows[j], q.SortBy)
		if c == 0 {
			return rows[i].ID < rows[j].ID
		}
		if q.Desc {
			return c > 0
		}
		return c < 0
	})

	total := int64(len(rows))
	if q.PageSize == 0 {
		return rows, total, nil
	}

	start := q.Offset()
	if start >= len(rows) {
		return []models.Record{}, total, nil
	}
	end := start + q.PageSize
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end], total, nil
}

func compareRecords(a, b models.Record, field SortField) int {
	switch field {
	case SortByAmount:
		return a.Amount.Cmp(b.Amount)
	case SortByDescription:
		switch {
		case a.Description < b.Description:
			return -1
		case a.Description > b.Description:
			return 1
		}
		return 0
	default:
		return a.Date.Compare(b.Date)
	}
}

func (r *MemoryRepository) Get(_ context.Context, id uint) (*models.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.indexOf(id); i >= 0 {
		rec := r.rows[i]
		return &rec, nil
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) Insert(_ context.Context, rec *models.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	rec.ID = r.nextID
	rec.CreatedAt = now
	rec.UpdatedAt = now
	r.nextID++
	r.rows = append(r.rows, *rec)
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, rec *models.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(rec.ID)
	if i < 0 {
		return ErrNotFound
	}
	stored := &r.rows[i]
	stored.Description = rec.Description
	stored.Amount = rec.Amount
	stored.Date = rec.Date
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	r.rows = append(r.rows[:i], r.rows[i+1:]...)
	return nil
}

func (r *MemoryRepository) Total(_ context.Context, dr DateRange) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sum := decimal.Zero
	for _, rec := range r.rows {
		if dr.Contains(rec.Date) {
			sum = sum.Add(rec.Amount)
		}
	}
	return sum, nil
}

func (r *MemoryRepository) indexOf(id uint) int {
	for i := range r.rows {
		if r.rows[i].ID == id {
			return i
		}
	}
	return -1
}
