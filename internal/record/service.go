package record

import (
	"context"
	"log/slog"

	"finance-tracker/internal/models"
)

// Actor identifies who triggered a change. Zero when authentication is off.
type Actor struct {
	UserID *uint
	Name   string
}

type actorKey struct{}

func ContextWithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func ActorFromContext(ctx context.Context) Actor {
	a, _ := ctx.Value(actorKey{}).(Actor)
	return a
}

// ChangeEvent describes a successful mutation. Before is nil on create,
// After is nil on delete.
type ChangeEvent struct {
	Kind   models.Kind
	Action models.AuditAction
	ID     uint
	Before *models.Record
	After  *models.Record
	Actor  Actor
}

// ChangeListener is notified after every successful mutation. Listeners run
// synchronously and must not fail the request.
type ChangeListener interface {
	RecordChanged(ctx context.Context, ev ChangeEvent)
}

// Service applies validation and change notification on top of a Repository.
type Service struct {
	repo      Repository
	listeners []ChangeListener
	log       *slog.Logger
}

func NewService(repo Repository, listeners ...ChangeListener) *Service {
	return &Service{
		repo:      repo,
		listeners: listeners,
		log:       slog.Default().With("component", "record", "kind", string(repo.Kind())),
	}
}

func (s *Service) Kind() models.Kind { return s.repo.Kind() }

func (s *Service) Repository() Repository { return s.repo }

type Page struct {
	Items      []models.Record
	TotalCount int64
	PageNumber int
	PageSize   int
}

func (s *Service) List(ctx context.Context, q ListQuery) (*Page, error) {
	rows, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return &Page{Items: rows, TotalCount: total, PageNumber: q.PageNumber, PageSize: q.PageSize}, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Record, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in Input) (*models.Record, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	rec := &models.Record{
		Description: in.Description,
		Amount:      *in.Amount,
		Date:        in.Date.Time,
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "record created", "id", rec.ID, "amount", rec.Amount.String())
	s.notify(ctx, ChangeEvent{Action: models.AuditActionCreate, ID: rec.ID, After: rec})
	return rec, nil
}

// Update validates before touching storage, then replaces the record's
// fields. A record that disappears between lookup and write is ErrNotFound.
func (s *Service) Update(ctx context.Context, id uint, in Input) error {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return err
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	before := *existing

	existing.Description = in.Description
	existing.Amount = *in.Amount
	existing.Date = in.Date.Time
	if err := s.repo.Update(ctx, existing); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "record updated", "id", id)
	s.notify(ctx, ChangeEvent{Action: models.AuditActionUpdate, ID: id, Before: &before, After: existing})
	return nil
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "record deleted", "id", id)
	s.notify(ctx, ChangeEvent{Action: models.AuditActionDelete, ID: id, Before: existing})
	return nil
}

func (s *Service) notify(ctx context.Context, ev ChangeEvent) {
	ev.Kind = s.repo.Kind()
	ev.Actor = ActorFromContext(ctx)
	for _, l := range s.listeners {
		l.RecordChanged(ctx, ev)
	}
}
