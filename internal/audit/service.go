package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finance-tracker/internal/models"
	"finance-tracker/internal/record"

	"gorm.io/gorm"
)

var (
	ErrLogNotFound   = errors.New("audit log not found")
	ErrAlreadyUndone = errors.New("this change has already been undone")
	ErrNotUndoable   = errors.New("this action cannot be undone")
	ErrEntityGone    = errors.New("the record no longer exists")
)

type LogOptions struct {
	Actor       record.Actor
	EntityType  models.Kind
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

type Filter struct {
	EntityType string
	EntityID   uint
	UserID     uint
}

// Service records every change to expenses and incomes and can reverse them.
// It is registered as a record.ChangeListener on both record services.
type Service struct {
	db        *gorm.DB
	repos     map[models.Kind]record.Repository
	listeners []record.ChangeListener
	log       *slog.Logger
}

// NewService keeps one repository per kind for undo. Listeners are told about
// the changes an undo makes.
func NewService(db *gorm.DB, repos []record.Repository, listeners ...record.ChangeListener) *Service {
	byKind := make(map[models.Kind]record.Repository, len(repos))
	for _, r := range repos {
		byKind[r.Kind()] = r
	}
	return &Service{
		db:        db,
		repos:     byKind,
		listeners: listeners,
		log:       slog.Default().With("component", "audit"),
	}
}

func (s *Service) RecordChanged(ctx context.Context, ev record.ChangeEvent) {
	opts := LogOptions{
		Actor:       ev.Actor,
		EntityType:  ev.Kind,
		EntityID:    ev.ID,
		Action:      ev.Action,
		Description: describe(ev),
	}
	if ev.Before != nil {
		opts.Before = record.ToResponse(*ev.Before)
	}
	if ev.After != nil {
		opts.After = record.ToResponse(*ev.After)
	}

	if _, err := s.WriteLog(ctx, opts); err != nil {
		s.log.ErrorContext(ctx, "failed to write audit log",
			"error", err,
			"entity_type", ev.Kind,
			"entity_id", ev.ID,
			"action", ev.Action)
	}
}

func describe(ev record.ChangeEvent) string {
	switch ev.Action {
	case models.AuditActionCreate:
		return fmt.Sprintf("%s created: %s (%s)", ev.Kind, ev.After.Description, ev.After.Amount.StringFixed(2))
	case models.AuditActionUpdate:
		return fmt.Sprintf("%s updated: %s (%s)", ev.Kind, ev.After.Description, ev.After.Amount.StringFixed(2))
	case models.AuditActionDelete:
		return fmt.Sprintf("%s deleted: %s (%s)", ev.Kind, ev.Before.Description, ev.Before.Amount.StringFixed(2))
	}
	return fmt.Sprintf("%s %s", ev.Kind, ev.Action)
}

func (s *Service) WriteLog(ctx context.Context, opts LogOptions) (*models.AuditLog, error) {
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	entry := models.AuditLog{
		UserID:      opts.Actor.UserID,
		UserName:    opts.Actor.Name,
		EntityType:  string(opts.EntityType),
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("save audit log: %w", err)
	}
	return &entry, nil
}

// List returns matching logs, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]models.AuditLog, error) {
	q := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID > 0 {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.UserID > 0 {
		q = q.Where("user_id = ?", f.UserID)
	}

	var logs []models.AuditLog
	if err := q.Order("created_at DESC").Order("id DESC").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.AuditLog, error) {
	var entry models.AuditLog
	err := s.db.WithContext(ctx).First(&entry, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLogNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get audit log: %w", err)
	}
	return &entry, nil
}

// Undo reverses the change recorded by a log. Create is undone by deleting
// the record, update by restoring the before snapshot and delete by inserting
// the snapshot again under a new id. It returns the undo log it wrote.
//
// The log is claimed with a conditional update before storage is touched, so
// concurrent undos of one log apply it once. A failed undo releases the claim.
func (s *Service) Undo(ctx context.Context, logID uint) (*models.AuditLog, error) {
	entry, err := s.Get(ctx, logID)
	if err != nil {
		return nil, err
	}
	if entry.IsUndone {
		return nil, ErrAlreadyUndone
	}

	switch entry.Action {
	case models.AuditActionCreate, models.AuditActionUpdate, models.AuditActionDelete:
	default:
		return nil, ErrNotUndoable
	}

	kind, ok := models.ParseKind(entry.EntityType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown entity type %q", ErrNotUndoable, entry.EntityType)
	}
	repo, ok := s.repos[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no repository for %s", ErrNotUndoable, kind)
	}

	ev := record.ChangeEvent{Kind: kind, Action: models.AuditActionUndo, Actor: record.ActorFromContext(ctx)}

	if err := s.claim(ctx, logID, ev.Actor.UserID); err != nil {
		return nil, err
	}
	if err := s.apply(ctx, entry, repo, &ev); err != nil {
		if relErr := s.release(ctx, logID); relErr != nil {
			s.log.ErrorContext(ctx, "failed to release audit log", "error", relErr, "log_id", logID)
		}
		return nil, err
	}

	undoLog := LogOptions{
		Actor:       ev.Actor,
		EntityType:  kind,
		EntityID:    ev.ID,
		Action:      models.AuditActionUndo,
		Description: "Undone: " + entry.Description,
	}
	if ev.Before != nil {
		undoLog.Before = record.ToResponse(*ev.Before)
	}
	if ev.After != nil {
		undoLog.After = record.ToResponse(*ev.After)
	}
	written, err := s.WriteLog(ctx, undoLog)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "change undone", "log_id", logID, "entity_type", kind, "entity_id", ev.ID)
	for _, l := range s.listeners {
		l.RecordChanged(ctx, ev)
	}
	return written, nil
}

// claim marks the log undone only if no one else has.
func (s *Service) claim(ctx context.Context, logID uint, by *uint) error {
	res := s.db.WithContext(ctx).Model(&models.AuditLog{}).
		Where("id = ? AND is_undone = ?", logID, false).
		Updates(map[string]any{
			"is_undone": true,
			"undone_by": by,
			"undone_at": time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("mark audit log undone: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyUndone
	}
	return nil
}

func (s *Service) release(ctx context.Context, logID uint) error {
	return s.db.WithContext(ctx).Model(&models.AuditLog{}).
		Where("id = ?", logID).
		Updates(map[string]any{
			"is_undone": false,
			"undone_by": nil,
			"undone_at": nil,
		}).Error
}

// apply performs the storage side of an undo and fills ev with what changed.
func (s *Service) apply(ctx context.Context, entry *models.AuditLog, repo record.Repository, ev *record.ChangeEvent) error {
	switch entry.Action {
	case models.AuditActionCreate:
		existing, err := lookup(ctx, repo, entry.EntityID)
		if err != nil {
			return err
		}
		if err := repo.Delete(ctx, entry.EntityID); err != nil {
			return undoStorageError(err)
		}
		ev.ID, ev.Before = existing.ID, existing

	case models.AuditActionUpdate:
		snap, err := decodeSnapshot(entry.BeforeData)
		if err != nil {
			return err
		}
		existing, err := lookup(ctx, repo, entry.EntityID)
		if err != nil {
			return err
		}
		before := *existing
		existing.Description = snap.Description
		existing.Amount = snap.Amount
		existing.Date = snap.Date.Time
		if err := repo.Update(ctx, existing); err != nil {
			return undoStorageError(err)
		}
		ev.ID, ev.Before, ev.After = existing.ID, &before, existing

	case models.AuditActionDelete:
		snap, err := decodeSnapshot(entry.BeforeData)
		if err != nil {
			return err
		}
		restored := &models.Record{
			Description: snap.Description,
			Amount:      snap.Amount,
			Date:        snap.Date.Time,
		}
		if err := repo.Insert(ctx, restored); err != nil {
			return fmt.Errorf("recreate %s: %w", ev.Kind, err)
		}
		ev.ID, ev.After = restored.ID, restored

	default:
		return ErrNotUndoable
	}
	return nil
}

func lookup(ctx context.Context, repo record.Repository, id uint) (*models.Record, error) {
	rec, err := repo.Get(ctx, id)
	if errors.Is(err, record.ErrNotFound) {
		return nil, ErrEntityGone
	}
	return rec, err
}

func undoStorageError(err error) error {
	if errors.Is(err, record.ErrNotFound) {
		return ErrEntityGone
	}
	return err
}

func decodeSnapshot(data string) (*record.Response, error) {
	var snap *record.Response
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: snapshot is empty", ErrNotUndoable)
	}
	return snap, nil
}
