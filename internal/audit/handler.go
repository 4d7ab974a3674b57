package audit

import (
	"encoding/json"
	"errors"
	"strconv"

	"finance-tracker/internal/models"

	"github.com/gofiber/fiber/v2"
)

const timeLayout = "2006-01-02 15:04:05"

type AuditLogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"created_at"`
	UserID      *uint              `json:"user_id"`
	UserName    string             `json:"user_name"`
	EntityType  string             `json:"entity_type"`
	EntityID    uint               `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	BeforeData  json.RawMessage    `json:"before_data"`
	AfterData   json.RawMessage    `json:"after_data"`
	IsUndone    bool               `json:"is_undone"`
	UndoneBy    *uint              `json:"undone_by"`
	UndoneAt    *string            `json:"undone_at"`
}

func toResponse(log models.AuditLog) AuditLogResponse {
	var undoneAtStr *string
	if log.UndoneAt != nil {
		formatted := log.UndoneAt.Format(timeLayout)
		undoneAtStr = &formatted
	}

	return AuditLogResponse{
		ID:          log.ID,
		CreatedAt:   log.CreatedAt.Format(timeLayout),
		UserID:      log.UserID,
		UserName:    log.UserName,
		EntityType:  log.EntityType,
		EntityID:    log.EntityID,
		Action:      log.Action,
		Description: log.Description,
		BeforeData:  rawJSON(log.BeforeData),
		AfterData:   rawJSON(log.AfterData),
		IsUndone:    log.IsUndone,
		UndoneBy:    log.UndoneBy,
		UndoneAt:    undoneAtStr,
	}
}

func rawJSON(s string) json.RawMessage {
	if s == "" || !json.Valid([]byte(s)) {
		return json.RawMessage("null")
	}
	return json.RawMessage(s)
}

// Register mounts the audit routes under /audit-logs.
func Register(router fiber.Router, svc *Service) {
	g := router.Group("/audit-logs")
	g.Get("/", ListAuditLogsHandler(svc))
	g.Post("/:id/undo", UndoAuditLogHandler(svc))
}

// GET /api/audit-logs?entity_type=expense&entity_id=1&user_id=1
func ListAuditLogsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f := Filter{
			EntityType: c.Query("entity_type"),
			EntityID:   queryUint(c, "entity_id"),
			UserID:     queryUint(c, "user_id"),
		}
		// "expenses" is accepted as well as "expense"
		if kind, ok := models.ParseKind(f.EntityType); ok {
			f.EntityType = string(kind)
		}

		logs, err := svc.List(c.UserContext(), f)
		if err != nil {
			return err
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, log := range logs {
			resp = append(resp, toResponse(log))
		}
		return c.JSON(resp)
	}
}

// POST /api/audit-logs/:id/undo
func UndoAuditLogHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		logID, err := strconv.ParseUint(c.Params("id"), 10, 64)
		if err != nil || logID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid log id")
		}

		undoLog, err := svc.Undo(c.UserContext(), uint(logID))
		switch {
		case errors.Is(err, ErrLogNotFound):
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		case errors.Is(err, ErrAlreadyUndone), errors.Is(err, ErrNotUndoable), errors.Is(err, ErrEntityGone):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case err != nil:
			return err
		}

		return c.JSON(fiber.Map{
			"message": "change undone",
			"log":     toResponse(*undoLog),
		})
	}
}

func queryUint(c *fiber.Ctx, key string) uint {
	n, err := strconv.ParseUint(c.Query(key), 10, 64)
	if err != nil {
		return 0
	}
	return uint(n)
}
