package record

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Register mounts the five collection operations plus export and import under
// /<collection> on the given router.
func Register(router fiber.Router, svc *Service) {
	g := router.Group("/" + svc.Kind().Collection())

	g.Get("/", ListHandler(svc))
	g.Post("/", CreateHandler(svc))
	g.Get("/export", ExportHandler(svc))
	g.Post("/import", ImportHandler(svc))
	g.Get("/:id", GetHandler(svc))
	g.Put("/:id", UpdateHandler(svc))
	g.Delete("/:id", DeleteHandler(svc))
}

// GET /api/{collection}?pageNumber=1&pageSize=10&sortBy=date&sortDirection=desc
func ListHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := NewListQuery(
			c.QueryInt("pageNumber", 1),
			c.QueryInt("pageSize", DefaultPageSize),
			c.Query("sortBy"),
			c.Query("sortDirection"),
		)

		page, err := svc.List(c.UserContext(), q)
		if err != nil {
			return err
		}

		return c.JSON(ListResponse{
			Items:      ToResponses(page.Items),
			TotalCount: page.TotalCount,
			PageNumber: page.PageNumber,
			PageSize:   page.PageSize,
		})
	}
}

// GET /api/{collection}/:id
func GetHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}

		rec, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return toHTTPError(c, err)
		}
		return c.JSON(ToResponse(*rec))
	}
}

// POST /api/{collection}
func CreateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body Input
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
		}

		rec, err := svc.Create(c.UserContext(), body)
		if err != nil {
			return toHTTPError(c, err)
		}

		c.Location(fmt.Sprintf("%s/%d", strings.TrimSuffix(c.Path(), "/"), rec.ID))
		return c.Status(fiber.StatusCreated).JSON(ToResponse(*rec))
	}
}

// PUT /api/{collection}/:id
func UpdateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}

		var body Input
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
		}

		if err := svc.Update(c.UserContext(), id, body); err != nil {
			return toHTTPError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// DELETE /api/{collection}/:id
func DeleteHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}

		if err := svc.Delete(c.UserContext(), id); err != nil {
			return toHTTPError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// Ids that cannot name a record are reported as not found.
func parseID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 0)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusNotFound, ErrNotFound.Error())
	}
	return uint(id), nil
}

func toHTTPError(c *fiber.Ctx, err error) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "validation failed",
			"errors": verr.Fields,
		})
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, ErrNotFound.Error())
	default:
		return err
	}
}
