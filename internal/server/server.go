package server

import (
	"errors"
	"log/slog"
	"strings"

	"finance-tracker/internal/audit"
	"finance-tracker/internal/auth"
	"finance-tracker/internal/config"
	"finance-tracker/internal/dashboard"
	"finance-tracker/internal/events"
	"finance-tracker/internal/financial"
	"finance-tracker/internal/models"
	"finance-tracker/internal/record"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// New builds the HTTP application. Every mutation of an expense or income is
// audited and published through pub.
func New(cfg *config.Config, db *gorm.DB, pub events.Publisher) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(corsOrigins, ","),
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
		ExposeHeaders: "Location, Content-Disposition",
	}))

	app.Get("/health", HealthHandler(db))

	// wiring
	eventListener := events.NewListener(pub)
	expenseRepo := record.NewGormRepository(db, models.KindExpense)
	incomeRepo := record.NewGormRepository(db, models.KindIncome)
	repos := []record.Repository{expenseRepo, incomeRepo}
	auditSvc := audit.NewService(db, repos, eventListener)
	summarySvc := financial.NewService(expenseRepo, incomeRepo)

	api := app.Group("/api")

	// Public auth
	protected := api
	if cfg.AuthEnabled() {
		auth.Register(api, db, cfg.JWTSecret)
		protected = api.Group("", auth.JWTMiddleware(cfg.JWTSecret))
	}

	for _, repo := range repos {
		record.Register(protected, record.NewService(repo, auditSvc, eventListener))
	}
	protected.Get("/summary", financial.SummaryHandler(summarySvc))
	protected.Get("/dashboard/trend", dashboard.TrendHandler(expenseRepo, incomeRepo))
	audit.Register(protected, auditSvc)

	return app
}

// ErrorHandler renders every error as {"error": message}. Errors that are not
// *fiber.Error are logged and hidden behind a generic 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var e *fiber.Error
	if errors.As(err, &e) {
		return c.Status(e.Code).JSON(fiber.Map{
			"error": e.Message,
		})
	}

	slog.ErrorContext(c.UserContext(), "unexpected error",
		"error", err,
		"method", c.Method(),
		"path", c.Path(),
		"request_id", c.Locals(requestid.ConfigDefault.ContextKey))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal server error",
	})
}

// GET /health
func HealthHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			slog.ErrorContext(c.UserContext(), "health check failed", "error", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
