package database

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"finance-tracker/internal/config"
	"finance-tracker/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured database, tunes the pool and migrates the schema.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.DatabaseDSN)
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DatabaseDSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	logLevel := logger.Silent
	if lvl, _ := cfg.SlogLevel(); lvl <= slog.LevelDebug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	maxOpen, maxIdle := cfg.MaxOpenConns, cfg.MaxIdleConns
	// every connection to :memory: is a separate database
	if cfg.DatabaseDriver == config.DriverSQLite && strings.Contains(cfg.DatabaseDSN, ":memory:") {
		maxOpen, maxIdle = 1, 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	slog.Info("database connected and migrated", "driver", cfg.DatabaseDriver)
	return db, nil
}

// Migrate creates one table per record kind from the shared Record struct,
// plus the audit and user tables.
func Migrate(db *gorm.DB) error {
	for _, kind := range models.Kinds {
		table := kind.Table()
		if err := db.Table(table).AutoMigrate(&models.Record{}); err != nil {
			return fmt.Errorf("migrate %s: %w", table, err)
		}
		// list endpoints sort by date by default
		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_date ON %s (date)", table, table)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("index %s.date: %w", table, err)
		}
	}

	if err := db.AutoMigrate(&models.AuditLog{}, &models.User{}); err != nil {
		return fmt.Errorf("migrate audit/users: %w", err)
	}
	return nil
}

// OpenMemory returns a migrated in-memory SQLite database, used by tests
// and by DATABASE_DRIVER=sqlite DATABASE_DSN=:memory:.
func OpenMemory() (*gorm.DB, error) {
	return Open(&config.Config{
		DatabaseDriver: config.DriverSQLite,
		DatabaseDSN:    "file::memory:",
		MaxOpenConns:   1,
		MaxIdleConns:   1,
		LogLevel:       "error",
	})
}
