// Package database opens the relational backends for the progress store.
package database

import (
	"fmt"
	"log/slog"

	"github.com/EasterCompany/dex-leveling-service/config"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open connects to the configured sqlite or postgres database and migrates
// the given models.
func Open(cfg config.StoreConfig, logger *slog.Logger, models ...any) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Backend {
	case config.BackendSQLite:
		dialector = sqlite.Open(cfg.Database.Path)
	case config.BackendPostgres:
		dialector = postgres.Open(cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("backend %q is not a database backend", cfg.Backend)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         NewGormLogger(logger, cfg.Database.SlowThreshold),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("could not open %s database: %w", cfg.Backend, err)
	}

	if cfg.Backend == config.BackendSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("could not get sql.DB: %w", err)
		}
		// sqlite serialises writers; a single connection avoids SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db, models...); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs AutoMigrate for models inside a single transaction.
func Migrate(db *gorm.DB, models ...any) error {
	if len(models) == 0 {
		return nil
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.AutoMigrate(models...)
	})
	if err != nil {
		return fmt.Errorf("could not migrate database: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
