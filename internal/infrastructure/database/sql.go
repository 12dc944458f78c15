package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/vidya/internal/infrastructure/config"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// NewSQL opens the configured database/sql handle.
func NewSQL(cfg *config.Config, logger logrus.FieldLogger) (*sql.DB, func(), error) {
	driver, err := cfg.DatabaseDriver()
	if err != nil {
		return nil, nil, fmt.Errorf("determine database driver: %w", err)
	}

	dsn, err := cfg.DatabaseURL()
	if err != nil {
		return nil, nil, fmt.Errorf("determine database dsn: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := OpenSQL(ctx, driver, dsn)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Store.MaxConns > 0 && driver == config.DriverPostgres {
		db.SetMaxOpenConns(int(cfg.Store.MaxConns))
	}
	logger.WithField("driver", driver).Debug("database opened")

	return db, func() {
		_ = db.Close()
	}, nil
}

// OpenSQL opens and pings a database. SQLite handles are limited to one
// connection with foreign keys enabled.
func OpenSQL(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", driver, err)
	}
	if driver == config.DriverSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s db: %w", driver, err)
	}
	if driver == config.DriverSQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	}
	return db, nil
}
