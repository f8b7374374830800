package main

import (
	"fmt"
	"log/slog"

	"github.com/marcus-crane/scrapeboard/config"
	"github.com/marcus-crane/scrapeboard/db"
	"github.com/marcus-crane/scrapeboard/migrations"
)

// openStore returns a nil store when the dashboard only reads a remote feed.
func openStore(cfg config.Config) (db.Store, error) {
	var (
		store db.Store
		err   error
	)
	switch cfg.Database.Driver {
	case config.DriverNone:
		slog.Info("No store configured, /api/requests will not be served")
		return nil, nil
	case config.DriverMemory:
		store = db.NewMemoryStore()
	case config.DriverSqlite:
		store, err = db.NewSqliteStore(cfg.Database.DSN)
	case config.DriverMysql:
		store, err = db.NewMysqlStore(cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := store.ApplyMigrations(migrations.GetMigrations()); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	slog.Info("Store is ready", slog.String("driver", cfg.Database.Driver))
	return store, nil
}
