package main

import (
	"database/sql"
	"fmt"

	"github.com/celesta-db/celesta/internal/adaptor"
	"github.com/celesta-db/celesta/internal/adaptor/mysql"
	"github.com/celesta-db/celesta/internal/adaptor/sqlite"
	"github.com/celesta-db/celesta/internal/config"
)

// openAdaptor builds the concrete Adaptor named by cfg.Dialect and
// returns it alongside the *sql.DB the updater should drive
// transactions through.
func openAdaptor(cfg *config.Config) (adaptor.Adaptor, *sql.DB, func() error, error) {
	switch cfg.Dialect {
	case "sqlite":
		a, err := sqlite.Open(cfg.DSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open sqlite adaptor: %w", err)
		}
		return a, a.DB(), a.Close, nil
	case "mysql":
		a, err := mysql.Open(cfg.DSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open mysql adaptor: %w", err)
		}
		return a, a.DB(), a.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported dialect %q", cfg.Dialect)
	}
}
