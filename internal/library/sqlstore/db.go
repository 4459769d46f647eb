// Package sqlstore implements library.Repository over database/sql for the
// PostgreSQL, MySQL, SQLite and DuckDB drivers.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"
	_ "github.com/mattn/go-sqlite3"
)

type Dialect struct {
	Name        string
	DriverName  string
	Placeholder sq.PlaceholderFormat
}

func DialectFor(name string) (Dialect, error) {
	switch name {
	case "postgres":
		return Dialect{Name: name, DriverName: "pgx", Placeholder: sq.Dollar}, nil
	case "mysql":
		return Dialect{Name: name, DriverName: "mysql", Placeholder: sq.Question}, nil
	case "sqlite3":
		return Dialect{Name: name, DriverName: "sqlite3", Placeholder: sq.Question}, nil
	case "duckdb":
		return Dialect{Name: name, DriverName: "duckdb", Placeholder: sq.Dollar}, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported store driver %q", name)
	}
}

type DBConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

func Open(ctx context.Context, cfg DBConfig) (*sql.DB, Dialect, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, Dialect{}, err
	}
	if cfg.DSN == "" {
		return nil, Dialect{}, fmt.Errorf("store dsn is required")
	}

	db, err := sql.Open(dialect.DriverName, cfg.DSN)
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("open %s store: %w", dialect.Name, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, Dialect{}, fmt.Errorf("ping %s store: %w", dialect.Name, err)
	}

	return db, dialect, nil
}
