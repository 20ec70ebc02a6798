package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	"github.com/microsoft/go-mssqldb/msdsn"
	_ "modernc.org/sqlite" // registers "sqlite"

	"github.com/qpenko/database-importer/internal/dialect"
)

const pingTimeout = 5 * time.Second

// Open validates dsn for the dialect, opens a pool with the dialect's driver
// and pings it. Callers pin one session from the pool with (*sql.DB).Conn
// before handing it to the importer.
func Open(ctx context.Context, kind dialect.Kind, dsn string) (*sql.DB, error) {
	d, err := dialect.Lookup(kind)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%s: DSN must not be empty", kind)
	}
	if err := validateDSN(kind, dsn); err != nil {
		return nil, err
	}

	db, err := sql.Open(d.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", kind, err)
	}

	if kind == dialect.SQLite {
		// Every pooled connection to ":memory:" is a separate database.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping: %w", kind, err)
	}

	if kind == dialect.SQLite {
		// Ignore the error if the build of the driver lacks the pragma.
		_, _ = db.ExecContext(ctx, "PRAGMA foreign_keys = ON;")
	}
	return db, nil
}

// validateDSN fails fast on obvious connection string mistakes without
// touching the network.
func validateDSN(kind dialect.Kind, dsn string) error {
	switch kind {
	case dialect.MSSQL:
		if _, err := msdsn.Parse(dsn); err != nil {
			return fmt.Errorf("mssql dsn: %w", err)
		}
	case dialect.Postgres:
		if _, err := pgx.ParseConfig(dsn); err != nil {
			return fmt.Errorf("postgres dsn: %w", err)
		}
	}
	return nil
}
