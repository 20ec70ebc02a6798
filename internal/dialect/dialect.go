// Package dialect isolates the SQL differences between the supported database
// engines. Each engine is a *Dialect value: a fixed set of query builders and a
// batch-copy function. The set of engines is closed; Lookup is a switch over
// Kind, so adding an engine means adding one file and one case.
package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
)

// Kind names a supported SQL dialect.
type Kind string

const (
	MSSQL    Kind = "mssql"
	SQLite   Kind = "sqlite"
	Postgres Kind = "postgres"
)

// Conn is the session-pinned handle the importer runs on. *sql.Conn satisfies
// it. Temp tables are scoped to a session, so every statement of one import
// must go through the same Conn.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	Raw(f func(driverConn any) error) error
}

// QueryFunc returns a parametrized metadata query and its arguments for the
// given schema and table.
type QueryFunc func(schema, table string) (string, []any)

// CopyFunc loads one batch of rows into table and commits it.
type CopyFunc func(ctx context.Context, conn Conn, table string, columns []string, rows [][]any) (int64, error)

// Dialect is the per-engine strategy table.
type Dialect struct {
	Kind Kind

	// DriverName is the database/sql driver registered for this engine.
	DriverName string

	// DefaultSchema is applied when the caller gives none. Empty means the
	// engine does not qualify table names by default.
	DefaultSchema string

	// TempTable is the staging table name, already in the engine's
	// session-local convention.
	TempTable string

	PrimaryKeyQuery  QueryFunc
	ColumnsQuery     QueryFunc
	ColumnTypesQuery QueryFunc

	// Ident renders a delimited identifier.
	Ident func(name string) (string, error)

	// DropTemp drops the staging table if it exists.
	DropTemp func() string

	// CreateTemp clones the named columns of schema.table, without rows,
	// into the staging table.
	CreateTemp func(schema, table string, columns []string) (string, error)

	// InsertTemp is a prepared insert of len(columns) values into the
	// staging table, used by the portable copy path.
	InsertTemp func(columns []string) (string, error)

	// Update writes subset from the staging table into schema.table for rows
	// matching on join.
	Update func(schema, table string, join, subset []string) (string, error)

	// CopyBatch loads and commits one batch of staging rows.
	CopyBatch CopyFunc
}

// Kinds lists the supported dialects, sorted.
func Kinds() []Kind {
	k := []Kind{MSSQL, SQLite, Postgres}
	slices.Sort(k)
	return k
}

// Lookup returns the dialect for kind.
func Lookup(kind Kind) (*Dialect, error) {
	switch kind {
	case MSSQL:
		return mssqlDialect, nil
	case SQLite:
		return sqliteDialect, nil
	case Postgres:
		return postgresDialect, nil
	}
	return nil, &UnsupportedError{Kind: kind}
}

// UnsupportedError is returned by Lookup for an unknown dialect.
type UnsupportedError struct {
	Kind Kind
}

func (e *UnsupportedError) Error() string {
	quoted := make([]string, 0, 3)
	for _, k := range Kinds() {
		quoted = append(quoted, "'"+string(k)+"'")
	}
	return "unsupported dialect, use available: " + strings.Join(quoted, ", ")
}

// TableName renders schema.table with delimited identifiers, or just table
// when schema is empty.
func (d *Dialect) TableName(schema, table string) (string, error) {
	t, err := d.Ident(table)
	if err != nil {
		return "", err
	}
	if schema == "" {
		return t, nil
	}
	s, err := d.Ident(schema)
	if err != nil {
		return "", err
	}
	return s + "." + t, nil
}

func (d *Dialect) identList(cols []string, format string) ([]string, error) {
	out := make([]string, len(cols))
	for i, c := range cols {
		q, err := d.Ident(c)
		if err != nil {
			return nil, err
		}
		out[i] = strings.ReplaceAll(format, "{col}", q)
	}
	return out, nil
}

// insertBatch is the portable copy path: a prepared insert executed once per
// row inside a transaction that is committed at the end of the batch.
func insertBatch(d *Dialect) CopyFunc {
	return func(ctx context.Context, conn Conn, table string, columns []string, rows [][]any) (int64, error) {
		if len(columns) == 0 {
			return 0, fmt.Errorf("%s: copy: columns must not be empty", d.Kind)
		}
		if len(rows) == 0 {
			return 0, nil
		}
		stmtSQL, err := d.InsertTemp(columns)
		if err != nil {
			return 0, err
		}

		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return 0, fmt.Errorf("%s: begin tx: %w", d.Kind, err)
		}
		stmt, err := tx.PrepareContext(ctx, stmtSQL)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("%s: prepare insert: %w", d.Kind, err)
		}
		defer stmt.Close()

		var inserted int64
		for _, row := range rows {
			if len(row) != len(columns) {
				_ = tx.Rollback()
				return inserted, fmt.Errorf("%s: copy: row length %d != columns length %d", d.Kind, len(row), len(columns))
			}
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				_ = tx.Rollback()
				return inserted, fmt.Errorf("%s: insert: %w", d.Kind, err)
			}
			inserted++
		}

		if err := tx.Commit(); err != nil {
			return inserted, fmt.Errorf("%s: commit: %w", d.Kind, err)
		}
		return inserted, nil
	}
}

func placeholders(n int, mark func(i int) string) string {
	p := make([]string, n)
	for i := range p {
		p[i] = mark(i + 1)
	}
	return strings.Join(p, ", ")
}

// doubleQuote renders an ANSI delimited identifier, doubling embedded quotes.
func doubleQuote(name string) (string, error) {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`, nil
}
