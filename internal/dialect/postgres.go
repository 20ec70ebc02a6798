package dialect

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

var postgresDialect = &Dialect{
	Kind:          Postgres,
	DriverName:    "pgx",
	DefaultSchema: "public",
	TempTable:     "dbimport",
	Ident:         doubleQuote,
}

func init() {
	d := postgresDialect
	d.PrimaryKeyQuery = func(schema, table string) (string, []any) {
		return `select kcu.column_name
from information_schema.table_constraints as tc
inner join information_schema.key_column_usage as kcu
    on kcu.constraint_schema = tc.constraint_schema
    and kcu.constraint_name = tc.constraint_name
where tc.constraint_type = 'PRIMARY KEY'
    and tc.table_schema = $1
    and tc.table_name = $2
order by kcu.ordinal_position`, []any{schema, table}
	}
	d.ColumnsQuery = func(schema, table string) (string, []any) {
		return `select column_name
from information_schema.columns
where table_schema = $1
    and table_name = $2
order by ordinal_position`, []any{schema, table}
	}
	d.ColumnTypesQuery = func(schema, table string) (string, []any) {
		return `select column_name
    , data_type
    , coalesce(character_maximum_length, numeric_precision, datetime_precision) as column_size
    , numeric_scale
from information_schema.columns
where table_schema = $1
    and table_name = $2
order by ordinal_position`, []any{schema, table}
	}
	d.DropTemp = func() string {
		return "drop table if exists pg_temp." + d.TempTable
	}
	d.CreateTemp = func(schema, table string, columns []string) (string, error) {
		fq, err := d.TableName(schema, table)
		if err != nil {
			return "", err
		}
		cols, err := d.identList(columns, "{col}")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("create temp table %s as\nselect %s from %s limit 0",
			d.TempTable, strings.Join(cols, ", "), fq), nil
	}
	d.InsertTemp = func(columns []string) (string, error) {
		cols, err := d.identList(columns, "{col}")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("insert into %s (%s) values (%s)", d.TempTable, strings.Join(cols, ", "),
			placeholders(len(columns), func(i int) string { return fmt.Sprintf("$%d", i) })), nil
	}
	d.Update = func(schema, table string, join, subset []string) (string, error) {
		fq, err := d.TableName(schema, table)
		if err != nil {
			return "", err
		}
		set, err := d.identList(subset, "{col} = b.{col}")
		if err != nil {
			return "", err
		}
		cond, err := d.identList(join, "a.{col} = b.{col}")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("update %s as a\nset %s\nfrom %s as b\nwhere %s",
			fq, strings.Join(set, ", "), d.TempTable, strings.Join(cond, " and ")), nil
	}
	d.CopyBatch = postgresCopy(insertBatch(d))
}

// errNotPgx marks a driver connection that is not backed by pgx.
var errNotPgx = errors.New("postgres: driver connection is not pgx")

// postgresCopy runs COPY FROM STDIN on the pgx connection under conn. When
// the session is not served by pgx/stdlib it falls back to the prepared insert
// path.
func postgresCopy(fallback CopyFunc) CopyFunc {
	return func(ctx context.Context, conn Conn, table string, columns []string, rows [][]any) (int64, error) {
		if len(rows) == 0 {
			return 0, nil
		}
		var n int64
		err := conn.Raw(func(driverConn any) error {
			sc, ok := driverConn.(*stdlib.Conn)
			if !ok {
				return errNotPgx
			}
			pgxConn := sc.Conn()
			tx, err := pgxConn.Begin(ctx)
			if err != nil {
				return fmt.Errorf("postgres: begin tx: %w", err)
			}
			n, err = tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
			if err != nil {
				_ = tx.Rollback(ctx)
				return fmt.Errorf("postgres: copy: %w", err)
			}
			if err := tx.Commit(ctx); err != nil {
				return fmt.Errorf("postgres: commit: %w", err)
			}
			return nil
		})
		if errors.Is(err, errNotPgx) {
			return fallback(ctx, conn, table, columns, rows)
		}
		return n, err
	}
}
