package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ColumnType describes one live table column, with the type rendered the way
// it is declared: "nvarchar(50)", "decimal(10, 2)", "int".
type ColumnType struct {
	Name string
	Type string
}

// PrimaryKey returns the primary key columns of schema.table in key order.
func (d *Dialect) PrimaryKey(ctx context.Context, conn Conn, schema, table string) ([]string, error) {
	q, args := d.PrimaryKeyQuery(schema, table)
	return queryStrings(ctx, conn, q, args)
}

// Columns returns every column of schema.table in ordinal order.
func (d *Dialect) Columns(ctx context.Context, conn Conn, schema, table string) ([]string, error) {
	q, args := d.ColumnsQuery(schema, table)
	return queryStrings(ctx, conn, q, args)
}

// ColumnTypes returns the declared type of every column of schema.table in
// ordinal order. Character types get their length, decimal and numeric
// types their precision and scale.
func (d *Dialect) ColumnTypes(ctx context.Context, conn Conn, schema, table string) ([]ColumnType, error) {
	q, args := d.ColumnTypesQuery(schema, table)
	rows, err := conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: column types: %w", d.Kind, err)
	}
	defer rows.Close()

	var out []ColumnType
	for rows.Next() {
		var (
			name, typ string
			size      sql.NullInt64
			scale     sql.NullInt64
		)
		if err := rows.Scan(&name, &typ, &size, &scale); err != nil {
			return nil, fmt.Errorf("%s: column types: scan: %w", d.Kind, err)
		}
		out = append(out, ColumnType{Name: name, Type: RenderType(typ, size, scale)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: column types: %w", d.Kind, err)
	}
	return out, nil
}

// RenderType appends the size details information_schema reports separately.
// A character length of -1 is SQL Server's "max".
func RenderType(typ string, size, scale sql.NullInt64) string {
	switch {
	case strings.Contains(typ, "char") && size.Valid:
		if size.Int64 < 0 {
			return typ + "(max)"
		}
		return fmt.Sprintf("%s(%d)", typ, size.Int64)
	case (typ == "decimal" || typ == "numeric") && size.Valid && scale.Valid:
		return fmt.Sprintf("%s(%d, %d)", typ, size.Int64, scale.Int64)
	}
	return typ
}

func queryStrings(ctx context.Context, conn Conn, q string, args []any) ([]string, error) {
	rows, err := conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
