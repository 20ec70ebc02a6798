package dialect

import (
	"context"
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
)

var mssqlDialect = &Dialect{
	Kind:          MSSQL,
	DriverName:    "sqlserver",
	DefaultSchema: "dbo",
	TempTable:     "#dbimport",
	Ident:         bracketIdent,
}

func init() {
	d := mssqlDialect
	d.PrimaryKeyQuery = func(schema, table string) (string, []any) {
		return `select column_name
from information_schema.key_column_usage
where table_schema = @p1
    and table_name = @p2
    and objectproperty(object_id(quotename(constraint_schema) + '.' + quotename(constraint_name)), 'IsPrimaryKey') = 1
order by ordinal_position`, []any{schema, table}
	}
	d.ColumnsQuery = func(schema, table string) (string, []any) {
		return `select column_name
from information_schema.columns
where table_schema = @p1
    and table_name = @p2
order by ordinal_position`, []any{schema, table}
	}
	d.ColumnTypesQuery = func(schema, table string) (string, []any) {
		return `select column_name
    , data_type
    , coalesce(character_maximum_length, numeric_precision, datetime_precision) as column_size
    , numeric_scale
from information_schema.columns
where table_schema = @p1
    and table_name = @p2
order by ordinal_position`, []any{schema, table}
	}
	d.DropTemp = func() string {
		return fmt.Sprintf("if object_id('tempdb.dbo.%s') is not null drop table %s", d.TempTable, d.TempTable)
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
		// The union drops the IDENTITY property select into would copy, so
		// staged key values are kept as given.
		list := strings.Join(cols, ", ")
		return fmt.Sprintf("select top 0 %s into %s from %s union all select top 0 %s from %s",
			list, d.TempTable, fq, list, fq), nil
	}
	d.InsertTemp = func(columns []string) (string, error) {
		cols, err := d.identList(columns, "{col}")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("insert into %s (%s) values (%s)", d.TempTable, strings.Join(cols, ", "),
			placeholders(len(columns), func(i int) string { return fmt.Sprintf("@p%d", i) })), nil
	}
	d.Update = func(schema, table string, join, subset []string) (string, error) {
		fq, err := d.TableName(schema, table)
		if err != nil {
			return "", err
		}
		set, err := d.identList(subset, "a.{col} = b.{col}")
		if err != nil {
			return "", err
		}
		cond, err := d.identList(join, "a.{col} = b.{col}")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("update a\nset %s\nfrom %s as a\ninner join %s as b\non %s",
			strings.Join(set, ", "), fq, d.TempTable, strings.Join(cond, " and ")), nil
	}
	d.CopyBatch = mssqlCopy
}

// mssqlCopy bulk-copies one batch into the staging table with the TDS bulk
// load API.
func mssqlCopy(ctx context.Context, conn Conn, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mssql: begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback() }

	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(table, mssql.BulkOptions{}, columns...))
	if err != nil {
		rollback()
		return 0, fmt.Errorf("mssql: prepare bulk: %w", err)
	}
	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			_ = stmt.Close()
			rollback()
			return 0, fmt.Errorf("mssql: bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		rollback()
		return 0, fmt.Errorf("mssql: bulk finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		rollback()
		return 0, fmt.Errorf("mssql: rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mssql: commit: %w", err)
	}
	return n, nil
}
