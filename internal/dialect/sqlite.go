package dialect

import (
	"fmt"
	"strings"
)

// SQLite has no schemas in the information_schema sense. The metadata
// queries address the table by name only; attached databases are not
// supported.
var sqliteDialect = &Dialect{
	Kind:       SQLite,
	DriverName: "sqlite",
	TempTable:  "dbimport",
	Ident:      doubleQuote,
}

func init() {
	d := sqliteDialect
	d.PrimaryKeyQuery = func(_, table string) (string, []any) {
		return `select name
from pragma_table_info(?)
where pk > 0
order by cid`, []any{table}
	}
	d.ColumnsQuery = func(_, table string) (string, []any) {
		return `select name
from pragma_table_info(?)
order by cid`, []any{table}
	}
	// pragma_table_info exposes only the declared type text, which already
	// carries any length or precision, so size and scale are always null.
	d.ColumnTypesQuery = func(_, table string) (string, []any) {
		return `select name
    , lower(type)
    , null as column_size
    , null as numeric_scale
from pragma_table_info(?)
order by cid`, []any{table}
	}
	d.DropTemp = func() string {
		return "drop table if exists temp." + d.TempTable
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
			placeholders(len(columns), func(int) string { return "?" })), nil
	}
	d.Update = func(schema, table string, join, subset []string) (string, error) {
		fq, err := d.TableName(schema, table)
		if err != nil {
			return "", err
		}
		cond, err := d.identList(join, fq+".{col} = "+d.TempTable+".{col}")
		if err != nil {
			return "", err
		}
		where := strings.Join(cond, " and ")
		set, err := d.identList(subset, "{col} = (select {col} from "+d.TempTable+" where "+where+")")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("update %s\nset %s\nwhere exists (select * from %s where %s)",
			fq, strings.Join(set, ",\n"), d.TempTable, where), nil
	}
	d.CopyBatch = insertBatch(d)
}
