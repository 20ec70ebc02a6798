// Package preview lines up the columns of an input file with the columns of
// the destination table before anything is written.
//
// Each live column becomes one Row carrying its declared type, the file column
// of the same name (if any) with its translated type, and whether that file
// column would be used as a join key or written. A file type that the database
// cannot take implicitly is flagged with ExplicitCast.
package preview

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/qpenko/database-importer/internal/dataset"
	"github.com/qpenko/database-importer/internal/dialect"
	"github.com/qpenko/database-importer/internal/importer"
)

// Options selects the destination and, optionally, the reconciliation to
// preview. Empty JoinOn and Subset are derived the way the importer derives
// them.
type Options struct {
	Dialect dialect.Kind
	Schema  string
	Table   string
	JoinOn  []string
	Subset  []string
}

// Row is one live table column.
type Row struct {
	TableColumn string
	TableType   string

	// FileColumn is empty when the file has no column of that name.
	FileColumn string
	FileType   string

	PrimaryKey   bool
	Join         bool
	Subset       bool
	ExplicitCast bool
}

// Grid is the full comparison.
type Grid struct {
	// Table is the qualified destination name.
	Table string
	Rows  []Row

	// Unmatched lists file columns no table column carries, in file order.
	Unmatched []string
}

// Warnings returns one line per written column that needs an explicit cast.
func (g *Grid) Warnings() []string {
	var out []string
	for _, r := range g.Rows {
		if r.ExplicitCast && (r.Join || r.Subset) {
			out = append(out, fmt.Sprintf("column %q: file type %s needs an explicit cast to %s", r.TableColumn, r.FileType, r.TableType))
		}
	}
	return out
}

// ReadFunc produces the input table.
type ReadFunc func(ctx context.Context) (*dataset.Table, error)

// Collect reads the input and the table metadata concurrently and builds the
// grid. The metadata queries share conn and run one after the other.
func Collect(ctx context.Context, conn dialect.Conn, read ReadFunc, opts Options) (*Grid, error) {
	d, err := lookup(opts.Dialect)
	if err != nil {
		return nil, err
	}
	schema := opts.Schema
	if schema == "" {
		schema = d.DefaultSchema
	}

	var (
		data *dataset.Table
		cols []dialect.ColumnType
		pk   []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data, err = read(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		if cols, err = d.ColumnTypes(gctx, conn, schema, opts.Table); err != nil {
			return fmt.Errorf("preview: %w", err)
		}
		if pk, err = d.PrimaryKey(gctx, conn, schema, opts.Table); err != nil {
			return fmt.Errorf("preview: primary key: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("preview: table %s not found or has no columns", importer.QualifyName(schema, opts.Table))
	}

	opts.Schema = schema
	return Build(data, cols, pk, opts), nil
}

// Build compares data with the live columns cols, whose primary key is pk.
func Build(data *dataset.Table, cols []dialect.ColumnType, pk []string, opts Options) *Grid {
	data = data.ResetIndex()
	fileCols := data.Columns()

	join := opts.JoinOn
	if len(join) == 0 {
		for _, c := range fileCols {
			if slices.Contains(pk, c) && !slices.Contains(join, c) {
				join = append(join, c)
			}
		}
	}
	subset := opts.Subset
	if len(subset) == 0 {
		subset = fileCols
	}

	g := &Grid{Table: importer.QualifyName(opts.Schema, opts.Table)}
	for _, c := range cols {
		r := Row{
			TableColumn: c.Name,
			TableType:   c.Type,
			PrimaryKey:  slices.Contains(pk, c.Name),
		}
		if dt, ok := data.Dtype(c.Name); ok {
			r.FileColumn = c.Name
			r.FileType = importer.TranslateDtype(dt)
			r.Join = slices.Contains(join, c.Name)
			r.Subset = !r.Join && slices.Contains(subset, c.Name)
			r.ExplicitCast = importer.IsCastExplicit(r.FileType, c.Type)
		}
		g.Rows = append(g.Rows, r)
	}

	for _, c := range fileCols {
		known := slices.ContainsFunc(cols, func(ct dialect.ColumnType) bool { return ct.Name == c })
		if !known && !slices.Contains(g.Unmatched, c) {
			g.Unmatched = append(g.Unmatched, c)
		}
	}
	return g
}

func lookup(kind dialect.Kind) (*dialect.Dialect, error) {
	if kind == "" {
		kind = dialect.MSSQL
	}
	d, err := dialect.Lookup(kind)
	if err != nil {
		return nil, fmt.Errorf("preview: %w", err)
	}
	return d, nil
}
