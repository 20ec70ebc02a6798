// Package importer updates rows of an existing database table from a tabular
// dataset.
//
// An Importer is bound to one table on one session. At construction it reads
// the table's primary key and column list, decides which dataset columns to
// join on and which to write, and validates the dataset against both. Run
// stages the selected columns into a session temp table in batches and
// applies a single correlated UPDATE from it.
package importer

import (
	"context"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/qpenko/database-importer/internal/dataset"
	"github.com/qpenko/database-importer/internal/dialect"
	"github.com/qpenko/database-importer/internal/metrics"
	"github.com/qpenko/database-importer/internal/storage"
)

// Conn is the session the importer runs every statement on. *sql.Conn
// satisfies it.
type Conn = dialect.Conn

// Options configure an Importer.
type Options struct {
	// Table is the destination table. Required.
	Table string

	// Schema qualifies Table. Empty selects the dialect default ("dbo" on
	// mssql, "public" on postgres, none on sqlite).
	Schema string

	// JoinOn lists the dataset columns that identify a row. Empty selects
	// the dataset columns that belong to the table's primary key.
	JoinOn []string

	// Subset lists the dataset columns to write. Empty selects every
	// dataset column. Join columns are always removed from it.
	Subset []string

	// Dialect of the database behind the session. Empty means mssql.
	Dialect dialect.Kind

	// BatchSize is the number of rows staged per commit. Zero means
	// storage.DefaultBatchSize.
	BatchSize int

	// Job labels log lines and metrics.
	Job string
}

// Importer updates one table from one dataset. It is not safe for
// concurrent use.
type Importer struct {
	conn    Conn
	dialect *dialect.Dialect
	data    *dataset.Table

	table  string
	schema string

	batchSize int
	job       string

	tablePK   []string
	tableCols []string

	joinOn  []string
	subset  []string
	sliced  *dataset.Table
	skipped int

	rowCountUpdated  int64
	rowCountInserted int64
}

// New validates data against the live table and returns an Importer ready to
// Run. conn is borrowed; New and Run never close it.
func New(ctx context.Context, conn Conn, data *dataset.Table, opts Options) (*Importer, error) {
	if data == nil || data.Empty() {
		return nil, &ConfigError{Msg: "data contains no records"}
	}

	kind := opts.Dialect
	if kind == "" {
		kind = dialect.MSSQL
	}
	d, err := dialect.Lookup(kind)
	if err != nil {
		return nil, &ConfigError{Msg: err.Error()}
	}

	data = data.ResetIndex()

	imp := &Importer{
		conn:             conn,
		dialect:          d,
		data:             data,
		table:            opts.Table,
		schema:           opts.Schema,
		batchSize:        opts.BatchSize,
		job:              opts.Job,
		rowCountUpdated:  -1,
		rowCountInserted: -1,
	}
	if imp.schema == "" {
		imp.schema = d.DefaultSchema
	}
	if imp.batchSize <= 0 {
		imp.batchSize = storage.DefaultBatchSize
	}
	if imp.job == "" {
		imp.job = metrics.DefaultJobLabel
	}

	start := time.Now()
	err = imp.fetchMetadata(ctx)
	metrics.RecordStep(imp.job, "introspect", err, time.Since(start))
	if err != nil {
		return nil, err
	}

	join := opts.JoinOn
	if len(join) == 0 {
		join = nil
		for _, c := range data.Columns() {
			if slices.Contains(imp.tablePK, c) {
				join = append(join, c)
			}
		}
	}
	subsetSrc := opts.Subset
	if len(subsetSrc) == 0 {
		subsetSrc = data.Columns()
	}
	var subset []string
	for _, c := range subsetSrc {
		if !slices.Contains(join, c) {
			subset = append(subset, c)
		}
	}

	if err := imp.apply(join, subset); err != nil {
		return nil, err
	}
	return imp, nil
}

func (imp *Importer) fetchMetadata(ctx context.Context) error {
	pk, err := imp.dialect.PrimaryKey(ctx, imp.conn, imp.schema, imp.table)
	if err != nil {
		return fmt.Errorf("importer: primary key of %s: %w", imp.qualifiedName(), err)
	}
	cols, err := imp.dialect.Columns(ctx, imp.conn, imp.schema, imp.table)
	if err != nil {
		return fmt.Errorf("importer: columns of %s: %w", imp.qualifiedName(), err)
	}
	imp.tablePK = pk
	imp.tableCols = cols
	return nil
}

// SetJoinOn replaces the join columns. The current subset is validated
// against the new join columns. On error the Importer is unchanged.
func (imp *Importer) SetJoinOn(columns []string) error {
	return imp.apply(columns, imp.subset)
}

// SetSubset replaces the columns to write. On error the Importer is
// unchanged.
func (imp *Importer) SetSubset(columns []string) error {
	return imp.apply(imp.joinOn, columns)
}

// apply validates a join/subset pair, slices the dataset for it, and only
// then swaps the new state in.
func (imp *Importer) apply(join, subset []string) error {
	join, err := imp.validateJoin(join)
	if err != nil {
		return err
	}
	subset, err = imp.validateSubset(subset, join)
	if err != nil {
		return err
	}
	sliced, skipped, err := imp.slice(join, subset)
	if err != nil {
		return err
	}
	imp.joinOn, imp.subset, imp.sliced, imp.skipped = join, subset, sliced, skipped
	return nil
}

func (imp *Importer) validateJoin(columns []string) ([]string, error) {
	if len(columns) == 0 {
		return nil, &ConfigError{Msg: "column(s) to join on are required"}
	}
	columns = unique(columns)

	if diff := missing(columns, imp.data.Columns()); len(diff) > 0 {
		return nil, &ConfigError{Msg: fmt.Sprintf("couldn't find supplied column%s to join on: %s",
			plural(len(diff)), quoteList(diff))}
	}
	return columns, nil
}

func (imp *Importer) validateSubset(columns, join []string) ([]string, error) {
	if len(columns) == 0 {
		return nil, &ConfigError{Msg: "no columns provided"}
	}
	columns = unique(columns)

	if diff := missing(columns, imp.data.Columns()); len(diff) > 0 {
		return nil, &ConfigError{Msg: fmt.Sprintf("column%s provided not found in data: %s",
			plural(len(diff)), quoteList(diff))}
	}
	if diff := common(columns, join); len(diff) > 0 {
		return nil, &ConfigError{Msg: fmt.Sprintf("column%s provided cannot contain join on column%s: %s",
			plural(len(columns)), plural(len(diff)), quoteList(diff))}
	}
	if diff := missing(columns, imp.tableCols); len(diff) > 0 {
		return nil, &ConfigError{Msg: fmt.Sprintf("column%s provided not found in '%s' table: %s",
			plural(len(diff)), imp.qualifiedName(), quoteList(diff))}
	}
	return columns, nil
}

// slice projects the dataset onto join+subset, drops rows without a full
// join key, and rejects duplicated columns and duplicated keys.
func (imp *Importer) slice(join, subset []string) (*dataset.Table, int, error) {
	cols := append(slices.Clone(join), subset...)
	projected := imp.data.Project(cols)
	sliced := projected.DropNulls(join)

	if dups := sliced.DuplicateColumns(); len(dups) > 0 {
		return nil, 0, &IntegrityError{Msg: fmt.Sprintf("data contains duplicate column%s: %s",
			plural(len(dups)), quoteList(dups))}
	}
	if sliced.HasDuplicateRows(join) {
		return nil, 0, &IntegrityError{Msg: fmt.Sprintf("data contains duplicate values in join on column%s: %s",
			plural(len(join)), quoteList(join))}
	}
	return sliced, projected.Len() - sliced.Len(), nil
}

// JoinOn returns the columns rows are matched on.
func (imp *Importer) JoinOn() []string { return slices.Clone(imp.joinOn) }

// Subset returns the columns that are written.
func (imp *Importer) Subset() []string { return slices.Clone(imp.subset) }

// TablePrimaryKey returns the table's primary key columns in key order.
func (imp *Importer) TablePrimaryKey() []string { return slices.Clone(imp.tablePK) }

// TableColumns returns the table's columns in ordinal order.
func (imp *Importer) TableColumns() []string { return slices.Clone(imp.tableCols) }

// RowCountUpdated returns the rows changed by the last update, or -1 if no
// update has run.
func (imp *Importer) RowCountUpdated() int64 { return imp.rowCountUpdated }

// RowCountInserted returns -1; inserting is not supported yet.
func (imp *Importer) RowCountInserted() int64 { return imp.rowCountInserted }

// SkippedRows returns the number of dataset rows left out for lacking a
// complete join key.
func (imp *Importer) SkippedRows() int { return imp.skipped }

// Schema returns the effective schema, after dialect defaults.
func (imp *Importer) Schema() string { return imp.schema }

// Table returns the destination table name.
func (imp *Importer) Table() string { return imp.table }

// Dialect returns the dialect kind in use.
func (imp *Importer) Dialect() dialect.Kind { return imp.dialect.Kind }

// Data returns the sliced dataset that Run stages.
func (imp *Importer) Data() *dataset.Table { return imp.sliced }

func (imp *Importer) qualifiedName() string { return QualifyName(imp.schema, imp.table) }

// Run stages the sliced dataset into a temp table and applies the requested
// actions. At least one of update and insert must be set. Insert is not
// implemented and fails with ErrNotImplemented after staging (and after the
// update, when both are requested); the temp table is then left in place and
// dropped by the next Run on the same session.
func (imp *Importer) Run(ctx context.Context, update, insert bool) error {
	if !update && !insert {
		return &ConfigError{Msg: "at least one action must be performed"}
	}
	begin := time.Now()

	if err := imp.step(ctx, "drop", imp.dropTemp); err != nil {
		return err
	}
	if err := imp.step(ctx, "stage", imp.stage); err != nil {
		return err
	}
	if update {
		if err := imp.step(ctx, "update", imp.update); err != nil {
			return err
		}
	}
	if insert {
		return fmt.Errorf("importer: insert: %w", ErrNotImplemented)
	}
	if err := imp.step(ctx, "drop", imp.dropTemp); err != nil {
		return err
	}

	log.Printf("importer: %s completed in %s", imp.qualifiedName(), time.Since(begin).Truncate(time.Millisecond))
	return nil
}

func (imp *Importer) step(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	metrics.RecordStep(imp.job, name, err, time.Since(start))
	if err != nil {
		return fmt.Errorf("importer: %s: %w", name, err)
	}
	return nil
}

func (imp *Importer) dropTemp(ctx context.Context) error {
	_, err := imp.conn.ExecContext(ctx, imp.dialect.DropTemp())
	return err
}

func (imp *Importer) stage(ctx context.Context) error {
	cols := imp.sliced.Columns()
	create, err := imp.dialect.CreateTemp(imp.schema, imp.table, cols)
	if err != nil {
		return err
	}
	if _, err := imp.conn.ExecContext(ctx, create); err != nil {
		return err
	}

	copyFn := func(ctx context.Context, columns []string, rows [][]any) (int64, error) {
		return imp.dialect.CopyBatch(ctx, imp.conn, imp.dialect.TempTable, columns, rows)
	}
	onBatch := func(int, int64) { metrics.RecordBatches(imp.job, 1) }

	n, err := storage.LoadBatches(ctx, cols, imp.sliced.Rows(), imp.batchSize, copyFn, onBatch)
	metrics.RecordRow(imp.job, metrics.KindStaged, n)
	if err != nil {
		return err
	}
	metrics.RecordRow(imp.job, metrics.KindSkippedNullKey, int64(imp.skipped))
	log.Printf("importer: staged %d rows into %s (skipped %d without join key)", n, imp.dialect.TempTable, imp.skipped)
	return nil
}

func (imp *Importer) update(ctx context.Context) error {
	q, err := imp.dialect.Update(imp.schema, imp.table, imp.joinOn, imp.subset)
	if err != nil {
		return err
	}

	tx, err := imp.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	res, err := tx.ExecContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	imp.rowCountUpdated = n
	metrics.RecordRow(imp.job, metrics.KindUpdated, n)
	log.Printf("importer: updated %d rows in %s", n, imp.qualifiedName())
	return nil
}
