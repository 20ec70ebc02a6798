package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/qpenko/database-importer/internal/config"
	"github.com/qpenko/database-importer/internal/dataset"
	"github.com/qpenko/database-importer/internal/datasource"
	"github.com/qpenko/database-importer/internal/datasource/file"
	"github.com/qpenko/database-importer/internal/dialect"
	"github.com/qpenko/database-importer/internal/parser"
	"github.com/qpenko/database-importer/internal/storage"
)

// addJobFlags registers the flags that override job file values. Only flags
// the user sets take effect; see config.FlagKeys.
func addJobFlags(fs *pflag.FlagSet) {
	fs.String("job", "", "job name used to label metrics")
	fs.StringP("file", "f", "", "input file (.csv, .tsv, .xlsx; optionally .gz, .zst, .xz)")
	fs.String("parser", "", "parser kind: csv, tsv or xlsx (default: from the file extension)")
	fs.String("sheet", "", "worksheet to read (default: the first)")
	fs.String("index-column", "", "column to use as the row label")
	fs.StringP("dialect", "d", "", "SQL dialect: mssql, postgres or sqlite (default mssql)")
	fs.String("dsn", "", "database connection string")
	fs.StringP("schema", "s", "", "schema of the destination table")
	fs.StringP("table", "t", "", "destination table")
	fs.StringSlice("join-on", nil, "columns to match rows on (default: primary key columns in the file)")
	fs.StringSlice("subset", nil, "columns to update (default: every other file column)")
	fs.Bool("update", true, "update matching rows")
	fs.Bool("insert", false, "insert rows without a match (not implemented)")
	fs.Int("batch-size", 0, "rows staged per batch")
	fs.String("metrics", "", "metrics backend: none, prometheus or datadog")
	fs.String("pushgateway", "", "Prometheus Pushgateway URL")
	fs.String("datadog-addr", "", "DogStatsD address")
}

// loadJob loads and validates the job. Warnings are logged; any error-level
// issue fails the command.
func loadJob(cmd *cobra.Command, g *globals) (*config.Job, error) {
	job, err := config.Load(g.cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	issues := config.ValidateJob(*job)
	for _, iss := range issues {
		log.Printf("%s: %s: %s", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return nil, fmt.Errorf("job is invalid, run 'dbimport validate' for details")
	}
	if g.verbose && g.cfgFile != "" {
		log.Printf("using job file: %s", g.cfgFile)
	}
	return job, nil
}

// newSource returns the job's data source. "file" is the only kind.
func newSource(job *config.Job) datasource.Source {
	return file.NewLocal(job.Source.File.Path)
}

// readInput opens the job's source and parses it.
func readInput(ctx context.Context, job *config.Job) (*dataset.Table, error) {
	src := newSource(job)

	kind := job.Parser.Kind
	if kind == "" {
		var err error
		if kind, err = parser.KindFromName(src.Name()); err != nil {
			return nil, err
		}
	}
	p, err := parser.New(kind, job.Parser.Options)
	if err != nil {
		return nil, err
	}

	rc, err := src.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer rc.Close()

	data, err := p.Parse(rc)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", src.Name(), err)
	}
	return data, nil
}

func dialectOf(job *config.Job) dialect.Kind {
	if job.Storage.Kind == "" {
		return dialect.MSSQL
	}
	return dialect.Kind(job.Storage.Kind)
}

// session is a pool with one pinned connection. Temp tables live as long as
// the connection, so every statement of an import goes through conn.
type session struct {
	db   *sql.DB
	conn *sql.Conn
}

func connect(ctx context.Context, job *config.Job) (*session, error) {
	db, err := storage.Open(ctx, dialectOf(job), job.Storage.DB.DSN)
	if err != nil {
		return nil, err
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: pin connection: %w", dialectOf(job), err)
	}
	return &session{db: db, conn: conn}, nil
}

func (s *session) Close() error {
	cerr := s.conn.Close()
	if err := s.db.Close(); err != nil {
		return err
	}
	return cerr
}
