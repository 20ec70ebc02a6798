package cli

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/qpenko/database-importer/internal/importer"
)

func newRunCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Update table rows from a file",
		Long: `Run stages the file into a temporary table, updates every table row whose
join key matches a file row and drops the temporary table. Rows with a missing
join value are skipped.`,
		Example: `  dbimport run -c jobs/groceries.yaml
  dbimport run -f prices.xlsx -d sqlite --dsn shop.db -t groceries --join-on id --subset price`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			job, err := loadJob(cmd, g)
			if err != nil {
				return err
			}
			flush := setupMetrics(job, g.verbose)
			defer flush()

			ctx := cmd.Context()
			start := time.Now()
			if g.verbose {
				log.Printf("job %s: file=%s dialect=%s table=%s", job.Job, job.Source.File.Path, dialectOf(job), job.Storage.DB.Table)
			}

			data, err := readInput(ctx, job)
			if err != nil {
				return err
			}
			if g.verbose {
				log.Printf("read %d rows, columns: %v", data.Len(), data.Columns())
			}

			sess, err := connect(ctx, job)
			if err != nil {
				return err
			}
			defer sess.Close()

			imp, err := importer.New(ctx, sess.conn, data, importer.Options{
				Table:     job.Storage.DB.Table,
				Schema:    job.Storage.DB.Schema,
				JoinOn:    job.Import.JoinOn,
				Subset:    job.Import.Subset,
				Dialect:   dialectOf(job),
				BatchSize: job.Runtime.BatchSize,
				Job:       job.Job,
			})
			if err != nil {
				return err
			}
			if g.verbose {
				log.Printf("join on %v, subset %v", imp.JoinOn(), imp.Subset())
			}

			if err := imp.Run(ctx, job.Import.Update, job.Import.Insert); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "updated %d rows in %s\n", imp.RowCountUpdated(), importer.QualifyName(imp.Schema(), imp.Table()))
			if n := imp.SkippedRows(); n > 0 {
				_, _ = fmt.Fprintf(out, "skipped %d rows with a missing join value\n", n)
			}
			if g.verbose {
				log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
			}
			return nil
		},
	}
	addJobFlags(cmd.Flags())
	return cmd
}
