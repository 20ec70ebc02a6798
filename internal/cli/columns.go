package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/qpenko/database-importer/internal/dataset"
	"github.com/qpenko/database-importer/internal/preview"
)

func newColumnsCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "columns",
		Short: "Compare file columns with the table",
		Long: `Columns lists every column of the destination table next to the matching file
column and the type it would be staged as, marking primary key, join and
updated columns. Nothing is written.`,
		Example: `  dbimport columns -c jobs/groceries.yaml`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			job, err := loadJob(cmd, g)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			sess, err := connect(ctx, job)
			if err != nil {
				return err
			}
			defer sess.Close()

			grid, err := preview.Collect(ctx, sess.conn,
				func(ctx context.Context) (*dataset.Table, error) { return readInput(ctx, job) },
				preview.Options{
					Dialect: dialectOf(job),
					Schema:  job.Storage.DB.Schema,
					Table:   job.Storage.DB.Table,
					JoinOn:  job.Import.JoinOn,
					Subset:  job.Import.Subset,
				})
			if err != nil {
				return err
			}
			renderGrid(cmd.OutOrStdout(), grid)
			for _, w := range grid.Warnings() {
				log.Printf("warning: %s", w)
			}
			return nil
		},
	}
	addJobFlags(cmd.Flags())
	return cmd
}

func renderGrid(w io.Writer, g *preview.Grid) {
	_, _ = fmt.Fprintf(w, "Table: %s\n", g.Table)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Column", "Type", "File type", "Role"})
	for _, r := range g.Rows {
		fileType := r.FileType
		if r.FileColumn == "" {
			fileType = "-"
		}
		t.AppendRow(table.Row{r.TableColumn, r.TableType, fileType, roles(r)})
	}
	t.Render()

	if len(g.Unmatched) > 0 {
		_, _ = fmt.Fprintf(w, "Not in table: %s\n", strings.Join(g.Unmatched, ", "))
	}
}

func roles(r preview.Row) string {
	var out []string
	if r.PrimaryKey {
		out = append(out, "pk")
	}
	if r.Join {
		out = append(out, "join")
	}
	if r.Subset {
		out = append(out, "update")
	}
	if r.ExplicitCast {
		out = append(out, "cast")
	}
	return strings.Join(out, ", ")
}
