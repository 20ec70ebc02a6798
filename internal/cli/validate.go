package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/qpenko/database-importer/internal/config"
)

func newValidateCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a job without touching the database",
		Long: `Validate loads the job from the file, environment and flags and reports every
problem found. It exits non-zero when at least one of them is an error.`,
		Example: `  dbimport validate -c jobs/groceries.yaml`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			job, err := config.Load(g.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			issues := config.ValidateJob(*job)
			out := cmd.OutOrStdout()
			if len(issues) == 0 {
				_, _ = fmt.Fprintln(out, "job is valid")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(out)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Severity", "Path", "Message"})
			for _, iss := range issues {
				t.AppendRow(table.Row{iss.Severity, iss.Path, iss.Message})
			}
			t.Render()

			if config.HasErrors(issues) {
				return fmt.Errorf("job is invalid")
			}
			_, _ = fmt.Fprintln(out, "job is valid")
			return nil
		},
	}
	addJobFlags(cmd.Flags())
	return cmd
}
