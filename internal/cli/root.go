// Package cli provides the dbimport command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// globals holds the persistent flags shared by every command.
type globals struct {
	cfgFile string
	verbose bool
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:   "dbimport",
		Short: "Reconcile spreadsheet data into a database table",
		Long: `dbimport matches the rows of a CSV or XLSX file to the rows of a live table
on a join key and updates a subset of columns, on SQL Server, PostgreSQL or SQLite.

The import is described by a job file (--config) and can be overridden from
DBIMPORT_* environment variables and flags.`,
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			log.SetOutput(cmd.ErrOrStderr())
			if !g.verbose {
				log.SetFlags(0)
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentFlags().StringVarP(&g.cfgFile, "config", "c", "", "job file (YAML or JSON)")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(newRunCommand(g))
	rootCmd.AddCommand(newColumnsCommand(g))
	rootCmd.AddCommand(newValidateCommand(g))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// Execute runs the root command with args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// Main is Execute on the process arguments and standard streams.
func Main(ctx context.Context) int {
	return Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
}
