// Command dbimport updates database table rows from a CSV or XLSX file.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/qpenko/database-importer/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Main(ctx)
	stop()
	os.Exit(code)
}
