/*
main.go - Application entry point

PURPOSE:
  Runs the flexpay command tree. Subcommands own their own setup:
  serve opens the SQLite store and HTTP server, payroll and invoice run
  one transformation from files on disk.

EXAMPLES:
  flexpay serve --db ./data/flexpay.db --port 3000
  FLEXPAY_LOG_FORMAT=console flexpay payroll --client uofl ...

SEE ALSO:
  - cli/root.go: Command tree and process configuration
  - cli/serve.go: HTTP server lifecycle
*/
package main

import (
	"context"
	"os"

	"github.com/warp/flexpay-engine/cli"
)

func main() {
	if err := cli.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
