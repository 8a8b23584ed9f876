// Command pricewatch fetches a commodity price from an ordered chain of
// sources, converts it to the local currency and unit, and notifies over
// messaging and email.
//
// Usage:
//
//	pricewatch [--config FILE] [--json] <command> [flags]
//
// Commands:
//
//	run      one run, then exit
//	serve    cron-scheduled runs plus /health and /metrics
//	sources  show the source chain and channel readiness
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/notifyhub/pricewatch/internal/cli"
)

// version is set with -ldflags at build time.
var version = "dev"

func main() {
	if err := cli.NewRootCmd(version).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
