// File: cmd/scalpel-e2e/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/scalpel-e2e/cmd"
)

// osExit allows tests to observe the exit status.
var osExit = os.Exit

func main() {
	// Cancel the run on SIGINT/SIGTERM; sessions are still shut down before exit.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cmd.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	osExit(code)
}
