// Command xrsim drives an XR session against the simulated runtime.
//
// Usage:
//
//	xrsim run --frames 900 --metrics-addr :9464
//	xrsim run --config xr.yaml --lose-at 300
//	xrsim profiles --file bindings.yaml
//	xrsim backends
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
)

var errorLabel = color.New(color.FgRed)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	root.SilenceErrors = true
	root.SilenceUsage = true
	if err := root.ExecuteContext(ctx); err != nil {
		errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
