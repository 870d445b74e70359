// Package appshell owns the process boundary: signal wiring, stream
// selection and the exit code. Everything else is testable through the
// runner it wraps.
package appshell

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Main runs the command runner under a signal-aware context. Interrupt or
// SIGTERM cancels the context so in-flight external tools are killed, and
// a cancelled-but-clean run still exits 130.
func Main(run func(context.Context, []string, io.Writer, io.Writer) int) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	if ctx.Err() != nil && code == 0 {
		code = 130
	}

	stop()
	os.Exit(code)
}
