package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"xia2pipe/internal/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(exitCode(err))
	}
}

// exitCode maps a command error to the process status: 2 for configuration
// errors, 1 for everything else.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case services.IsFatal(err):
		return 2
	default:
		return 1
	}
}
