// File: cmd/lancet/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/lancet-sec/lancet-cli/cmd"
	"github.com/lancet-sec/lancet-cli/internal/observability"
)

func main() {
	// Listen for SIGINT/SIGTERM so a batch scan can wind down cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
