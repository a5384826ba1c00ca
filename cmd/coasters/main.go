// Package main is the entry point for the coasters track editor.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/coasters/internal/cli"
)

// Version information (set via ldflags during build).
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cli.Version = version

	// Handle signals for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return cli.Execute(ctx, os.Args[1:])
}
