// Package main provides the cart store operator CLI.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	entrypoint "github.com/louisbranch/cartstore/internal/platform/cmd"
	"github.com/louisbranch/cartstore/internal/platform/config"
	"github.com/louisbranch/cartstore/internal/platform/timeouts"
	"github.com/louisbranch/cartstore/internal/tools/cartctl"
)

func main() {
	if err := config.LoadDotEnv(entrypoint.DotEnvPath); err != nil {
		config.Exitf("Error: %v", err)
	}
	cfg, err := cartctl.ParseConfig(flag.CommandLine, os.Args[1:], nil)
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.Interactive() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	err = entrypoint.RunWithTelemetryAndOptions(ctx, entrypoint.ServiceCartCtl,
		entrypoint.RunOptions{ShutdownTimeout: timeouts.Shutdown},
		func(ctx context.Context) error {
			return cartctl.Run(ctx, cfg, os.Stdin, os.Stdout, os.Stderr)
		})
	if err != nil {
		config.Exitf("Error: %v", err)
	}
}
