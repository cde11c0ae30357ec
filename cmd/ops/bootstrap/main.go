// Package main implements the bootstrap CLI for a tubepost deployment.
//
// It prepares the environment file the API server loads: internal secrets
// (SESSION_SECRET, CREDENTIAL_KEY) are generated when absent, and the
// operator-supplied values are checked against the services they name.
//
// Usage:
//
//	go run ./cmd/ops/bootstrap
//	go run ./cmd/ops/bootstrap --env-file=deploy/prod.env --check
//	DATABASE_URL=postgres://... go run ./cmd/ops/bootstrap --offline
//
// Values already in the file are kept; variables exported in the shell take
// precedence over them. Existing secrets are never rotated.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	envFile := flag.String("env-file", ".env", "Path of the environment file to read and write")
	check := flag.Bool("check", false, "Validate only; do not write the file")
	offline := flag.Bool("offline", false, "Skip network probes (database, Stripe, YouTube)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "TubePost Bootstrap Tool\n\n")
		fmt.Fprintf(os.Stderr, "Generates internal secrets and validates the configuration\n")
		fmt.Fprintf(os.Stderr, "required by the API server.\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  bootstrap [--env-file=PATH] [--check] [--offline]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	validator := NewValidator()
	validator.Offline = *offline

	runner := &Runner{
		Path:   *envFile,
		Steps:  BuildInventory(validator),
		Out:    os.Stdout,
		DryRun: *check,
	}
	if err := runner.Run(ctx); err != nil {
		logger.Error("bootstrap failed", "error", err, "env_file", *envFile)
		os.Exit(1)
	}
	logger.Info("bootstrap completed successfully", "env_file", *envFile, "check_only", *check)
}
