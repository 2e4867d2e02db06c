// Package main provides the CLI entry point for impa, an orchestrator
// for polyglot algorithm micro-benchmarks.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

const defaultManifestPath = "impa_manifest.json"

func main() {
	logger, closeLog, err := newLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeLog()

	root := newRootCmd(logger)
	if err := root.Execute(); err != nil {
		logger.Error(err.Error())
		closeLog()
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "impa",
		Short: "Orchestrator for polyglot algorithm micro-benchmarks",
		Long: `Impa runs the same benchmark input through algorithm implementations in
multiple languages, piping a shared data generator into each algorithm process
and re-emitting per-case timings as JSON lines on stdout.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd(logger))
	root.AddCommand(newBuildCmd(logger))

	return root
}

// newLogger builds the process logger from the environment:
// BENCH_LOG_FILE redirects output from stderr to a file and
// BENCH_LOG_LEVEL selects the level (debug, info, warn, error).
// Core logic takes the logger explicitly and never depends on it
// for correctness.
func newLogger() (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if v := os.Getenv("BENCH_LOG_LEVEL"); v != "" {
		if err := level.UnmarshalText([]byte(v)); err != nil {
			return nil, nil, fmt.Errorf("parse BENCH_LOG_LEVEL: %w", err)
		}
	}

	w := io.Writer(os.Stderr)
	closeLog := func() {}

	if path := os.Getenv("BENCH_LOG_FILE"); path != "" {
		f, err := os.OpenFile(
			path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}

		w = f
		closeLog = func() { f.Close() }
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))

	return logger, closeLog, nil
}
