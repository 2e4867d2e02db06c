package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/somombo/impalab/bench"
	"github.com/somombo/impalab/config"
)

func newRunCmd(logger *slog.Logger) *cobra.Command {
	var (
		algorithmsJSON string
		seed           uint64
		generator      string
		generatorPath  string
		overridesJSON  string
		manifestPath   string
		failOnExit     bool
		timeout        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run [flags] [-- generator args...]",
		Short: "Run benchmarks across the requested languages",
		Long: `Resolve an executable for every requested language, then pipe the data
generator into each algorithm process in turn. Per-case timings are written to
stdout as JSON lines. Arguments after -- are passed through to the generator.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			runArgs := config.RunArgs{
				AlgorithmsJSON:         algorithmsJSON,
				Generator:              generator,
				GeneratorOverridePath:  generatorPath,
				AlgorithmOverridesJSON: overridesJSON,
				ManifestPath:           manifestPath,
				GeneratorArgs:          args,
			}

			if cmd.Flags().Changed("seed") {
				runArgs.Seed = &seed
			}

			cfg, err := config.Resolve(logger, runArgs)
			if err != nil {
				return fmt.Errorf("resolve run config: %w", err)
			}

			return bench.Run(cmd.Context(), logger, cfg, bench.Options{
				Output:     cmd.OutOrStdout(),
				FailOnExit: failOnExit,
				Timeout:    timeout,
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&algorithmsJSON, "algorithms", "",
		`JSON task map of language to function names, e.g. '{"cpp":["std::sort"]}'`)
	flags.Uint64Var(&seed, "seed", 0,
		"Seed for the data generator (default: random per run)")
	flags.StringVar(&generator, "generator", config.GeneratorNone,
		`Generator name from the manifest ("none" disables the generator)`)
	flags.StringVar(&generatorPath, "generator-override-path", "",
		"Generator executable path, overriding the manifest")
	flags.StringVar(&overridesJSON, "algorithm-override-paths", "",
		"JSON map of language to executable path, overriding the manifest")
	flags.StringVar(&manifestPath, "manifest-path", defaultManifestPath,
		"Path to the build manifest")
	flags.BoolVar(&failOnExit, "fail-on-exit", false,
		"Treat a non-zero child exit code as a pipeline failure")
	flags.DurationVar(&timeout, "timeout", 0,
		"Per-language pipeline deadline (0 = none)")

	_ = cmd.MarkFlagRequired("algorithms")

	return cmd
}
