package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/somombo/impalab/command"
	"github.com/somombo/impalab/config"
)

// Options controls pipeline execution behavior.
type Options struct {
	// Output receives one JSON object per benchmark result.
	// Defaults to os.Stdout.
	Output io.Writer

	// FailOnExit marks a pipeline failed when a child exits non-zero.
	// Otherwise a non-zero exit is logged and tolerated.
	FailOnExit bool

	// Timeout bounds each language's pipeline, force-killing its
	// children at the deadline. Zero disables it.
	Timeout time.Duration
}

// Run executes one pipeline per language in cfg, sequentially and in
// sorted language order. A failed pipeline is logged and does not stop
// later languages; Run returns an error naming every failed language.
func Run(
	ctx context.Context,
	logger *slog.Logger,
	cfg *config.Config,
	opts Options,
) error {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	logger.Info("starting benchmark pipeline",
		slog.Int("languages", len(cfg.Algorithms)),
	)

	var failed []string

	for _, language := range slices.Sorted(maps.Keys(cfg.Algorithms)) {
		functions := cfg.Algorithms[language]

		algo, ok := cfg.AlgorithmCommands[language]
		if !ok {
			// Resolution is all-or-nothing, so a missing entry here
			// indicates a bug in the resolver.
			logger.Error("no command resolved for language",
				slog.String("language", language),
			)

			failed = append(failed, language)

			continue
		}

		logger.Info("running pipeline",
			slog.String("language", language),
		)

		err := runPipeline(
			ctx, logger, cfg.Generator, algo, language, functions, opts,
		)
		if err != nil {
			logger.Error("pipeline failed",
				slog.String("language", language),
				slog.String("error", err.Error()),
			)

			failed = append(failed, language)

			continue
		}

		logger.Info("pipeline finished",
			slog.String("language", language),
		)
	}

	if len(failed) > 0 {
		return fmt.Errorf(
			"pipeline failed for: %s", strings.Join(failed, ", "),
		)
	}

	logger.Info("benchmark run complete")

	return nil
}

// runPipeline spawns the generator (if any) and the algorithm process
// for one language, wires generator stdout to algorithm stdin through
// a direct OS pipe, drains all streams concurrently, and awaits both
// exits jointly.
func runPipeline(
	ctx context.Context,
	logger *slog.Logger,
	gen *command.Spec,
	algo command.Spec,
	language string,
	functions []string,
	opts Options,
) error {
	var cancel context.CancelFunc
	if opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	// Cancellation kills both children, so no process outlives this
	// call on any exit path.
	defer cancel()

	algoArgs := algo.Clone().Args
	algoArgs = append(algoArgs, "--functions="+strings.Join(functions, ","))
	algoCmd := exec.CommandContext(ctx, algo.Command, algoArgs...)

	algoStdout, err := algoCmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%s: algorithm stdout pipe: %w", language, err)
	}

	algoStderr, err := algoCmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("%s: algorithm stderr pipe: %w", language, err)
	}

	var (
		genCmd    *exec.Cmd
		genStderr io.ReadCloser
	)

	if gen != nil {
		genCmd = exec.CommandContext(ctx, gen.Command, gen.Args...)

		genStderr, err = genCmd.StderrPipe()
		if err != nil {
			return fmt.Errorf("%s: generator stderr pipe: %w", language, err)
		}

		// Direct OS pipe from generator stdout to algorithm stdin;
		// nothing is buffered through this process.
		pr, pw, err := os.Pipe()
		if err != nil {
			return fmt.Errorf("%s: stdout pipe: %w", language, err)
		}

		genCmd.Stdout = pw
		algoCmd.Stdin = pr

		logger.Debug("spawning generator",
			slog.String("command", gen.Command),
			slog.Any("args", gen.Args),
		)

		if err := genCmd.Start(); err != nil {
			pw.Close()
			pr.Close()

			return fmt.Errorf(
				"%s: spawn generator %s: %w", language, gen.Command, err,
			)
		}

		logger.Debug("spawning algorithm component",
			slog.String("command", algo.Command),
			slog.Any("args", algoArgs),
		)

		err = algoCmd.Start()

		// The parent's pipe ends must close either way: the algorithm
		// only sees EOF once the generator's end is the last writer.
		pw.Close()
		pr.Close()

		if err != nil {
			cancel()
			_ = genCmd.Wait()

			return fmt.Errorf(
				"%s: spawn algorithm %s: %w", language, algo.Command, err,
			)
		}
	} else {
		logger.Debug("running algorithm in self-contained mode",
			slog.String("command", algo.Command),
			slog.Any("args", algoArgs),
		)

		if err := algoCmd.Start(); err != nil {
			return fmt.Errorf(
				"%s: spawn algorithm %s: %w", language, algo.Command, err,
			)
		}
	}

	// Stream readers run while the children run; draining only after
	// exit would deadlock on a full OS pipe buffer.
	var readers errgroup.Group

	readers.Go(func() error {
		return emitResults(algoStdout, opts.Output, language, logger)
	})
	readers.Go(func() error {
		return logStderr(algoStderr, "algorithm", logger)
	})

	if genStderr != nil {
		readers.Go(func() error {
			return logStderr(genStderr, "generator", logger)
		})
	}

	readErr := readers.Wait()

	// Both exits are awaited jointly, in no particular order.
	var waits errgroup.Group

	waits.Go(waitChild(logger, algoCmd, "algorithm", language, opts))

	if genCmd != nil {
		waits.Go(waitChild(logger, genCmd, "generator", language, opts))
	}

	waitErr := waits.Wait()

	if readErr != nil {
		return fmt.Errorf("%s: %w", language, readErr)
	}

	if waitErr != nil {
		return waitErr
	}

	// A deadline or cancellation kills the children, which otherwise
	// surfaces only as a tolerated exit status.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", language, err)
	}

	return nil
}

// waitChild reaps one child process. A non-zero exit is logged as an
// error and fails the pipeline only under Options.FailOnExit; a wait
// failure is always fatal to the pipeline.
func waitChild(
	logger *slog.Logger,
	cmd *exec.Cmd,
	name, language string,
	opts Options,
) func() error {
	return func() error {
		err := cmd.Wait()

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			logger.Error(name+" process failed",
				slog.String("language", language),
				slog.Int("code", exitErr.ExitCode()),
			)

			if opts.FailOnExit {
				return fmt.Errorf(
					"%s: %s exited with code %d",
					language, name, exitErr.ExitCode(),
				)
			}

			return nil
		}

		if err != nil {
			return fmt.Errorf("%s: wait for %s: %w", language, name, err)
		}

		return nil
	}
}
