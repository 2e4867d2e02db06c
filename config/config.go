// Package config resolves CLI arguments and the build manifest into a
// complete benchmark run configuration. Resolution is all-or-nothing:
// no Config is produced unless every requested language has a runnable
// command.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/somombo/impalab/builder"
	"github.com/somombo/impalab/command"
)

// GeneratorNone is the sentinel generator name that disables the
// generator stage entirely.
const GeneratorNone = "none"

// ErrNoManifest signals that a generator was requested by name but no
// build manifest exists to look it up in.
var ErrNoManifest = errors.New("no build manifest available")

// Algorithms maps a language name to the function names to benchmark
// in that language.
type Algorithms map[string][]string

// Config is the fully resolved plan for one benchmark run. It is
// built once by Resolve and immutable thereafter.
type Config struct {
	// Generator is the resolved generator command, or nil when the
	// algorithms run with empty stdin.
	Generator *command.Spec

	// AlgorithmCommands has an entry for every language in Algorithms.
	AlgorithmCommands map[string]command.Spec

	Algorithms Algorithms
}

// RunArgs carries the raw inputs of the run command.
type RunArgs struct {
	// AlgorithmsJSON is the task map, e.g. `{"cpp":["std::sort"]}`.
	AlgorithmsJSON string

	// Seed for the generator; nil picks a random one.
	Seed *uint64

	// Generator names a manifest entry, or GeneratorNone.
	Generator string

	// GeneratorOverridePath, when set, wins over the manifest.
	GeneratorOverridePath string

	// AlgorithmOverridesJSON maps language to executable path and
	// wins over the manifest per language.
	AlgorithmOverridesJSON string

	ManifestPath string

	// GeneratorArgs are passed through to the generator verbatim.
	GeneratorArgs []string
}

// NotFoundError reports a requested language with no resolvable
// algorithm executable.
type NotFoundError struct {
	Language string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf(
		"no executable path found for language %q: searched overrides and manifest",
		e.Language,
	)
}

// GeneratorNotFoundError reports a generator name absent from the
// manifest, listing the names that are available.
type GeneratorNotFoundError struct {
	Name      string
	Available []string
}

func (e *GeneratorNotFoundError) Error() string {
	return fmt.Sprintf(
		"generator %q not found in manifest (available: %s); pass --generator-override-path to supply one",
		e.Name, strings.Join(e.Available, ", "),
	)
}

// Resolve merges CLI arguments with the persisted manifest into a
// Config, or fails before anything executes.
func Resolve(logger *slog.Logger, args RunArgs) (*Config, error) {
	manifest, err := builder.Load(args.ManifestPath)
	if err != nil {
		return nil, err
	}

	var algorithms Algorithms
	if err := json.Unmarshal([]byte(args.AlgorithmsJSON), &algorithms); err != nil {
		return nil, fmt.Errorf("parse algorithms task map: %w", err)
	}

	generator, err := resolveGenerator(logger, args, manifest)
	if err != nil {
		return nil, err
	}

	commands, err := resolveAlgorithms(logger, args, algorithms, manifest)
	if err != nil {
		return nil, err
	}

	return &Config{
		Generator:         generator,
		AlgorithmCommands: commands,
		Algorithms:        algorithms,
	}, nil
}

// resolveGenerator applies the three-tier lookup for the generator:
// override path, then manifest, then failure. The fixed per-run seed
// and any passthrough arguments are appended to the resolved command.
func resolveGenerator(
	logger *slog.Logger,
	args RunArgs,
	manifest *builder.Manifest,
) (*command.Spec, error) {
	if args.Generator == GeneratorNone || args.Generator == "" {
		if args.GeneratorOverridePath != "" {
			logger.Warn("generator disabled, ignoring --generator-override-path")
		}

		if len(args.GeneratorArgs) > 0 {
			logger.Warn("generator disabled, ignoring trailing generator arguments")
		}

		if args.Seed != nil {
			logger.Warn("generator disabled, ignoring --seed")
		}

		return nil, nil
	}

	var base command.Spec

	switch {
	case args.GeneratorOverridePath != "":
		logger.Debug("using generator override path",
			slog.String("path", args.GeneratorOverridePath),
		)

		base = command.Spec{Command: args.GeneratorOverridePath}

	case manifest != nil:
		spec, ok := manifest.Generators[args.Generator]
		if !ok {
			return nil, &GeneratorNotFoundError{
				Name:      args.Generator,
				Available: slices.Sorted(maps.Keys(manifest.Generators)),
			}
		}

		logger.Debug("using generator command from manifest",
			slog.String("generator", args.Generator),
		)

		base = spec.Clone()

	default:
		return nil, fmt.Errorf(
			"generator %q: %w at %s and no override path given",
			args.Generator, ErrNoManifest, args.ManifestPath,
		)
	}

	seed := rand.Uint64()
	if args.Seed != nil {
		seed = *args.Seed
	}

	base.Args = append(base.Args, args.GeneratorArgs...)
	base.Args = append(base.Args, fmt.Sprintf("--seed=%d", seed))

	logger.Info("using generator seed", slog.Uint64("seed", seed))

	return &base, nil
}

// resolveAlgorithms applies the three-tier lookup independently per
// language in the task map. The first unresolved language aborts the
// whole resolution.
func resolveAlgorithms(
	logger *slog.Logger,
	args RunArgs,
	tasks Algorithms,
	manifest *builder.Manifest,
) (map[string]command.Spec, error) {
	var overrides map[string]string

	if args.AlgorithmOverridesJSON != "" {
		if err := json.Unmarshal(
			[]byte(args.AlgorithmOverridesJSON), &overrides,
		); err != nil {
			return nil, fmt.Errorf("parse algorithm override map: %w", err)
		}
	}

	resolved := make(map[string]command.Spec, len(tasks))

	for _, lang := range slices.Sorted(maps.Keys(tasks)) {
		if path, ok := overrides[lang]; ok {
			logger.Debug("using algorithm override path",
				slog.String("language", lang),
				slog.String("path", path),
			)

			resolved[lang] = command.Spec{Command: path}

			continue
		}

		if manifest != nil {
			if spec, ok := manifest.AlgorithmExecutables[lang]; ok {
				logger.Debug("using algorithm command from manifest",
					slog.String("language", lang),
				)

				resolved[lang] = spec.Clone()

				continue
			}
		}

		return nil, &NotFoundError{Language: lang}
	}

	return resolved, nil
}
