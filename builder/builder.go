// Package builder discovers benchmark components, runs their build
// steps, and produces the path manifest consumed by the run command.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/somombo/impalab/command"
)

// DescriptorFile is the per-component config file the build scans for.
const DescriptorFile = "component.toml"

// descriptor is the component.toml schema.
type descriptor struct {
	Name     string     `toml:"name"`
	Type     string     `toml:"type"`
	Language string     `toml:"language"`
	Build    *buildStep `toml:"build"`
	Run      runSpec    `toml:"run"`
}

type buildStep struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

type runSpec struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

// Build scans the immediate subdirectories of componentsDir for
// component descriptors, runs each component's optional build step,
// and writes the resulting manifest to manifestOut.
func Build(
	ctx context.Context,
	logger *slog.Logger,
	componentsDir, manifestOut string,
) error {
	logger.InfoContext(ctx, "scanning for components",
		slog.String("dir", componentsDir),
	)

	entries, err := os.ReadDir(componentsDir)
	if err != nil {
		return fmt.Errorf("read components dir %s: %w", componentsDir, err)
	}

	manifest := NewManifest()

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dir := filepath.Join(componentsDir, entry.Name())
		descPath := filepath.Join(dir, DescriptorFile)

		if _, err := os.Stat(descPath); err != nil {
			continue
		}

		if err := buildComponent(ctx, logger, dir, descPath, manifest); err != nil {
			return err
		}
	}

	if err := manifest.Write(manifestOut); err != nil {
		return err
	}

	logger.InfoContext(ctx, "build manifest written",
		slog.String("path", manifestOut),
	)

	return nil
}

func buildComponent(
	ctx context.Context,
	logger *slog.Logger,
	dir, descPath string,
	manifest *Manifest,
) error {
	var desc descriptor
	if _, err := toml.DecodeFile(descPath, &desc); err != nil {
		return fmt.Errorf("parse %s: %w", descPath, err)
	}

	if desc.Build != nil {
		logger.InfoContext(ctx, "building component",
			slog.String("name", desc.Name),
			slog.String("type", desc.Type),
		)

		cmd := exec.CommandContext(ctx, desc.Build.Command, desc.Build.Args...)
		cmd.Dir = dir

		out, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf(
				"build component %s: %w\noutput: %s",
				desc.Name, err, out,
			)
		}
	} else {
		logger.DebugContext(ctx, "no build step, skipping",
			slog.String("name", desc.Name),
		)
	}

	run := command.Spec{Command: resolveCommand(dir, desc.Run.Command)}

	for _, arg := range desc.Run.Args {
		run.Args = append(run.Args, resolveArg(dir, arg))
	}

	switch desc.Type {
	case "generator":
		manifest.Generators[desc.Name] = run
	case "algorithm":
		if desc.Language == "" {
			logger.Warn("algorithm component missing language, skipping",
				slog.String("name", desc.Name),
			)

			return nil
		}

		manifest.AlgorithmExecutables[desc.Language] = run
	default:
		return fmt.Errorf(
			"component %s: unknown type %q", desc.Name, desc.Type,
		)
	}

	return nil
}

// resolveCommand turns a run command that names an existing file under
// dir into an absolute path. Bare commands like "python3" that resolve
// via PATH pass through untouched.
func resolveCommand(dir, cmd string) string {
	p := filepath.Join(dir, cmd)

	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return cmd
	}

	return absOr(p, cmd)
}

// resolveArg absolutizes an argument that names an existing path under
// dir, e.g. a script passed to an interpreter.
func resolveArg(dir, arg string) string {
	p := filepath.Join(dir, arg)

	if _, err := os.Stat(p); err != nil {
		return arg
	}

	return absOr(p, arg)
}

func absOr(path, fallback string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fallback
	}

	return abs
}
