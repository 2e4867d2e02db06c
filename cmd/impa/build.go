package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/somombo/impalab/builder"
)

func newBuildCmd(logger *slog.Logger) *cobra.Command {
	var (
		componentsDir string
		manifestPath  string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build components and write the path manifest",
		Long: `Scan a directory for component descriptors, run each component's build
step, and write a manifest mapping generator names and languages to their
resolved run commands.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return builder.Build(
				cmd.Context(), logger, componentsDir, manifestPath,
			)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&componentsDir, "components-dir", "components",
		"Directory containing component descriptors")
	flags.StringVar(&manifestPath, "manifest-path", defaultManifestPath,
		"Manifest output path")

	return cmd
}
