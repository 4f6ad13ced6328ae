package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/conneroisu/svgsprite/internal/pipeline"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Build the sprite, manifest and README",
	Long: `Collect every icon under the source directory, optimize it and write the
enabled artifacts. Nothing is written unless every icon is valid and every
artifact renders.

Examples:
  svgsprite build                                # Defaults from .svgsprite.yml
  svgsprite build --src assets/icons --dest dist # Explicit directories
  svgsprite build --names names.go --package ui  # Go constants instead of ES module
  svgsprite build --doc public/icons.html        # Also write an HTML catalog
  svgsprite build --no-readme -x "legacy/**"     # Skip the README and a subtree`,
	RunE: runBuild,
}

var buildFlags *StandardFlags

func init() {
	rootCmd.AddCommand(buildCmd)

	buildFlags = AddStandardFlags(buildCmd, "source", "artifacts")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return reportError(ctx, logger, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "🔨 Building icons from %s\n", cfg.Src)

	bp := pipeline.NewBuildPipeline(cfg, pipeline.WithLogger(logger))
	result, err := bp.Build(ctx)
	if err != nil {
		return reportError(ctx, logger, err)
	}

	printBuildSummary(out, cfg.Cwd, result)
	return nil
}

func printBuildSummary(w io.Writer, base string, result *pipeline.BuildResult) {
	fmt.Fprintf(w, "✅ Build completed successfully in %v\n", result.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "   - %d icons\n", result.Icons)
	for _, a := range result.Artifacts {
		fmt.Fprintf(w, "   - %s written to: %s (%d bytes)\n", a.Name, displayPath(base, a.Path), len(a.Data))
	}
}

// displayPath shortens p relative to base when it lies below it.
func displayPath(base, p string) string {
	rel, err := filepath.Rel(base, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	return rel
}
