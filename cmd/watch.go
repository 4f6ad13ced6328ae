package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/conneroisu/svgsprite/internal/collect"
	"github.com/conneroisu/svgsprite/internal/config"
	"github.com/conneroisu/svgsprite/internal/logging"
	"github.com/conneroisu/svgsprite/internal/pipeline"
	"github.com/conneroisu/svgsprite/internal/watcher"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Rebuild whenever an icon changes",
	Long: `Build once, then watch the source directory and rebuild after every burst
of icon changes. A failed rebuild leaves the previous artifacts in place
and watching continues.

Examples:
  svgsprite watch                     # Watch the configured source
  svgsprite watch --debounce 1s       # Wait longer for editors that save twice
  svgsprite watch -v                  # Print every changed file`,
	RunE: runWatch,
}

var (
	watchFlags   *StandardFlags
	watchVerbose bool
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchFlags = AddStandardFlags(watchCmd, "source", "artifacts", "watch")
	watchCmd.Flags().BoolVarP(&watchVerbose, "verbose", "v", false, "Verbose output")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return reportError(ctx, logger, err)
	}

	out := cmd.OutOrStdout()
	bp := pipeline.NewBuildPipeline(cfg, pipeline.WithLogger(logger))

	fmt.Fprintf(out, "🔨 Building icons from %s\n", cfg.Src)
	if result, err := bp.Build(ctx); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), reportError(ctx, logger, err))
	} else {
		printBuildSummary(out, cfg.Cwd, result)
	}

	fileWatcher, err := watchSources(ctx, cfg, logger, func(events []watcher.ChangeEvent) {
		reportChanges(out, events, watchVerbose)
		if result, err := bp.Build(ctx); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), reportError(ctx, logger, err))
		} else {
			printBuildSummary(out, cfg.Cwd, result)
		}
	})
	if err != nil {
		return err
	}
	defer fileWatcher.Stop()

	fmt.Fprintf(out, "👀 Watching %s (press Ctrl+C to stop)\n", cfg.Src)
	<-ctx.Done()
	fmt.Fprintln(out, "\n🛑 Stopping watcher")

	return nil
}

// watchSources starts a watcher over cfg.Src that calls rebuild with every
// debounced batch of icon changes. Generated files are ignored so a build
// never triggers itself.
func watchSources(ctx context.Context, cfg *config.Config, logger logging.Logger, rebuild func([]watcher.ChangeEvent)) (*watcher.FileWatcher, error) {
	fileWatcher, err := watcher.NewFileWatcher(cfg.Watch.Debounce, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	fileWatcher.AddFilter(watcher.SVGFilter)
	fileWatcher.AddFilter(watcher.NoGitFilter)
	fileWatcher.AddFilter(watcher.ExcludeFilter(cfg.SpritePath()))
	fileWatcher.AddFilter(watcher.ReservedDirFilter(cfg.Src, collect.ReservedDir))

	fileWatcher.AddHandler(func(events []watcher.ChangeEvent) error {
		rebuild(events)
		return nil
	})

	if err := fileWatcher.AddRecursive(cfg.Src); err != nil {
		fileWatcher.Stop()
		return nil, fmt.Errorf("failed to watch %s: %w", cfg.Src, err)
	}

	if err := fileWatcher.Start(ctx); err != nil {
		fileWatcher.Stop()
		return nil, err
	}

	return fileWatcher, nil
}

func reportChanges(w io.Writer, events []watcher.ChangeEvent, verbose bool) {
	if !verbose {
		fmt.Fprintf(w, "📁 %d file(s) changed\n", len(events))
		return
	}
	fmt.Fprintf(w, "📁 File changes detected:\n")
	for _, event := range events {
		fmt.Fprintf(w, "   %s: %s\n", event.Type, event.Path)
	}
}
