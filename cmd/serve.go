package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/conneroisu/svgsprite/internal/pipeline"
	"github.com/conneroisu/svgsprite/internal/server"
	"github.com/conneroisu/svgsprite/internal/watcher"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Serve the icon catalog with live reload",
	Long: `Build the icons, serve an HTML catalog of them together with the sprite and
rebuild on every change. Open catalog pages reload after each rebuild.

Routes:
  /                   Icon catalog
  /sprite.svg         Current sprite
  /api/build/status   Build metrics as JSON

Examples:
  svgsprite serve                 # http://localhost:8080
  svgsprite serve -p 3000         # Another port
  svgsprite serve --host 0.0.0.0  # Reachable from other machines`,
	RunE: runServe,
}

var serveFlags *StandardFlags

func init() {
	rootCmd.AddCommand(serveCmd)

	serveFlags = AddStandardFlags(serveCmd, "source", "artifacts", "watch", "server")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return reportError(ctx, logger, err)
	}

	out := cmd.OutOrStdout()

	bp := pipeline.NewBuildPipeline(cfg, pipeline.WithLogger(logger), pipeline.WithThumbnails())
	srv := server.New(cfg.Serve, bp, logger)
	bp.AddCallback(srv.Update)

	addr, err := srv.Listen()
	if err != nil {
		return err
	}

	if result, err := bp.Build(ctx); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), reportError(ctx, logger, err))
	} else {
		printBuildSummary(out, cfg.Cwd, result)
	}

	fileWatcher, err := watchSources(ctx, cfg, logger, func(events []watcher.ChangeEvent) {
		reportChanges(out, events, false)
		if _, err := bp.Build(ctx); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), reportError(ctx, logger, err))
		}
	})
	if err != nil {
		srv.Shutdown(ctx)
		return err
	}
	defer fileWatcher.Stop()

	fmt.Fprintf(out, "🌐 Serving icon catalog at http://%s\n", addr)

	return srv.Serve(ctx)
}
