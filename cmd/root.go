// Package cmd provides the svgsprite command-line interface.
//
// Configuration System:
//
//	Settings are read from several sources, highest priority first:
//	1. Command-line flags (--src, --dest, --port, ...)
//	2. Individual environment variables (SVGSPRITE_SRC, SVGSPRITE_EMIT_README, ...)
//	3. The file named by --config or SVGSPRITE_CONFIG_FILE
//	4. .svgsprite.yml in the current directory
//
// Environment variables follow the SVGSPRITE_<SECTION>_<OPTION> pattern, so
// emit.manifest is SVGSPRITE_EMIT_MANIFEST.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/conneroisu/svgsprite/internal/config"
	"github.com/conneroisu/svgsprite/internal/errors"
	"github.com/conneroisu/svgsprite/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "svgsprite",
	Short: "Build an SVG sprite and icon documentation from a directory of icons",
	Long: `svgsprite collects every .svg file under a source directory, optimizes it
and merges the icons into one sprite of <symbol> elements. Alongside the
sprite it writes a module listing the icon identifiers and a README table
with a preview of every icon.

Quick Start:
  svgsprite build                 Build sprite, names.js and README.md
  svgsprite list                  Show the icons a build would include
  svgsprite watch                 Rebuild whenever an icon changes
  svgsprite serve                 Browse the icon catalog with live reload

Command Aliases:
  build (b), list (l), watch (w), serve (s)`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .svgsprite.yml, can also use SVGSPRITE_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
}

// initConfig wires viper to the config file and the environment.
func initConfig() {
	configFileErr = nil
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("SVGSPRITE_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".svgsprite")
	}

	viper.SetEnvPrefix("SVGSPRITE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := config.BindEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "Warning: failed to bind environment:", err)
	}

	// A missing default file is fine; an explicit one that cannot be read
	// surfaces when the configuration is loaded.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" || os.Getenv("SVGSPRITE_CONFIG_FILE") != "" {
		configFileErr = err
	}
}

var configFileErr error

// newLogger builds the process logger from --log-level and --log-format.
func newLogger(w io.Writer) (logging.Logger, error) {
	level, err := logging.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, err.Error()).
			WithContext("field", "log-level")
	}

	format := viper.GetString("log.format")
	if format == "" {
		format = "text"
	}
	if format != "text" && format != "json" {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("unsupported log format %q (supported: text, json)", format)).
			WithContext("field", "log-format")
	}

	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: format,
		Output: w,
	}), nil
}

// loadConfig applies the command's changed flags, then loads and validates
// the configuration. Warnings are logged.
func loadConfig(cmd *cobra.Command) (*config.Config, logging.Logger, error) {
	logger, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}

	if configFileErr != nil {
		return nil, logger, errors.NewConfigError(errors.ErrCodeConfigInvalid, "failed to read config file").
			WithContext("cause", configFileErr.Error())
	}

	applyFlags(cmd)

	cfg, err := config.Load()
	if err != nil {
		return nil, logger, err
	}

	ctx := commandContext(cmd)
	for _, w := range cfg.Warnings {
		logger.Warn(ctx, &w, "Configuration warning", "field", w.Field)
	}

	return cfg, logger, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// reportError logs err through the error handler and returns it with
// suggestions attached for the terminal.
func reportError(ctx context.Context, logger logging.Logger, err error) error {
	if logger != nil {
		errors.NewErrorHandler(logger).Handle(ctx, err)
	}
	return errors.Enhance(err)
}
