package cmd

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// StandardFlags groups the flags shared across commands. Values are not
// read from here; changed flags are copied into viper by applyFlags.
type StandardFlags struct {
	Src           string
	Dest          string
	Cwd           string
	Exclude       []string
	Concurrency   int
	Names         string
	Readme        string
	Doc           string
	PrependReadme string
	NoSprite      bool
	NoManifest    bool
	NoReadme      bool
	Package       string
	ThumbnailSize int
	Debounce      time.Duration
	Host          string
	Port          int
	Format        string
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"src":            "src",
	"dest":           "dest",
	"cwd":            "cwd",
	"exclude":        "exclude_patterns",
	"concurrency":    "concurrency",
	"names":          "names_filename",
	"readme":         "readme_filename",
	"doc":            "doc_path",
	"prepend-readme": "prepend_readme",
	"package":        "manifest.package",
	"thumbnail-size": "thumbnail.size",
	"debounce":       "watch.debounce",
	"host":           "serve.host",
	"port":           "serve.port",
}

// negatedFlags are booleans that switch a key defaulting to true off.
var negatedFlags = map[string]string{
	"no-sprite":   "emit.sprite",
	"no-manifest": "emit.manifest",
	"no-readme":   "emit.readme",
}

// AddStandardFlags adds standard flags to a command
func AddStandardFlags(cmd *cobra.Command, flagTypes ...string) *StandardFlags {
	flags := &StandardFlags{}

	for _, flagType := range flagTypes {
		switch flagType {
		case "source":
			addSourceFlags(cmd, flags)
		case "artifacts":
			addArtifactFlags(cmd, flags)
		case "watch":
			addWatchFlags(cmd, flags)
		case "server":
			addServerFlags(cmd, flags)
		case "output":
			addOutputFlags(cmd, flags)
		}
	}

	return flags
}

func addSourceFlags(cmd *cobra.Command, flags *StandardFlags) {
	cmd.Flags().StringVar(&flags.Src, "src", "", "Directory containing the .svg icons")
	cmd.Flags().StringVar(&flags.Cwd, "cwd", "", "Directory relative paths are resolved against")
	cmd.Flags().StringSliceVarP(&flags.Exclude, "exclude", "x", nil, "Source-relative glob to skip (repeatable)")
	cmd.Flags().IntVarP(&flags.Concurrency, "concurrency", "j", 0, "Icons processed in parallel")
}

func addArtifactFlags(cmd *cobra.Command, flags *StandardFlags) {
	cmd.Flags().StringVar(&flags.Dest, "dest", "", "Directory the sprite, manifest and README are written to")
	cmd.Flags().StringVar(&flags.Names, "names", "", "Manifest file name inside dest (names.js, names.ts, names.go)")
	cmd.Flags().StringVar(&flags.Readme, "readme", "", "README file name inside dest")
	cmd.Flags().StringVar(&flags.Doc, "doc", "", "Also write an HTML catalog to this path")
	cmd.Flags().StringVar(&flags.PrependReadme, "prepend-readme", "", "Markdown file placed above the README table")
	cmd.Flags().BoolVar(&flags.NoSprite, "no-sprite", false, "Do not write sprite.svg")
	cmd.Flags().BoolVar(&flags.NoManifest, "no-manifest", false, "Do not write the manifest")
	cmd.Flags().BoolVar(&flags.NoReadme, "no-readme", false, "Do not write the README")
	cmd.Flags().StringVar(&flags.Package, "package", "", "Package clause of a names.go manifest")
	cmd.Flags().IntVar(&flags.ThumbnailSize, "thumbnail-size", 0, "Thumbnail edge in pixels (default 64)")
}

func addWatchFlags(cmd *cobra.Command, flags *StandardFlags) {
	cmd.Flags().DurationVar(&flags.Debounce, "debounce", 0, "Quiet period before rebuilding (default 300ms)")
}

func addServerFlags(cmd *cobra.Command, flags *StandardFlags) {
	cmd.Flags().StringVar(&flags.Host, "host", "", "Host to bind to (default localhost)")
	cmd.Flags().IntVarP(&flags.Port, "port", "p", 0, "Port to serve on (default 8080)")

	AddFlagValidation(cmd, "port", ValidatePort)
}

func addOutputFlags(cmd *cobra.Command, flags *StandardFlags) {
	cmd.Flags().StringVarP(&flags.Format, "format", "f", "table", "Output format (table|json|yaml)")

	AddFlagValidation(cmd, "format", func(format string) error {
		return ValidateFormat(format, []string{"table", "json", "yaml"})
	})
}

// applyFlags copies every flag the user changed into viper, above env vars
// and config files. Flags left at their default never shadow other sources.
// FlagSet.Visit also walks flags that were set and later reset, so the
// Changed bit is checked instead.
func applyFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if key, ok := flagKeys[f.Name]; ok {
			viper.Set(key, flagValue(f))
			return
		}
		if key, ok := negatedFlags[f.Name]; ok {
			viper.Set(key, f.Value.String() != "true")
		}
	})
}

func flagValue(f *pflag.Flag) interface{} {
	if sv, ok := f.Value.(pflag.SliceValue); ok {
		return sv.GetSlice()
	}
	return f.Value.String()
}

// AddFlagValidation adds validation for a specific flag
func AddFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		return
	}

	flag.Value = &validatingValue{
		Value:       flag.Value,
		validator:   validator,
		originalSet: flag.Value.Set,
	}
}

type validatingValue struct {
	pflag.Value
	validator   func(string) error
	originalSet func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.originalSet(val)
}

// ValidatePort accepts 0 (any free port) through 65535.
func ValidatePort(portStr string) error {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port number: %s", portStr)
	}

	if port < 0 || port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", port)
	}

	return nil
}

// ValidateFormat rejects output formats outside supported.
func ValidateFormat(format string, supported []string) error {
	if slices.Contains(supported, strings.ToLower(format)) {
		return nil
	}
	return fmt.Errorf("invalid output format %s, must be one of: %s",
		format, strings.Join(supported, ", "))
}
