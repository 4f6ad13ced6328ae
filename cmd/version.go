package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/conneroisu/svgsprite/internal/version"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	versionFormat string
	versionShort  bool
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display the svgsprite version, git commit, build time, Go version and
target platform.

Examples:
  svgsprite version               # Version with commit and platform
  svgsprite version --short       # Version only
  svgsprite version --format json # Output as JSON`,
	RunE: runVersionCommand,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().StringVarP(&versionFormat, "format", "f", "text", "Output format (text, json, yaml)")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show short version only")
}

func runVersionCommand(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	info := version.GetBuildInfo()

	switch versionFormat {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(info)
	case "yaml":
		encoder := yaml.NewEncoder(out)
		defer encoder.Close()
		return encoder.Encode(info)
	case "text":
		if versionShort {
			fmt.Fprintln(out, version.GetShortVersion())
			return nil
		}
		return outputVersionText(out, info)
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json, yaml)", versionFormat)
	}
}

func outputVersionText(w io.Writer, info *version.BuildInfo) error {
	fmt.Fprintf(w, "svgsprite %s", info.Version)

	if info.GitCommit != "unknown" && len(info.GitCommit) >= 7 {
		fmt.Fprintf(w, " (%s)", info.GitCommit[:7])
	}
	if info.Dirty {
		fmt.Fprint(w, " (dirty)")
	}
	fmt.Fprintln(w)

	if !info.BuildTime.IsZero() {
		fmt.Fprintf(w, "Built: %s\n", info.BuildTime.UTC().Format("2006-01-02 15:04:05 UTC"))
	}
	fmt.Fprintf(w, "Go: %s\n", info.GoVersion)
	fmt.Fprintf(w, "Platform: %s\n", info.Platform)

	return nil
}
