package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/conneroisu/svgsprite/internal/icon"
	"github.com/conneroisu/svgsprite/internal/pipeline"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"l"},
	Short:   "List the icons a build would include",
	Long: `Collect and optimize the icons exactly as build does and print the working
set in sprite order. No files are written.

Examples:
  svgsprite list                  # Table of identifiers and paths
  svgsprite list -f json          # Output as JSON (short flag)
  svgsprite list --format yaml    # Output as YAML`,
	RunE: runList,
}

var listFlags *StandardFlags

func init() {
	rootCmd.AddCommand(listCmd)

	listFlags = AddStandardFlags(listCmd, "source", "output")
}

// listEntry is one icon in list output.
type listEntry struct {
	Identifier string `json:"identifier" yaml:"identifier"`
	Path       string `json:"path" yaml:"path"`
	Bytes      int    `json:"bytes" yaml:"bytes"`
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return reportError(ctx, logger, err)
	}

	set, err := pipeline.NewBuildPipeline(cfg, pipeline.WithLogger(logger)).Plan(ctx)
	if err != nil {
		return reportError(ctx, logger, err)
	}

	entries := listEntries(set.View())
	out := cmd.OutOrStdout()

	switch strings.ToLower(listFlags.Format) {
	case "json":
		return outputListJSON(out, entries)
	case "yaml":
		return outputListYAML(out, entries)
	case "table":
		return outputListTable(out, entries)
	default:
		return fmt.Errorf("unsupported format: %s", listFlags.Format)
	}
}

func listEntries(view icon.View) []listEntry {
	entries := make([]listEntry, 0, view.Len())
	for _, rec := range view.All() {
		entries = append(entries, listEntry{
			Identifier: rec.Identifier(),
			Path:       rec.RelativePath(),
			Bytes:      len(rec.ContentString()),
		})
	}
	return entries
}

func outputListJSON(w io.Writer, entries []listEntry) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(entries)
}

func outputListYAML(w io.Writer, entries []listEntry) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	return encoder.Encode(entries)
}

func outputListTable(w io.Writer, entries []listEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No icons found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "IDENTIFIER\tPATH\tBYTES")
	fmt.Fprintln(tw, strings.Repeat("-", 10)+"\t"+strings.Repeat("-", 4)+"\t"+strings.Repeat("-", 5))
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", e.Identifier, e.Path, e.Bytes)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nTotal: %d icons\n", len(entries))
	return nil
}
