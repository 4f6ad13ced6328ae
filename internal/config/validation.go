package config

import (
	"fmt"
	"go/token"
	"net"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/conneroisu/svgsprite/internal/manifest"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	if len(vr.Errors) > 0 {
		builder.WriteString("❌ Validation Errors:\n")
		for _, err := range vr.Errors {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", err.Field, err.Message))
			for _, suggestion := range err.Suggestions {
				builder.WriteString(fmt.Sprintf("    💡 %s\n", suggestion))
			}
		}
		builder.WriteString("\n")
	}

	if len(vr.Warnings) > 0 {
		builder.WriteString("⚠️  Validation Warnings:\n")
		for _, warning := range vr.Warnings {
			builder.WriteString(fmt.Sprintf("  • %s: %s\n", warning.Field, warning.Message))
			for _, suggestion := range warning.Suggestions {
				builder.WriteString(fmt.Sprintf("    💡 %s\n", suggestion))
			}
		}
	}

	return builder.String()
}

// ValidateConfigWithDetails checks a loaded configuration. Paths are
// expected to be resolved already.
func ValidateConfigWithDetails(config *Config) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}

	validatePaths(config, result)
	validateOutputs(config, result)
	validateTuning(config, result)
	validateServe(&config.Serve, result)

	result.Valid = !result.HasErrors()

	return result
}

func validatePaths(config *Config, result *ValidationResult) {
	if info, err := os.Stat(config.Src); err != nil || !info.IsDir() {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "src",
			Value:   config.Src,
			Message: "source directory does not exist yet",
			Suggestions: []string{
				"Relative paths are resolved against cwd",
				"Pass --src to point at the icon directory",
			},
		})
	}

	if config.Src == config.Dest {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "dest",
			Value:   config.Dest,
			Message: "destination is the source directory",
			Suggestions: []string{
				"Generated files are written next to the icons; sprite.svg is excluded from collection",
			},
		})
	}

	if config.DocPath != "" && !strings.EqualFold(filepath.Ext(config.DocPath), ".html") {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "doc_path",
			Value:   config.DocPath,
			Message: "catalog is HTML but the path does not end in .html",
		})
	}

	for _, pattern := range config.ExcludePatterns {
		if _, err := path.Match(strings.TrimSuffix(pattern, "/**"), ""); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "exclude_patterns",
				Value:   pattern,
				Message: fmt.Sprintf("malformed pattern %q", pattern),
				Suggestions: []string{
					"Patterns use path.Match syntax against the source-relative path",
					"Use dir/** to exclude a whole subtree",
				},
			})
		}
	}
}

func validateOutputs(config *Config, result *ValidationResult) {
	for _, f := range []struct{ field, name string }{
		{"names_filename", config.NamesFilename},
		{"readme_filename", config.ReadmeFilename},
	} {
		if err := validateFileName(f.name); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:       f.field,
				Value:       f.name,
				Message:     err.Error(),
				Suggestions: []string{"Use a plain file name; it is written inside dest"},
			})
		}
	}

	flavor, err := manifest.FlavorFor(config.NamesFilename)
	if err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "names_filename",
			Value:   config.NamesFilename,
			Message: err.Error(),
			Suggestions: []string{
				"Use names.js, names.mjs or names.ts for an ES module",
				"Use names.go for a Go constant block",
			},
		})
	} else if flavor == manifest.FlavorGo && !token.IsIdentifier(config.Manifest.Package) {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "manifest.package",
			Value:   config.Manifest.Package,
			Message: "not a valid Go package name",
		})
	}

	if !config.Emit.Sprite && !config.Emit.Manifest && !config.Emit.Readme && config.DocPath == "" {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "emit",
			Value:   config.Emit,
			Message: "every artifact is disabled; the build only validates icons",
		})
	}
}

func validateTuning(config *Config, result *ValidationResult) {
	if config.Thumbnail.Size < 1 || config.Thumbnail.Size > 1024 {
		result.Errors = append(result.Errors, ValidationError{
			Field:       "thumbnail.size",
			Value:       config.Thumbnail.Size,
			Message:     fmt.Sprintf("thumbnail size %d is not in range 1-1024", config.Thumbnail.Size),
			Suggestions: []string{"The default of 64 matches the documentation tables"},
		})
	}

	if config.Concurrency < 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "concurrency",
			Value:   config.Concurrency,
			Message: "concurrency must be at least 1",
		})
	}

	if config.Watch.Debounce < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "watch.debounce",
			Value:   config.Watch.Debounce,
			Message: "debounce cannot be negative",
		})
	}
}

func validateServe(config *ServeConfig, result *ValidationResult) {
	if config.Port < 0 || config.Port > 65535 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "serve.port",
			Value:   config.Port,
			Message: fmt.Sprintf("port %d is not in valid range 0-65535", config.Port),
			Suggestions: []string{
				"Use a port between 1024-65535 for non-privileged access",
				"Port 0 allows system to assign an available port",
			},
		})
	} else if config.Port > 0 && config.Port < 1024 {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "serve.port",
			Value:   config.Port,
			Message: "port below 1024 requires elevated privileges",
		})
	}

	if config.Host != "" {
		if err := validateHostname(config.Host); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "serve.host",
				Value:   config.Host,
				Message: err.Error(),
				Suggestions: []string{
					"Use 'localhost' for local development",
					"Use '0.0.0.0' to bind to all interfaces",
				},
			})
		}
	}
}

// Helper validation functions

func validateFileName(name string) error {
	if name == "" {
		return fmt.Errorf("empty file name")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%q must not contain a directory", name)
	}
	return nil
}

var hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

func validateHostname(host string) error {
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
	for _, char := range dangerousChars {
		if strings.Contains(host, char) {
			return fmt.Errorf("contains dangerous character: %s", char)
		}
	}

	if net.ParseIP(host) != nil {
		return nil
	}

	if !hostnameRegex.MatchString(host) {
		return fmt.Errorf("invalid hostname format")
	}

	return nil
}
