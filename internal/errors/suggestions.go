package errors

import (
	"fmt"
	"strings"
)

// ErrorSuggestion represents a suggestion for fixing an error
type ErrorSuggestion struct {
	Title       string
	Description string
	Command     string
	Example     string
}

// Suggest returns fix-it hints for a build failure. Errors that are not
// BuildErrors get none.
func Suggest(err error) []ErrorSuggestion {
	be, ok := As(err)
	if !ok {
		return nil
	}

	switch be.Type {
	case ErrorTypeConfig:
		return []ErrorSuggestion{
			{
				Title:       "Check the configuration file",
				Description: "Flags override SVGSPRITE_* variables, which override .svgsprite.yml",
				Example:     "src: ./src/assets/icons\ndest: ./src/components/Icon",
			},
		}
	case ErrorTypeCollection:
		return []ErrorSuggestion{
			{
				Title:       "Verify the source directory exists",
				Description: "Relative paths are resolved against --cwd",
				Command:     "ls " + be.Path,
			},
		}
	case ErrorTypeOptimization:
		return []ErrorSuggestion{
			{
				Title:       "Fix or remove the malformed icon",
				Description: "The file must be well-formed XML with an <svg> root element",
				Command:     "xmllint --noout " + be.Path,
			},
			{
				Title:       "Exclude the file from the build",
				Description: "Add a pattern to exclude_patterns",
				Example:     "exclude_patterns:\n  - \"drafts/**\"",
			},
		}
	case ErrorTypeIdentifierCollision:
		paths, _ := be.Context["paths"].([]string)
		return []ErrorSuggestion{
			{
				Title:       "Rename one of the colliding files",
				Description: fmt.Sprintf("These paths all map to %v: %s", be.Context["identifier"], strings.Join(paths, ", ")),
			},
		}
	case ErrorTypeRender:
		return []ErrorSuggestion{
			{
				Title:       "Check the icon renders in a browser",
				Description: "Thumbnails are rasterized from the optimized markup; a viewBox is required",
			},
		}
	case ErrorTypeEmit:
		if be.Code == ErrCodeInvalidIdentifier {
			return []ErrorSuggestion{
				{
					Title:       "Rename the icon so its name starts with a letter",
					Description: "Constant names cannot begin with a digit",
					Example:     "24px.svg -> icon-24px.svg",
				},
			}
		}
	case ErrorTypeWrite:
		return []ErrorSuggestion{
			{
				Title:   "Check the destination is writable",
				Command: "ls -ld " + be.Path,
			},
		}
	}

	return nil
}

// FormatSuggestions formats suggestions into a user-friendly string
func FormatSuggestions(title string, suggestions []ErrorSuggestion) string {
	if len(suggestions) == 0 {
		return title
	}

	var output strings.Builder
	output.WriteString(title + "\n\n")
	output.WriteString("Suggestions:\n")

	for i, suggestion := range suggestions {
		output.WriteString(fmt.Sprintf("  %d. %s\n", i+1, suggestion.Title))
		if suggestion.Description != "" {
			output.WriteString(fmt.Sprintf("     %s\n", suggestion.Description))
		}
		if suggestion.Command != "" {
			output.WriteString(fmt.Sprintf("     Run: %s\n", suggestion.Command))
		}
		if suggestion.Example != "" {
			output.WriteString(fmt.Sprintf("     Example: %s\n", indentExample(suggestion.Example)))
		}
		output.WriteString("\n")
	}

	return output.String()
}

func indentExample(example string) string {
	return strings.ReplaceAll(example, "\n", "\n              ")
}

// EnhancedError wraps an error with suggestions
type EnhancedError struct {
	OriginalError error
	Title         string
	Suggestions   []ErrorSuggestion
}

// Error implements the error interface
func (e *EnhancedError) Error() string {
	return FormatSuggestions(e.Title, e.Suggestions)
}

// Unwrap returns the original error
func (e *EnhancedError) Unwrap() error {
	return e.OriginalError
}

// NewEnhancedError creates a new enhanced error with suggestions
func NewEnhancedError(title string, originalError error, suggestions []ErrorSuggestion) *EnhancedError {
	return &EnhancedError{
		OriginalError: originalError,
		Title:         title,
		Suggestions:   suggestions,
	}
}

// Enhance attaches the suggestions for err, if any. The original error
// stays reachable through errors.Is and errors.As.
func Enhance(err error) error {
	if err == nil {
		return nil
	}
	suggestions := Suggest(err)
	if len(suggestions) == 0 {
		return err
	}
	return NewEnhancedError(err.Error(), err, suggestions)
}
