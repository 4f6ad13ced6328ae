package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggest(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantTitle string
	}{
		{"config", NewConfigError(ErrCodeConfigInvalid, "bad"), "Check the configuration file"},
		{"collection", NewCollectionError("/icons", errors.New("missing")), "Verify the source directory exists"},
		{"optimization", NewOptimizationError("a.svg", errors.New("eof")), "Fix or remove the malformed icon"},
		{"collision", NewCollisionError("A_B", "a/b.svg", "a_b.svg"), "Rename one of the colliding files"},
		{"render", NewRenderError("a.svg", errors.New("x")), "Check the icon renders in a browser"},
		{"invalid identifier", NewEmitError(StageManifest, ErrCodeInvalidIdentifier, "1.svg", "x"), "Rename the icon so its name starts with a letter"},
		{"write", NewWriteError("/dest/sprite.svg", errors.New("denied")), "Check the destination is writable"},
		{"wrapped", fmt.Errorf("build: %w", NewWriteError("/d", errors.New("x"))), "Check the destination is writable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suggestions := Suggest(tt.err)
			require.NotEmpty(t, suggestions)
			assert.Equal(t, tt.wantTitle, suggestions[0].Title)
		})
	}

	assert.Nil(t, Suggest(errors.New("plain")))
	assert.Nil(t, Suggest(NewEmitError(StageManifest, ErrCodeEmitFailed, "", "x")))
}

func TestCollisionSuggestionNamesPaths(t *testing.T) {
	s := Suggest(NewCollisionError("A_B", "a_b.svg", "a/b.svg"))
	require.Len(t, s, 1)
	assert.Contains(t, s[0].Description, "A_B")
	assert.Contains(t, s[0].Description, "a/b.svg, a_b.svg")
}

func TestEnhance(t *testing.T) {
	assert.Nil(t, Enhance(nil))

	plain := errors.New("plain")
	assert.Same(t, plain, Enhance(plain))

	orig := NewWriteError("/dest/names.js", errors.New("read-only file system"))
	enhanced := Enhance(orig)

	msg := enhanced.Error()
	assert.Contains(t, msg, orig.Error())
	assert.Contains(t, msg, "Suggestions:")
	assert.Contains(t, msg, "Run: ls -ld /dest/names.js")
	assert.True(t, IsType(enhanced, ErrorTypeWrite))
}

func TestFormatSuggestions(t *testing.T) {
	assert.Equal(t, "title", FormatSuggestions("title", nil))

	out := FormatSuggestions("oops", []ErrorSuggestion{
		{Title: "First", Description: "desc", Example: "a: 1\nb: 2"},
	})
	assert.Contains(t, out, "  1. First\n     desc\n")
	assert.Contains(t, out, "     Example: a: 1\n              b: 2\n")
}
