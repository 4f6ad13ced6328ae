package output

import (
	"context"
	"testing"

	"github.com/conneroisu/svgsprite/internal/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSWriter(t *testing.T) {
	tests := []struct {
		name     string
		existing map[string]string
		path     string
		data     string
	}{
		{name: "creates parent directories", path: "/out/icons/sprite.svg", data: "<svg/>"},
		{name: "flat file", path: "/names.js", data: "export const A = 'A';\n"},
		{
			name:     "replaces existing file",
			existing: map[string]string{"/out/README.md": "old readme"},
			path:     "/out/README.md",
			data:     "| Icon | Name | Path |\n",
		},
		{name: "empty artifact", path: "/out/empty.js", data: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			for p, content := range tt.existing {
				require.NoError(t, afero.WriteFile(fs, p, []byte(content), 0644))
			}

			w := NewFSWriter(fs)
			require.NoError(t, w.Write(context.Background(), tt.path, []byte(tt.data)))

			got, err := afero.ReadFile(fs, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.data, string(got))
		})
	}
}

func TestFSWriterLeavesNoTempFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := NewFSWriter(fs)

	require.NoError(t, w.Write(context.Background(), "/dest/sprite.svg", []byte("<svg/>")))
	require.NoError(t, w.Write(context.Background(), "/dest/sprite.svg", []byte("<svg></svg>")))

	entries, err := afero.ReadDir(fs, "/dest")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "sprite.svg", entries[0].Name())
}

func TestFSWriterFailure(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	w := NewFSWriter(fs)

	err := w.Write(context.Background(), "/dest/sprite.svg", []byte("<svg/>"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeWrite))

	be, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, "/dest/sprite.svg", be.Path)
}

func TestFSWriterCancelled(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := NewFSWriter(fs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.Write(ctx, "/dest/names.js", []byte("x"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeWrite))
	assert.ErrorIs(t, err, context.Canceled)

	exists, err := afero.Exists(fs, "/dest/names.js")
	require.NoError(t, err)
	assert.False(t, exists)
}
