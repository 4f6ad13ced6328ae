package manifest

import (
	"testing"

	"github.com/conneroisu/svgsprite/internal/errors"
	"github.com/conneroisu/svgsprite/internal/icon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enrichedView(t *testing.T, paths ...string) icon.View {
	t.Helper()
	records := make([]icon.Record, 0, len(paths))
	for _, p := range paths {
		records = append(records, icon.NewRecord(p, []byte(`<svg/>`)))
	}
	set, err := icon.NewSet(records)
	require.NoError(t, err)

	recs := set.View().Records()
	for i := range recs {
		recs[i] = recs[i].WithThumbnail("data:image/png;base64," + recs[i].Identifier())
	}
	enriched, err := set.Enrich(recs)
	require.NoError(t, err)
	return enriched.View()
}

func TestEmitES(t *testing.T) {
	e, err := NewEmitter("names.js", "")
	require.NoError(t, err)
	assert.Equal(t, FlavorES, e.Flavor())

	out, err := e.Emit(enrichedView(t, "user/profile.svg", "home.svg"))
	require.NoError(t, err)

	want := "/**\n" +
		" * ![](data:image/png;base64,HOME)  \n" +
		" * home.svg\n" +
		" */\n" +
		"export const HOME = 'HOME';\n" +
		"/**\n" +
		" * ![](data:image/png;base64,USER_PROFILE)  \n" +
		" * user/profile.svg\n" +
		" */\n" +
		"export const USER_PROFILE = 'USER_PROFILE';\n"
	assert.Equal(t, want, string(out))
}

func TestEmitGo(t *testing.T) {
	e, err := NewEmitter("names.go", "iconset")
	require.NoError(t, err)

	out, err := e.Emit(enrichedView(t, "b.svg", "a.svg"))
	require.NoError(t, err)

	want := "// Code generated by svgsprite. DO NOT EDIT.\n\n" +
		"package iconset\n" +
		"\nconst (\n" +
		"\t// ![](data:image/png;base64,A)\n" +
		"\t// a.svg\n" +
		"\tA = \"A\"\n" +
		"\n" +
		"\t// ![](data:image/png;base64,B)\n" +
		"\t// b.svg\n" +
		"\tB = \"B\"\n" +
		")\n"
	assert.Equal(t, want, string(out))
}

func TestEmitGoEmpty(t *testing.T) {
	e, err := NewEmitter("icons.go", "")
	require.NoError(t, err)

	out, err := e.Emit(enrichedView(t))
	require.NoError(t, err)
	assert.Equal(t, "// Code generated by svgsprite. DO NOT EDIT.\n\npackage icons\n", string(out))
}

func TestEmitWithoutThumbnail(t *testing.T) {
	set, err := icon.NewSet([]icon.Record{icon.NewRecord("x.svg", nil)})
	require.NoError(t, err)

	e, err := NewEmitter("names.ts", "")
	require.NoError(t, err)
	out, err := e.Emit(set.View())
	require.NoError(t, err)
	assert.Equal(t, "/**\n * x.svg\n */\nexport const X = 'X';\n", string(out))
}

func TestEmitRejectsLeadingDigit(t *testing.T) {
	e, err := NewEmitter("names.js", "")
	require.NoError(t, err)

	_, err = e.Emit(enrichedView(t, "ok.svg", "24px.svg"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeEmit))

	be, _ := errors.As(err)
	assert.Equal(t, "24px.svg", be.Path)
	assert.Equal(t, errors.StageManifest, be.Stage)
}

func TestEmitEscapesCommentTerminator(t *testing.T) {
	e, err := NewEmitter("names.js", "")
	require.NoError(t, err)

	out, err := e.Emit(enrichedView(t, "a*/b.svg"))
	require.NoError(t, err)
	assert.Contains(t, string(out), " * a*\\/b.svg\n")
}

func TestFlavorFor(t *testing.T) {
	for name, want := range map[string]Flavor{
		"names.js":  FlavorES,
		"names.mjs": FlavorES,
		"Names.TS":  FlavorES,
		"names.go":  FlavorGo,
	} {
		got, err := FlavorFor(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := NewEmitter("names.txt", "")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
