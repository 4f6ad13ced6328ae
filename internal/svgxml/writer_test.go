package svgxml

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterCollapsesEmptyElements(t *testing.T) {
	var w Writer
	svg := xml.Name{Local: "svg"}
	path := xml.Name{Local: "path"}
	link := xml.Name{Space: "xlink", Local: "href"}

	w.Start(svg, []xml.Attr{{Name: xml.Name{Local: "viewBox"}, Value: "0 0 24 24"}})
	w.Start(path, []xml.Attr{{Name: link, Value: `#a&"b"`}})
	w.End(path)
	w.Start(xml.Name{Local: "title"}, nil)
	w.Text([]byte("a < b"))
	w.End(xml.Name{Local: "title"})
	w.End(svg)

	assert.Equal(t,
		`<svg viewBox="0 0 24 24"><path xlink:href="#a&amp;&#34;b&#34;"/><title>a &lt; b</title></svg>`,
		string(w.Bytes()))
}

func TestWalk(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"well formed", `<?xml version="1.0"?><!-- c --><svg><g><path/></g></svg>`, ""},
		{"mismatched", `<svg><g></svg>`, "closed by"},
		{"unclosed", `<svg><g>`, "not closed"},
		{"multiple roots", `<svg/><svg/>`, "multiple root elements"},
		{"text outside root", `<svg/>stray`, "text outside root element"},
		{"empty", ``, "no root element"},
		{"stray end", `</svg>`, "unexpected end element"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Walk(strings.NewReader(tt.input), func(xml.Token, int) error { return nil })
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWalkDepth(t *testing.T) {
	depths := map[string]int{}
	err := Walk(strings.NewReader(`<svg><g><path/></g></svg>`), func(tok xml.Token, depth int) error {
		if s, ok := tok.(xml.StartElement); ok {
			depths[s.Name.Local] = depth
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"svg": 0, "g": 1, "path": 2}, depths)
}

func TestWalkDecodesDeclaredCharset(t *testing.T) {
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><svg><title>caf\xe9</title></svg>"

	var text string
	err := Walk(strings.NewReader(doc), func(tok xml.Token, depth int) error {
		if c, ok := tok.(xml.CharData); ok && depth == 2 {
			text = string(c)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "café", text)
}

func TestAttrIgnoresPrefixedNames(t *testing.T) {
	attrs := []xml.Attr{
		{Name: xml.Name{Space: "xlink", Local: "href"}, Value: "#prefixed"},
		{Name: xml.Name{Local: "href"}, Value: "#plain"},
	}

	v, ok := Attr(attrs, "href")
	assert.True(t, ok)
	assert.Equal(t, "#plain", v)

	_, ok = Attr(attrs, "fill")
	assert.False(t, ok)
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank([]byte(" \n\t")))
	assert.False(t, IsBlank([]byte(" x ")))
}
