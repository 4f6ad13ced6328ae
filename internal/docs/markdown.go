// Package docs renders the human-readable documentation of an icon set: a
// markdown table for the destination README and a standalone HTML catalog.
// Both list the icons in working-set order with the same three columns.
package docs

import (
	"bytes"
	"strings"

	"github.com/conneroisu/svgsprite/internal/icon"
)

// DefaultReadmeName is the markdown file written to the destination.
const DefaultReadmeName = "README.md"

// Columns are the headers shared by the markdown table and the catalog.
var Columns = [3]string{"Icon", "Name", "Path"}

// Markdown renders the documentation table, preceded by prepend verbatim
// when it is not empty.
func Markdown(view icon.View, prepend []byte) []byte {
	var buf bytes.Buffer

	if len(prepend) > 0 {
		buf.Write(prepend)
		switch {
		case bytes.HasSuffix(prepend, []byte("\n\n")):
		case bytes.HasSuffix(prepend, []byte("\n")):
			buf.WriteByte('\n')
		default:
			buf.WriteString("\n\n")
		}
	}

	buf.WriteString("| " + strings.Join(Columns[:], " | ") + " |\n")
	buf.WriteString("|---|---|---|\n")

	for _, rec := range view.All() {
		buf.WriteString("| ")
		if rec.HasThumbnail() {
			buf.WriteString("![](" + rec.Thumbnail() + ")")
		}
		buf.WriteString(" | ")
		buf.WriteString(rec.Identifier())
		buf.WriteString(" | ")
		buf.WriteString(escapeCell(rec.RelativePath()))
		buf.WriteString(" |\n")
	}

	return buf.Bytes()
}

var cellEscaper = strings.NewReplacer("|", `\|`, "\r", " ", "\n", " ")

func escapeCell(s string) string {
	return cellEscaper.Replace(s)
}
