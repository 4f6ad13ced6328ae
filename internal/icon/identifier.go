package icon

import (
	"path"
	"strings"
)

// Identifier derives the symbol name for a source-relative path.
//
// The extension is stripped, the path is split on both '/' and '\', the
// segments are joined with '_', every run of characters outside
// [0-9A-Za-z] collapses to a single '_' and the result is upper-cased.
// The mapping is total: a path with no alphanumerics yields "_".
func Identifier(relativePath string) string {
	p := strings.ReplaceAll(relativePath, `\`, "/")
	p = strings.TrimSuffix(p, path.Ext(p))

	var b strings.Builder
	b.Grow(len(p))

	pendingSep := false
	for i := 0; i < len(p); i++ {
		c := p[i]
		switch {
		case c >= 'a' && c <= 'z':
			if pendingSep {
				b.WriteByte('_')
				pendingSep = false
			}
			b.WriteByte(c - ('a' - 'A'))
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			if pendingSep {
				b.WriteByte('_')
				pendingSep = false
			}
			b.WriteByte(c)
		default:
			pendingSep = true
		}
	}
	if pendingSep {
		b.WriteByte('_')
	}

	if b.Len() == 0 {
		return "_"
	}

	return b.String()
}

// NormalizePath converts a collector path into the canonical relative form:
// forward slashes, no leading "./" and NFC-composed runes.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = strings.TrimPrefix(p, "./")

	return normalizeUnicode(p)
}
