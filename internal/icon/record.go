// Package icon holds the immutable working set that flows through the sprite
// build: one Record per optimized source file, sorted once by relative path
// and shared read-only with every artifact generator.
package icon

import (
	"bytes"

	"golang.org/x/text/unicode/norm"
)

// Record is one optimized icon. Records are values; enrichment stages return
// a new Record instead of modifying a shared one.
type Record struct {
	sourcePath   string
	relativePath string
	identifier   string
	content      []byte
	thumbnail    string
}

// NewRecord builds a record for an optimized icon. The identifier is derived
// from the normalized path and the content is copied.
func NewRecord(relativePath string, content []byte) Record {
	rel := NormalizePath(relativePath)

	return Record{
		sourcePath:   relativePath,
		relativePath: rel,
		identifier:   Identifier(rel),
		content:      bytes.Clone(content),
	}
}

// RelativePath is the forward-slash path relative to the source root.
func (r Record) RelativePath() string { return r.relativePath }

// SourcePath is the path exactly as the collector reported it, before
// normalization.
func (r Record) SourcePath() string { return r.sourcePath }

// Identifier is the sanitized symbol name.
func (r Record) Identifier() string { return r.identifier }

// Content returns a copy of the optimized markup.
func (r Record) Content() []byte { return bytes.Clone(r.content) }

// ContentString returns the optimized markup as a string.
func (r Record) ContentString() string { return string(r.content) }

// Thumbnail is the raster preview data URI, empty until rendered.
func (r Record) Thumbnail() string { return r.thumbnail }

// HasThumbnail reports whether the thumbnail stage has run for this record.
func (r Record) HasThumbnail() bool { return r.thumbnail != "" }

// WithThumbnail returns a copy of r carrying the given preview.
func (r Record) WithThumbnail(dataURI string) Record {
	r.thumbnail = dataURI
	return r
}

func normalizeUnicode(s string) string {
	if norm.NFC.IsNormalString(s) {
		return s
	}
	return norm.NFC.String(s)
}
