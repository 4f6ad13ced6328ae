// Package manifest generates the source module that exports one named
// constant per icon, each documented with its thumbnail and source path.
package manifest

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/conneroisu/svgsprite/internal/errors"
	"github.com/conneroisu/svgsprite/internal/icon"
)

// DefaultFileName is the manifest written when none is configured.
const DefaultFileName = "names.js"

// Flavor selects the language of the generated module.
type Flavor string

const (
	FlavorES Flavor = "es"
	FlavorGo Flavor = "go"
)

// FlavorFor picks the flavor from the manifest file name.
func FlavorFor(fileName string) (Flavor, error) {
	switch strings.ToLower(path.Ext(fileName)) {
	case ".js", ".mjs", ".ts", ".jsx", ".tsx":
		return FlavorES, nil
	case ".go":
		return FlavorGo, nil
	default:
		return "", fmt.Errorf("unsupported manifest extension %q (want .js, .mjs, .ts or .go)", path.Ext(fileName))
	}
}

// Emitter renders manifest modules.
type Emitter struct {
	flavor  Flavor
	pkgName string
}

// NewEmitter creates an emitter for fileName. pkgName is used by the Go
// flavor only.
func NewEmitter(fileName, pkgName string) (*Emitter, error) {
	flavor, err := FlavorFor(fileName)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, err.Error()).
			WithContext("names_filename", fileName)
	}
	if pkgName == "" {
		pkgName = "icons"
	}
	return &Emitter{flavor: flavor, pkgName: pkgName}, nil
}

// Flavor returns the language being generated.
func (e *Emitter) Flavor() Flavor { return e.flavor }

// Emit renders the manifest for view. Records are expected to carry
// thumbnails; one without a thumbnail is documented with its path only.
func (e *Emitter) Emit(view icon.View) ([]byte, error) {
	for _, rec := range view.All() {
		if !validName(rec.Identifier()) {
			return nil, errors.NewEmitError(errors.StageManifest, errors.ErrCodeInvalidIdentifier,
				rec.RelativePath(),
				fmt.Sprintf("identifier %s is not a valid constant name", rec.Identifier())).
				WithContext("identifier", rec.Identifier())
		}
	}

	var buf bytes.Buffer
	switch e.flavor {
	case FlavorGo:
		e.emitGo(&buf, view)
	default:
		e.emitES(&buf, view)
	}
	return buf.Bytes(), nil
}

func (e *Emitter) emitES(buf *bytes.Buffer, view icon.View) {
	for _, rec := range view.All() {
		buf.WriteString("/**\n")
		if rec.HasThumbnail() {
			fmt.Fprintf(buf, " * ![](%s)  \n", rec.Thumbnail())
		}
		fmt.Fprintf(buf, " * %s\n", commentSafe(rec.RelativePath()))
		buf.WriteString(" */\n")
		fmt.Fprintf(buf, "export const %s = '%s';\n", rec.Identifier(), rec.Identifier())
	}
}

func (e *Emitter) emitGo(buf *bytes.Buffer, view icon.View) {
	buf.WriteString("// Code generated by svgsprite. DO NOT EDIT.\n\n")
	fmt.Fprintf(buf, "package %s\n", e.pkgName)
	if view.Len() == 0 {
		return
	}

	buf.WriteString("\nconst (\n")
	for i, rec := range view.All() {
		if i > 0 {
			buf.WriteString("\n")
		}
		if rec.HasThumbnail() {
			fmt.Fprintf(buf, "\t// ![](%s)\n", rec.Thumbnail())
		}
		fmt.Fprintf(buf, "\t// %s\n", commentSafe(rec.RelativePath()))
		fmt.Fprintf(buf, "\t%s = %q\n", rec.Identifier(), rec.Identifier())
	}
	buf.WriteString(")\n")
}

// validName reports whether id can name a constant in every supported
// flavor: identifiers are already [A-Z0-9_], so only a leading digit is
// disallowed.
func validName(id string) bool {
	return id != "" && !(id[0] >= '0' && id[0] <= '9')
}

// commentSafe keeps a path from terminating or breaking out of a comment.
func commentSafe(p string) string {
	p = strings.ReplaceAll(p, "*/", "*\\/")
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(p)
}
