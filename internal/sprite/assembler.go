// Package sprite merges the optimized icons of a working set into a single
// inline SVG sprite in which every icon is a <symbol> addressed by its
// identifier.
package sprite

import (
	"bytes"
	"encoding/xml"
	"sort"

	"github.com/conneroisu/svgsprite/internal/errors"
	"github.com/conneroisu/svgsprite/internal/icon"
	"github.com/conneroisu/svgsprite/internal/svgxml"
)

// FileName is the name the sprite is written under in the destination.
const FileName = "sprite.svg"

const svgNamespace = "http://www.w3.org/2000/svg"

// symbolAttrs are copied from each icon's root onto its symbol.
var symbolAttrs = []string{"viewBox", "preserveAspectRatio"}

// Assembler builds sprite documents.
type Assembler struct{}

// NewAssembler creates an assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Assemble returns the sprite for view. Symbols appear in view order, defs
// from every icon are hoisted into one shared <defs> block.
func (a *Assembler) Assemble(view icon.View) ([]byte, error) {
	var defs, symbols svgxml.Writer
	namespaces := map[string]string{}

	for _, rec := range view.All() {
		if err := a.addSymbol(rec, &defs, &symbols, namespaces); err != nil {
			return nil, err
		}
	}

	rootAttrs := []xml.Attr{{Name: xml.Name{Local: "xmlns"}, Value: svgNamespace}}
	prefixes := make([]string, 0, len(namespaces))
	for p := range namespaces {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	for _, p := range prefixes {
		rootAttrs = append(rootAttrs, xml.Attr{
			Name:  xml.Name{Space: "xmlns", Local: p},
			Value: namespaces[p],
		})
	}

	root := xml.Name{Local: "svg"}
	var out svgxml.Writer
	out.Start(root, rootAttrs)
	if d := defs.Bytes(); len(d) > 0 {
		defsName := xml.Name{Local: "defs"}
		out.Start(defsName, nil)
		out.Raw(d)
		out.End(defsName)
	}
	if s := symbols.Bytes(); len(s) > 0 {
		out.Raw(s)
	}
	out.End(root)

	return bytes.Clone(out.Bytes()), nil
}

func (a *Assembler) addSymbol(rec icon.Record, defs, symbols *svgxml.Writer, namespaces map[string]string) error {
	symbolName := xml.Name{Local: "symbol"}
	// depth of the <defs> element currently being hoisted, -1 when outside.
	// Defs at any depth are hoisted; defs nested inside them stay as written.
	inDefs := -1

	err := svgxml.Walk(bytes.NewReader(rec.Content()), func(tok xml.Token, depth int) error {
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case depth == 0:
				symbols.Start(symbolName, rootToSymbol(rec.Identifier(), t.Attr, namespaces))
			case inDefs < 0 && t.Name.Space == "" && t.Name.Local == "defs":
				inDefs = depth
			case inDefs >= 0:
				defs.Start(t.Name, t.Attr)
			default:
				symbols.Start(t.Name, t.Attr)
			}
		case xml.EndElement:
			switch {
			case depth == 0:
				symbols.End(symbolName)
			case depth == inDefs:
				inDefs = -1
			case inDefs >= 0:
				defs.End(t.Name)
			default:
				symbols.End(t.Name)
			}
		case xml.CharData:
			if depth == 0 || svgxml.IsBlank(t) {
				return nil
			}
			if inDefs >= 0 {
				defs.Text(t)
			} else {
				symbols.Text(t)
			}
		}
		return nil
	})
	if err != nil {
		return errors.NewInternalError(errors.StageSprite, "optimized icon is not well-formed", err).
			WithContext("identifier", rec.Identifier())
	}
	return nil
}

func rootToSymbol(id string, attrs []xml.Attr, namespaces map[string]string) []xml.Attr {
	out := []xml.Attr{{Name: xml.Name{Local: "id"}, Value: id}}
	for _, name := range symbolAttrs {
		if v, ok := svgxml.Attr(attrs, name); ok {
			out = append(out, xml.Attr{Name: xml.Name{Local: name}, Value: v})
		}
	}
	for _, attr := range attrs {
		if attr.Name.Space == "xmlns" {
			if _, seen := namespaces[attr.Name.Local]; !seen {
				namespaces[attr.Name.Local] = attr.Value
			}
		}
	}
	return out
}
