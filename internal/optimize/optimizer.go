// Package optimize normalizes icon markup before it enters the working set.
//
// Geometry is left alone: viewBox and element ids are kept verbatim. What is
// removed is everything a consumer should control through CSS (fill and
// stroke presentation) plus document noise such as comments, prologs,
// metadata and editor namespaces.
package optimize

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/conneroisu/svgsprite/internal/errors"
	"github.com/conneroisu/svgsprite/internal/svgxml"
)

// Options controls which presentation attributes are stripped.
type Options struct {
	// RemoveAttrs lists unprefixed attributes (and style properties) removed
	// from every element.
	RemoveAttrs []string
	// DropElements lists element local names removed with their subtree.
	DropElements []string
	// EditorPrefixes lists namespace prefixes whose elements, attributes and
	// xmlns declarations are removed.
	EditorPrefixes []string
}

// DefaultOptions strips fill and stroke, metadata and Inkscape/Sodipodi data.
func DefaultOptions() Options {
	return Options{
		RemoveAttrs:    []string{"fill", "stroke"},
		DropElements:   []string{"metadata"},
		EditorPrefixes: []string{"sodipodi", "inkscape", "sketch"},
	}
}

// Optimizer rewrites raw SVG documents.
type Optimizer struct {
	remove  map[string]bool
	drop    map[string]bool
	editors map[string]bool
}

// New creates an optimizer.
func New(opts Options) *Optimizer {
	return &Optimizer{
		remove:  toSet(opts.RemoveAttrs),
		drop:    toSet(opts.DropElements),
		editors: toSet(opts.EditorPrefixes),
	}
}

func toSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

// Optimize returns the normalized form of raw. Malformed markup, or a root
// that is not <svg>, yields an OptimizationError naming path.
func (o *Optimizer) Optimize(path string, raw []byte) ([]byte, error) {
	var w svgxml.Writer
	skipDepth := -1

	err := svgxml.Walk(bytes.NewReader(raw), func(tok xml.Token, depth int) error {
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 && (t.Name.Local != "svg" || (t.Name.Space != "" && t.Name.Space != "svg")) {
				return fmt.Errorf("root element is <%s>, want <svg>", svgxml.QName(t.Name))
			}
			if skipDepth >= 0 {
				return nil
			}
			if o.drop[t.Name.Local] || o.editors[t.Name.Space] {
				skipDepth = depth
				return nil
			}
			w.Start(t.Name, o.cleanAttrs(t.Attr))
		case xml.EndElement:
			if skipDepth >= 0 {
				if depth == skipDepth {
					skipDepth = -1
				}
				return nil
			}
			w.End(t.Name)
		case xml.CharData:
			if skipDepth >= 0 || depth == 0 || svgxml.IsBlank(t) {
				return nil
			}
			w.Text(t)
		}
		// comments, processing instructions and directives are dropped
		return nil
	})
	if err != nil {
		return nil, errors.NewOptimizationError(path, err)
	}

	return bytes.Clone(w.Bytes()), nil
}

func (o *Optimizer) cleanAttrs(attrs []xml.Attr) []xml.Attr {
	strokeNone := false
	fillNone := false
	for _, a := range attrs {
		if a.Name.Space != "" {
			continue
		}
		switch a.Name.Local {
		case "stroke":
			strokeNone = strokeNone || isNone(a.Value)
		case "stroke-width":
			strokeNone = strokeNone || strings.TrimSpace(a.Value) == "0"
		case "fill":
			fillNone = fillNone || isNone(a.Value)
		}
	}

	out := make([]xml.Attr, 0, len(attrs))
	for _, a := range attrs {
		if o.editors[a.Name.Space] {
			continue
		}
		if a.Name.Space == "xmlns" && o.editors[a.Name.Local] {
			continue
		}
		if a.Name.Space == "" {
			local := a.Name.Local
			if o.remove[local] {
				continue
			}
			if strokeNone && strings.HasPrefix(local, "stroke-") {
				continue
			}
			if fillNone && strings.HasPrefix(local, "fill-") {
				continue
			}
			if local == "style" {
				style := o.cleanStyle(a.Value)
				if style == "" {
					continue
				}
				a.Value = style
			}
		}
		out = append(out, a)
	}
	return out
}

// splitDeclarations splits a style attribute on semicolons that are outside
// parentheses and quoted strings, so url(data:...;base64,...) stays whole.
func splitDeclarations(style string) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0

	for i := 0; i < len(style); i++ {
		c := style[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case c == ';' && depth == 0:
			parts = append(parts, style[start:i])
			start = i + 1
		}
	}
	return append(parts, style[start:])
}

func (o *Optimizer) cleanStyle(style string) string {
	type decl struct{ prop, value string }
	var decls []decl
	strokeNone := false
	fillNone := false

	for _, part := range splitDeclarations(style) {
		prop, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		value = strings.TrimSpace(value)
		if prop == "" {
			continue
		}
		switch prop {
		case "stroke":
			strokeNone = strokeNone || isNone(value)
		case "fill":
			fillNone = fillNone || isNone(value)
		}
		decls = append(decls, decl{prop, value})
	}

	kept := make([]string, 0, len(decls))
	for _, d := range decls {
		if o.remove[d.prop] {
			continue
		}
		if strokeNone && strings.HasPrefix(d.prop, "stroke-") {
			continue
		}
		if fillNone && strings.HasPrefix(d.prop, "fill-") {
			continue
		}
		kept = append(kept, d.prop+":"+d.value)
	}
	return strings.Join(kept, ";")
}

func isNone(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "none")
}
