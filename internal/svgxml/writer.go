// Package svgxml reads and re-serializes SVG markup at the token level.
//
// encoding/xml's encoder rewrites namespace prefixes, so SVG documents are
// round-tripped through RawToken and this writer instead, which keeps
// prefixes exactly as written and collapses empty elements to "<x/>".
package svgxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// NewDecoder returns a strict decoder that understands non-UTF-8 encodings
// declared in the XML prolog.
func NewDecoder(r io.Reader) *xml.Decoder {
	d := xml.NewDecoder(r)
	d.Strict = true
	d.CharsetReader = charset.NewReaderLabel
	return d
}

// QName renders a raw (prefix, local) name.
func QName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// Attr returns the value of the unprefixed attribute local, if present.
func Attr(attrs []xml.Attr, local string) (string, bool) {
	for _, a := range attrs {
		if a.Name.Space == "" && a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// Writer serializes raw tokens. Start tags are held open until the next
// token so that elements without children are written self-closing.
type Writer struct {
	buf     bytes.Buffer
	pending bool
}

// Start writes an opening tag.
func (w *Writer) Start(name xml.Name, attrs []xml.Attr) {
	w.flush()
	w.buf.WriteByte('<')
	w.buf.WriteString(QName(name))
	for _, a := range attrs {
		w.buf.WriteByte(' ')
		w.buf.WriteString(QName(a.Name))
		w.buf.WriteString(`="`)
		escape(&w.buf, a.Value)
		w.buf.WriteByte('"')
	}
	w.pending = true
}

// End closes the innermost element.
func (w *Writer) End(name xml.Name) {
	if w.pending {
		w.buf.WriteString("/>")
		w.pending = false
		return
	}
	w.buf.WriteString("</")
	w.buf.WriteString(QName(name))
	w.buf.WriteByte('>')
}

// Text writes escaped character data.
func (w *Writer) Text(data []byte) {
	w.flush()
	escape(&w.buf, string(data))
}

// Raw writes pre-serialized markup.
func (w *Writer) Raw(markup []byte) {
	w.flush()
	w.buf.Write(markup)
}

// Bytes returns the serialized document.
func (w *Writer) Bytes() []byte {
	w.flush()
	return w.buf.Bytes()
}

func (w *Writer) flush() {
	if w.pending {
		w.buf.WriteByte('>')
		w.pending = false
	}
}

func escape(buf *bytes.Buffer, s string) {
	// xml.EscapeText only fails when the writer does
	_ = xml.EscapeText(buf, []byte(s))
}

// Walk feeds every raw token of a well-formed document to fn and verifies
// that start and end tags balance. Comments, processing instructions and
// directives are passed through; callers decide what to keep.
func Walk(r io.Reader, fn func(tok xml.Token, depth int) error) error {
	d := NewDecoder(r)
	var stack []xml.Name
	roots := 0

	for {
		tok, err := d.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) == 0 {
				roots++
				if roots > 1 {
					return fmt.Errorf("multiple root elements: <%s>", QName(t.Name))
				}
			}
			if err := fn(t, len(stack)); err != nil {
				return err
			}
			stack = append(stack, t.Name)
			continue
		case xml.EndElement:
			if len(stack) == 0 {
				return fmt.Errorf("unexpected end element </%s>", QName(t.Name))
			}
			top := stack[len(stack)-1]
			if top != t.Name {
				return fmt.Errorf("element <%s> closed by </%s>", QName(top), QName(t.Name))
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 && len(bytes.TrimSpace(t)) > 0 {
				return fmt.Errorf("text outside root element")
			}
		}

		if err := fn(tok, len(stack)); err != nil {
			return err
		}
	}

	if len(stack) > 0 {
		return fmt.Errorf("unexpected EOF: <%s> not closed", QName(stack[len(stack)-1]))
	}
	if roots == 0 {
		return fmt.Errorf("no root element")
	}
	return nil
}

// IsBlank reports whether character data is whitespace only.
func IsBlank(data []byte) bool {
	return strings.TrimSpace(string(data)) == ""
}
