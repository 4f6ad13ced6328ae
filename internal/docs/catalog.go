package docs

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/a-h/templ"
	"github.com/conneroisu/svgsprite/internal/icon"
)

// DefaultTitle heads the catalog page when no title is configured.
const DefaultTitle = "Icon catalog"

// Catalog renders the standalone HTML documentation page.
type Catalog struct {
	Title string
	// ReloadPath, when set, adds a websocket client connecting to this path
	// on the serving host; the page reloads whenever a rebuild is announced.
	ReloadPath string
}

// Render returns the complete catalog document for view.
func (c Catalog) Render(ctx context.Context, view icon.View) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Page(view).Render(ctx, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Page is the catalog as a templ component.
func (c Catalog) Page(view icon.View) templ.Component {
	return c.layout(iconTable(view))
}

// ErrorPage reports a failed build in place of the table. With a reload
// path the page still reloads once a later build succeeds.
func (c Catalog) ErrorPage(message string) templ.Component {
	return c.layout(templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "<p class=\"error\">Build failed</p>\n<pre>"+
			templ.EscapeString(message)+"</pre>\n")
		return err
	}))
}

func (c Catalog) layout(body templ.Component) templ.Component {
	title := c.Title
	if title == "" {
		title = DefaultTitle
	}

	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n<title>"+
			templ.EscapeString(title)+"</title>\n"); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<style>"+catalogCSS+"</style>\n</head>\n<body>\n<h1>"+
			templ.EscapeString(title)+"</h1>\n"); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		if c.ReloadPath != "" {
			if err := reloadScript(c.ReloadPath).Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</body>\n</html>\n")
		return err
	})
}

func iconTable(view icon.View) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<table>\n<thead><tr>"); err != nil {
			return err
		}
		for _, col := range Columns {
			if _, err := io.WriteString(w, "<th>"+templ.EscapeString(col)+"</th>"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</tr></thead>\n<tbody>\n"); err != nil {
			return err
		}
		for _, rec := range view.All() {
			if err := iconRow(rec).Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</tbody>\n</table>\n")
		return err
	})
}

func iconRow(rec icon.Record) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		preview := ""
		if rec.HasThumbnail() {
			preview = "<img src=\"" + templ.EscapeString(rec.Thumbnail()) + "\" alt=\"" +
				templ.EscapeString(rec.Identifier()) + "\" width=\"64\" height=\"64\">"
		}
		_, err := io.WriteString(w, "<tr id=\""+templ.EscapeString(rec.Identifier())+"\">"+
			"<td>"+preview+"</td>"+
			"<td><code>"+templ.EscapeString(rec.Identifier())+"</code></td>"+
			"<td>"+templ.EscapeString(rec.RelativePath())+"</td>"+
			"</tr>\n")
		return err
	})
}

func reloadScript(path string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		// json.Marshal escapes <, > and & so the literal cannot end the script
		literal, err := json.Marshal(path)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, "<script>(function(){"+
			"var proto=location.protocol===\"https:\"?\"wss://\":\"ws://\";"+
			"var ws=new WebSocket(proto+location.host+"+string(literal)+");"+
			"ws.onmessage=function(e){if(e.data===\"reload\"){location.reload();}};"+
			"})();</script>\n")
		return err
	})
}

const catalogCSS = `body{font-family:system-ui,sans-serif;margin:2rem}` +
	`table{border-collapse:collapse}` +
	`th,td{border:1px solid #ddd;padding:.4rem .8rem;text-align:left;vertical-align:middle}` +
	`th{background:#f5f5f5}` +
	`img{display:block}` +
	`.error{color:#b00020;font-weight:bold}`
