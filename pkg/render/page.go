package render

import (
	"bufio"
	"io"
	"strconv"

	"github.com/vango-dev/tal/pkg/dom"
)

// DefaultClientScript is the path the live client is served from.
const DefaultClientScript = "/_tal/client.js"

// PageData contains all data needed to render a complete HTML page.
type PageData struct {
	// Body is rendered inside <body>. A document or <body> element has its
	// children rendered; any other node is rendered as is.
	Body *dom.Node

	Title string
	// Lang defaults to "en".
	Lang string

	Meta        []MetaTag
	Links       []LinkTag
	Scripts     []ScriptTag
	StyleSheets []string
	// Styles are inline CSS blocks.
	Styles []string

	// SessionID is handed to the live client. Pages without a session get no
	// client script.
	SessionID string

	// ClientScript defaults to DefaultClientScript.
	ClientScript string
}

// MetaTag represents a meta element in the document head.
type MetaTag struct {
	Name      string
	Content   string
	Property  string
	HTTPEquiv string
	Charset   string
}

// LinkTag represents a link element in the document head.
type LinkTag struct {
	Rel         string
	Href        string
	Type        string
	Sizes       string
	CrossOrigin string
	Media       string
}

// ScriptTag represents a script element.
type ScriptTag struct {
	Src    string
	Type   string
	Defer  bool
	Async  bool
	Module bool
	Inline string
}

// RenderPage renders a complete HTML document to w.
func (r *Renderer) RenderPage(w io.Writer, page PageData) error {
	bw := bufio.NewWriter(w)
	if err := r.writeOpening(bw, page); err != nil {
		return err
	}
	if err := r.writeBody(bw, page); err != nil {
		return err
	}
	return bw.Flush()
}

func (r *Renderer) writeOpening(w *bufio.Writer, page PageData) error {
	lang := page.Lang
	if lang == "" {
		lang = "en"
	}
	w.WriteString("<!DOCTYPE html>\n")
	w.WriteString(`<html lang="` + escapeAttr(lang) + `">` + "\n")
	r.writeHead(w, page)
	return nil
}

func (r *Renderer) writeBody(w *bufio.Writer, page PageData) error {
	body := page.Body
	if body != nil && body.Type == dom.DocumentNode {
		body = body.FindTag("body")
	}
	if body != nil && body.Tag == "body" && r.config.IDs {
		w.WriteString(`<body ` + IDAttr + `="` + strconv.FormatUint(body.ID(), 10) + `">` + "\n")
	} else {
		w.WriteString("<body>\n")
	}
	if body != nil {
		if body.Tag == "body" {
			for c := body.FirstChild; c != nil; c = c.NextSibling {
				if err := r.renderNode(w, c, 0, false); err != nil {
					return err
				}
			}
		} else if err := r.renderNode(w, body, 0, false); err != nil {
			return err
		}
	}
	w.WriteByte('\n')
	r.writeClientScript(w, page)
	_, err := w.WriteString("</body>\n</html>\n")
	return err
}

func (r *Renderer) writeHead(w *bufio.Writer, page PageData) {
	w.WriteString("<head>\n")
	w.WriteString(`  <meta charset="utf-8">` + "\n")
	w.WriteString(`  <meta name="viewport" content="width=device-width, initial-scale=1">` + "\n")
	if page.Title != "" {
		w.WriteString("  <title>" + escapeHTML(page.Title) + "</title>\n")
	}
	for _, m := range page.Meta {
		writeTag(w, "meta",
			"charset", m.Charset,
			"name", m.Name,
			"property", m.Property,
			"http-equiv", m.HTTPEquiv,
			"content", m.Content)
	}
	for _, l := range page.Links {
		writeTag(w, "link",
			"rel", l.Rel,
			"href", l.Href,
			"type", l.Type,
			"sizes", l.Sizes,
			"crossorigin", l.CrossOrigin,
			"media", l.Media)
	}
	for _, href := range page.StyleSheets {
		writeTag(w, "link", "rel", "stylesheet", "href", href)
	}
	for _, css := range page.Styles {
		w.WriteString("  <style>" + css + "</style>\n")
	}
	for _, s := range page.Scripts {
		if s.Defer || s.Async {
			writeScript(w, s)
		}
	}
	w.WriteString("</head>\n")
}

func (r *Renderer) writeClientScript(w *bufio.Writer, page PageData) {
	for _, s := range page.Scripts {
		if !s.Defer && !s.Async {
			writeScript(w, s)
		}
	}
	if page.SessionID == "" {
		return
	}
	src := page.ClientScript
	if src == "" {
		src = DefaultClientScript
	}
	writeScript(w, ScriptTag{Src: src, Defer: true})
	w.WriteString(`  <script>window.__TAL_SESSION__="` + escapeAttr(page.SessionID) + `";</script>` + "\n")
}

// writeTag writes a void head element; empty attribute values are skipped.
func writeTag(w *bufio.Writer, tag string, kv ...string) {
	w.WriteString("  <" + tag)
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			w.WriteString(" " + kv[i] + `="` + escapeAttr(kv[i+1]) + `"`)
		}
	}
	w.WriteString(">\n")
}

func writeScript(w *bufio.Writer, s ScriptTag) {
	w.WriteString("  <script")
	if s.Src != "" {
		w.WriteString(` src="` + escapeAttr(s.Src) + `"`)
	}
	switch {
	case s.Module:
		w.WriteString(` type="module"`)
	case s.Type != "":
		w.WriteString(` type="` + escapeAttr(s.Type) + `"`)
	}
	if s.Defer {
		w.WriteString(" defer")
	}
	if s.Async {
		w.WriteString(" async")
	}
	w.WriteString(">" + s.Inline + "</script>\n")
}
