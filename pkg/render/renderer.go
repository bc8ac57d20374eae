package render

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/vango-dev/tal/pkg/dom"
)

// IDAttr is the attribute carrying node IDs in live mode.
const IDAttr = "data-tal-id"

// RendererConfig configures the HTML renderer.
type RendererConfig struct {
	// Pretty enables indented output. Whitespace-sensitive content is
	// altered, so it should only be used for debugging.
	Pretty bool

	// Indent is the string used for each indentation level in pretty mode.
	// Defaults to two spaces.
	Indent string

	// IDs adds a data-tal-id attribute with the node ID to every element, so
	// a live client can address elements in patches.
	IDs bool

	// Comments keeps comment nodes, including binding markers. Markers are
	// needed by live clients that receive html patches.
	Comments bool
}

// Renderer serializes dom trees to HTML.
type Renderer struct {
	config RendererConfig
}

// NewRenderer creates a new Renderer with the given configuration.
func NewRenderer(config RendererConfig) *Renderer {
	if config.Indent == "" {
		config.Indent = "  "
	}
	return &Renderer{config: config}
}

// RenderToString renders n and its descendants.
func (r *Renderer) RenderToString(n *dom.Node) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToWriter(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToWriter streams n and its descendants to w.
func (r *Renderer) RenderToWriter(w io.Writer, n *dom.Node) error {
	bw := bufio.NewWriter(w)
	if err := r.renderNode(bw, n, 0, false); err != nil {
		return err
	}
	return bw.Flush()
}

// InnerHTML renders the children of n.
func (r *Renderer) InnerHTML(n *dom.Node) (string, error) {
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	raw := n.IsElement() && rawTextElements[n.Tag]
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := r.renderNode(bw, c, 0, raw); err != nil {
			return "", err
		}
	}
	if err := bw.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *Renderer) renderNode(w *bufio.Writer, n *dom.Node, depth int, raw bool) error {
	if n == nil {
		return nil
	}
	switch n.Type {
	case dom.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := r.renderNode(w, c, depth, false); err != nil {
				return err
			}
		}
		return nil
	case dom.DoctypeNode:
		_, err := fmt.Fprintf(w, "<!DOCTYPE %s>\n", n.Data)
		return err
	case dom.ElementNode:
		return r.renderElement(w, n, depth)
	case dom.TextNode:
		if raw {
			_, err := w.WriteString(n.Data)
			return err
		}
		_, err := w.WriteString(escapeHTML(n.Data))
		return err
	case dom.CommentNode:
		if !r.config.Comments {
			return nil
		}
		_, err := fmt.Fprintf(w, "<!--%s-->", n.Data)
		return err
	default:
		return fmt.Errorf("render: unknown node type %v", n.Type)
	}
}

func (r *Renderer) renderElement(w *bufio.Writer, n *dom.Node, depth int) error {
	if r.config.Pretty && depth > 0 {
		r.writeIndent(w, depth)
	}

	w.WriteByte('<')
	w.WriteString(n.Tag)
	r.renderAttributes(w, n)
	if r.config.IDs {
		w.WriteString(` ` + IDAttr + `="`)
		w.WriteString(strconv.FormatUint(n.ID(), 10))
		w.WriteByte('"')
	}
	w.WriteByte('>')

	if isVoidElement(n.Tag) {
		if r.config.Pretty {
			w.WriteByte('\n')
		}
		return nil
	}

	raw := rawTextElements[n.Tag]
	block := n.FirstChild != nil && !isInlineElement(n.Tag) && !raw
	if r.config.Pretty && block {
		w.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := r.renderNode(w, c, depth+1, raw); err != nil {
			return err
		}
	}
	if r.config.Pretty && block {
		r.writeIndent(w, depth)
	}

	w.WriteString("</")
	w.WriteString(n.Tag)
	_, err := w.WriteString(">")
	if r.config.Pretty {
		w.WriteByte('\n')
	}
	return err
}

// renderAttributes writes attributes in document order. Boolean attributes
// are written bare.
func (r *Renderer) renderAttributes(w *bufio.Writer, n *dom.Node) {
	for _, a := range n.Attrs {
		if r.config.IDs && a.Key == IDAttr {
			continue
		}
		w.WriteByte(' ')
		w.WriteString(a.Key)
		if a.Val == "" && isBooleanAttr(a.Key) {
			continue
		}
		w.WriteString(`="`)
		w.WriteString(escapeAttr(a.Val))
		w.WriteByte('"')
	}
}

func (r *Renderer) writeIndent(w *bufio.Writer, depth int) {
	for i := 0; i < depth; i++ {
		w.WriteString(r.config.Indent)
	}
}
