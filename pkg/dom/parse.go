package dom

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parse parses a complete HTML document.
func Parse(r io.Reader) (*Node, error) {
	h, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return convert(h), nil
}

// ParseString parses a complete HTML document from a string.
func ParseString(src string) (*Node, error) {
	return Parse(strings.NewReader(src))
}

// ParseFragment parses src as the content of context. A nil context parses
// as body content.
func ParseFragment(src string, context *Node) ([]*Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	if context.IsElement() {
		ctx.Data = context.Tag
		ctx.DataAtom = atom.Lookup([]byte(context.Tag))
	}
	hs, err := html.ParseFragment(strings.NewReader(src), ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Node, len(hs))
	for i, h := range hs {
		out[i] = convert(h)
	}
	return out, nil
}

// ParseElement parses src and returns its first top-level element.
func ParseElement(src string) (*Node, error) {
	nodes, err := ParseFragment(src, nil)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if n.IsElement() {
			return n, nil
		}
	}
	return nil, fmt.Errorf("dom: no element in %q", truncate(src, 40))
}

// SetInnerHTML replaces the children of n with the parsed markup.
func (n *Node) SetInnerHTML(src string) error {
	nodes, err := ParseFragment(src, n)
	if err != nil {
		return err
	}
	n.RemoveChildren()
	for _, c := range nodes {
		n.AppendChild(c)
	}
	return nil
}

func convert(h *html.Node) *Node {
	var n *Node
	switch h.Type {
	case html.DocumentNode:
		n = NewDocument()
	case html.ElementNode:
		n = NewElement(h.Data)
		for _, a := range h.Attr {
			key := a.Key
			if a.Namespace != "" {
				key = a.Namespace + ":" + a.Key
			}
			n.Attrs = append(n.Attrs, Attr{Key: key, Val: a.Val})
		}
	case html.TextNode:
		n = NewText(h.Data)
	case html.CommentNode:
		n = NewComment(h.Data)
	case html.DoctypeNode:
		n = newNode(DoctypeNode)
		n.Data = h.Data
	default:
		n = NewText("")
	}
	for c := h.FirstChild; c != nil; c = c.NextSibling {
		n.appendChild(convert(c))
	}
	return n
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
