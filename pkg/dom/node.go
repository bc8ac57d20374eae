package dom

import (
	"strings"
	"sync/atomic"
)

// NodeType is the node type discriminator.
type NodeType uint8

const (
	DocumentNode NodeType = iota + 1
	ElementNode
	TextNode
	CommentNode
	DoctypeNode
)

// String returns the string representation of the NodeType.
func (t NodeType) String() string {
	switch t {
	case DocumentNode:
		return "Document"
	case ElementNode:
		return "Element"
	case TextNode:
		return "Text"
	case CommentNode:
		return "Comment"
	case DoctypeNode:
		return "Doctype"
	default:
		return "Unknown"
	}
}

// Attr is one element attribute.
type Attr struct {
	Key string
	Val string
}

var nodeIDs atomic.Uint64

// Node is a mutable document tree node.
//
// Attributes are ordered and serialized. Properties (value, checked, open...)
// are the live state of interactive elements and are not serialized.
type Node struct {
	Type NodeType
	// Tag is the lower-case element name.
	Tag string
	// Data holds the text of text, comment and doctype nodes.
	Data  string
	Attrs []Attr

	Parent, FirstChild, LastChild, PrevSibling, NextSibling *Node

	id        uint64
	props     map[string]any
	teardown  []func()
	listeners map[string][]listener
	observers []observer
}

func newNode(t NodeType) *Node {
	return &Node{Type: t, id: nodeIDs.Add(1)}
}

// NewDocument returns an empty document.
func NewDocument() *Node { return newNode(DocumentNode) }

// NewElement returns a detached element.
func NewElement(tag string, attrs ...Attr) *Node {
	n := newNode(ElementNode)
	n.Tag = strings.ToLower(tag)
	n.Attrs = append(n.Attrs, attrs...)
	return n
}

// NewText returns a detached text node.
func NewText(text string) *Node {
	n := newNode(TextNode)
	n.Data = text
	return n
}

// NewComment returns a detached comment. The binding engine uses comments as
// persistent markers.
func NewComment(text string) *Node {
	n := newNode(CommentNode)
	n.Data = text
	return n
}

// ID is unique among all nodes of the process.
func (n *Node) ID() uint64 { return n.id }

// IsElement reports whether n is an element.
func (n *Node) IsElement() bool { return n != nil && n.Type == ElementNode }

// Attr returns the value of attribute key.
func (n *Node) Attr(key string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttr reports whether attribute key is present.
func (n *Node) HasAttr(key string) bool {
	_, ok := n.Attr(key)
	return ok
}

// SetAttr sets attribute key, keeping its position when it exists.
func (n *Node) SetAttr(key, val string) {
	for i, a := range n.Attrs {
		if a.Key == key {
			if a.Val == val {
				return
			}
			n.Attrs[i].Val = val
			n.notify(Mutation{Kind: MutationAttr, Target: n, Key: key, Value: val})
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Key: key, Val: val})
	n.notify(Mutation{Kind: MutationAttr, Target: n, Key: key, Value: val})
}

// RemoveAttr removes attribute key and returns its old value.
func (n *Node) RemoveAttr(key string) (string, bool) {
	for i, a := range n.Attrs {
		if a.Key == key {
			n.Attrs = append(n.Attrs[:i], n.Attrs[i+1:]...)
			n.notify(Mutation{Kind: MutationAttr, Target: n, Key: key, Removed: true})
			return a.Val, true
		}
	}
	return "", false
}

// Prop returns element property key. Unset value, checked, selected and open
// properties reflect their attributes.
func (n *Node) Prop(key string) any {
	if v, ok := n.props[key]; ok {
		return v
	}
	switch key {
	case "value":
		v, _ := n.Attr("value")
		if n.Tag == "textarea" {
			return n.TextContent()
		}
		return v
	case "checked", "selected", "open", "disabled":
		return n.HasAttr(key)
	}
	return nil
}

// SetProp sets element property key.
func (n *Node) SetProp(key string, v any) {
	if n.props == nil {
		n.props = make(map[string]any)
	}
	if old, ok := n.props[key]; ok && sameValue(old, v) {
		return
	}
	n.props[key] = v
	n.notify(Mutation{Kind: MutationProp, Target: n, Key: key, Value: v})
}

// Props returns the explicitly set properties.
func (n *Node) Props() map[string]any {
	out := make(map[string]any, len(n.props))
	for k, v := range n.props {
		out[k] = v
	}
	return out
}

// SetData replaces the text of a text or comment node.
func (n *Node) SetData(data string) {
	if n.Data == data {
		return
	}
	n.Data = data
	n.notify(Mutation{Kind: MutationText, Target: n, Value: data})
}

// Children returns the child nodes.
func (n *Node) Children() []*Node {
	var out []*Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// TextContent concatenates the text of all descendant text nodes.
func (n *Node) TextContent() string {
	switch n.Type {
	case TextNode, CommentNode:
		return n.Data
	}
	var b strings.Builder
	n.Walk(func(d *Node) bool {
		if d.Type == TextNode {
			b.WriteString(d.Data)
		}
		return true
	})
	return b.String()
}

// Walk visits n and its descendants in document order. Returning false from
// fn skips the children of the visited node.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		c.Walk(fn)
		c = next
	}
}

// Elements returns the descendant elements of n in document order, n
// included when it is an element.
func (n *Node) Elements() []*Node {
	var out []*Node
	n.Walk(func(d *Node) bool {
		if d.Type == ElementNode {
			out = append(out, d)
		}
		return true
	})
	return out
}

// Root returns the topmost ancestor.
func (n *Node) Root() *Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

// Contains reports whether other is n or one of its descendants.
func (n *Node) Contains(other *Node) bool {
	for ; other != nil; other = other.Parent {
		if other == n {
			return true
		}
	}
	return false
}

// FindByID returns the node with the given ID under n.
func (n *Node) FindByID(id uint64) *Node {
	return n.Find(func(d *Node) bool { return d.id == id })
}

// Clone copies n. A deep clone copies the subtree. Listeners, teardown
// functions and observers are not copied; clones get new IDs.
func (n *Node) Clone(deep bool) *Node {
	c := newNode(n.Type)
	c.Tag = n.Tag
	c.Data = n.Data
	if len(n.Attrs) > 0 {
		c.Attrs = make([]Attr, len(n.Attrs))
		copy(c.Attrs, n.Attrs)
	}
	for k, v := range n.props {
		if c.props == nil {
			c.props = make(map[string]any)
		}
		c.props[k] = v
	}
	if deep {
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			c.appendChild(ch.Clone(true))
		}
	}
	return c
}

func sameValue(a, b any) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

// Find returns the first node under n, in document order, matching fn.
func (n *Node) Find(fn func(*Node) bool) *Node {
	var found *Node
	n.Walk(func(d *Node) bool {
		if found != nil {
			return false
		}
		if fn(d) {
			found = d
			return false
		}
		return true
	})
	return found
}

// FindTag returns the first element named tag under n.
func (n *Node) FindTag(tag string) *Node {
	tag = strings.ToLower(tag)
	return n.Find(func(d *Node) bool {
		return d.Type == ElementNode && d.Tag == tag
	})
}
