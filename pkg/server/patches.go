package server

import (
	"sort"

	"github.com/vango-dev/tal/pkg/dom"
	"github.com/vango-dev/tal/pkg/protocol"
	"github.com/vango-dev/tal/pkg/render"
)

// patchSet coalesces the mutations of one event turn. Values are read when
// the set is flushed, so repeated writes to a key produce one patch.
type patchSet struct {
	root  *dom.Node
	html  map[*dom.Node]bool
	attrs map[*dom.Node]map[string]bool
	props map[*dom.Node]map[string]bool
	order []*dom.Node
	seen  map[*dom.Node]bool
}

func newPatchSet(root *dom.Node) *patchSet {
	p := &patchSet{root: root}
	p.reset()
	return p
}

func (p *patchSet) reset() {
	p.html = make(map[*dom.Node]bool)
	p.attrs = make(map[*dom.Node]map[string]bool)
	p.props = make(map[*dom.Node]map[string]bool)
	p.seen = make(map[*dom.Node]bool)
	p.order = p.order[:0]
}

func (p *patchSet) empty() bool {
	return len(p.order) == 0
}

func (p *patchSet) touch(n *dom.Node) {
	if !p.seen[n] {
		p.seen[n] = true
		p.order = append(p.order, n)
	}
}

// add records m.
func (p *patchSet) add(m dom.Mutation) {
	switch m.Kind {
	case dom.MutationText, dom.MutationChildList:
		if el := elementOf(m.Target); el != nil {
			p.html[el] = true
			p.touch(el)
		}
	case dom.MutationAttr:
		if m.Key == render.IDAttr {
			return
		}
		keys(p.attrs, m.Target)[m.Key] = true
		p.touch(m.Target)
	case dom.MutationProp:
		keys(p.props, m.Target)[m.Key] = true
		p.touch(m.Target)
	}
}

func keys(m map[*dom.Node]map[string]bool, n *dom.Node) map[string]bool {
	if m[n] == nil {
		m[n] = make(map[string]bool)
	}
	return m[n]
}

// elementOf returns n when it is an element and its nearest element ancestor
// otherwise.
func elementOf(n *dom.Node) *dom.Node {
	for ; n != nil; n = n.Parent {
		if n.IsElement() {
			return n
		}
	}
	return nil
}

// covered reports whether an ancestor of n has its children resent.
func (p *patchSet) covered(n *dom.Node) bool {
	for a := n.Parent; a != nil; a = a.Parent {
		if p.html[a] {
			return true
		}
	}
	return false
}

func (p *patchSet) attached(n *dom.Node) bool {
	return n.Root() == p.root
}

// flush turns the recorded changes into patches and resets the set.
//
// Children are resent first, outermost only. Attribute patches follow for
// elements outside a resent subtree. Property patches come last for every
// attached element since markup does not carry them.
func (p *patchSet) flush(r *render.Renderer) ([]protocol.Patch, error) {
	defer p.reset()

	var out []protocol.Patch
	for _, n := range p.order {
		if !p.html[n] || !p.attached(n) || p.covered(n) {
			continue
		}
		inner, err := r.InnerHTML(n)
		if err != nil {
			return nil, err
		}
		out = append(out, protocol.Patch{Op: protocol.PatchHTML, ID: n.ID(), Value: inner})
	}
	for _, n := range p.order {
		if len(p.attrs[n]) == 0 || !p.attached(n) || p.covered(n) {
			continue
		}
		for _, key := range sorted(p.attrs[n]) {
			if v, ok := n.Attr(key); ok {
				out = append(out, protocol.Patch{Op: protocol.PatchSetAttr, ID: n.ID(), Key: key, Value: v})
			} else {
				out = append(out, protocol.Patch{Op: protocol.PatchRemoveAttr, ID: n.ID(), Key: key})
			}
		}
	}
	for _, n := range p.order {
		if len(p.props[n]) == 0 || !p.attached(n) {
			continue
		}
		for _, key := range sorted(p.props[n]) {
			out = append(out, protocol.Patch{Op: protocol.PatchSetProp, ID: n.ID(), Key: key, Value: n.Prop(key)})
		}
	}
	return out, nil
}

func sorted(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
