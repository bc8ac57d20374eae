package dom

// appendChild links c as the last child of n without notifying.
func (n *Node) appendChild(c *Node) {
	c.Parent = n
	c.PrevSibling = n.LastChild
	c.NextSibling = nil
	if n.LastChild != nil {
		n.LastChild.NextSibling = c
	} else {
		n.FirstChild = c
	}
	n.LastChild = c
}

func (n *Node) unlink() {
	p := n.Parent
	if p == nil {
		return
	}
	if p.FirstChild == n {
		p.FirstChild = n.NextSibling
	}
	if n.NextSibling != nil {
		n.NextSibling.PrevSibling = n.PrevSibling
	}
	if p.LastChild == n {
		p.LastChild = n.PrevSibling
	}
	if n.PrevSibling != nil {
		n.PrevSibling.NextSibling = n.NextSibling
	}
	n.Parent, n.PrevSibling, n.NextSibling = nil, nil, nil
}

// AppendChild moves c to the end of n's children.
func (n *Node) AppendChild(c *Node) {
	n.InsertBefore(c, nil)
}

// InsertBefore moves c before ref, a child of n. A nil ref appends.
func (n *Node) InsertBefore(c, ref *Node) {
	if c == nil || c == ref {
		return
	}
	if c.Contains(n) {
		panic("dom: InsertBefore would create a cycle")
	}
	if ref != nil && ref.Parent != n {
		panic("dom: InsertBefore reference is not a child")
	}
	if old := c.Parent; old != nil {
		c.unlink()
		old.notify(Mutation{Kind: MutationChildList, Target: old})
	}

	if ref == nil {
		n.appendChild(c)
	} else {
		c.Parent = n
		c.NextSibling = ref
		c.PrevSibling = ref.PrevSibling
		if ref.PrevSibling != nil {
			ref.PrevSibling.NextSibling = c
		} else {
			n.FirstChild = c
		}
		ref.PrevSibling = c
	}
	n.notify(Mutation{Kind: MutationChildList, Target: n})
}

// Before inserts nodes before n, in order.
func (n *Node) Before(nodes ...*Node) {
	if n.Parent == nil {
		return
	}
	for _, c := range nodes {
		n.Parent.InsertBefore(c, n)
	}
}

// After inserts nodes after n, in order.
func (n *Node) After(nodes ...*Node) {
	p := n.Parent
	if p == nil {
		return
	}
	ref := n.NextSibling
	for _, c := range nodes {
		p.InsertBefore(c, ref)
	}
}

// ReplaceWith puts nodes where n is and detaches n. Teardown functions of n
// are not run.
func (n *Node) ReplaceWith(nodes ...*Node) {
	if n.Parent == nil {
		return
	}
	n.Before(nodes...)
	n.Remove()
}

// Remove detaches n from its parent.
func (n *Node) Remove() {
	if p := n.Parent; p != nil {
		n.unlink()
		p.notify(Mutation{Kind: MutationChildList, Target: p})
	}
}

// RemoveChildren tears down and detaches every child of n.
func (n *Node) RemoveChildren() {
	if n.FirstChild == nil {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		runTeardown(c)
		c.unlink()
		c = next
	}
	n.notify(Mutation{Kind: MutationChildList, Target: n})
}

// SetTextContent replaces the children of n with a single text node. On text
// and comment nodes it replaces the data.
func (n *Node) SetTextContent(text string) {
	switch n.Type {
	case TextNode, CommentNode:
		n.SetData(text)
		return
	}
	if c := n.FirstChild; c != nil && c == n.LastChild && c.Type == TextNode {
		c.SetData(text)
		return
	}
	n.RemoveChildren()
	if text != "" {
		n.AppendChild(NewText(text))
	}
}

// Unwrap replaces n by its children (omit-tag) and returns them.
func (n *Node) Unwrap() []*Node {
	children := n.Children()
	if n.Parent != nil {
		n.Before(children...)
		n.Remove()
	}
	return children
}

// OnTeardown registers fn to run when n is torn down.
func (n *Node) OnTeardown(fn func()) {
	if fn != nil {
		n.teardown = append(n.teardown, fn)
	}
}

// TakeTeardown removes and returns the teardown functions of n.
func (n *Node) TakeTeardown() []func() {
	fns := n.teardown
	n.teardown = nil
	return fns
}

// Teardown runs the teardown functions of n and all its descendants, then
// detaches n.
func Teardown(n *Node) {
	if n == nil {
		return
	}
	runTeardown(n)
	n.Remove()
}

func runTeardown(n *Node) {
	n.Walk(func(d *Node) bool {
		fns := d.teardown
		d.teardown = nil
		for _, fn := range fns {
			fn()
		}
		d.listeners = nil
		return true
	})
}
