package dom

// MutationKind classifies a tree change.
type MutationKind uint8

const (
	MutationAttr MutationKind = iota + 1
	MutationProp
	MutationText
	MutationChildList
)

func (k MutationKind) String() string {
	switch k {
	case MutationAttr:
		return "attr"
	case MutationProp:
		return "prop"
	case MutationText:
		return "text"
	case MutationChildList:
		return "childList"
	default:
		return "unknown"
	}
}

// Mutation describes one change under a document.
type Mutation struct {
	Kind   MutationKind
	Target *Node
	// Key is the attribute or property name.
	Key     string
	Value   any
	Removed bool
}

type observer struct {
	id uint64
	fn func(Mutation)
}

// Observe registers fn for every mutation of the tree rooted at n, which is
// normally a document. It returns a function that stops observing.
func (n *Node) Observe(fn func(Mutation)) (stop func()) {
	id := listenerIDs.Add(1)
	n.observers = append(n.observers, observer{id: id, fn: fn})
	return func() {
		for i, o := range n.observers {
			if o.id == id {
				n.observers = append(n.observers[:i:i], n.observers[i+1:]...)
				return
			}
		}
	}
}

// notify reports m to the observers of the tree root.
func (n *Node) notify(m Mutation) {
	root := n.Root()
	if len(root.observers) == 0 {
		return
	}
	obs := make([]observer, len(root.observers))
	copy(obs, root.observers)
	for _, o := range obs {
		o.fn(m)
	}
}
