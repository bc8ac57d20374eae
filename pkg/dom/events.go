package dom

import "sync/atomic"

// Event is dispatched to element listeners.
type Event struct {
	Type          string
	Target        *Node
	CurrentTarget *Node
	// Detail carries extra event data from the client.
	Detail  any
	stopped bool
}

// StopPropagation prevents the event from reaching further ancestors.
func (e *Event) StopPropagation() { e.stopped = true }

// Listener handles an event.
type Listener func(e *Event)

type listener struct {
	id uint64
	fn Listener
}

var listenerIDs atomic.Uint64

// AddEventListener registers fn for events of type typ on n and returns a
// function that removes it.
func (n *Node) AddEventListener(typ string, fn Listener) (remove func()) {
	if n.listeners == nil {
		n.listeners = make(map[string][]listener)
	}
	id := listenerIDs.Add(1)
	n.listeners[typ] = append(n.listeners[typ], listener{id: id, fn: fn})
	return func() {
		ls := n.listeners[typ]
		for i, l := range ls {
			if l.id == id {
				n.listeners[typ] = append(ls[:i:i], ls[i+1:]...)
				return
			}
		}
	}
}

// HasEventListener reports whether n listens to typ.
func (n *Node) HasEventListener(typ string) bool {
	return len(n.listeners[typ]) > 0
}

// EventTypes returns the event types n listens to.
func (n *Node) EventTypes() []string {
	var out []string
	for typ, ls := range n.listeners {
		if len(ls) > 0 {
			out = append(out, typ)
		}
	}
	return out
}

// Dispatch delivers e to n and then to its ancestors until stopped.
func (n *Node) Dispatch(e *Event) {
	if e.Target == nil {
		e.Target = n
	}
	for cur := n; cur != nil && !e.stopped; cur = cur.Parent {
		ls := cur.listeners[e.Type]
		if len(ls) == 0 {
			continue
		}
		snapshot := make([]listener, len(ls))
		copy(snapshot, ls)
		e.CurrentTarget = cur
		for _, l := range snapshot {
			l.fn(e)
		}
	}
}
