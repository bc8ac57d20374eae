package tal

import (
	"fmt"
	"strings"

	"github.com/vango-dev/tal/pkg/dom"
	"github.com/vango-dev/tal/pkg/observe"
	"github.com/vango-dev/tal/pkg/tales"
)

// DataVariable as the repeat variable name makes a record or list item the
// context of its clone instead of binding it to a name.
const DataVariable = "$data"

// item is one rendered list element. Its nodes run from first up to the
// first node of the next item, or the end marker.
type item struct {
	value   any
	wrapper observe.Wrapper
	first   *dom.Node
	ctx     observe.Wrapper
}

// repeater keeps the nodes between its markers in the order of a list.
type repeater struct {
	e        *Engine
	template *dom.Node
	name     string
	ctx      observe.Wrapper
	start    *dom.Node
	end      *dom.Node

	list  *observe.List
	subs  map[string]observe.SubID
	items []*item
}

// repeat renders a clone of el per list element, between two markers, and
// replays the list's structural events on the rendered items.
func (e *Engine) repeat(el *dom.Node, text string, ctx observe.Wrapper) error {
	m := repeatVariable.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return badStatement("repeat", text)
	}
	acc, err := e.resolver.Resolve(m[2], ctx, true)
	if err != nil {
		return err
	}
	g, err := e.region(el, "repeat")
	if err != nil {
		return err
	}

	r := &repeater{
		e:        e,
		template: el,
		name:     m[1],
		ctx:      ctx,
		start:    g.start,
		end:      g.end,
	}
	g.start.OnTeardown(r.detach)
	return e.bind(g.start, "repeat", acc, ctx, func(v any) error {
		list := r.listOf(v, acc)
		if list != nil && list == r.list {
			return nil
		}
		if v != nil && list == nil {
			e.logger.Warn("repeat value is not a list", "expr", acc.Expr, "type", fmt.Sprintf("%T", v))
		}
		return r.reset(list)
	})
}

// listOf returns the list wrapper of v. A raw slice is wrapped with the
// scope it was read from as parent and stored back there.
func (r *repeater) listOf(v any, acc *tales.Accessor) *observe.List {
	switch l := v.(type) {
	case *observe.List:
		return l
	case []any:
		parent := r.ctx
		if acc.Context != nil {
			parent = acc.Context
		}
		list := parent.Registry().NewList(l, parent)
		if acc.Writable() {
			if err := acc.Set(list); err != nil {
				r.e.logger.Warn("repeat list not stored back", "expr", acc.Expr, "error", err)
			}
		}
		return list
	}
	return nil
}

// reset tears every item down and rebuilds from list.
func (r *repeater) reset(list *observe.List) error {
	r.detach()
	r.truncate(0)
	r.list = list
	if list == nil {
		return nil
	}
	r.attach()
	var first error
	for i, v := range list.Values(nil) {
		if err := r.insert(i, v); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (r *repeater) attach() {
	l := r.list
	r.subs = make(map[string]observe.SubID)
	on := func(key string, fn func(value any) error) {
		r.subs[key] = l.Observe(key, r.event(l, fn))
	}
	on(observe.EventClear, r.onClear)
	on(observe.BeforeChange(observe.EventPop), r.onPop)
	on(observe.BeforeChange(observe.EventShift), r.onShift)
	on(observe.EventPush, r.onPush)
	on(observe.EventUnshift, r.onUnshift)
	on(observe.EventSplice, r.onSplice)
	on(observe.EventSet, r.onSet)
	on(observe.EventLength, r.onLength)
}

func (r *repeater) detach() {
	if r.list == nil {
		return
	}
	for key, id := range r.subs {
		r.list.Unobserve(key, id)
	}
	r.subs = nil
	r.list = nil
}

// event adapts a handler to a list listener. Events of a list the repeater
// no longer renders are dropped.
func (r *repeater) event(l *observe.List, fn func(value any) error) observe.Listener {
	return func(value any, key string) {
		if r.list != l {
			return
		}
		r.e.hooks.reconciled(key)
		if err := fn(value); err != nil {
			r.e.logger.Error("repeat fault", "event", key, "error", err)
			r.e.hooks.fault("repeat", err)
		}
	}
}

func (r *repeater) onClear(any) error {
	r.truncate(0)
	return nil
}

func (r *repeater) onPop(any) error {
	if n := len(r.items); n > 0 {
		r.removeAt(n - 1)
	}
	return nil
}

func (r *repeater) onShift(any) error {
	if len(r.items) > 0 {
		r.removeAt(0)
	}
	return nil
}

func (r *repeater) onPush(v any) error {
	values, _ := v.([]any)
	return r.insertAll(len(r.items), values)
}

func (r *repeater) onUnshift(v any) error {
	values, _ := v.([]any)
	return r.insertAll(0, values)
}

func (r *repeater) onSplice(v any) error {
	args, ok := v.(observe.SpliceArgs)
	if !ok {
		return nil
	}
	start := min(args.Start, len(r.items))
	for n := min(args.DeleteCount, len(r.items)-start); n > 0; n-- {
		r.removeAt(start)
	}
	return r.insertAll(start, args.Items)
}

func (r *repeater) onSet(v any) error {
	args, ok := v.(observe.SetArgs)
	if !ok {
		return nil
	}
	if args.Index < len(r.items) {
		r.removeAt(args.Index)
		return r.insert(args.Index, args.Value)
	}
	return r.insert(len(r.items), args.Value)
}

// onLength trims or grows the items to the list length. Slots added by
// growing hold nil.
func (r *repeater) onLength(v any) error {
	n, ok := v.(int)
	if !ok {
		return nil
	}
	r.truncate(n)
	var first error
	for i := len(r.items); i < n; i++ {
		if err := r.insert(i, r.list.Index(nil, i)); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (r *repeater) insertAll(at int, values []any) error {
	var first error
	for k, v := range values {
		if err := r.insert(at+k, v); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// insert builds the item for v and places it at index at.
func (r *repeater) insert(at int, v any) error {
	it := &item{value: v}
	if w, ok := v.(observe.Wrapper); ok {
		it.wrapper = w
	}
	switch {
	case r.name == DataVariable && it.wrapper != nil &&
		(it.wrapper.Kind() == observe.KindRecord || it.wrapper.Kind() == observe.KindList):
		it.ctx = it.wrapper
	default:
		it.ctx = r.ctx.Registry().NewRecord(map[string]any{r.name: v}, r.ctx)
	}

	nodes, err := r.e.instantiate(r.template, it.ctx)
	if len(nodes) > 0 {
		it.first = nodes[0]
	}
	r.boundary(at).Before(nodes...)
	r.items = append(r.items, nil)
	copy(r.items[at+1:], r.items[at:])
	r.items[at] = it
	return err
}

// boundary returns the node new content for index at goes before.
func (r *repeater) boundary(at int) *dom.Node {
	for i := at; i < len(r.items); i++ {
		if r.items[i].first != nil {
			return r.items[i].first
		}
	}
	return r.end
}

// removeAt tears down item i together with anything its nested statements
// added after it was rendered.
func (r *repeater) removeAt(i int) {
	it := r.items[i]
	stop := r.boundary(i + 1)
	r.items = append(r.items[:i], r.items[i+1:]...)
	if it.first != nil {
		clearRange(it.first, stop)
	}
}

// truncate removes items from the tail down to n.
func (r *repeater) truncate(n int) {
	for len(r.items) > n {
		r.removeAt(len(r.items) - 1)
	}
}
