package tal

import (
	"strings"

	"github.com/vango-dev/tal/pkg/dom"
	"github.com/vango-dev/tal/pkg/observe"
	"github.com/vango-dev/tal/pkg/tales"
)

// define binds names into the current scope, or into the root scope with
// the global keyword. A name that already holds a callable is called with
// the value and the element instead of being overwritten.
func (e *Engine) define(el *dom.Node, text string, ctx observe.Wrapper) error {
	for _, part := range splitStatements(text) {
		m := localGlobal.FindStringSubmatch(part)
		if m == nil {
			return badStatement("define", part)
		}
		scope, name := ctx, m[2]
		if m[1] == "global" {
			scope = ctx.Root()
		}
		acc, err := e.resolver.Resolve(m[3], ctx, false)
		if err != nil {
			return err
		}
		err = e.bind(el, "define", acc, ctx, func(v any) error {
			if scope.Has(name) && !observe.IsReserved(name) {
				if fn := scope.Get(nil, name); observe.IsCallable(fn) {
					observe.Invoke(nil, fn, v, el)
					return nil
				}
			}
			return scope.Set(name, v)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// condition renders a fresh clone of el between its markers while the
// expression is truthy.
func (e *Engine) condition(el *dom.Node, text string, ctx observe.Wrapper) error {
	acc, err := e.resolver.Resolve(text, ctx, false)
	if err != nil {
		return err
	}
	g, err := e.region(el, "condition")
	if err != nil {
		return err
	}
	return e.bind(g.start, "condition", acc, ctx, func(v any) error {
		g.clear()
		if !tales.Truthy(v) {
			return nil
		}
		nodes, err := e.instantiate(el, ctx)
		g.fill(nodes)
		return err
	})
}

// with renders a clone of el against the value of the expression. A falsy
// value renders nothing.
func (e *Engine) with(el *dom.Node, text string, ctx observe.Wrapper) error {
	acc, err := e.resolver.Resolve(text, ctx, false)
	if err != nil {
		return err
	}
	g, err := e.region(el, "with")
	if err != nil {
		return err
	}
	return e.bind(g.start, "with", acc, ctx, func(v any) error {
		g.clear()
		if !tales.Truthy(v) {
			return nil
		}
		scope, err := scopeOf(v, ctx)
		if err != nil {
			return err
		}
		nodes, err := e.instantiate(el, scope)
		g.fill(nodes)
		return err
	})
}

// scopeOf turns v into a context chained to parent.
func scopeOf(v any, parent observe.Wrapper) (observe.Wrapper, error) {
	if w, ok := v.(observe.Wrapper); ok {
		return w, nil
	}
	adopted, err := parent.Registry().Adopt(v, parent)
	if err != nil {
		return nil, err
	}
	if w, ok := adopted.(observe.Wrapper); ok {
		return w, nil
	}
	return parent.Registry().NewCell(adopted, parent), nil
}

// content replaces the children of el with the value as text, or as parsed
// markup in structure mode.
func (e *Engine) content(el *dom.Node, text string, ctx observe.Wrapper) error {
	structure, expr := mode(text)
	acc, err := e.resolver.Resolve(expr, ctx, false)
	if err != nil {
		return err
	}
	return e.bind(el, "content", acc, ctx, func(v any) error {
		if structure {
			return el.SetInnerHTML(tales.ToString(v))
		}
		el.SetTextContent(tales.ToString(v))
		return nil
	})
}

// replace puts the value where el was, between two markers. The content
// is rebuilt on every change; plain text updates the text node in place.
func (e *Engine) replace(el *dom.Node, text string, ctx observe.Wrapper) error {
	structure, expr := mode(text)
	acc, err := e.resolver.Resolve(expr, ctx, false)
	if err != nil {
		return err
	}
	g, err := e.region(el, "replace")
	if err != nil {
		return err
	}
	return e.bind(g.start, "replace", acc, ctx, func(v any) error {
		s := tales.ToString(v)
		if !structure {
			if n := g.start.NextSibling; n.Type == dom.TextNode && n.NextSibling == g.end {
				n.SetData(s)
				return nil
			}
		}
		g.clear()
		if !structure {
			g.fill([]*dom.Node{dom.NewText(s)})
			return nil
		}
		nodes, err := dom.ParseFragment(s, g.start.Parent)
		if err != nil {
			return err
		}
		g.fill(nodes)
		return nil
	})
}

// attributes sets or removes attributes. False and nil remove the attribute.
// Attributes with a matching element property update the property too.
func (e *Engine) attributes(el *dom.Node, text string, ctx observe.Wrapper) error {
	list, err := pairs("attributes", text)
	if err != nil {
		return err
	}
	for _, p := range list {
		name := p[0]
		acc, err := e.resolver.Resolve(p[1], ctx, false)
		if err != nil {
			return err
		}
		err = e.bind(el, "attributes", acc, ctx, func(v any) error {
			setAttribute(el, name, v)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// booleanProps are element properties reflected by a bare attribute.
var booleanProps = map[string]bool{
	"checked":  true,
	"selected": true,
	"disabled": true,
	"open":     true,
	"hidden":   true,
	"readonly": true,
	"required": true,
	"multiple": true,
}

func setAttribute(el *dom.Node, name string, v any) {
	remove := v == nil || v == false
	switch {
	case remove:
		el.RemoveAttr(name)
	case booleanProps[name] && v == true:
		el.SetAttr(name, "")
	default:
		el.SetAttr(name, tales.ToString(v))
	}

	switch {
	case booleanProps[name]:
		el.SetProp(name, !remove && tales.Truthy(v))
	case name == "value":
		el.SetProp(name, tales.ToString(v))
	}
}

// omitTag replaces el by its children when the guard is empty or truthy.
// Teardown registered on el moves to its parent.
func (e *Engine) omitTag(el *dom.Node, text string, ctx observe.Wrapper) error {
	if el.Parent == nil {
		return nil
	}
	if expr := strings.TrimSpace(text); expr != "" {
		acc, err := e.resolver.Resolve(expr, ctx, false)
		if err != nil {
			return err
		}
		if !tales.Truthy(acc.Get(nil)) {
			return nil
		}
	}
	parent := el.Parent
	for _, fn := range el.TakeTeardown() {
		parent.OnTeardown(fn)
	}
	el.Unwrap()
	return nil
}

// listen writes element state back into the model.
//
//	value, checked  the property, on change
//	input           the value, on input
//	toggle          the new state ("open" or "closed"), on toggle
//	anything else   the event itself, on events of that type
func (e *Engine) listen(el *dom.Node, text string, ctx observe.Wrapper) error {
	list, err := pairs("listen", text)
	if err != nil {
		return err
	}
	for _, p := range list {
		name := p[0]
		acc, err := e.resolver.Resolve(p[1], ctx, true)
		if err != nil {
			return err
		}

		var remove func()
		switch name {
		case "value", "checked":
			remove = el.AddEventListener("change", func(*dom.Event) {
				e.write(acc, el.Prop(name))
			})
		case "input":
			remove = el.AddEventListener("input", func(*dom.Event) {
				e.write(acc, el.Prop("value"))
			})
		case "toggle":
			remove = el.AddEventListener("toggle", func(ev *dom.Event) {
				e.write(acc, newState(el, ev))
			})
		default:
			remove = el.AddEventListener(name, func(ev *dom.Event) {
				e.write(acc, ev)
			})
		}
		el.OnTeardown(remove)
	}
	return nil
}

func (e *Engine) write(acc *tales.Accessor, v any) {
	if err := acc.Set(v); err != nil {
		e.logger.Warn("listen write failed", "expr", acc.Expr, "error", err)
	}
}

// newState reads the toggle state from the event detail, falling back to
// the open property.
func newState(el *dom.Node, ev *dom.Event) string {
	switch d := ev.Detail.(type) {
	case string:
		return d
	case map[string]any:
		if s, ok := d["newState"].(string); ok {
			return s
		}
	}
	if tales.Truthy(el.Prop("open")) {
		return "open"
	}
	return "closed"
}
