package tal

import (
	"log/slog"
	"slices"

	talerrors "github.com/vango-dev/tal/internal/errors"
	"github.com/vango-dev/tal/pkg/dom"
	"github.com/vango-dev/tal/pkg/observe"
	"github.com/vango-dev/tal/pkg/tales"
)

// Engine binds templates to observable contexts.
//
// An engine holds no per-template state and can render any number of
// templates. Like the model it binds, it is not safe for concurrent use with
// the same context.
type Engine struct {
	logger   *slog.Logger
	resolver *tales.Resolver
	hooks    Hooks
	prefix   string
}

// NewEngine creates an engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger: slog.Default().With("component", "tal"),
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.resolver == nil {
		e.resolver = tales.NewResolver(tales.WithLogger(e.logger))
	}
	return e
}

// Resolver returns the expression resolver.
func (e *Engine) Resolver() *tales.Resolver { return e.resolver }

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// Render processes every statement under template against ctx and keeps the
// tree up to date as ctx changes. It returns ctx.
//
// template must be an element or a document. Structural statements (with,
// condition, repeat, replace) need their element to have a parent.
func (e *Engine) Render(template *dom.Node, ctx observe.Wrapper) (observe.Wrapper, error) {
	if template == nil || (template.Type != dom.ElementNode && template.Type != dom.DocumentNode) {
		return nil, talerrors.New(talerrors.CodeNotElement).
			WithDetail("template must be an element or a document")
	}
	if ctx == nil {
		return nil, talerrors.New(talerrors.CodeNotObservable).
			WithDetail("render needs an observable context").
			WithSuggestion("wrap the data with observe.Wrap first")
	}
	if err := e.process(template, ctx); err != nil {
		return ctx, err
	}
	return ctx, nil
}

// Render binds template to ctx with a new engine.
func Render(template *dom.Node, ctx observe.Wrapper, opts ...Option) (observe.Wrapper, error) {
	return NewEngine(opts...).Render(template, ctx)
}

// process runs the statements of root and its descendants in document order.
//
// Elements that left the tree of root during the pass, or that belong to a
// template owned by a structural statement, are skipped.
func (e *Engine) process(root *dom.Node, ctx observe.Wrapper) error {
	top := root.Root()
	var owned []func(*dom.Node) bool

	for _, el := range root.Elements() {
		if el.Root() != top {
			continue
		}
		if slices.ContainsFunc(owned, func(hasChild func(*dom.Node) bool) bool { return hasChild(el) }) {
			continue
		}
		hasChild, err := e.element(el, ctx)
		if err != nil {
			return err
		}
		if hasChild != nil {
			owned = append(owned, hasChild)
		}
	}
	return nil
}

// element runs the statements of one element in their fixed order. For
// structural statements it returns the predicate of the nodes they own.
func (e *Engine) element(el *dom.Node, ctx observe.Wrapper) (func(*dom.Node) bool, error) {
	if text, ok := e.pop(el, "define"); ok {
		if err := e.define(el, text, ctx); err != nil {
			return nil, err
		}
	}

	// A condition next to with stays on the template and is evaluated in
	// the new context.
	if text, ok := e.pop(el, "with"); ok {
		return el.Contains, e.with(el, text, ctx)
	}
	if text, ok := e.pop(el, "condition"); ok {
		return el.Contains, e.condition(el, text, ctx)
	}
	if text, ok := e.pop(el, "repeat"); ok {
		return el.Contains, e.repeat(el, text, ctx)
	}

	if text, ok := e.pop(el, "content"); ok {
		e.pop(el, "replace")
		if err := e.content(el, text, ctx); err != nil {
			return nil, err
		}
	} else if text, ok := e.pop(el, "replace"); ok {
		return el.Contains, e.replace(el, text, ctx)
	}

	if text, ok := e.pop(el, "attributes"); ok {
		if err := e.attributes(el, text, ctx); err != nil {
			return nil, err
		}
	}
	if text, ok := e.pop(el, "omit-tag"); ok {
		if err := e.omitTag(el, text, ctx); err != nil {
			return nil, err
		}
	}
	if text, ok := e.pop(el, "listen"); ok {
		if err := e.listen(el, text, ctx); err != nil {
			return nil, err
		}
	}

	e.strip(el)
	return nil, nil
}

func (e *Engine) pop(el *dom.Node, statement string) (string, bool) {
	return el.RemoveAttr(e.prefix + statement)
}

// strip removes statement attributes nothing consumed.
func (e *Engine) strip(el *dom.Node) {
	for i := len(el.Attrs) - 1; i >= 0; i-- {
		if key := el.Attrs[i].Key; len(key) > len(e.prefix) && key[:len(e.prefix)] == e.prefix {
			el.RemoveAttr(key)
		}
	}
}

// instantiate clones template, processes the clone against ctx and returns
// the resulting top-level nodes, detached.
func (e *Engine) instantiate(template *dom.Node, ctx observe.Wrapper) ([]*dom.Node, error) {
	holder := dom.NewDocument()
	holder.AppendChild(template.Clone(true))
	err := e.process(holder.FirstChild, ctx)

	nodes := holder.Children()
	for _, n := range nodes {
		n.Remove()
	}
	// Teardown handed up by an omitted root.
	if fns := holder.TakeTeardown(); len(fns) > 0 {
		if len(nodes) > 0 {
			for _, fn := range fns {
				nodes[0].OnTeardown(fn)
			}
		} else {
			for _, fn := range fns {
				fn()
			}
		}
	}
	return nodes, err
}

// mark replaces el by a marker comment that takes over el's teardown.
func (e *Engine) mark(el *dom.Node, statement string) (*dom.Node, error) {
	if el.Parent == nil {
		return nil, talerrors.New(talerrors.CodeDetachedTemplate).
			WithDetailf("%s%s on <%s> needs a parent element", e.prefix, statement, el.Tag)
	}
	marker := dom.NewComment(e.prefix + statement)
	el.ReplaceWith(marker)
	for _, fn := range el.TakeTeardown() {
		marker.OnTeardown(fn)
	}
	return marker, nil
}

// region is the content a structural statement keeps between its start
// and end markers. Nested statements insert next to their own markers, so
// everything they add stays inside the enclosing region.
type region struct {
	start *dom.Node
	end   *dom.Node
}

// region replaces el by a start and an end marker.
func (e *Engine) region(el *dom.Node, statement string) (*region, error) {
	start, err := e.mark(el, statement)
	if err != nil {
		return nil, err
	}
	end := dom.NewComment("/" + e.prefix + statement)
	start.After(end)
	return &region{start: start, end: end}, nil
}

// clear tears down every node between the markers.
func (g *region) clear() {
	clearRange(g.start.NextSibling, g.end)
}

// fill appends nodes to the region.
func (g *region) fill(nodes []*dom.Node) {
	g.end.Before(nodes...)
}

// clearRange tears down first and its following siblings up to stop.
func clearRange(first, stop *dom.Node) {
	for n := first; n != nil && n != stop; {
		next := n.NextSibling
		dom.Teardown(n)
		n = next
	}
}
