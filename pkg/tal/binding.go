package tal

import (
	"github.com/vango-dev/tal/pkg/dom"
	"github.com/vango-dev/tal/pkg/observe"
	"github.com/vango-dev/tal/pkg/tales"
)

// binding keeps one side effect in sync with an accessor.
//
// Every evaluation runs inside a fresh recording session. The binding then
// observes exactly the edges read by that evaluation and applies the side
// effect after the session ended, so the effect may write to the model.
type binding struct {
	e         *Engine
	statement string
	acc       *tales.Accessor
	reg       *observe.Registry
	apply     func(v any) error
	subs      map[observe.Edge]observe.SubID

	running bool
	dirty   bool
	closed  bool
}

// bind evaluates acc, applies the result and re-applies it whenever a
// dependency changes. The subscriptions are released when owner is torn
// down.
func (e *Engine) bind(owner *dom.Node, statement string, acc *tales.Accessor, ctx observe.Wrapper, apply func(v any) error) error {
	b := &binding{
		e:         e,
		statement: statement,
		acc:       acc,
		reg:       ctx.Registry(),
		apply:     apply,
	}
	owner.OnTeardown(b.close)
	return b.run()
}

func (b *binding) run() error {
	if b.closed {
		return nil
	}
	if b.running {
		// Re-entered from its own side effect: evaluate again once done.
		b.dirty = true
		return nil
	}
	b.running = true
	defer func() { b.running = false }()

	for {
		b.dirty = false
		t := b.reg.Begin()
		v := b.acc.Get(t)
		b.subscribe(t.End())
		b.e.hooks.evaluated(b.statement)

		if err := b.apply(v); err != nil {
			return err
		}
		if !b.dirty || b.closed {
			return nil
		}
	}
}

func (b *binding) changed(any, string) {
	if err := b.run(); err != nil {
		b.e.fault(b.statement, b.acc, err)
	}
}

// subscribe replaces the current dependency set with edges, keeping the
// subscriptions both sets share.
func (b *binding) subscribe(edges []observe.Edge) {
	if b.closed {
		return
	}
	next := make(map[observe.Edge]observe.SubID, len(edges))
	for _, edge := range edges {
		if _, dup := next[edge]; dup {
			continue
		}
		if id, ok := b.subs[edge]; ok {
			next[edge] = id
			delete(b.subs, edge)
			continue
		}
		next[edge] = edge.Target.Observe(edge.Key, b.changed)
	}
	for edge, id := range b.subs {
		edge.Target.Unobserve(edge.Key, id)
	}
	b.subs = next
}

func (b *binding) close() {
	b.closed = true
	for edge, id := range b.subs {
		edge.Target.Unobserve(edge.Key, id)
	}
	b.subs = nil
}

// fault reports a binding failure that happened after Render returned.
func (e *Engine) fault(statement string, acc *tales.Accessor, err error) {
	e.logger.Error("binding fault", "statement", statement, "expr", acc.Expr, "error", err)
	e.hooks.fault(statement, err)
}
