package tales

import (
	"fmt"
	"strings"

	talerrors "github.com/vango-dev/tal/internal/errors"
	"github.com/vango-dev/tal/pkg/observe"
)

func pathHandler(r *Resolver, rest string, ctx observe.Wrapper, writer bool) (*Accessor, error) {
	text := strings.TrimSpace(rest)
	if !pathPattern.MatchString(text) {
		return Constant("path:"+rest, nil), nil
	}
	return r.path("path:"+text, text, ctx, writer)
}

func notObservedError(expr string) error {
	return talerrors.New(talerrors.CodeNotObservable).
		WithDetailf("context of %q can't be observed", expr)
}

// owner returns the nearest scope, starting at ctx, that has key.
func owner(ctx observe.Wrapper, key string) (observe.Wrapper, bool) {
	for w := ctx; w != nil; w = w.Parent() {
		if w.Has(key) {
			return w, true
		}
	}
	return nil, false
}

// walk follows the intermediate segments of a path. The first segment is
// looked up along the scope chain, the others must be own properties. Every
// intermediate value is promoted to a wrapper and stored back into its parent.
func (r *Resolver) walk(expr string, segments []string, ctx observe.Wrapper) (observe.Wrapper, bool) {
	cur := ctx
	for i, seg := range segments {
		var scope observe.Wrapper
		if i == 0 {
			var ok bool
			if scope, ok = owner(cur, seg); !ok {
				r.logger.Error("path segment not found", "expr", expr, "segment", i, "name", seg, "context", fmt.Sprint(ctx))
				return nil, false
			}
		} else if cur.Has(seg) {
			scope = cur
		} else {
			r.logger.Error("path segment not found", "expr", expr, "segment", i, "name", seg, "context", fmt.Sprint(cur))
			return nil, false
		}

		next := scope.Get(nil, seg)
		w, ok := next.(observe.Wrapper)
		if !ok {
			adopted, err := scope.Registry().Adopt(next, scope)
			if err == nil {
				w, ok = adopted.(observe.Wrapper)
			}
			if !ok {
				r.logger.Error("path segment is not a container", "expr", expr, "segment", i, "name", seg, "value", fmt.Sprintf("%T", next))
				return nil, false
			}
			if err := scope.Set(seg, w); err != nil {
				r.logger.Warn("path segment not stored back", "expr", expr, "name", seg, "error", err)
			}
		}
		cur = w
	}
	return cur, true
}

// path compiles a slash-separated path. A callable final value becomes the
// accessor itself; anything else gets a getter and setter bound to the final
// context and segment.
func (r *Resolver) path(expr, text string, ctx observe.Wrapper, writer bool) (*Accessor, error) {
	if ctx == nil {
		return nil, notObservedError(expr)
	}
	segments := strings.Split(text, "/")
	last := segments[len(segments)-1]

	cur, ok := r.walk(expr, segments[:len(segments)-1], ctx)
	if !ok {
		return r.bind(Constant(expr, nil)), nil
	}

	target := cur
	if len(segments) == 1 {
		if scope, found := owner(ctx, last); found {
			target = scope
		}
	}

	acc := &Accessor{Expr: expr, Context: target, Prop: last}
	if target.Has(last) && !observe.IsReserved(last) {
		if v := target.Get(nil, last); observe.IsCallable(v) {
			acc.get = func(t *observe.Tracker) any {
				res, _ := observe.Invoke(t, v)
				return res
			}
			acc.set = func(value any) error {
				observe.Invoke(nil, v, value)
				return nil
			}
			return r.bind(acc), nil
		}
	}

	acc.get = func(t *observe.Tracker) any {
		return target.Get(t, last)
	}
	if writer {
		acc.set = func(value any) error {
			return target.Set(last, value)
		}
	}
	return r.bind(acc), nil
}
