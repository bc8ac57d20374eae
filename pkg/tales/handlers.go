package tales

import (
	"fmt"
	"regexp"
	"strings"

	talerrors "github.com/vango-dev/tal/internal/errors"
	"github.com/vango-dev/tal/pkg/observe"
)

// notHandler negates another expression. The result keeps the inner context
// and property, and writes store the negated value.
func notHandler(r *Resolver, rest string, ctx observe.Wrapper, writer bool) (*Accessor, error) {
	inner, err := r.Resolve(rest, ctx, writer)
	if err != nil {
		return nil, err
	}
	acc := &Accessor{
		Context: inner.Context,
		Prop:    inner.Prop,
		get: func(t *observe.Tracker) any {
			return !Truthy(inner.Get(t))
		},
	}
	if inner.Writable() {
		acc.set = func(v any) error {
			return inner.Set(!Truthy(v))
		}
	}
	return r.bind(acc), nil
}

// existsHandler reads the final truthiness of a path. Missing segments read
// as false and are logged at debug level.
func existsHandler(r *Resolver, rest string, ctx observe.Wrapper, _ bool) (*Accessor, error) {
	text := strings.TrimSpace(rest)
	if !pathPattern.MatchString(text) {
		return Constant("exists:"+rest, false), nil
	}
	if ctx == nil {
		return nil, notObservedError("exists:" + text)
	}
	segments := strings.Split(text, "/")

	var acc *Accessor
	missing := func(i int, seg string, in observe.Wrapper) any {
		acc.log().Debug("exists: segment not found", "expr", acc.Expr, "segment", i, "name", seg, "context", fmt.Sprint(in))
		return false
	}
	acc = &Accessor{
		Context: ctx,
		Prop:    segments[len(segments)-1],
		get: func(t *observe.Tracker) any {
			cur := ctx
			for i, seg := range segments {
				scope := cur
				if i == 0 {
					var ok bool
					if scope, ok = owner(cur, seg); !ok {
						return missing(i, seg, cur)
					}
				} else if !cur.Has(seg) {
					return missing(i, seg, cur)
				}
				v := scope.Get(t, seg)
				if i == len(segments)-1 {
					if res, ok := observe.Invoke(t, v); ok {
						v = res
					}
					return Truthy(v)
				}
				w, ok := v.(observe.Wrapper)
				if !ok {
					adopted, err := scope.Registry().Adopt(v, scope)
					if err != nil {
						return false
					}
					if w, ok = adopted.(observe.Wrapper); !ok {
						return false
					}
				}
				cur = w
			}
			return false
		},
	}
	return r.bind(acc), nil
}

var interpolation = regexp.MustCompile(`\$\{([^}]*)\}`)

// stringHandler returns a literal. ${path} parts are resolved as paths and
// read with the same tracker on every evaluation.
func stringHandler(r *Resolver, rest string, ctx observe.Wrapper, _ bool) (*Accessor, error) {
	matches := interpolation.FindAllStringSubmatchIndex(rest, -1)
	if len(matches) == 0 {
		return Constant("string:"+rest, rest), nil
	}
	if ctx == nil {
		return nil, notObservedError("string:" + rest)
	}

	type part struct {
		text string
		acc  *Accessor
	}
	var parts []part
	pos := 0
	for _, m := range matches {
		if m[0] > pos {
			parts = append(parts, part{text: rest[pos:m[0]]})
		}
		inner := strings.TrimSpace(rest[m[2]:m[3]])
		if !pathPattern.MatchString(inner) {
			parts = append(parts, part{text: rest[m[0]:m[1]]})
		} else {
			acc, err := r.path(inner, inner, ctx, false)
			if err != nil {
				return nil, err
			}
			parts = append(parts, part{acc: acc})
		}
		pos = m[1]
	}
	if pos < len(rest) {
		parts = append(parts, part{text: rest[pos:]})
	}

	acc := &Accessor{
		Context: ctx,
		get: func(t *observe.Tracker) any {
			var b strings.Builder
			for _, p := range parts {
				if p.acc == nil {
					b.WriteString(p.text)
					continue
				}
				b.WriteString(ToString(p.acc.Get(t)))
			}
			return b.String()
		},
	}
	return r.bind(acc), nil
}

func nocallHandler(_ *Resolver, rest string, _ observe.Wrapper, _ bool) (*Accessor, error) {
	return nil, talerrors.New(talerrors.CodeNocall).WithDetailf("nocall:%s", rest)
}

// scriptHandler compiles the rest with the resolver's evaluator. Script
// accessors are read-only.
func scriptHandler(r *Resolver, rest string, ctx observe.Wrapper, _ bool) (*Accessor, error) {
	script, err := r.evaluator.Compile(rest)
	if err != nil {
		return nil, err
	}
	acc := &Accessor{Context: ctx}
	acc.get = func(t *observe.Tracker) any {
		v, err := script.Run(t, ctx)
		if err != nil {
			acc.log().Error("evaluation fault", "expr", acc.Expr, "error", err)
			return nil
		}
		return v
	}
	return r.bind(acc), nil
}
