package tales

import (
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	talerrors "github.com/vango-dev/tal/internal/errors"
	"github.com/vango-dev/tal/pkg/observe"
)

// maxEnvDepth bounds how deep nested wrappers are copied into a script
// environment.
const maxEnvDepth = 8

// ExprEvaluator runs script: expressions with github.com/expr-lang/expr.
//
// The environment is a snapshot of the scope chain, outermost first so inner
// names shadow outer ones. Every property copied into it is read through the
// tracker, so a binding on a script re-evaluates when any of them changes.
// Scripts can not write to the model.
type ExprEvaluator struct {
	mu       sync.Mutex
	programs map[string]*vm.Program
	options  []expr.Option
}

// NewExprEvaluator returns an evaluator. Extra expr options are applied to
// every compilation.
func NewExprEvaluator(options ...expr.Option) *ExprEvaluator {
	return &ExprEvaluator{
		programs: make(map[string]*vm.Program),
		options:  options,
	}
}

// Compile compiles src, reusing an earlier compilation of the same source.
func (e *ExprEvaluator) Compile(src string) (Script, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if p, ok := e.programs[src]; ok {
		return exprScript{program: p}, nil
	}
	opts := append([]expr.Option{expr.AllowUndefinedVariables()}, e.options...)
	p, err := expr.Compile(src, opts...)
	if err != nil {
		return nil, talerrors.New(talerrors.CodeScriptCompile).WithDetail(src).Wrap(err)
	}
	e.programs[src] = p
	return exprScript{program: p}, nil
}

type exprScript struct {
	program *vm.Program
}

func (s exprScript) Run(t *observe.Tracker, ctx observe.Wrapper) (any, error) {
	return expr.Run(s.program, Env(t, ctx))
}

// Env snapshots the scope chain of ctx into a plain map.
func Env(t *observe.Tracker, ctx observe.Wrapper) map[string]any {
	var chain []observe.Wrapper
	for w := ctx; w != nil; w = w.Parent() {
		chain = append(chain, w)
	}

	env := make(map[string]any)
	for i := len(chain) - 1; i >= 0; i-- {
		w := chain[i]
		for _, key := range w.Keys() {
			env[key] = envValue(t, w.Get(t, key), 0)
		}
	}
	return env
}

func envValue(t *observe.Tracker, v any, depth int) any {
	if depth > maxEnvDepth {
		return nil
	}
	switch x := v.(type) {
	case *observe.Cell:
		return x.Value(t)
	case *observe.List:
		items := x.Values(t)
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = envValue(t, item, depth+1)
		}
		return out
	case *observe.Record:
		out := make(map[string]any)
		for _, key := range x.Keys() {
			out[key] = envValue(t, x.Get(t, key), depth+1)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = envValue(t, item, depth+1)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = envValue(t, item, depth+1)
		}
		return out
	}
	if observe.IsCallable(v) {
		return func(args ...any) any {
			res, _ := observe.Invoke(t, v, args...)
			return res
		}
	}
	return v
}
