package tales

import (
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/vango-dev/tal/pkg/observe"
)

// Handler compiles the text after a "kind:" prefix.
type Handler func(r *Resolver, rest string, ctx observe.Wrapper, writer bool) (*Accessor, error)

// Resolver compiles expressions into accessors.
//
// Precedence: a "kind:rest" prefix with a registered handler, then the
// implicit path form, then a quoted or string: literal, and finally the whole
// text as a literal.
type Resolver struct {
	mu        sync.RWMutex
	handlers  map[string]Handler
	evaluator Evaluator
	logger    *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger for evaluation faults and missing path segments.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithEvaluator enables script: expressions.
func WithEvaluator(e Evaluator) Option {
	return func(r *Resolver) {
		if e != nil {
			r.evaluator = e
		}
	}
}

// WithHandler registers an extra prefix handler.
func WithHandler(kind string, h Handler) Option {
	return func(r *Resolver) {
		r.handlers[kind] = h
	}
}

// NewResolver returns a resolver with the built-in handlers: not, exists,
// string, path, nocall and script.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		handlers: map[string]Handler{
			"not":    notHandler,
			"exists": existsHandler,
			"string": stringHandler,
			"path":   pathHandler,
			"nocall": nocallHandler,
			"script": scriptHandler,
		},
		evaluator: disabledEvaluator{},
		logger:    slog.Default().With("component", "tales"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds or replaces the handler of kind.
func (r *Resolver) Register(kind string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = h
}

func (r *Resolver) handler(kind string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[kind]
	return h, ok
}

// Logger returns the resolver logger.
func (r *Resolver) Logger() *slog.Logger {
	return r.logger
}

var (
	prefixPattern  = regexp.MustCompile(`^([a-z]+):(.+)$`)
	pathPattern    = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9_]*(?:/[a-zA-Z0-9][a-zA-Z0-9_]*)*)$`)
	literalPattern = regexp.MustCompile(`^(?:'([^']*)'|"([^"]*)")$`)
)

// Resolve compiles expr against ctx. writer asks for a settable accessor
// where the form allows one.
func (r *Resolver) Resolve(expr string, ctx observe.Wrapper, writer bool) (*Accessor, error) {
	text := strings.TrimSpace(expr)

	if m := prefixPattern.FindStringSubmatch(text); m != nil {
		if h, ok := r.handler(m[1]); ok {
			acc, err := h(r, m[2], ctx, writer)
			if acc != nil && acc.Expr == "" {
				acc.Expr = text
			}
			return acc, err
		}
	}
	if pathPattern.MatchString(text) {
		return r.path(text, text, ctx, writer)
	}
	if m := literalPattern.FindStringSubmatch(text); m != nil {
		if m[1] != "" || strings.HasPrefix(text, "'") {
			return Constant(text, m[1]), nil
		}
		return Constant(text, m[2]), nil
	}
	return Constant(text, text), nil
}

// Get resolves expr and reads it once.
func (r *Resolver) Get(t *observe.Tracker, expr string, ctx observe.Wrapper) (any, error) {
	acc, err := r.Resolve(expr, ctx, false)
	if err != nil {
		return nil, err
	}
	return acc.Get(t), nil
}

func (r *Resolver) bind(acc *Accessor) *Accessor {
	acc.logger = r.logger
	return acc
}
