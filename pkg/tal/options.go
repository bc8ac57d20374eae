package tal

import (
	"log/slog"

	"github.com/vango-dev/tal/pkg/tales"
)

// DefaultPrefix is the statement attribute prefix.
const DefaultPrefix = "tal:"

// Hooks receive engine events. Nil fields are skipped.
type Hooks struct {
	// Evaluated is called after every binding evaluation with the statement
	// name ("content", "repeat"...).
	Evaluated func(statement string)

	// Reconciled is called for every list event a repeat handles.
	Reconciled func(op string)

	// Fault is called when a binding fails after the initial render. Errors
	// during Render are returned instead.
	Fault func(statement string, err error)
}

func (h Hooks) evaluated(statement string) {
	if h.Evaluated != nil {
		h.Evaluated(statement)
	}
}

func (h Hooks) reconciled(op string) {
	if h.Reconciled != nil {
		h.Reconciled(op)
	}
}

func (h Hooks) fault(statement string, err error) {
	if h.Fault != nil {
		h.Fault(statement, err)
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. It is also given to the default resolver.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithResolver replaces the expression resolver.
func WithResolver(r *tales.Resolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithHooks installs engine hooks.
func WithHooks(h Hooks) Option {
	return func(e *Engine) {
		e.hooks = h
	}
}

// WithPrefix changes the statement attribute prefix, for example to
// "data-tal-".
func WithPrefix(prefix string) Option {
	return func(e *Engine) {
		if prefix != "" {
			e.prefix = prefix
		}
	}
}
