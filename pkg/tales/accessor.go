package tales

import (
	"fmt"
	"log/slog"

	talerrors "github.com/vango-dev/tal/internal/errors"
	"github.com/vango-dev/tal/pkg/observe"
)

// Accessor is a compiled expression bound to its context.
//
// Get reads the current value, recording dependencies into the tracker it is
// given. Set writes through the expression when it is writable. Context and
// Prop name the wrapper and property the expression ends on, so callers can
// bind two-way or define into it.
type Accessor struct {
	Expr    string
	Context observe.Wrapper
	Prop    string

	get    func(t *observe.Tracker) any
	set    func(v any) error
	logger *slog.Logger
}

// Constant returns an accessor that always reads v.
func Constant(expr string, v any) *Accessor {
	return &Accessor{
		Expr: expr,
		get:  func(*observe.Tracker) any { return v },
	}
}

// Get evaluates the expression. A panic raised by the data is logged with the
// expression and context and reads as nil.
func (a *Accessor) Get(t *observe.Tracker) (v any) {
	if a == nil || a.get == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			a.fault("get", r)
			v = nil
		}
	}()
	return a.get(t)
}

// Set writes v through the expression.
func (a *Accessor) Set(v any) (err error) {
	if !a.Writable() {
		return talerrors.New(talerrors.CodeReadOnly).
			WithDetailf("expression %q is not writable", a.exprText()).
			Wrap(observe.ErrReadOnly)
	}
	defer func() {
		if r := recover(); r != nil {
			a.fault("set", r)
			err = nil
		}
	}()
	return a.set(v)
}

// Writable reports whether Set can succeed.
func (a *Accessor) Writable() bool {
	return a != nil && a.set != nil
}

// Call reads without arguments and writes the first argument otherwise, so an
// accessor can stand in for a cell.
func (a *Accessor) Call(t *observe.Tracker, args ...any) any {
	if len(args) == 0 {
		return a.Get(t)
	}
	if err := a.Set(args[0]); err != nil {
		a.log().Error("evaluation fault", "expr", a.exprText(), "op", "set", "error", err)
	}
	return nil
}

func (a *Accessor) String() string {
	return fmt.Sprintf("accessor(%s)", a.exprText())
}

func (a *Accessor) exprText() string {
	if a == nil {
		return ""
	}
	return a.Expr
}

func (a *Accessor) fault(op string, recovered any) {
	attrs := []any{"expr", a.Expr, "op", op, "panic", recovered}
	if a.Context != nil {
		attrs = append(attrs, "context", fmt.Sprint(a.Context))
	}
	a.log().Error("evaluation fault", attrs...)
}

func (a *Accessor) log() *slog.Logger {
	if a != nil && a.logger != nil {
		return a.logger
	}
	return slog.Default()
}
