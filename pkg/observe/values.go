package observe

import "reflect"

// Kind identifies a wrapper variant.
type Kind uint8

const (
	KindRecord Kind = iota + 1
	KindList
	KindFunction
	KindCell
)

func (k Kind) String() string {
	switch k {
	case KindRecord:
		return "record"
	case KindList:
		return "list"
	case KindFunction:
		return "function"
	case KindCell:
		return "cell"
	default:
		return "unknown"
	}
}

// Wrapper is the instrumented form of a raw value.
//
// Reads take the tracker of the current evaluation (nil when untracked).
// Writes go through Set and dispatch "<key>.beforeChange" with the old value
// and "<key>" with the new one, only when the value actually changed.
type Wrapper interface {
	Kind() Kind
	// Raw returns the underlying value.
	Raw() any

	Get(t *Tracker, key string) any
	Set(key string, value any) error
	Has(key string) bool
	Delete(key string) error
	Keys() []string

	// Context returns the wrapper itself, Parent the enclosing scope (nil at
	// the root) and Root the outermost ancestor.
	Context() Wrapper
	Parent() Wrapper
	Root() Wrapper

	Observe(key string, fn Listener) SubID
	Unobserve(key string, id SubID)
	ClearObservers()
	Observers() *Observers
	RefreshObservers()

	DefineComputed(name string, fn ComputedFunc) error

	Registry() *Registry
}

// Func is the raw callable kind. It receives the tracker of the evaluation
// that calls it.
type Func func(t *Tracker, args ...any) any

// ComputedFunc produces the value of a computed property.
type ComputedFunc func(t *Tracker) any

// Callable is implemented by wrappers that can be invoked.
type Callable interface {
	Call(t *Tracker, args ...any) any
}

// IsCallable reports whether v can be passed to Invoke.
func IsCallable(v any) bool {
	switch v.(type) {
	case Callable, Func, func(*Tracker, ...any) any:
		return true
	}
	return false
}

// Invoke calls v when it is callable. ok is false otherwise.
func Invoke(t *Tracker, v any, args ...any) (result any, ok bool) {
	switch fn := v.(type) {
	case Callable:
		return fn.Call(t, args...), true
	case Func:
		return fn(t, args...), true
	case func(*Tracker, ...any) any:
		return fn(t, args...), true
	}
	return nil, false
}

// reservedNames resolve before any data property of every wrapper kind.
var reservedNames = map[string]struct{}{
	"context":          {},
	"parent":           {},
	"root":             {},
	"observe":          {},
	"unobserve":        {},
	"clearObservers":   {},
	"observers":        {},
	"refreshObservers": {},
	"defineComputed":   {},
}

// IsReserved reports whether name is part of the context surface.
func IsReserved(name string) bool {
	_, ok := reservedNames[name]
	return ok
}

// ReservedNames returns the context surface names.
func ReservedNames() []string {
	return []string{
		"context", "parent", "root",
		"observe", "unobserve", "clearObservers", "observers",
		"refreshObservers", "defineComputed",
	}
}

func isScalar(v any) bool {
	if v == nil {
		return true
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// IsScalar reports whether v is a scalar raw value.
func IsScalar(v any) bool {
	return isScalar(v)
}
