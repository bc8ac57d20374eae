package observe

import "fmt"

// Function observes a Func. It has the context surface and a property bag
// with record write semantics; invocation is delegated to the Func.
type Function struct {
	base
	fn    Func
	props props
}

// NewFunction wraps fn. Funcs have no stable identity, so every call returns a
// new wrapper; keep the result to observe it.
func (r *Registry) NewFunction(fn Func, parent Wrapper) *Function {
	f := &Function{fn: fn}
	f.init(r, f, parent)
	return f
}

func (f *Function) Kind() Kind { return KindFunction }
func (f *Function) Raw() any   { return f.fn }

func (f *Function) String() string {
	return fmt.Sprintf("function#%d", f.id)
}

// Call invokes the wrapped Func.
func (f *Function) Call(t *Tracker, args ...any) any {
	if f.fn == nil {
		return nil
	}
	return f.fn(t, args...)
}

// Get reads the context surface or a property of the bag. There is no parent
// fallback.
func (f *Function) Get(t *Tracker, key string) any {
	if v, ok := f.reserved(key); ok {
		return v
	}
	if fn, ok := f.props.getter(key); ok {
		return fn(t)
	}
	v, ok := f.props.load(key)
	if ok {
		t.Track(f, key)
	}
	return v
}

func (f *Function) Set(key string, value any) error {
	if f.suppressed() {
		return nil
	}
	if IsReserved(key) {
		return reservedError(key)
	}
	if _, ok := f.props.getter(key); ok {
		return readOnlyError(key)
	}
	f.assign(&f.props, key, value)
	return nil
}

func (f *Function) Has(key string) bool {
	return IsReserved(key) || f.props.has(key)
}

func (f *Function) Delete(key string) error {
	if IsReserved(key) {
		return reservedError(key)
	}
	if f.props.has(key) {
		f.observers.Delete(key)
	}
	f.props.remove(key)
	return nil
}

func (f *Function) Keys() []string { return f.props.keys() }

func (f *Function) DefineComputed(name string, fn ComputedFunc) error {
	return f.defineComputed(&f.props, name, fn)
}

func (f *Function) RefreshObservers() {
	f.refresh(func(key string) (any, bool) {
		if fn, ok := f.props.getter(key); ok {
			return fn(nil), true
		}
		return f.props.load(key)
	})
}
