package observe

import (
	"sort"
	"sync"
)

// base is the context surface shared by every wrapper kind.
type base struct {
	id        uint64
	reg       *Registry
	self      Wrapper
	parent    Wrapper
	observers *Observers
}

func (b *base) init(reg *Registry, self, parent Wrapper) {
	b.id = nextID()
	b.reg = reg
	b.self = self
	b.parent = parent
	b.observers = reg.newObservers()
}

func (b *base) Registry() *Registry   { return b.reg }
func (b *base) Context() Wrapper      { return b.self }
func (b *base) Parent() Wrapper       { return b.parent }
func (b *base) Observers() *Observers { return b.observers }

// Root returns the outermost ancestor.
func (b *base) Root() Wrapper {
	if b.parent != nil {
		return b.parent.Root()
	}
	return b.self
}

// Observe subscribes fn to key. Use BeforeChange(key) to see old values.
func (b *base) Observe(key string, fn Listener) SubID {
	return b.observers.Observe(key, fn)
}

func (b *base) Unobserve(key string, id SubID) {
	b.observers.Unobserve(key, id)
}

func (b *base) ClearObservers() {
	b.observers.Clear()
}

// reserved resolves the context surface.
func (b *base) reserved(key string) (any, bool) {
	switch key {
	case "context":
		return b.self, true
	case "parent":
		if b.parent == nil {
			return nil, true
		}
		return b.parent, true
	case "root":
		return b.Root(), true
	case "observe":
		return b.Observe, true
	case "unobserve":
		return b.Unobserve, true
	case "clearObservers":
		return b.ClearObservers, true
	case "observers":
		return b.observers, true
	case "refreshObservers":
		return b.self.RefreshObservers, true
	case "defineComputed":
		return b.self.DefineComputed, true
	}
	return nil, false
}

// suppressed reports whether writes are currently swallowed because an
// evaluation is being recorded.
func (b *base) suppressed() bool {
	return b.reg.Recording()
}

// assign stores value under key in p, dispatching before and after the write.
func (b *base) assign(p *props, key string, value any) {
	old, _ := p.load(key)
	if identical(old, value) {
		return
	}
	if promotes(old, value) {
		p.store(key, value)
		return
	}
	b.observers.Dispatch(BeforeChange(key), old)
	p.store(key, value)
	stored, _ := p.load(key)
	if !identical(old, stored) {
		b.observers.Dispatch(key, stored)
	}
}

// defineComputed runs fn once in a recording session, re-dispatches name
// whenever one of the properties it read changes, and installs fn as the
// read-only getter of name.
func (b *base) defineComputed(p *props, name string, fn ComputedFunc) error {
	if IsReserved(name) {
		return reservedError(name)
	}
	if fn == nil {
		return unsupportedValueError(fn)
	}

	edges := b.reg.Record(func(t *Tracker) { fn(t) })
	p.setComputed(name, fn)

	for _, e := range edges {
		e.Target.Observe(e.Key, func(any, string) {
			b.observers.Dispatch(name, fn(nil))
		})
	}
	return nil
}

// refresh re-dispatches every observed property key with its current value.
func (b *base) refresh(value func(key string) (any, bool)) {
	for _, key := range b.observers.Keys() {
		if v, ok := value(key); ok {
			b.observers.Dispatch(key, v)
		}
	}
}

// props is a property bag with computed getters.
type props struct {
	mu       sync.RWMutex
	data     map[string]any
	computed map[string]ComputedFunc
}

func (p *props) load(key string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.data[key]
	return v, ok
}

func (p *props) store(key string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.data == nil {
		p.data = make(map[string]any)
	}
	p.data[key] = value
}

func (p *props) remove(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.data, key)
	delete(p.computed, key)
}

func (p *props) getter(key string) (ComputedFunc, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	fn, ok := p.computed[key]
	return fn, ok
}

func (p *props) setComputed(key string, fn ComputedFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.computed == nil {
		p.computed = make(map[string]ComputedFunc)
	}
	p.computed[key] = fn
}

func (p *props) has(key string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if _, ok := p.data[key]; ok {
		return true
	}
	_, ok := p.computed[key]
	return ok
}

func (p *props) keys() []string {
	p.mu.RLock()
	keys := make([]string, 0, len(p.data)+len(p.computed))
	for k := range p.data {
		keys = append(keys, k)
	}
	for k := range p.computed {
		if _, dup := p.data[k]; !dup {
			keys = append(keys, k)
		}
	}
	p.mu.RUnlock()

	sort.Strings(keys)
	return keys
}
