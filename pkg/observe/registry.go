package observe

import (
	"log/slog"
	"reflect"
	"runtime"
	"sync"
	"sync/atomic"
	"weak"
)

// identity is the stable key of a reference-kinded raw value.
type identity struct {
	kind reflect.Kind
	ptr  uintptr
}

// entry holds the canonical wrapper of one raw value weakly.
type entry struct {
	record weak.Pointer[Record]
	list   weak.Pointer[List]
}

func (e entry) live() Wrapper {
	if r := e.record.Value(); r != nil {
		return r
	}
	if l := e.list.Value(); l != nil {
		return l
	}
	return nil
}

// Registry canonicalizes raw values to wrappers: one wrapper per raw value.
//
// The registry never keeps a wrapper alive by itself. Entries hold weak
// pointers and are dropped by a runtime cleanup once the wrapper is
// unreachable; a raw value wrapped again after that gets a fresh wrapper with
// no observers, which is indistinguishable because nobody was observing.
//
// Records (map[string]any) and non-empty lists ([]any) are identified by their
// data pointer. Empty lists, callables and scalars have no stable identity in
// Go and are wrapped afresh each time; path promotion writes the wrapper back
// into its parent so later reads see the same one.
//
// A slice is keyed by its first element, not its length. A re-slice that
// starts at the same element, like a[:2] of a wrapped a, returns a's wrapper,
// whose Raw is the full list. A re-slice starting elsewhere is a different
// list.
type Registry struct {
	mu      sync.Mutex
	entries map[identity]entry

	recording atomic.Int32

	logger *slog.Logger
	fault  FaultHandler
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for undefined properties and listener faults.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithFaultHandler installs a hook called for every listener fault.
func WithFaultHandler(fn FaultHandler) Option {
	return func(r *Registry) {
		r.fault = fn
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[identity]entry),
		logger:  slog.Default().With("component", "observe"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Default is the registry behind the package-level helpers.
var Default = NewRegistry()

// Logger returns the registry logger.
func (r *Registry) Logger() *slog.Logger {
	return r.logger
}

// Recording reports whether a recording session is open on this registry.
func (r *Registry) Recording() bool {
	return r.recording.Load() > 0
}

// Len returns the number of live canonical wrappers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.entries {
		if e.live() != nil {
			n++
		}
	}
	return n
}

func (r *Registry) newObservers() *Observers {
	return newObservers(r.logger, r.fault)
}

// Wrap returns the wrapper of raw, creating it on first use.
//
// A Wrapper is returned unchanged. Records and lists are canonical. Scalars are
// boxed into a new Cell. Anything else fails with an error wrapping
// ErrUnsupported.
func (r *Registry) Wrap(raw any) (Wrapper, error) {
	if w, ok := raw.(Wrapper); ok {
		return w, nil
	}
	if isScalar(raw) {
		return r.NewCell(raw, nil), nil
	}
	v, err := r.Adopt(raw, nil)
	if err != nil {
		return nil, err
	}
	return v.(Wrapper), nil
}

// Adopt makes raw observable as a child of parent.
//
// Wrappers are returned unchanged, records and lists get their canonical
// wrapper (created with parent when new), callables get a Function wrapper and
// scalars are returned as they are.
func (r *Registry) Adopt(raw any, parent Wrapper) (any, error) {
	switch v := raw.(type) {
	case Wrapper:
		return v, nil
	case map[string]any:
		return r.NewRecord(v, parent), nil
	case []any:
		return r.NewList(v, parent), nil
	case Func:
		return r.NewFunction(v, parent), nil
	case func(*Tracker, ...any) any:
		return r.NewFunction(v, parent), nil
	}
	if isScalar(raw) {
		return raw, nil
	}
	return nil, unsupportedValueError(raw)
}

func entryOf(w Wrapper) entry {
	switch v := w.(type) {
	case *Record:
		return entry{record: weak.Make(v)}
	case *List:
		return entry{list: weak.Make(v)}
	}
	return entry{}
}

// register stores e under id. r.mu must be held.
func (r *Registry) register(id identity, e entry) {
	if id.ptr == 0 {
		return
	}
	r.entries[id] = e
}

// cleanupOnDeath drops the entry of w once w is unreachable. key is read
// when the cleanup runs, so a list may move to a new backing array meanwhile.
func (r *Registry) cleanupOnDeath(w Wrapper, key *identity) {
	switch v := w.(type) {
	case *Record:
		runtime.AddCleanup(v, r.forgetRef, key)
	case *List:
		runtime.AddCleanup(v, r.forgetRef, key)
	}
}

func (r *Registry) forgetRef(key *identity) {
	if key.ptr != 0 {
		r.forget(*key)
	}
}

// forget drops id once its wrapper is gone. A newer live entry under the same
// address is left alone.
func (r *Registry) forget(id identity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[id]; ok && e.live() == nil {
		delete(r.entries, id)
	}
}

func identityOf(raw any) (identity, bool) {
	v := reflect.ValueOf(raw)
	switch v.Kind() {
	case reflect.Map:
		if v.IsNil() {
			return identity{}, false
		}
		return identity{kind: reflect.Map, ptr: v.Pointer()}, true
	case reflect.Slice:
		if v.Cap() == 0 {
			return identity{}, false
		}
		return identity{kind: reflect.Slice, ptr: v.Pointer()}, true
	}
	return identity{}, false
}

// Package-level helpers use Default.

// Wrap wraps raw with the Default registry.
func Wrap(raw any) (Wrapper, error) {
	return Default.Wrap(raw)
}

// NewRecord wraps data as a root record of the Default registry.
func NewRecord(data map[string]any) *Record {
	return Default.NewRecord(data, nil)
}

// NewList wraps items as a root list of the Default registry.
func NewList(items ...any) *List {
	return Default.NewList(items, nil)
}

// NewCell boxes value as a root cell of the Default registry.
func NewCell(value any) *Cell {
	return Default.NewCell(value, nil)
}

// NewFunction wraps fn as a root callable of the Default registry.
func NewFunction(fn Func) *Function {
	return Default.NewFunction(fn, nil)
}
