package observe

import "fmt"

// Record observes a map[string]any.
type Record struct {
	base
	props props
}

// NewRecord returns the canonical record wrapper of data.
// A nil map is replaced by a new empty one.
func (r *Registry) NewRecord(data map[string]any, parent Wrapper) *Record {
	if data == nil {
		data = make(map[string]any)
	}
	id, _ := identityOf(data)

	r.mu.Lock()
	if rec, ok := r.entries[id].live().(*Record); ok {
		r.mu.Unlock()
		return rec
	}
	rec := &Record{props: props{data: data}}
	rec.init(r, rec, parent)
	r.register(id, entryOf(rec))
	r.mu.Unlock()

	r.cleanupOnDeath(rec, &id)
	return rec
}

func (rec *Record) Kind() Kind { return KindRecord }

// Raw returns the observed map. Values promoted by path resolution are stored
// back as wrappers.
func (rec *Record) Raw() any { return rec.props.data }

func (rec *Record) String() string {
	return fmt.Sprintf("record#%d", rec.id)
}

// Get reads key.
//
// Reserved names resolve first, then computed properties, then own data. A
// missing key is looked up in the parent chain; at the root it is logged and
// reads as nil.
func (rec *Record) Get(t *Tracker, key string) any {
	if v, ok := rec.reserved(key); ok {
		return v
	}
	if fn, ok := rec.props.getter(key); ok {
		return fn(t)
	}
	if v, ok := rec.props.load(key); ok {
		t.Track(rec, key)
		return v
	}
	if rec.parent != nil {
		return rec.parent.Get(t, key)
	}
	rec.reg.logger.Warn("undefined property", "key", key, "context", rec.String())
	return nil
}

// Set writes key. It is a no-op while an evaluation is being recorded.
func (rec *Record) Set(key string, value any) error {
	if rec.suppressed() {
		return nil
	}
	if IsReserved(key) {
		return reservedError(key)
	}
	if _, ok := rec.props.getter(key); ok {
		return readOnlyError(key)
	}
	rec.assign(&rec.props, key, value)
	return nil
}

// Has reports reserved names and own properties. The parent chain is not consulted.
func (rec *Record) Has(key string) bool {
	return IsReserved(key) || rec.props.has(key)
}

// Delete removes key and its observers.
func (rec *Record) Delete(key string) error {
	if IsReserved(key) {
		return reservedError(key)
	}
	if rec.props.has(key) {
		rec.observers.Delete(key)
	}
	rec.props.remove(key)
	return nil
}

// Keys returns own and computed property names, sorted.
func (rec *Record) Keys() []string {
	return rec.props.keys()
}

func (rec *Record) DefineComputed(name string, fn ComputedFunc) error {
	return rec.defineComputed(&rec.props, name, fn)
}

// RefreshObservers re-dispatches every observed property with its value.
func (rec *Record) RefreshObservers() {
	rec.refresh(func(key string) (any, bool) {
		if fn, ok := rec.props.getter(key); ok {
			return fn(nil), true
		}
		return rec.props.load(key)
	})
}
