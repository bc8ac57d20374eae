package observe

import (
	"fmt"
	"sync"
)

// ValueKey is the synthetic property a Cell dispatches on.
const ValueKey = "value"

// Cell boxes a scalar behind read and write calls.
//
//	c := observe.NewCell(1)
//	c.Value(t)             // 1, tracks (c, "value")
//	c.SetValue(2).Value(t) // 2, dispatches "value.beforeChange" and "value"
type Cell struct {
	base
	mu    sync.RWMutex
	value any
	props props
}

// NewCell boxes value.
func (r *Registry) NewCell(value any, parent Wrapper) *Cell {
	c := &Cell{value: value}
	c.init(r, c, parent)
	return c
}

func (c *Cell) Kind() Kind { return KindCell }

// Raw returns the held value.
func (c *Cell) Raw() any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

func (c *Cell) String() string {
	return fmt.Sprintf("cell#%d(%v)", c.id, c.Raw())
}

// Value returns the held value and tracks "value".
func (c *Cell) Value(t *Tracker) any {
	t.Track(c, ValueKey)
	return c.Raw()
}

// SetValue replaces the held value and returns c. It is a no-op while an
// evaluation is being recorded or when v is the held value.
func (c *Cell) SetValue(v any) *Cell {
	if c.suppressed() {
		return c
	}
	old := c.Raw()
	if identical(old, v) {
		return c
	}
	c.observers.Dispatch(BeforeChange(ValueKey), old)
	c.mu.Lock()
	c.value = v
	c.mu.Unlock()
	c.observers.Dispatch(ValueKey, v)
	return c
}

// Call reads the cell without arguments and writes its first argument
// otherwise, returning the cell.
func (c *Cell) Call(t *Tracker, args ...any) any {
	if len(args) == 0 {
		return c.Value(t)
	}
	return c.SetValue(args[0])
}

func (c *Cell) Get(t *Tracker, key string) any {
	if v, ok := c.reserved(key); ok {
		return v
	}
	if key == ValueKey {
		return c.Value(t)
	}
	if fn, ok := c.props.getter(key); ok {
		return fn(t)
	}
	v, ok := c.props.load(key)
	if ok {
		t.Track(c, key)
	}
	return v
}

func (c *Cell) Set(key string, value any) error {
	if c.suppressed() {
		return nil
	}
	if IsReserved(key) {
		return reservedError(key)
	}
	if key == ValueKey {
		c.SetValue(value)
		return nil
	}
	if _, ok := c.props.getter(key); ok {
		return readOnlyError(key)
	}
	c.assign(&c.props, key, value)
	return nil
}

func (c *Cell) Has(key string) bool {
	return IsReserved(key) || key == ValueKey || c.props.has(key)
}

func (c *Cell) Delete(key string) error {
	if IsReserved(key) || key == ValueKey {
		return reservedError(key)
	}
	if c.props.has(key) {
		c.observers.Delete(key)
	}
	c.props.remove(key)
	return nil
}

func (c *Cell) Keys() []string {
	return append([]string{ValueKey}, c.props.keys()...)
}

func (c *Cell) DefineComputed(name string, fn ComputedFunc) error {
	if name == ValueKey {
		return reservedError(name)
	}
	return c.defineComputed(&c.props, name, fn)
}

func (c *Cell) RefreshObservers() {
	c.refresh(func(key string) (any, bool) {
		if key == ValueKey {
			return c.Raw(), true
		}
		if fn, ok := c.props.getter(key); ok {
			return fn(nil), true
		}
		return c.props.load(key)
	})
}
