package observe

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
)

// Structural list events.
const (
	EventClear   = "clear"
	EventPop     = "pop"
	EventShift   = "shift"
	EventPush    = "push"
	EventUnshift = "unshift"
	EventSplice  = "splice"
	EventSet     = "set"
	EventLength  = "length"
)

// SpliceArgs is the payload of a splice event. Start and DeleteCount are
// already normalized against the length before the splice.
type SpliceArgs struct {
	Start       int
	DeleteCount int
	Items       []any
	Removed     []any
}

// SetArgs is the payload of a set event.
type SetArgs struct {
	Index int
	Value any
}

// List observes a []any.
//
// Only ordered sequence operations are supported: Clear, Pop, Shift, Push,
// Unshift, Splice, SetIndex and SetLength. Each one dispatches a structural
// event first and then the index and "length" property events of the keys
// that changed. Inserted values are adopted with the list as parent.
type List struct {
	base
	mu    sync.RWMutex
	items []any
	key   *identity
	props props
}

// NewList returns the canonical list wrapper of items. Elements are adopted
// in place.
func (r *Registry) NewList(items []any, parent Wrapper) *List {
	id, _ := identityOf(items)

	r.mu.Lock()
	if l, ok := r.entries[id].live().(*List); ok && id.ptr != 0 {
		r.mu.Unlock()
		return l
	}
	l := &List{items: items, key: &id}
	l.init(r, l, parent)
	r.register(id, entryOf(l))
	r.mu.Unlock()

	r.cleanupOnDeath(l, l.key)

	for i, v := range items {
		items[i] = l.adopt(v)
	}
	return l
}

func (l *List) Kind() Kind { return KindList }

// Raw returns the current backing slice.
func (l *List) Raw() any {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.items
}

func (l *List) String() string {
	return fmt.Sprintf("list#%d", l.id)
}

func (l *List) adopt(v any) any {
	w, err := l.reg.Adopt(v, l)
	if err != nil {
		// Opaque values are kept as they are.
		return v
	}
	return w
}

// rekey follows the backing array after a reallocation.
func (l *List) rekey() {
	next, _ := identityOf(l.items)
	if next == *l.key {
		return
	}
	r := l.reg
	r.mu.Lock()
	if e, ok := r.entries[*l.key]; ok && e.list.Value() == l {
		delete(r.entries, *l.key)
	}
	*l.key = next
	r.register(next, entryOf(l))
	r.mu.Unlock()
}

func parseIndex(key string) (int, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	i, err := strconv.Atoi(key)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

func (l *List) at(i int) any {
	if i < 0 || i >= len(l.items) {
		return nil
	}
	return l.items[i]
}

// Len returns the length and tracks "length".
func (l *List) Len(t *Tracker) int {
	t.Track(l, EventLength)
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Index returns element i (nil when out of range) and tracks it.
func (l *List) Index(t *Tracker, i int) any {
	t.Track(l, strconv.Itoa(i))
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.at(i)
}

// Values returns a copy of the elements and tracks "length" and every index.
func (l *List) Values(t *Tracker) []any {
	l.mu.RLock()
	out := make([]any, len(l.items))
	copy(out, l.items)
	l.mu.RUnlock()

	t.Track(l, EventLength)
	for i := range out {
		t.Track(l, strconv.Itoa(i))
	}
	return out
}

// Get reads an index, "length" or a named property.
func (l *List) Get(t *Tracker, key string) any {
	if v, ok := l.reserved(key); ok {
		return v
	}
	if key == EventLength {
		return l.Len(t)
	}
	if i, ok := parseIndex(key); ok {
		return l.Index(t, i)
	}
	if fn, ok := l.props.getter(key); ok {
		return fn(t)
	}
	if v, ok := l.props.load(key); ok {
		t.Track(l, key)
		return v
	}
	if l.parent != nil {
		return l.parent.Get(t, key)
	}
	l.reg.logger.Warn("undefined property", "key", key, "context", l.String())
	return nil
}

// Set writes an index, "length" or a named property.
func (l *List) Set(key string, value any) error {
	if l.suppressed() {
		return nil
	}
	if IsReserved(key) {
		return reservedError(key)
	}
	if key == EventLength {
		n, ok := toInt(value)
		if !ok {
			return unsupportedValueError(value)
		}
		return l.SetLength(n)
	}
	if i, ok := parseIndex(key); ok {
		return l.SetIndex(i, value)
	}
	if _, ok := l.props.getter(key); ok {
		return readOnlyError(key)
	}
	l.assign(&l.props, key, value)
	return nil
}

// Has reports reserved names, "length", valid indexes and named properties.
func (l *List) Has(key string) bool {
	if IsReserved(key) || key == EventLength {
		return true
	}
	if i, ok := parseIndex(key); ok {
		l.mu.RLock()
		defer l.mu.RUnlock()
		return i < len(l.items)
	}
	return l.props.has(key)
}

// Delete removes a named property. Elements are removed with Splice.
func (l *List) Delete(key string) error {
	if IsReserved(key) {
		return reservedError(key)
	}
	if key == EventLength {
		return unsupportedOpError("delete")
	}
	if _, ok := parseIndex(key); ok {
		return unsupportedOpError("delete")
	}
	if l.props.has(key) {
		l.observers.Delete(key)
	}
	l.props.remove(key)
	return nil
}

// Keys returns the indexes followed by the named properties.
func (l *List) Keys() []string {
	l.mu.RLock()
	keys := make([]string, 0, len(l.items))
	for i := range l.items {
		keys = append(keys, strconv.Itoa(i))
	}
	l.mu.RUnlock()
	return append(keys, l.props.keys()...)
}

func (l *List) DefineComputed(name string, fn ComputedFunc) error {
	if name == EventLength {
		return reservedError(name)
	}
	if _, ok := parseIndex(name); ok {
		return reservedError(name)
	}
	return l.defineComputed(&l.props, name, fn)
}

// RefreshObservers re-dispatches observed indexes, "length" and named
// properties. Structural events are not replayed.
func (l *List) RefreshObservers() {
	l.refresh(func(key string) (any, bool) {
		if key == EventLength {
			return l.Len(nil), true
		}
		if i, ok := parseIndex(key); ok {
			return l.Index(nil, i), true
		}
		if fn, ok := l.props.getter(key); ok {
			return fn(nil), true
		}
		return l.props.load(key)
	})
}

// snapshot captures the observed index keys and "length" before a mutation.
type snapshot struct {
	indexes []int
	values  []any
	length  int
}

func (l *List) snapshot() snapshot {
	var s snapshot
	l.mu.RLock()
	defer l.mu.RUnlock()

	s.length = len(l.items)
	for _, key := range l.observers.Keys() {
		if i, ok := parseIndex(key); ok {
			s.indexes = append(s.indexes, i)
		}
	}
	sort.Ints(s.indexes)
	s.values = make([]any, len(s.indexes))
	for n, i := range s.indexes {
		s.values[n] = l.at(i)
	}
	return s
}

// commit dispatches the property events of a finished mutation.
func (l *List) commit(before snapshot, withLength bool) {
	l.mu.RLock()
	now := make([]any, len(before.indexes))
	for n, i := range before.indexes {
		now[n] = l.at(i)
	}
	length := len(l.items)
	l.mu.RUnlock()

	for n, i := range before.indexes {
		if !identical(before.values[n], now[n]) {
			l.observers.Dispatch(strconv.Itoa(i), now[n])
		}
	}
	if withLength && length != before.length {
		l.observers.Dispatch(EventLength, length)
	}
}

// Clear truncates the list.
func (l *List) Clear() {
	if l.suppressed() {
		return
	}
	before := l.snapshot()

	l.mu.Lock()
	clear(l.items)
	l.items = l.items[:0]
	l.mu.Unlock()

	l.observers.Dispatch(EventClear, nil)
	l.commit(before, true)
}

// Pop removes and returns the last element.
func (l *List) Pop() any {
	return l.remove(EventPop)
}

// Shift removes and returns the first element.
func (l *List) Shift() any {
	return l.remove(EventShift)
}

func (l *List) remove(op string) any {
	if l.suppressed() {
		return nil
	}
	l.mu.RLock()
	n := len(l.items)
	var leaving any
	if n > 0 {
		if op == EventPop {
			leaving = l.items[n-1]
		} else {
			leaving = l.items[0]
		}
	}
	l.mu.RUnlock()
	if n == 0 {
		return nil
	}

	before := l.snapshot()
	l.observers.Dispatch(BeforeChange(op), leaving)

	l.mu.Lock()
	if op == EventPop {
		l.items[n-1] = nil
		l.items = l.items[:n-1]
	} else {
		copy(l.items, l.items[1:])
		l.items[n-1] = nil
		l.items = l.items[:n-1]
	}
	l.mu.Unlock()

	l.observers.Dispatch(op, leaving)
	l.commit(before, true)
	return leaving
}

// Push appends values and returns the new length.
func (l *List) Push(values ...any) int {
	return l.insert(EventPush, values)
}

// Unshift prepends values, keeping their order, and returns the new length.
func (l *List) Unshift(values ...any) int {
	return l.insert(EventUnshift, values)
}

func (l *List) insert(op string, values []any) int {
	if l.suppressed() || len(values) == 0 {
		return l.Len(nil)
	}
	added := make([]any, len(values))
	for i, v := range values {
		added[i] = l.adopt(v)
	}
	before := l.snapshot()

	l.mu.Lock()
	if op == EventPush {
		l.items = append(l.items, added...)
	} else if n, k := len(l.items), len(added); cap(l.items) >= n+k {
		l.items = l.items[:n+k]
		copy(l.items[k:], l.items[:n])
		copy(l.items, added)
	} else {
		l.items = append(added[:k:k], l.items...)
	}
	l.rekey()
	n := len(l.items)
	l.mu.Unlock()

	l.observers.Dispatch(op, added)
	l.commit(before, true)
	return n
}

// Splice removes deleteCount elements at start and inserts items there.
//
// A negative start counts from the end. Both arguments are clamped to the
// list. The removed elements are returned.
func (l *List) Splice(start, deleteCount int, items ...any) []any {
	if l.suppressed() {
		return nil
	}
	added := make([]any, len(items))
	for i, v := range items {
		added[i] = l.adopt(v)
	}
	before := l.snapshot()

	l.mu.Lock()
	n := len(l.items)
	switch {
	case start < 0:
		start = max(n+start, 0)
	case start > n:
		start = n
	}
	deleteCount = min(max(deleteCount, 0), n-start)

	removed := make([]any, deleteCount)
	copy(removed, l.items[start:start+deleteCount])

	rest := make([]any, n-start-deleteCount)
	copy(rest, l.items[start+deleteCount:])
	clear(l.items[start:])
	l.items = append(append(l.items[:start], added...), rest...)
	l.rekey()
	l.mu.Unlock()

	if deleteCount == 0 && len(added) == 0 {
		return removed
	}
	l.observers.Dispatch(EventSplice, SpliceArgs{
		Start:       start,
		DeleteCount: deleteCount,
		Items:       added,
		Removed:     removed,
	})
	l.commit(before, true)
	return removed
}

// SetIndex assigns element i. Assigning at the current length appends;
// anything past it fails.
func (l *List) SetIndex(i int, value any) error {
	if l.suppressed() {
		return nil
	}
	l.mu.RLock()
	n := len(l.items)
	old := l.at(i)
	l.mu.RUnlock()

	if i < 0 || i > n {
		return indexRangeError(i, n)
	}
	value = l.adopt(value)
	if i < n && identical(old, value) {
		return nil
	}

	before := l.snapshot()
	key := strconv.Itoa(i)
	l.observers.Dispatch(BeforeChange(key), old)

	l.mu.Lock()
	if i == n {
		l.items = append(l.items, value)
		l.rekey()
	} else {
		l.items[i] = value
	}
	l.mu.Unlock()

	l.observers.Dispatch(EventSet, SetArgs{Index: i, Value: value})
	l.commit(before, true)
	return nil
}

// SetLength truncates the list or pads it with nil elements.
func (l *List) SetLength(length int) error {
	if l.suppressed() {
		return nil
	}
	if length < 0 {
		return indexRangeError(length, l.Len(nil))
	}
	before := l.snapshot()
	if length == before.length {
		return nil
	}

	l.mu.Lock()
	if length < len(l.items) {
		clear(l.items[length:])
		l.items = l.items[:length]
	} else {
		l.items = append(l.items, make([]any, length-len(l.items))...)
		l.rekey()
	}
	l.mu.Unlock()

	l.observers.Dispatch(EventLength, length)
	l.commit(before, false)
	return nil
}

// Sort is not supported: the list only replays ordered sequence operations.
func (l *List) Sort(less func(a, b any) bool) error {
	return unsupportedOpError("sort")
}

// Reverse is not supported.
func (l *List) Reverse() error {
	return unsupportedOpError("reverse")
}

// Fill is not supported.
func (l *List) Fill(value any, bounds ...int) error {
	return unsupportedOpError("fill")
}

// CopyWithin is not supported.
func (l *List) CopyWithin(target, start int, end ...int) error {
	return unsupportedOpError("copyWithin")
}

// Add is not supported; lists are sequences, not sets.
func (l *List) Add(value any) error {
	return unsupportedOpError("add")
}

// Remove is not supported; use Splice.
func (l *List) Remove(value any) error {
	return unsupportedOpError("delete")
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float32:
		if float32(int(n)) == n {
			return int(n), true
		}
	case float64:
		if float64(int(n)) == n {
			return int(n), true
		}
	}
	return 0, false
}
