package observe

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Listener is notified when an observed key dispatches.
// value is the new value for property keys, the old value for before-change
// keys, and the event payload for structural list events.
type Listener func(value any, key string)

// SubID identifies one subscription for Unobserve.
type SubID uint64

// BeforeChange returns the event key dispatched before key is written.
func BeforeChange(key string) string {
	return key + ".beforeChange"
}

// FaultHandler is told about every listener that panicked during dispatch.
type FaultHandler func(key string, value any, id SubID, recovered any)

type subscription struct {
	id SubID
	fn Listener
}

// Observers maps event keys to listeners in registration order.
// It is owned by exactly one wrapper and only mutated through Observe,
// Unobserve, Delete and Clear.
type Observers struct {
	mu     sync.RWMutex
	subs   map[string][]subscription
	logger *slog.Logger
	fault  FaultHandler
}

func newObservers(logger *slog.Logger, fault FaultHandler) *Observers {
	return &Observers{
		subs:   make(map[string][]subscription),
		logger: logger,
		fault:  fault,
	}
}

// Observe adds fn for key and returns its subscription ID.
func (o *Observers) Observe(key string, fn Listener) SubID {
	if fn == nil {
		return 0
	}
	id := SubID(nextID())

	o.mu.Lock()
	defer o.mu.Unlock()

	o.subs[key] = append(o.subs[key], subscription{id: id, fn: fn})
	return id
}

// Unobserve removes the subscription id from key.
func (o *Observers) Unobserve(key string, id SubID) {
	o.mu.Lock()
	defer o.mu.Unlock()

	subs := o.subs[key]
	for i, s := range subs {
		if s.id == id {
			// Keep registration order for the remaining listeners.
			o.subs[key] = append(subs[:i:i], subs[i+1:]...)
			if len(o.subs[key]) == 0 {
				delete(o.subs, key)
			}
			return
		}
	}
}

// Delete drops every listener of key.
func (o *Observers) Delete(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.subs, key)
}

// Clear drops every listener.
func (o *Observers) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.subs = make(map[string][]subscription)
}

// Has reports whether key has at least one listener.
func (o *Observers) Has(key string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.subs[key]) > 0
}

// Len returns the number of listeners of key.
func (o *Observers) Len(key string) int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.subs[key])
}

// Keys returns the observed keys in sorted order.
func (o *Observers) Keys() []string {
	o.mu.RLock()
	keys := make([]string, 0, len(o.subs))
	for k := range o.subs {
		keys = append(keys, k)
	}
	o.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// Dispatch calls every listener of key with value.
//
// Listeners run synchronously in registration order on the caller's stack.
// The listener list is copied first, so listeners may subscribe or unsubscribe
// while being notified. A panicking listener is logged and skipped; the others
// still run.
func (o *Observers) Dispatch(key string, value any) {
	o.mu.RLock()
	subs := make([]subscription, len(o.subs[key]))
	copy(subs, o.subs[key])
	o.mu.RUnlock()

	for _, s := range subs {
		o.call(s, key, value)
	}
}

func (o *Observers) call(s subscription, key string, value any) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("listener fault",
				"key", key,
				"value", fmt.Sprintf("%v", value),
				"subscription", uint64(s.id),
				"panic", r)
			if o.fault != nil {
				o.fault(key, value, s.id, r)
			}
		}
	}()
	s.fn(value, key)
}
