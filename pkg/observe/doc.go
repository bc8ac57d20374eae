// Package observe turns plain data into observable wrappers.
//
// Four raw kinds are supported: records (map[string]any), lists ([]any),
// callables (Func) and scalars. Each gets a wrapper that records which
// properties are read during an evaluation and notifies listeners on writes:
//
//	reg := observe.NewRegistry()
//	ctx := reg.NewRecord(map[string]any{"name": "Ada"}, nil)
//
//	t := reg.Begin()
//	name := ctx.Get(t, "name") // "Ada", edge (ctx, "name") recorded
//	edges := t.End()
//
//	ctx.Observe("name", func(v any, key string) { fmt.Println(key, v) })
//	ctx.Set("name", "Grace") // name.beforeChange Ada, then name Grace
//
// # Canonical wrappers
//
// A Registry maps each raw record or list to exactly one wrapper, held weakly:
// the registry never keeps a wrapper alive by itself. Wrapping a wrapper
// returns it unchanged.
//
// # Scope chain
//
// Every wrapper has a parent (nil at the root). A record read of a missing key
// falls back to the parent, one level at a time. The names context, parent,
// root, observe, unobserve, clearObservers, observers, refreshObservers and
// defineComputed are reserved on every wrapper and can not be assigned.
//
// # Recording
//
// Reads take an explicit *Tracker. While any tracker of a registry is open,
// writes through its wrappers are silently dropped, so an evaluation can not
// change the data it depends on.
//
// # Lists
//
// Lists only support ordered sequence operations (Clear, Pop, Shift, Push,
// Unshift, Splice, SetIndex, SetLength). Each dispatches a structural event
// ("clear", "pop", "push", "splice", "set", "length", ...) that a renderer can
// replay. Sort, Reverse, Fill, CopyWithin, Add and Remove fail and leave the
// list unchanged.
//
// # Concurrency
//
// The model is single-threaded: dispatch is synchronous and listeners run on
// the writer's stack. Internal state is guarded so that independent models
// can live on different goroutines; a single model must be driven from one
// goroutine at a time.
package observe
