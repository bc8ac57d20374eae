package observe

// Edge is a dependency edge: a property of a wrapper read during one evaluation.
type Edge struct {
	Target Wrapper
	Key    string
}

// Tracker is one recording session.
//
// A tracker is passed explicitly to every read (Wrapper.Get, Cell.Value,
// ComputedFunc, Func). Reads push an edge into the tracker they receive; a nil
// tracker means the read is untracked. Trackers are independent, so sessions
// may nest: an inner session only captures its own reads.
//
// While at least one tracker of a registry is open, writes through wrappers of
// that registry are suppressed. Evaluation passes therefore never mutate the
// model they are observing.
type Tracker struct {
	reg    *Registry
	edges  []Edge
	seen   map[Edge]struct{}
	closed bool
}

// Begin opens a recording session. The caller must call End.
func (r *Registry) Begin() *Tracker {
	r.recording.Add(1)
	return &Tracker{reg: r}
}

// Track records that key of w was read. Safe on a nil or closed tracker.
func (t *Tracker) Track(w Wrapper, key string) {
	if t == nil || t.closed || w == nil {
		return
	}
	e := Edge{Target: w, Key: key}
	if t.seen == nil {
		t.seen = make(map[Edge]struct{})
	}
	if _, dup := t.seen[e]; dup {
		return
	}
	t.seen[e] = struct{}{}
	t.edges = append(t.edges, e)
}

// End closes the session and returns the captured edges in first-read order.
// Calling End more than once returns the same edges.
func (t *Tracker) End() []Edge {
	if t == nil {
		return nil
	}
	if !t.closed {
		t.closed = true
		t.reg.recording.Add(-1)
	}
	return t.edges
}

// Recording reports whether the session is still open.
func (t *Tracker) Recording() bool {
	return t != nil && !t.closed
}

// Record runs fn inside a new session and returns the edges it read.
func (r *Registry) Record(fn func(t *Tracker)) []Edge {
	t := r.Begin()
	defer t.End()
	fn(t)
	return t.End()
}
