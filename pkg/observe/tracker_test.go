package observe

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTrackerNesting(t *testing.T) {
	reg, _ := newTestRegistry()
	rec := reg.NewRecord(map[string]any{"a": 1, "b": 2, "c": 3}, nil)
	name := rec.String()

	outer := reg.Begin()
	rec.Get(outer, "a")

	inner := reg.Begin()
	rec.Get(inner, "b")
	innerEdges := inner.End()

	if !reg.Recording() {
		t.Error("the outer session should still be recording")
	}
	rec.Get(outer, "c")
	outerEdges := outer.End()

	if diff := cmp.Diff([]string{name + ".b"}, edgeKeys(innerEdges)); diff != "" {
		t.Errorf("inner edges mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{name + ".a", name + ".c"}, edgeKeys(outerEdges)); diff != "" {
		t.Errorf("outer edges mismatch (-want +got):\n%s", diff)
	}
	if reg.Recording() {
		t.Error("no session should be open")
	}
}

func TestTrackerEndIdempotent(t *testing.T) {
	reg, _ := newTestRegistry()
	rec := reg.NewRecord(map[string]any{"a": 1}, nil)

	tr := reg.Begin()
	rec.Get(tr, "a")
	first := tr.End()
	second := tr.End()

	if len(first) != 1 || len(second) != 1 {
		t.Errorf("End() returned %d then %d edges, want 1 and 1", len(first), len(second))
	}
	if reg.Recording() {
		t.Error("a second End should not unbalance the registry")
	}

	rec.Get(tr, "a")
	if tr.Recording() {
		t.Error("a closed tracker is not recording")
	}
	if len(tr.End()) != 1 {
		t.Error("a closed tracker should not capture reads")
	}
}

func TestTrackerNil(t *testing.T) {
	var tr *Tracker
	tr.Track(nil, "x")
	if tr.End() != nil || tr.Recording() {
		t.Error("a nil tracker records nothing")
	}
}

func TestRegistryRecord(t *testing.T) {
	reg, _ := newTestRegistry()
	rec := reg.NewRecord(map[string]any{"a": 1}, nil)

	edges := reg.Record(func(t *Tracker) {
		rec.Get(t, "a")
		rec.Set("a", 2)
	})
	if len(edges) != 1 || edges[0].Target != Wrapper(rec) || edges[0].Key != "a" {
		t.Errorf("Record() = %v", edgeKeys(edges))
	}
	if rec.Get(nil, "a") != 1 {
		t.Error("writes inside Record should be dropped")
	}
}
