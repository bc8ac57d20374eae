package observe

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestListAdoptsElements(t *testing.T) {
	reg, _ := newTestRegistry()
	raw := []any{map[string]any{"a": 1}, []any{1}, "x"}
	l := reg.NewList(raw, nil)

	rec, ok := l.Index(nil, 0).(*Record)
	if !ok {
		t.Fatalf("element 0 = %T, want *Record", l.Index(nil, 0))
	}
	if rec.Parent() != l {
		t.Error("an adopted element should have the list as parent")
	}
	if _, ok := l.Index(nil, 1).(*List); !ok {
		t.Errorf("element 1 = %T, want *List", l.Index(nil, 1))
	}
	if l.Index(nil, 2) != "x" {
		t.Errorf("scalars should stay scalars, got %v", l.Index(nil, 2))
	}

	l.Push(map[string]any{"b": 2})
	if pushed, ok := l.Index(nil, 3).(*Record); !ok || pushed.Parent() != l {
		t.Errorf("a pushed record should be adopted with the list as parent")
	}
}

func TestListPushEvents(t *testing.T) {
	reg, _ := newTestRegistry()
	l := reg.NewList(nil, nil)

	var log eventLog
	log.listen(l, EventPush, "0", EventLength)

	if n := l.Push("x", "y"); n != 2 {
		t.Errorf("Push() = %d, want 2", n)
	}
	want := []string{"push=[x y]", "0=x", "length=2"}
	if diff := cmp.Diff(want, log.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestListUnshiftKeepsOrder(t *testing.T) {
	reg, _ := newTestRegistry()
	l := reg.NewList([]any{"c"}, nil)

	var log eventLog
	log.listen(l, EventUnshift)
	l.Unshift("a", "b")

	if diff := cmp.Diff([]any{"a", "b", "c"}, l.Values(nil)); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"unshift=[a b]"}, log.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestListPopShift(t *testing.T) {
	reg, _ := newTestRegistry()
	l := reg.NewList([]any{"a", "b", "c"}, nil)

	var log eventLog
	log.listen(l, BeforeChange(EventPop), EventPop, BeforeChange(EventShift), EventShift, EventLength)

	if got := l.Pop(); got != "c" {
		t.Errorf("Pop() = %v, want c", got)
	}
	if got := l.Shift(); got != "a" {
		t.Errorf("Shift() = %v, want a", got)
	}
	want := []string{
		"pop.beforeChange=c", "pop=c", "length=2",
		"shift.beforeChange=a", "shift=a", "length=1",
	}
	if diff := cmp.Diff(want, log.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{"b"}, l.Values(nil)); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}

	log.reset()
	l.Pop()
	if l.Pop() != nil || l.Shift() != nil {
		t.Error("removing from an empty list should return nil")
	}
	if diff := cmp.Diff([]string{"pop.beforeChange=b", "pop=b", "length=0"}, log.events); diff != "" {
		t.Errorf("an empty list should not dispatch (-want +got):\n%s", diff)
	}
}

func TestListSplice(t *testing.T) {
	tests := []struct {
		name        string
		start       int
		deleteCount int
		items       []any
		wantValues  []any
		wantRemoved []any
		wantArgs    SpliceArgs
	}{
		{
			name:  "replace middle",
			start: 1, deleteCount: 2, items: []any{"a", "b", "c"},
			wantValues:  []any{1, "a", "b", "c", 4},
			wantRemoved: []any{2, 3},
			wantArgs:    SpliceArgs{Start: 1, DeleteCount: 2, Items: []any{"a", "b", "c"}, Removed: []any{2, 3}},
		},
		{
			name:  "negative start",
			start: -1, deleteCount: 5,
			wantValues:  []any{1, 2, 3},
			wantRemoved: []any{4},
			wantArgs:    SpliceArgs{Start: 3, DeleteCount: 1, Items: []any{}, Removed: []any{4}},
		},
		{
			name:  "start past the end",
			start: 10, deleteCount: 1, items: []any{5},
			wantValues:  []any{1, 2, 3, 4, 5},
			wantRemoved: []any{},
			wantArgs:    SpliceArgs{Start: 4, DeleteCount: 0, Items: []any{5}, Removed: []any{}},
		},
		{
			name:  "negative delete count",
			start: 0, deleteCount: -3, items: []any{0},
			wantValues:  []any{0, 1, 2, 3, 4},
			wantRemoved: []any{},
			wantArgs:    SpliceArgs{Start: 0, DeleteCount: 0, Items: []any{0}, Removed: []any{}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, _ := newTestRegistry()
			l := reg.NewList([]any{1, 2, 3, 4}, nil)

			var got []SpliceArgs
			l.Observe(EventSplice, func(v any, _ string) { got = append(got, v.(SpliceArgs)) })

			removed := l.Splice(tt.start, tt.deleteCount, tt.items...)
			if diff := cmp.Diff(tt.wantRemoved, removed); diff != "" {
				t.Errorf("removed mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantValues, l.Values(nil)); diff != "" {
				t.Errorf("values mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff([]SpliceArgs{tt.wantArgs}, got); diff != "" {
				t.Errorf("event mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestListSpliceNoop(t *testing.T) {
	reg, _ := newTestRegistry()
	l := reg.NewList([]any{1}, nil)

	var log eventLog
	log.listen(l, EventSplice)
	l.Splice(0, 0)
	if len(log.events) != 0 {
		t.Errorf("an empty splice should not dispatch, got %v", log.events)
	}
}

func TestListSetIndex(t *testing.T) {
	reg, _ := newTestRegistry()
	l := reg.NewList([]any{"a", "b"}, nil)

	var log eventLog
	log.listen(l, BeforeChange("1"), EventSet, "1", EventLength)

	if err := l.SetIndex(1, "B"); err != nil {
		t.Fatalf("SetIndex: %v", err)
	}
	if err := l.SetIndex(1, "B"); err != nil {
		t.Fatalf("SetIndex: %v", err)
	}
	if err := l.SetIndex(2, "c"); err != nil {
		t.Fatalf("SetIndex at length: %v", err)
	}

	want := []string{
		"1.beforeChange=b", "set={1 B}", "1=B",
		"set={2 c}", "length=3",
	}
	if diff := cmp.Diff(want, log.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	err := l.SetIndex(5, "z")
	if !errors.Is(err, ErrIndexRange) {
		t.Errorf("SetIndex past the end error = %v, want ErrIndexRange", err)
	}
	if diff := cmp.Diff([]any{"a", "B", "c"}, l.Values(nil)); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestListSetByKey(t *testing.T) {
	reg, _ := newTestRegistry()
	l := reg.NewList([]any{"a", "b", "c"}, nil)

	if err := l.Set("0", "A"); err != nil {
		t.Fatalf("Set(0): %v", err)
	}
	if err := l.Set("length", 2); err != nil {
		t.Fatalf("Set(length): %v", err)
	}
	if err := l.Set("title", "letters"); err != nil {
		t.Fatalf("Set(title): %v", err)
	}
	if diff := cmp.Diff([]any{"A", "b"}, l.Values(nil)); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
	if l.Get(nil, "title") != "letters" || l.Get(nil, "length") != 2 {
		t.Errorf("Get(title) = %v, Get(length) = %v", l.Get(nil, "title"), l.Get(nil, "length"))
	}
	if l.Has("2") || !l.Has("1") {
		t.Error("Has should reflect the current length")
	}
}

func TestListSetLength(t *testing.T) {
	reg, _ := newTestRegistry()
	l := reg.NewList([]any{1, 2, 3}, nil)

	var log eventLog
	log.listen(l, EventLength, "2")

	if err := l.SetLength(1); err != nil {
		t.Fatalf("SetLength: %v", err)
	}
	if err := l.SetLength(1); err != nil {
		t.Fatalf("SetLength: %v", err)
	}
	if err := l.SetLength(3); err != nil {
		t.Fatalf("SetLength: %v", err)
	}
	want := []string{"length=1", "2=<nil>", "length=3"}
	if diff := cmp.Diff(want, log.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{1, nil, nil}, l.Values(nil)); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
	if err := l.SetLength(-1); !errors.Is(err, ErrIndexRange) {
		t.Errorf("SetLength(-1) error = %v, want ErrIndexRange", err)
	}
}

func TestListClear(t *testing.T) {
	reg, _ := newTestRegistry()
	l := reg.NewList([]any{1, 2}, nil)

	var log eventLog
	log.listen(l, EventClear, EventLength)
	l.Clear()

	if diff := cmp.Diff([]string{"clear=<nil>", "length=0"}, log.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	if l.Len(nil) != 0 {
		t.Errorf("Len() = %d, want 0", l.Len(nil))
	}
}

func TestListDisallowedOps(t *testing.T) {
	reg, _ := newTestRegistry()
	l := reg.NewList([]any{3, 1, 2}, nil)

	var log eventLog
	log.listen(l, EventSet, EventSplice, EventLength)

	tests := []struct {
		name string
		call func() error
	}{
		{"sort", func() error { return l.Sort(func(a, b any) bool { return a.(int) < b.(int) }) }},
		{"reverse", l.Reverse},
		{"fill", func() error { return l.Fill(0) }},
		{"copyWithin", func() error { return l.CopyWithin(0, 1) }},
		{"add", func() error { return l.Add(4) }},
		{"delete", func() error { return l.Remove(3) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !errors.Is(err, ErrUnsupportedOp) || !IsUsageError(err) {
				t.Fatalf("error = %v, want an unsupported operation usage error", err)
			}
			if !strings.Contains(err.Error(), tt.name) {
				t.Errorf("error %q should name %q", err.Error(), tt.name)
			}
		})
	}

	if diff := cmp.Diff([]any{3, 1, 2}, l.Values(nil)); diff != "" {
		t.Errorf("the list should be unchanged (-want +got):\n%s", diff)
	}
	if len(log.events) != 0 {
		t.Errorf("no event expected, got %v", log.events)
	}
}

func TestListMutationsSuppressedWhileRecording(t *testing.T) {
	reg, _ := newTestRegistry()
	l := reg.NewList([]any{1}, nil)

	tr := reg.Begin()
	l.Push(2)
	l.Pop()
	l.Splice(0, 1)
	l.Clear()
	l.SetIndex(0, 9)
	tr.End()

	if diff := cmp.Diff([]any{1}, l.Values(nil)); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestListTracking(t *testing.T) {
	reg, _ := newTestRegistry()
	l := reg.NewList([]any{"a", "b"}, nil)

	tr := reg.Begin()
	l.Get(tr, "length")
	l.Get(tr, "1")
	l.Values(tr)
	got := edgeKeys(tr.End())

	name := l.String()
	want := []string{name + ".length", name + ".1", name + ".0"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}
}

func TestListDeleteIndexUnsupported(t *testing.T) {
	reg, _ := newTestRegistry()
	l := reg.NewList([]any{1}, nil)

	if err := l.Delete("0"); !errors.Is(err, ErrUnsupportedOp) {
		t.Errorf("Delete(0) error = %v, want ErrUnsupportedOp", err)
	}
}
