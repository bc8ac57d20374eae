package observe

import "reflect"

// identical is strict identity: the comparison used to decide whether a write
// changed anything. It never panics. Functions are never identical, maps and
// pointers compare by address, slices by address and length.
func identical(a, b any) (same bool) {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	switch ta.Kind() {
	case reflect.Func:
		return false
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	case reflect.Slice:
		va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	if !ta.Comparable() {
		return false
	}
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

// promotes reports whether next is the canonical wrapper of prev, so storing
// it replaces the raw value without changing what the property holds.
func promotes(prev, next any) bool {
	w, ok := next.(Wrapper)
	if !ok || prev == nil {
		return false
	}
	switch w.Kind() {
	case KindRecord, KindList:
		return identical(prev, w.Raw())
	}
	return false
}

// Identical reports whether a and b are the same value for change detection.
func Identical(a, b any) bool {
	return identical(a, b)
}
