package observe

// Plain converts v back to raw data: records to maps, lists to slices, cells
// to their value. Functions are dropped. Nested wrappers are converted
// recursively; raw values are copied as needed.
func Plain(v any) any {
	return plain(v, make(map[Wrapper]struct{}))
}

func plain(v any, seen map[Wrapper]struct{}) any {
	switch x := v.(type) {
	case *Cell:
		return plain(x.Raw(), seen)
	case *Function, Func, func(*Tracker, ...any) any:
		return nil
	case *Record:
		if _, loop := seen[x]; loop {
			return nil
		}
		seen[x] = struct{}{}
		defer delete(seen, x)
		out := make(map[string]any)
		for _, k := range x.props.keys() {
			if fn, ok := x.props.getter(k); ok {
				out[k] = plain(fn(nil), seen)
				continue
			}
			val, _ := x.props.load(k)
			if p := plain(val, seen); p != nil || val == nil {
				out[k] = p
			}
		}
		return out
	case *List:
		if _, loop := seen[x]; loop {
			return nil
		}
		seen[x] = struct{}{}
		defer delete(seen, x)
		items := x.Values(nil)
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = plain(item, seen)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = plain(val, seen)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = plain(item, seen)
		}
		return out
	}
	return v
}
