package observe

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// eventLog records dispatched events as "key=value".
type eventLog struct {
	events []string
}

func (l *eventLog) listen(w Wrapper, keys ...string) {
	for _, key := range keys {
		w.Observe(key, func(v any, k string) {
			l.events = append(l.events, fmt.Sprintf("%s=%v", k, v))
		})
	}
}

func (l *eventLog) reset() {
	l.events = nil
}

func (l *eventLog) String() string {
	return strings.Join(l.events, " ")
}

func newTestRegistry() (*Registry, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	return NewRegistry(WithLogger(logger)), &buf
}

func edgeKeys(edges []Edge) []string {
	keys := make([]string, len(edges))
	for i, e := range edges {
		keys[i] = fmt.Sprintf("%v.%s", e.Target, e.Key)
	}
	return keys
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
