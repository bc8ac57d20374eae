package tal

import (
	"io"
	"log/slog"
	"testing"

	"github.com/vango-dev/tal/pkg/dom"
	"github.com/vango-dev/tal/pkg/observe"
	"github.com/vango-dev/tal/pkg/render"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixture parses src, which must have a single root element, and renders it
// against data.
func fixture(t *testing.T, src string, data map[string]any, opts ...Option) (*dom.Node, *observe.Record) {
	t.Helper()
	host, err := dom.ParseElement(src)
	if err != nil {
		t.Fatalf("ParseElement: %v", err)
	}
	reg := observe.NewRegistry(observe.WithLogger(discard()))
	ctx := reg.NewRecord(data, nil)
	opts = append([]Option{WithLogger(discard())}, opts...)
	if _, err := Render(host, ctx, opts...); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return host, ctx
}

func html(t *testing.T, n *dom.Node) string {
	t.Helper()
	s, err := render.NewRenderer(render.RendererConfig{}).RenderToString(n)
	if err != nil {
		t.Fatalf("RenderToString: %v", err)
	}
	return s
}

func expectHTML(t *testing.T, n *dom.Node, want string) {
	t.Helper()
	if got := html(t, n); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func listOf(t *testing.T, ctx observe.Wrapper, key string) *observe.List {
	t.Helper()
	l, ok := ctx.Get(nil, key).(*observe.List)
	if !ok {
		t.Fatalf("%s is %T, want *observe.List", key, ctx.Get(nil, key))
	}
	return l
}

// wrapped returns the canonical wrapper of the value under key.
func wrapped(t *testing.T, ctx observe.Wrapper, key string) observe.Wrapper {
	t.Helper()
	w, err := ctx.Registry().Wrap(ctx.Get(nil, key))
	if err != nil {
		t.Fatalf("Wrap %s: %v", key, err)
	}
	return w
}

// texts returns the text of every element child of n.
func texts(n *dom.Node) []string {
	out := []string{}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.IsElement() {
			out = append(out, c.TextContent())
		}
	}
	return out
}
