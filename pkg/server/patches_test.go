package server

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/tal/pkg/dom"
	"github.com/vango-dev/tal/pkg/protocol"
	"github.com/vango-dev/tal/pkg/render"
)

// observed parses src and records every mutation under it.
func observed(t *testing.T, src string) (*dom.Node, *patchSet) {
	t.Helper()
	root, err := dom.ParseElement(src)
	if err != nil {
		t.Fatalf("ParseElement: %v", err)
	}
	set := newPatchSet(root)
	t.Cleanup(root.Observe(set.add))
	return root, set
}

func flushed(t *testing.T, set *patchSet) []protocol.Patch {
	t.Helper()
	patches, err := set.flush(render.NewRenderer(render.RendererConfig{}))
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if !set.empty() {
		t.Error("flush should reset the set")
	}
	return patches
}

func TestPatchSetCoalescesAttrs(t *testing.T) {
	root, set := observed(t, `<div><a href="/x">x</a></div>`)
	a := root.FindTag("a")

	a.SetAttr("title", "one")
	a.SetAttr("title", "two")
	a.RemoveAttr("href")
	a.SetAttr("class", "on")

	want := []protocol.Patch{
		{Op: protocol.PatchSetAttr, ID: a.ID(), Key: "class", Value: "on"},
		{Op: protocol.PatchRemoveAttr, ID: a.ID(), Key: "href"},
		{Op: protocol.PatchSetAttr, ID: a.ID(), Key: "title", Value: "two"},
	}
	if diff := cmp.Diff(want, flushed(t, set)); diff != "" {
		t.Errorf("patches mismatch (-want +got):\n%s", diff)
	}
}

func TestPatchSetTextBecomesHTML(t *testing.T) {
	root, set := observed(t, `<div><p>old</p></div>`)
	p := root.FindTag("p")

	p.SetTextContent("new <b>")

	want := []protocol.Patch{{Op: protocol.PatchHTML, ID: p.ID(), Value: "new &lt;b&gt;"}}
	if diff := cmp.Diff(want, flushed(t, set)); diff != "" {
		t.Errorf("patches mismatch (-want +got):\n%s", diff)
	}
}

func TestPatchSetOutermostHTML(t *testing.T) {
	root, set := observed(t, `<div><section><p>a</p></section></div>`)
	section := root.FindTag("section")
	p := root.FindTag("p")

	p.SetTextContent("b")
	p.SetAttr("class", "x")
	section.AppendChild(dom.NewElement("hr"))

	want := []protocol.Patch{
		{Op: protocol.PatchHTML, ID: section.ID(), Value: `<p class="x">b</p><hr>`},
	}
	if diff := cmp.Diff(want, flushed(t, set)); diff != "" {
		t.Errorf("patches mismatch (-want +got):\n%s", diff)
	}
}

func TestPatchSetProps(t *testing.T) {
	root, set := observed(t, `<div><input type="checkbox"></div>`)
	input := root.FindTag("input")

	input.SetProp("checked", true)
	root.SetTextContent("")

	// Properties are not carried by markup, but the input is detached now.
	if got := flushed(t, set); len(got) != 1 || got[0].Op != protocol.PatchHTML {
		t.Errorf("expected a single html patch, got %v", got)
	}

	root, set = observed(t, `<div><input type="checkbox"></div>`)
	input = root.FindTag("input")
	input.SetProp("checked", true)
	input.SetProp("value", "on")

	want := []protocol.Patch{
		{Op: protocol.PatchSetProp, ID: input.ID(), Key: "checked", Value: true},
		{Op: protocol.PatchSetProp, ID: input.ID(), Key: "value", Value: "on"},
	}
	if diff := cmp.Diff(want, flushed(t, set)); diff != "" {
		t.Errorf("patches mismatch (-want +got):\n%s", diff)
	}
}

func TestPatchSetIgnoresIDAttr(t *testing.T) {
	root, set := observed(t, `<div></div>`)
	root.SetAttr(render.IDAttr, "1")

	if got := flushed(t, set); len(got) != 0 {
		t.Errorf("expected no patches, got %v", got)
	}
}

func TestPatchSetDetachedNodes(t *testing.T) {
	root, set := observed(t, `<div><p>a</p><span>b</span></div>`)
	p := root.FindTag("p")
	span := root.FindTag("span")

	p.SetAttr("class", "x")
	p.Remove()
	span.SetAttr("class", "y")

	want := []protocol.Patch{
		{Op: protocol.PatchHTML, ID: root.ID(), Value: `<span class="y">b</span>`},
	}
	if diff := cmp.Diff(want, flushed(t, set)); diff != "" {
		t.Errorf("patches mismatch (-want +got):\n%s", diff)
	}
}
