package pane

import (
	"reflect"
	"testing"

	"github.com/Nomadcxx/swipesort/internal/pathtree"
)

func paths(rows []Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.FullPath)
	}
	return out
}

func TestRenderCollapsedByDefault(t *testing.T) {
	tree := pathtree.Build([]string{"a/b", "c"})
	rows := Render(tree, NewState())

	if got := paths(rows); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Fatalf("rows = %v", got)
	}
	if rows[0].Glyph != GlyphClosed {
		t.Errorf("expected closed glyph, got %q", rows[0].Glyph)
	}
	if rows[1].Glyph != "" {
		t.Errorf("leaf should have no glyph, got %q", rows[1].Glyph)
	}
}

func TestToggleIsPerPane(t *testing.T) {
	tree := pathtree.Build([]string{"a/b", "c"})
	v := NewView(tree, "")

	open, err := v.Toggle(Target, "a")
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !open {
		t.Fatal("expected a to open")
	}

	if got := paths(v.Rows(Target)); !reflect.DeepEqual(got, []string{"a", "a/b", "c"}) {
		t.Errorf("target rows = %v", got)
	}
	if got := paths(v.Rows(Navigation)); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("navigation rows = %v", got)
	}
	if v.Rows(Target)[0].Glyph != GlyphOpen {
		t.Error("glyph should follow expanded set")
	}

	open, _ = v.Toggle(Target, "a")
	if open || v.Target.IsExpanded("a") {
		t.Error("second toggle should close a")
	}
	if v.Rows(Target)[0].Glyph != GlyphClosed {
		t.Error("glyph should be closed after second toggle")
	}
}

func TestToggleLeafIsNoop(t *testing.T) {
	v := NewView(pathtree.Build([]string{"a"}), "")
	open, err := v.Toggle(Navigation, "a")
	if err != nil || open {
		t.Errorf("Toggle leaf = %v, %v", open, err)
	}
	if _, err := v.Toggle(Navigation, "missing"); err == nil {
		t.Error("expected error for unknown folder")
	}
}

func TestAutoExpandActiveDirectory(t *testing.T) {
	tree := pathtree.Build([]string{"a/b/c/d/e", "a/b/c/f", "a/x", "z"})
	v := NewView(tree, "a/b/c")

	for _, p := range []string{"a", "a/b", "a/b/c", "a/b/c/d"} {
		if !v.Nav.IsExpanded(p) {
			t.Errorf("expected %s expanded", p)
		}
	}
	if v.Nav.IsExpanded("a/x") {
		t.Error("sibling outside the active chain should stay collapsed")
	}
	if v.Nav.Selected != "a/b/c" {
		t.Errorf("selected = %q", v.Nav.Selected)
	}

	rows := v.Rows(Navigation)
	want := []string{"a", "a/b", "a/b/c", "a/b/c/d", "a/b/c/d/e", "a/b/c/f", "a/x", "z"}
	if got := paths(rows); !reflect.DeepEqual(got, want) {
		t.Errorf("rows = %v, want %v", got, want)
	}
	if idx := Anchor(rows); idx != 2 {
		t.Errorf("anchor = %d, want 2", idx)
	}

	// Target pane is untouched by the navigation auto-expand
	if len(v.Target.Expanded) != 0 || v.Target.HasSelection() {
		t.Error("target pane should start empty")
	}
}

func TestAutoExpandIsIdempotent(t *testing.T) {
	tree := pathtree.Build([]string{"a/b/c", "a/d/e"})

	first := NewView(tree, "a/b")
	// Manual toggles are discarded by the rebuild
	first.Toggle(Navigation, "a/d")
	first.Toggle(Navigation, "a")

	second := NewView(tree, "a/b")
	third := NewView(tree, "a/b")

	if !reflect.DeepEqual(second.Nav, third.Nav) {
		t.Error("rebuilding with the same inputs should reproduce the same state")
	}
	if second.Nav.IsExpanded("a/d") {
		t.Error("manual toggle must not survive a rebuild")
	}
}

func TestAutoExpandMissingDirectory(t *testing.T) {
	v := NewView(pathtree.Build([]string{"a/b"}), "nope")
	if len(v.Nav.Expanded) != 0 || v.Nav.HasSelection() {
		t.Error("unknown active directory should leave the pane collapsed")
	}
	if Anchor(v.Rows(Navigation)) != -1 {
		t.Error("no anchor expected")
	}
}

func TestSelectTargetIndependentOfNavigation(t *testing.T) {
	tree := pathtree.Build([]string{"movies/keep", "movies/trash", "inbox"})
	v := NewView(tree, "inbox")

	sel, err := v.Select(Target, "movies/keep")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel.Navigate {
		t.Error("target select must not navigate")
	}

	target, ok := v.TargetFolder()
	if !ok || target != "movies/keep" {
		t.Errorf("target = %q, %v", target, ok)
	}
	if v.Nav.Selected != "inbox" {
		t.Errorf("navigation selection changed to %q", v.Nav.Selected)
	}

	// Only one row selected per pane
	count := 0
	for _, r := range v.Rows(Target) {
		if r.Selected {
			count++
		}
	}
	if count > 1 {
		t.Errorf("expected at most one selected row, got %d", count)
	}
}

func TestSelectNavigationRequestsReload(t *testing.T) {
	tree := pathtree.Build([]string{"a", "b"})
	v := NewView(tree, "a")

	sel, err := v.Select(Navigation, "b")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !sel.Navigate || sel.Path != "b" {
		t.Errorf("selection = %+v", sel)
	}
	// The view itself is not patched; the session rebuilds it
	if v.Nav.Selected != "a" {
		t.Errorf("navigation state should be untouched, got %q", v.Nav.Selected)
	}
	if _, ok := v.TargetFolder(); ok {
		t.Error("navigation select must not set a target")
	}
}
