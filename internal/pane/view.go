package pane

import (
	"fmt"

	"github.com/Nomadcxx/swipesort/internal/pathtree"
)

// View renders one shared tree into a navigation pane and a target pane.
// Each pane owns its State; nothing done in one pane touches the other.
type View struct {
	Tree      *pathtree.Tree
	Nav       *State
	Target    *State
	ActiveDir string
}

// NewView builds fresh pane states for tree. The navigation pane gets the
// auto-expand treatment for activeDir; any earlier manual toggles are gone
// because states are always rebuilt from scratch.
func NewView(tree *pathtree.Tree, activeDir string) *View {
	v := &View{
		Tree:      tree,
		Nav:       NewState(),
		Target:    NewState(),
		ActiveDir: activeDir,
	}
	AutoExpand(tree, v.Nav, activeDir)
	return v
}

// AutoExpand expands the ancestor chain of activeDir, selects it and
// recursively expands all of its descendants. It returns false when
// activeDir is not in the tree, leaving state untouched.
func AutoExpand(tree *pathtree.Tree, state *State, activeDir string) bool {
	node, ok := tree.Find(activeDir)
	if !ok || activeDir == "" {
		return false
	}

	for _, p := range pathtree.Ancestors(activeDir) {
		state.Expand(p)
	}
	state.Expand(node.FullPath)
	for _, d := range pathtree.Descendants(node) {
		state.Expand(d.FullPath)
	}
	state.Selected = node.FullPath
	return true
}

// State returns the state owned by the given pane
func (v *View) State(k Kind) *State {
	if k == Target {
		return v.Target
	}
	return v.Nav
}

// Toggle flips expansion of fullPath in pane k only
func (v *View) Toggle(k Kind, fullPath string) (bool, error) {
	n, ok := v.Tree.Find(fullPath)
	if !ok {
		return false, fmt.Errorf("unknown folder %q", fullPath)
	}
	if !n.HasChildren() {
		return false, nil
	}
	return v.State(k).Toggle(fullPath), nil
}

// Selection describes what a select click asks the session to do
type Selection struct {
	Pane Kind
	Path string
	// Navigate is set for navigation pane selects: the session must be
	// reloaded for Path instead of being updated in place.
	Navigate bool
}

// Select handles a click on a node body in pane k
func (v *View) Select(k Kind, fullPath string) (Selection, error) {
	if _, ok := v.Tree.Find(fullPath); !ok {
		return Selection{}, fmt.Errorf("unknown folder %q", fullPath)
	}

	if k == Navigation {
		return Selection{Pane: Navigation, Path: fullPath, Navigate: true}, nil
	}

	v.Target.Selected = fullPath
	return Selection{Pane: Target, Path: fullPath}, nil
}

// TargetFolder returns the destination chosen in the target pane
func (v *View) TargetFolder() (string, bool) {
	return v.Target.Selected, v.Target.HasSelection()
}

// Rows renders pane k
func (v *View) Rows(k Kind) []Row {
	return Render(v.Tree, v.State(k))
}
