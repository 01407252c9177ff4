package pane

import (
	"github.com/Nomadcxx/swipesort/internal/pathtree"
)

// Kind identifies which pane a state belongs to
type Kind int

const (
	// Navigation picks the active working directory
	Navigation Kind = iota
	// Target picks the destination folder for accepted files
	Target
)

func (k Kind) String() string {
	switch k {
	case Navigation:
		return "navigation"
	case Target:
		return "target"
	default:
		return "unknown"
	}
}

// Expansion glyphs shown next to folders with children
const (
	GlyphClosed = "▸"
	GlyphOpen   = "▾"
)

// State is the expand/select state owned by exactly one pane
type State struct {
	Expanded map[string]bool `json:"expanded"`
	Selected string          `json:"selected,omitempty"`
}

// NewState returns an empty pane state
func NewState() *State {
	return &State{Expanded: make(map[string]bool)}
}

// IsExpanded reports whether fullPath is expanded in this pane
func (s *State) IsExpanded(fullPath string) bool {
	return s.Expanded[fullPath]
}

// Toggle flips expansion of fullPath and returns the new value
func (s *State) Toggle(fullPath string) bool {
	if s.Expanded[fullPath] {
		delete(s.Expanded, fullPath)
		return false
	}
	s.Expanded[fullPath] = true
	return true
}

// Expand marks fullPath expanded
func (s *State) Expand(fullPath string) {
	s.Expanded[fullPath] = true
}

// HasSelection reports whether a path is selected
func (s *State) HasSelection() bool {
	return s.Selected != ""
}

// Row is one visible line of a rendered pane
type Row struct {
	Depth    int
	Name     string
	FullPath string
	Glyph    string // empty for leaves
	Selected bool
}

// Render flattens the visible part of tree for state. Only children of
// expanded nodes are emitted. The glyph is derived from state, so it
// always matches the expanded set.
func Render(tree *pathtree.Tree, state *State) []Row {
	var rows []Row
	tree.Walk(func(n *pathtree.Node, depth int) bool {
		row := Row{
			Depth:    depth,
			Name:     n.Name,
			FullPath: n.FullPath,
			Selected: state.Selected != "" && state.Selected == n.FullPath,
		}
		open := state.IsExpanded(n.FullPath)
		if n.HasChildren() {
			row.Glyph = GlyphClosed
			if open {
				row.Glyph = GlyphOpen
			}
		}
		rows = append(rows, row)
		return open
	})
	return rows
}

// Anchor returns the index of the selected row, or -1
func Anchor(rows []Row) int {
	for i, r := range rows {
		if r.Selected {
			return i
		}
	}
	return -1
}
