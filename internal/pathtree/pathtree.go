package pathtree

import "strings"

// Separator splits folder paths into segments
const Separator = "/"

// Node is a single folder in the hierarchy
type Node struct {
	Name     string
	FullPath string

	children []*Node
	index    map[string]*Node
}

// Children returns child nodes in first-seen order
func (n *Node) Children() []*Node {
	return n.children
}

// HasChildren reports whether the node has any children
func (n *Node) HasChildren() bool {
	return len(n.children) > 0
}

// Child returns the child with the given segment name
func (n *Node) Child(name string) (*Node, bool) {
	c, ok := n.index[name]
	return c, ok
}

func (n *Node) child(name, fullPath string) *Node {
	if c, ok := n.index[name]; ok {
		return c
	}
	c := &Node{Name: name, FullPath: fullPath, index: make(map[string]*Node)}
	n.index[name] = c
	n.children = append(n.children, c)
	return c
}

// Tree is an immutable folder hierarchy built from a flat path list.
// It is rebuilt wholesale on reload, never patched.
type Tree struct {
	root       *Node
	byPath     map[string]*Node
	degenerate int
}

// Build converts a flat list of slash-delimited paths into a Tree.
// Sibling order follows the first occurrence of each segment in paths.
// Empty segments (leading, trailing or doubled separators) become nodes
// named "" rather than being rejected.
func Build(paths []string) *Tree {
	t := &Tree{
		root:   &Node{index: make(map[string]*Node)},
		byPath: make(map[string]*Node),
	}

	for _, p := range paths {
		parts := strings.Split(p, Separator)
		node := t.root
		for i, part := range parts {
			fullPath := strings.Join(parts[:i+1], Separator)
			if _, seen := node.index[part]; !seen && part == "" {
				t.degenerate++
			}
			node = node.child(part, fullPath)
			if _, ok := t.byPath[fullPath]; !ok {
				t.byPath[fullPath] = node
			}
		}
	}

	return t
}

// Roots returns the top-level nodes
func (t *Tree) Roots() []*Node {
	return t.root.children
}

// Find returns the node whose FullPath equals fullPath
func (t *Tree) Find(fullPath string) (*Node, bool) {
	n, ok := t.byPath[fullPath]
	return n, ok
}

// Len returns the number of nodes in the tree
func (t *Tree) Len() int {
	return len(t.byPath)
}

// Degenerate returns how many empty-named nodes the input produced
func (t *Tree) Degenerate() int {
	return t.degenerate
}

// Walk visits every node depth-first in sibling order. Returning false
// from fn skips that node's descendants.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	var walk func(nodes []*Node, depth int)
	walk = func(nodes []*Node, depth int) {
		for _, n := range nodes {
			if fn(n, depth) {
				walk(n.children, depth+1)
			}
		}
	}
	walk(t.root.children, 0)
}

// Descendants returns every node below n, depth-first
func Descendants(n *Node) []*Node {
	var out []*Node
	for _, c := range n.children {
		out = append(out, c)
		out = append(out, Descendants(c)...)
	}
	return out
}

// Ancestors returns the prefix chain of fullPath, excluding fullPath itself.
// "a/b/c" yields ["a", "a/b"].
func Ancestors(fullPath string) []string {
	parts := strings.Split(fullPath, Separator)
	out := make([]string, 0, len(parts)-1)
	for i := 1; i < len(parts); i++ {
		out = append(out, strings.Join(parts[:i], Separator))
	}
	return out
}
