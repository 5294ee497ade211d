// Package vtree keeps an in-memory view of a repository's file layout that is
// updated as files are created and deleted, and rebuilt from the remote
// listing after each batch of changes.
package vtree

import (
	"path"
	"sort"
	"strings"
)

// Node is a file (no children) or a directory (at least one child).
// Children are kept sorted by name.
type Node struct {
	Name     string  `json:"name"`
	Children []*Node `json:"children,omitempty"`
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

func (n *Node) child(name string) (int, bool) {
	i := sort.Search(len(n.Children), func(i int) bool {
		return n.Children[i].Name >= name
	})
	return i, i < len(n.Children) && n.Children[i].Name == name
}

// Tree is a virtual file tree rooted at the repository root.
type Tree struct {
	root *Node
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{root: &Node{}}
}

// FromPaths builds a tree containing every given file path.
func FromPaths(paths []string) *Tree {
	t := New()
	for _, p := range paths {
		t.Add(p)
	}
	return t
}

// Normalize cleans a repository path and strips leading "./" and "/".
// It returns "" for paths that do not name anything below the root.
func Normalize(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	if p == "" {
		return ""
	}
	p = strings.TrimLeft(path.Clean("/"+p), "/")
	if p == "." {
		return ""
	}
	return p
}

// Add inserts a file path, creating intermediate directories as needed.
// Adding an existing path is a no-op.
func (t *Tree) Add(p string) {
	p = Normalize(p)
	if p == "" {
		return
	}

	cur := t.root
	for _, seg := range strings.Split(p, "/") {
		i, ok := cur.child(seg)
		if !ok {
			n := &Node{Name: seg}
			cur.Children = append(cur.Children, nil)
			copy(cur.Children[i+1:], cur.Children[i:])
			cur.Children[i] = n
		}
		cur = cur.Children[i]
	}
}

// Remove deletes the node at p along with anything below it, then prunes
// ancestors left without children. It reports whether anything was removed.
func (t *Tree) Remove(p string) bool {
	p = Normalize(p)
	if p == "" {
		return false
	}
	return remove(t.root, strings.Split(p, "/"))
}

func remove(n *Node, segs []string) bool {
	i, ok := n.child(segs[0])
	if !ok {
		return false
	}

	if len(segs) > 1 {
		c := n.Children[i]
		if !remove(c, segs[1:]) {
			return false
		}
		if !c.IsLeaf() {
			return true
		}
	}

	n.Children = append(n.Children[:i], n.Children[i+1:]...)
	return true
}

// Contains reports whether p exists in the tree as a file or directory.
func (t *Tree) Contains(p string) bool {
	p = Normalize(p)
	if p == "" {
		return false
	}

	cur := t.root
	for _, seg := range strings.Split(p, "/") {
		i, ok := cur.child(seg)
		if !ok {
			return false
		}
		cur = cur.Children[i]
	}
	return true
}

// Root returns the root node. Callers must not modify it.
func (t *Tree) Root() *Node {
	return t.root
}

// Paths returns every leaf path in lexicographic tree order.
func (t *Tree) Paths() []string {
	var out []string
	var walk func(n *Node, prefix string)
	walk = func(n *Node, prefix string) {
		for _, c := range n.Children {
			p := c.Name
			if prefix != "" {
				p = prefix + "/" + c.Name
			}
			if c.IsLeaf() {
				out = append(out, p)
				continue
			}
			walk(c, p)
		}
	}
	walk(t.root, "")
	return out
}

// Len returns the number of leaves.
func (t *Tree) Len() int {
	return len(t.Paths())
}

// Render formats the tree as an indented listing, directories suffixed
// with "/", two spaces per level.
func (t *Tree) Render() string {
	var b strings.Builder
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		for _, c := range n.Children {
			b.WriteString(strings.Repeat("  ", depth))
			b.WriteString(c.Name)
			if !c.IsLeaf() {
				b.WriteString("/")
			}
			b.WriteString("\n")
			walk(c, depth+1)
		}
	}
	walk(t.root, 0)
	return b.String()
}
