package gnureport

import (
	"sort"
	"strings"
)

// PathSeparator delimits the levels of a hierarchical account path, as in
// "Assets:Investments:Brokerage".
const PathSeparator = ":"

// parentPath returns the path one level up, or "" for a top-level account.
func parentPath(path string) string {
	if i := strings.LastIndex(path, PathSeparator); i >= 0 {
		return path[:i]
	}
	return ""
}

// pathDepth counts the hierarchy levels below the top (0 for a top-level
// account).
func pathDepth(path string) int { return strings.Count(path, PathSeparator) }

// lastSegment returns the trailing segment of an account path.
func lastSegment(path string) string {
	if i := strings.LastIndex(path, PathSeparator); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Node is one account in a tree, accumulating one value per calendar month.
// Every value added to a node is also added to all of its ancestors, so a
// node's monthly sum always covers its whole subtree.
type Node[A Amount[A]] struct {
	Path   string
	Parent *Node[A] // nil for the tree root
	Sums   map[Month]A
}

// Sum returns the accumulated value for the given month. A month never
// touched yields the zero value.
func (n *Node[A]) Sum(m Month) A { return n.Sums[m] }

// Tree is an arena of account nodes keyed by full path, built lazily from
// unordered input. For every node present, all of its managed ancestors are
// present too.
type Tree[A Amount[A]] struct {
	nodes map[string]*Node[A]
}

// NewTree returns an empty tree.
func NewTree[A Amount[A]]() *Tree[A] {
	return &Tree[A]{nodes: make(map[string]*Node[A])}
}

// Node returns the node for a full path, or nil if the path was never seen.
func (t *Tree[A]) Node(path string) *Node[A] { return t.nodes[path] }

// Len returns the number of accounts tracked.
func (t *Tree[A]) Len() int { return len(t.nodes) }

// Ensure materializes the node for path, creating any missing ancestors that
// still satisfy the managed predicate and linking parents on the way back
// down. It is idempotent: repeated calls for paths sharing a prefix reuse
// the existing nodes, and a node is never re-parented once linked.
func (t *Tree[A]) Ensure(path string, managed func(path string) bool) *Node[A] {
	if n, ok := t.nodes[path]; ok {
		return n
	}

	// Walk upward collecting every still-managed ancestor onto a stack.
	var stack []*Node[A]
	for p := path; p != "" && managed(p); p = parentPath(p) {
		n, ok := t.nodes[p]
		if !ok {
			n = &Node[A]{Path: p, Sums: make(map[Month]A)}
			t.nodes[p] = n
		}
		stack = append(stack, n)
	}

	// Unwind the stack assigning each node's parent to the next one below.
	for len(stack) >= 2 {
		top := len(stack) - 1
		stack[top-1].Parent = stack[top]
		stack = stack[:top]
	}

	return t.nodes[path]
}

// Accumulate adds amount into the monthly sum of the node for path and of
// every ancestor up to the tree root, creating nodes via Ensure as needed.
func (t *Tree[A]) Accumulate(path string, m Month, amount A, managed func(path string) bool) {
	n := t.Ensure(path, managed)
	for ; n != nil; n = n.Parent {
		n.Sums[m] = n.Sums[m].Add(amount)
	}
}

// Root returns the unique node with the fewest hierarchy levels. It returns
// an AmbiguousRootError when more than one account sits at the minimal
// depth, and nil when the tree is empty.
func (t *Tree[A]) Root() (*Node[A], error) {
	minDepth := -1
	var roots []string
	for path := range t.nodes {
		switch depth := pathDepth(path); {
		case minDepth < 0 || depth < minDepth:
			minDepth = depth
			roots = roots[:0]
			roots = append(roots, path)
		case depth == minDepth:
			roots = append(roots, path)
		}
	}
	if len(roots) > 1 {
		sort.Strings(roots)
		return nil, &AmbiguousRootError{Paths: roots}
	}
	if len(roots) == 0 {
		return nil, nil
	}
	return t.nodes[roots[0]], nil
}

// Walk calls fn for every node in lexical path order.
func (t *Tree[A]) Walk(fn func(n *Node[A])) {
	paths := make([]string, 0, len(t.nodes))
	for p := range t.nodes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		fn(t.nodes[p])
	}
}
