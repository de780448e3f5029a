// Package associative implements the next-character suggestion tree. Leaves
// carry corpus frequencies, internal nodes the sum of their descendant leaves,
// and every node ranks its children by that aggregate score.
package associative

import (
	"sort"
)

// DefaultThreshold is the minimum corpus frequency a sequence needs to be
// kept by the Builder.
const DefaultThreshold = 100

// MaxContext is the number of trailing characters Suggest looks at.
const MaxContext = 2

// Node is one character of a sequence. Nodes are mutable only until the tree
// that owns them is frozen.
type Node struct {
	key       rune
	score     int
	childKeys []rune
	children  map[rune]*Node
	ranked    []rune
}

// NewRoot returns an empty root node.
func NewRoot() *Node {
	return &Node{children: make(map[rune]*Node)}
}

// Key returns the node's character.
func (n *Node) Key() rune { return n.key }

// Score returns the node's score.
func (n *Node) Score() int { return n.score }

// SetScore overwrites the node's score.
func (n *Node) SetScore(score int) { n.score = score }

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.childKeys) == 0 }

// AddChild returns the child for r, creating it if absent.
func (n *Node) AddChild(r rune) *Node {
	if child, ok := n.children[r]; ok {
		return child
	}
	child := &Node{key: r, children: make(map[rune]*Node)}
	n.children[r] = child
	n.childKeys = append(n.childKeys, r)
	return child
}

// Child returns the direct child for r.
func (n *Node) Child(r rune) (*Node, bool) {
	child, ok := n.children[r]
	return child, ok
}

// Children returns the children in insertion order.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.childKeys))
	for i, r := range n.childKeys {
		out[i] = n.children[r]
	}
	return out
}

// RankedKeys returns child characters by descending score. The slice must
// not be modified.
func (n *Node) RankedKeys() []rune {
	if n.ranked == nil && len(n.childKeys) > 0 {
		n.rank()
	}
	return n.ranked
}

func (n *Node) rank() {
	order := make([]rune, len(n.childKeys))
	copy(order, n.childKeys)
	sort.SliceStable(order, func(i, j int) bool {
		return n.children[order[i]].score > n.children[order[j]].score
	})
	n.ranked = order
}

// Tree is a frozen associative tree, safe for concurrent reads.
type Tree struct {
	root  *Node
	nodes int
}

// Freeze computes every node's ranking cache and wraps root as a read-only
// tree. Scores are taken as they are; use Builder to aggregate raw
// frequencies first.
func Freeze(root *Node) *Tree {
	t := &Tree{root: root}
	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		t.nodes++
		n.rank()
		stack = append(stack, n.Children()...)
	}
	return t
}

// Root returns the root node.
func (t *Tree) Root() *Node { return t.root }

// NodeCount returns the number of nodes including the root.
func (t *Tree) NodeCount() int { return t.nodes }

// Suggest returns the characters most likely to follow chars, best first.
// Only the last MaxContext characters are used. Unknown sequences and empty
// input yield nil.
func (t *Tree) Suggest(chars string) []string {
	tail := []rune(chars)
	if len(tail) == 0 || t == nil {
		return nil
	}
	if len(tail) > MaxContext {
		tail = tail[len(tail)-MaxContext:]
	}
	current := t.root
	for _, r := range tail {
		next, ok := current.Child(r)
		if !ok {
			return nil
		}
		current = next
	}
	keys := current.RankedKeys()
	out := make([]string, len(keys))
	for i, r := range keys {
		out[i] = string(r)
	}
	return out
}

// Builder accumulates corpus sequences and produces a frozen Tree.
type Builder struct {
	threshold int
	root      *Node
	seen      map[string]struct{}
	kept      int
	dropped   int
}

// NewBuilder returns a builder that keeps sequences whose frequency is at
// least threshold. A threshold below one uses DefaultThreshold.
func NewBuilder(threshold int) *Builder {
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	return &Builder{threshold: threshold, root: NewRoot(), seen: make(map[string]struct{})}
}

// Add records seq with its corpus frequency and reports whether it was kept.
// A repeated sequence replaces the earlier frequency and is counted once.
func (b *Builder) Add(seq string, frequency int) bool {
	if seq == "" || frequency < b.threshold {
		b.dropped++
		return false
	}
	current := b.root
	for _, r := range seq {
		current = current.AddChild(r)
	}
	current.SetScore(frequency)
	if _, dup := b.seen[seq]; !dup {
		b.seen[seq] = struct{}{}
		b.kept++
	}
	return true
}

// Kept returns the number of sequences accepted so far.
func (b *Builder) Kept() int { return b.kept }

// Dropped returns the number of sequences rejected so far.
func (b *Builder) Dropped() int { return b.dropped }

// Build aggregates scores bottom-up and freezes the tree. The builder must
// not be used afterwards.
func (b *Builder) Build() *Tree {
	aggregate(b.root)
	return Freeze(b.root)
}

// aggregate sets every internal node's score to the sum of its children's
// aggregated scores; leaves keep their frequency.
func aggregate(n *Node) int {
	if n.IsLeaf() {
		return n.score
	}
	sum := 0
	for _, child := range n.Children() {
		sum += aggregate(child)
	}
	n.score = sum
	return sum
}
