// Package trie implements the phonetic prefix tree: one node per input
// symbol, candidate words on terminal nodes and score-based ranking of both
// child edges and candidates.
package trie

// RootKey is the placeholder symbol carried by the root node.
const RootKey = '|'

// Wildcard is returned as the only next symbol once a terminal node is
// reached, meaning no further input is required.
const Wildcard = "*"

// Tree owns the root of a prefix tree.
type Tree struct {
	root *Node
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{root: newNode(RootKey, nil)}
}

// Root returns the root node.
func (t *Tree) Root() *Node {
	return t.root
}

// Insert adds word under the path spelled by code. Empty codes or words are
// ignored.
func (t *Tree) Insert(code string, word string) *Node {
	if code == "" || word == "" {
		return nil
	}
	current := t.root
	for _, r := range code {
		current = current.AddChild(r)
	}
	current.AddCandidate(word)
	return current
}

// Lookup resolves code by descending one symbol at a time. A missing symbol
// yields (nil, false). The empty code resolves to the root.
func (t *Tree) Lookup(code string) (*Node, bool) {
	return t.LookupPath([]rune(code))
}

// LookupPath is Lookup over an already split symbol sequence.
func (t *Tree) LookupPath(path []rune) (*Node, bool) {
	current := t.root
	for _, r := range path {
		next, ok := current.Child(r)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// NextSymbols returns the hint shown after resolving node: the wildcard for
// terminal nodes, otherwise the ranked child symbols.
func NextSymbols(node *Node) []string {
	if node == nil {
		return nil
	}
	if node.IsTerminal() {
		return []string{Wildcard}
	}
	keys := node.OrderedChildKeys()
	out := make([]string, len(keys))
	for i, r := range keys {
		out[i] = string(r)
	}
	return out
}

// DescendCandidates resolves code, then follows the first-ranked child until
// a terminal node is reached and returns that node's ranked candidates.
func (t *Tree) DescendCandidates(code string, offset, limit int) []string {
	if code == "" {
		return nil
	}
	current, ok := t.Lookup(code)
	if !ok {
		return nil
	}
	for !current.IsTerminal() {
		next, ok := current.FirstChild()
		if !ok {
			return nil
		}
		current = next
	}
	return current.OrderedCandidates(offset, limit)
}

// Stats summarises tree size.
type Stats struct {
	Nodes      int `json:"nodes"`
	Terminals  int `json:"terminals"`
	Candidates int `json:"candidates"`
	MaxDepth   int `json:"max_depth"`
}

// Stats walks the whole tree.
func (t *Tree) Stats() Stats {
	var st Stats
	stack := []*Node{t.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		snap := n.Snapshot()
		st.Nodes++
		if len(snap.Candidates) > 0 {
			st.Terminals++
			st.Candidates += len(snap.Candidates)
		}
		if n.Depth() > st.MaxDepth {
			st.MaxDepth = n.Depth()
		}
		for _, edge := range snap.Children {
			stack = append(stack, edge.Node)
		}
	}
	return st
}

// Walk visits every node in pre-order. Children are visited in insertion
// order. Returning false from fn skips the node's subtree.
func (t *Tree) Walk(fn func(n *Node, snap NodeSnapshot) bool) {
	walk(t.root, fn)
}

func walk(n *Node, fn func(*Node, NodeSnapshot) bool) {
	snap := n.Snapshot()
	if !fn(n, snap) {
		return
	}
	for _, edge := range snap.Children {
		walk(edge.Node, fn)
	}
}
