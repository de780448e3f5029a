package trie

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Node is one input symbol in the prefix tree. A node may hold candidate words
// and children at the same time. Children are owned exclusively by their
// parent; the full path is fixed at creation.
//
// Ranking uses explicit integer scores for both child edges and candidates.
// Ordered views sort by descending score and keep insertion order among equal
// scores. They are cached and rebuilt after any score mutation.
type Node struct {
	key      rune
	fullPath []rune
	parent   *Node

	mu             sync.Mutex
	childKeys      []rune
	children       map[rune]*Node
	childScores    map[rune]int
	candidates     []string
	candidateIndex map[string]int
	candScores     map[string]int

	childOrder     []rune
	childDirty     bool
	candidateOrder []string
	candDirty      bool
}

func newNode(key rune, parent *Node) *Node {
	var path []rune
	if parent != nil {
		path = make([]rune, len(parent.fullPath)+1)
		copy(path, parent.fullPath)
		path[len(parent.fullPath)] = key
	}
	return &Node{
		key:        key,
		fullPath:   path,
		parent:     parent,
		children:   make(map[rune]*Node),
		childDirty: true,
		candDirty:  true,
	}
}

// Key returns the symbol this node represents. The root's key is RootKey.
func (n *Node) Key() rune {
	return n.key
}

// FullPath returns a copy of the symbols from the root to this node.
func (n *Node) FullPath() []rune {
	out := make([]rune, len(n.fullPath))
	copy(out, n.fullPath)
	return out
}

// PathString returns the full path as a string.
func (n *Node) PathString() string {
	return string(n.fullPath)
}

// Depth is the number of symbols on the path to this node.
func (n *Node) Depth() int {
	return len(n.fullPath)
}

// AddChild returns the child for r, creating and appending it if absent.
func (n *Node) AddChild(r rune) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	if child, ok := n.children[r]; ok {
		return child
	}
	child := newNode(r, n)
	n.children[r] = child
	n.childKeys = append(n.childKeys, r)
	n.childDirty = true
	return child
}

// AddCandidate appends word to the candidate list unless it is empty or
// already present.
func (n *Node) AddCandidate(word string) *Node {
	if word == "" {
		return n
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.candidateIndex[word]; ok {
		return n
	}
	if n.candidateIndex == nil {
		n.candidateIndex = make(map[string]int)
	}
	n.candidateIndex[word] = len(n.candidates)
	n.candidates = append(n.candidates, word)
	n.candDirty = true
	return n
}

// Child looks up the direct child for r.
func (n *Node) Child(r rune) (*Node, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	child, ok := n.children[r]
	return child, ok
}

// HasCandidate reports whether word is one of this node's candidates.
func (n *Node) HasCandidate(word string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.candidateIndex[word]
	return ok
}

// IsTerminal reports whether the node holds at least one candidate.
func (n *Node) IsTerminal() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.candidates) > 0
}

// HasChildren reports whether the node has any child.
func (n *Node) HasChildren() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.childKeys) > 0
}

// ChildCount returns the number of direct children.
func (n *Node) ChildCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.childKeys)
}

// CandidateCount returns the number of candidate words on this node.
func (n *Node) CandidateCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.candidates)
}

// Score returns the score of the edge leading into n, held by its parent.
// The root has no incoming edge and scores 0.
func (n *Node) Score() int {
	if n.parent == nil {
		return 0
	}
	return n.parent.ChildScore(n.key)
}

// ChildScore returns the ranking score of the edge to child r.
func (n *Node) ChildScore(r rune) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.childScores[r]
}

// SetChildScore overwrites the edge score of an existing child.
func (n *Node) SetChildScore(r rune, score int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.children[r]; !ok {
		return
	}
	n.setChildScoreLocked(r, score)
}

// PromoteChild raises the edge score of child r by one. Unknown children are
// ignored.
func (n *Node) PromoteChild(r rune) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.children[r]; !ok {
		return false
	}
	n.setChildScoreLocked(r, n.childScores[r]+1)
	return true
}

func (n *Node) setChildScoreLocked(r rune, score int) {
	if n.childScores == nil {
		n.childScores = make(map[rune]int)
	}
	n.childScores[r] = score
	n.childDirty = true
}

// CandidateScore returns the ranking score of word on this node.
func (n *Node) CandidateScore(word string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.candScores[word]
}

// SetCandidateScore overwrites the score of an existing candidate.
func (n *Node) SetCandidateScore(word string, score int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.candidateIndex[word]; !ok {
		return
	}
	n.setCandidateScoreLocked(word, score)
}

// PromoteCandidate raises the score of word by one. Words that are not
// candidates of this node are ignored.
func (n *Node) PromoteCandidate(word string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.candidateIndex[word]; !ok {
		return false
	}
	n.setCandidateScoreLocked(word, n.candScores[word]+1)
	return true
}

func (n *Node) setCandidateScoreLocked(word string, score int) {
	if n.candScores == nil {
		n.candScores = make(map[string]int)
	}
	n.candScores[word] = score
	n.candDirty = true
}

// OrderedChildKeys returns child symbols ranked by descending edge score.
// The returned slice must not be modified.
func (n *Node) OrderedChildKeys() []rune {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.orderedChildKeysLocked()
}

func (n *Node) orderedChildKeysLocked() []rune {
	if n.childDirty || n.childOrder == nil {
		order := make([]rune, len(n.childKeys))
		copy(order, n.childKeys)
		scores := n.childScores
		sort.SliceStable(order, func(i, j int) bool {
			return scores[order[i]] > scores[order[j]]
		})
		n.childOrder = order
		n.childDirty = false
	}
	return n.childOrder
}

// RankedChild is a child node paired with the score of the edge leading to it.
type RankedChild struct {
	Node  *Node
	Score int
}

// RankedChildren returns the children in ranking order together with their
// edge scores, read under a single lock.
func (n *Node) RankedChildren() []RankedChild {
	n.mu.Lock()
	defer n.mu.Unlock()
	order := n.orderedChildKeysLocked()
	out := make([]RankedChild, 0, len(order))
	for _, r := range order {
		out = append(out, RankedChild{Node: n.children[r], Score: n.childScores[r]})
	}
	return out
}

// FirstChild returns the highest ranked child, if any.
func (n *Node) FirstChild() (*Node, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	order := n.orderedChildKeysLocked()
	if len(order) == 0 {
		return nil, false
	}
	return n.children[order[0]], true
}

// OrderedCandidates returns up to limit ranked candidates starting at offset.
// A limit of zero or less returns everything after offset.
func (n *Node) OrderedCandidates(offset, limit int) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.candidates) == 0 {
		return nil
	}
	if n.candDirty || n.candidateOrder == nil {
		order := make([]string, len(n.candidates))
		copy(order, n.candidates)
		scores := n.candScores
		sort.SliceStable(order, func(i, j int) bool {
			return scores[order[i]] > scores[order[j]]
		})
		n.candidateOrder = order
		n.candDirty = false
	}
	return slice(n.candidateOrder, offset, limit)
}

func slice(list []string, offset, limit int) []string {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return nil
	}
	end := len(list)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]string, end-offset)
	copy(out, list[offset:end])
	return out
}

// Dump renders the node's raw children and candidates for debugging.
func (n *Node) Dump() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	keys := make([]string, len(n.childKeys))
	for i, r := range n.childKeys {
		keys[i] = string(r)
	}
	return fmt.Sprintf("Children: %s, Candidates: %s",
		strings.Join(keys, ", "), strings.Join(n.candidates, ", "))
}

// Snapshot copies the node's raw, insertion-ordered state. The asset codec
// serializes trees from snapshots so ranking caches never leak into blobs.
func (n *Node) Snapshot() NodeSnapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	st := NodeSnapshot{
		Children:        make([]ChildEdge, len(n.childKeys)),
		Candidates:      make([]string, len(n.candidates)),
		CandidateScores: make([]int, len(n.candidates)),
	}
	for i, r := range n.childKeys {
		st.Children[i] = ChildEdge{Key: r, Score: n.childScores[r], Node: n.children[r]}
	}
	for i, w := range n.candidates {
		st.Candidates[i] = w
		st.CandidateScores[i] = n.candScores[w]
	}
	return st
}

// NodeSnapshot is a point-in-time copy of a node's children and candidates
// in insertion order.
type NodeSnapshot struct {
	Children        []ChildEdge
	Candidates      []string
	CandidateScores []int
}

// ChildEdge describes one child edge of a snapshot.
type ChildEdge struct {
	Key   rune
	Score int
	Node  *Node
}
