package search

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/trie"
)

const (
	takeFraction = 0.3
	takeCeiling  = 5
)

// frontierItem is a node reached with a cumulative edge score over a path of
// the given length. The search root counts as length 1 and contributes its
// own incoming edge score.
type frontierItem struct {
	node   *trie.Node
	total  int
	length int
	seq    int
}

// better reports whether a ranks strictly ahead of b by normalized score.
func (a frontierItem) better(b frontierItem) bool {
	return a.total*b.length > b.total*a.length
}

type frontier []frontierItem

func (f frontier) Len() int { return len(f) }

func (f frontier) Less(i, j int) bool {
	if f[i].better(f[j]) {
		return true
	}
	if f[j].better(f[i]) {
		return false
	}
	return f[i].seq < f[j].seq
}

func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }

func (f *frontier) Push(x any) { *f = append(*f, x.(frontierItem)) }

func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	item := old[n-1]
	*f = old[:n-1]
	return item
}

type bestScore struct {
	total  int
	length int
}

// enumerate lists the terminal nodes under root (root included) in best-first
// order. The frontier is keyed by the running average of edge scores from the
// root, starting with the score of the edge into root itself; equal averages
// fall back to push order, which keeps the enumeration deterministic for a
// fixed tree.
func enumerate(root *trie.Node) []*trie.Node {
	var (
		result  []*trie.Node
		emitted = make(map[*trie.Node]bool)
		best    = make(map[*trie.Node]bestScore)
		queue   = &frontier{}
		seq     int
	)
	self := root.Score()
	heap.Push(queue, frontierItem{node: root, total: self, length: 1, seq: seq})
	best[root] = bestScore{total: self, length: 1}

	for queue.Len() > 0 {
		item := heap.Pop(queue).(frontierItem)
		recorded := best[item.node]
		if (frontierItem{total: recorded.total, length: recorded.length}).better(item) {
			continue
		}
		if item.node.IsTerminal() && !emitted[item.node] {
			emitted[item.node] = true
			result = append(result, item.node)
		}
		for _, child := range item.node.RankedChildren() {
			next := frontierItem{
				node:   child.Node,
				total:  item.total + child.Score,
				length: item.length + 1,
			}
			prev, seen := best[child.Node]
			if seen && !next.better(frontierItem{total: prev.total, length: prev.length}) {
				continue
			}
			seq++
			next.seq = seq
			best[child.Node] = bestScore{total: next.total, length: next.length}
			heap.Push(queue, next)
		}
	}
	return result
}

// takeCount is how many top candidates a node visited by the best-first
// strategy contributes: 30% of its list, at least one and at most five,
// further bounded by maxPerNode when positive.
func takeCount(candidates int, maxPerNode int) int {
	n := int(float64(candidates) * takeFraction)
	if n > takeCeiling {
		n = takeCeiling
	}
	if n < 1 {
		n = 1
	}
	if maxPerNode > 0 && n > maxPerNode {
		n = maxPerNode
	}
	return n
}
