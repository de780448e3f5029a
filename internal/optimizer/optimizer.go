// Package optimizer applies short-term reinforcement to the prefix tree after
// a candidate is chosen: the word is promoted on its node and every edge on
// the path leading to it is promoted on its ancestor.
package optimizer

import (
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/search"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/trie"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/metrics"
)

// PathOptimizer promotes chosen candidates along their full path.
type PathOptimizer struct {
	tree    *trie.Tree
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a PathOptimizer over tree. m may be nil.
func New(tree *trie.Tree, m *metrics.Metrics) *PathOptimizer {
	return &PathOptimizer{
		tree:    tree,
		metrics: m,
		logger:  slog.Default().With("component", "path-optimizer"),
	}
}

type edge struct {
	key      rune
	ancestor *trie.Node
}

// Promote reinforces word on the node at path and every edge leading there.
// It reports false and changes nothing when the path does not fully resolve,
// the end node is not terminal, or word is not one of its candidates.
func (o *PathOptimizer) Promote(path []rune, word string) bool {
	if o.tree == nil || len(path) == 0 {
		return o.skipped(path, word, "empty")
	}

	edges := make([]edge, 0, len(path))
	current := o.tree.Root()
	for _, r := range path {
		next, ok := current.Child(r)
		if !ok {
			return o.skipped(path, word, "unresolved")
		}
		edges = append(edges, edge{key: r, ancestor: current})
		current = next
	}

	if !current.IsTerminal() || !current.PromoteCandidate(word) {
		return o.skipped(path, word, "absent")
	}
	for _, e := range edges {
		e.ancestor.PromoteChild(e.key)
	}

	if o.metrics != nil {
		o.metrics.PromotionsTotal.WithLabelValues("applied").Inc()
	}
	o.logger.Debug("path promoted", "path", string(path), "word", word, "edges", len(edges))
	return true
}

// PromotePair is Promote for a boundary candidate pair.
func (o *PathOptimizer) PromotePair(pair search.CandidatePair) bool {
	return o.Promote([]rune(pair.Path), pair.Word)
}

func (o *PathOptimizer) skipped(path []rune, word, reason string) bool {
	if o.metrics != nil {
		o.metrics.PromotionsTotal.WithLabelValues("skipped").Inc()
	}
	o.logger.Debug("promotion skipped", "path", string(path), "word", word, "reason", reason)
	return false
}
