package search

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/trie"
)

func benchTree(branches, words int) *trie.Tree {
	t := trie.New()
	for a := 0; a < branches; a++ {
		for b := 0; b < branches; b++ {
			for w := 0; w < words; w++ {
				t.Insert(fmt.Sprintf("1%d%d", a, b), fmt.Sprintf("w%d-%d-%d", a, b, w))
			}
		}
	}
	return t
}

// BenchmarkFirstPage measures the first best-first page for subtrees of
// growing width.
func BenchmarkFirstPage(b *testing.B) {
	for _, branches := range []int{3, 6, 10} {
		tree := benchTree(branches, 8)
		node, _ := tree.Lookup("1")
		b.Run(fmt.Sprintf("branches_%d", branches), func(b *testing.B) {
			s := NewSearcher(DefaultPageConfig(), nil)
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				s.Reset()
				_ = s.Page(node, Cursor{})
			}
		})
	}
}

// BenchmarkPageWalk measures paging forward through every candidate of a
// subtree.
func BenchmarkPageWalk(b *testing.B) {
	tree := benchTree(6, 8)
	node, _ := tree.Lookup("1")
	s := NewSearcher(DefaultPageConfig(), nil)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		s.Reset()
		p := s.Page(node, Cursor{})
		for p.HasNext {
			p = s.Page(node, p.Next)
		}
	}
}
