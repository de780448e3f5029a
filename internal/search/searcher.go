// Package search produces ranked, paginated candidate pages for a resolved
// prefix-tree node. Pure leaves are sliced directly; every other node is
// expanded best-first and its pages are cached per resolved root.
package search

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/trie"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/metrics"
)

// Searcher is not shared between sessions: its caches belong to the one
// resolved root it last served.
type Searcher struct {
	mu      sync.Mutex
	cfg     PageConfig
	metrics *metrics.Metrics
	logger  *slog.Logger

	root        *trie.Node
	rootPath    string
	enumeration []*trie.Node
	pages       []Page
}

// NewSearcher creates a Searcher. m may be nil.
func NewSearcher(cfg PageConfig, m *metrics.Metrics) *Searcher {
	return &Searcher{
		cfg:     cfg.normalized(),
		metrics: m,
		logger:  slog.Default().With("component", "candidate-search"),
	}
}

// Config returns the page configuration in use.
func (s *Searcher) Config() PageConfig {
	return s.cfg
}

// Reset drops the cached enumeration and pages.
func (s *Searcher) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Searcher) resetLocked() {
	s.root = nil
	s.rootPath = ""
	s.enumeration = nil
	s.pages = nil
}

// StrategyFor reports which strategy Page will use for node.
func StrategyFor(node *trie.Node) Strategy {
	if node.IsTerminal() && !node.HasChildren() {
		return StrategyDirect
	}
	return StrategyBestFirst
}

// Page returns the page addressed by cursor for node. Negative page numbers
// clamp to the first page. A nil node yields an empty page.
func (s *Searcher) Page(node *trie.Node, cursor Cursor) Page {
	if node == nil {
		return Page{}
	}
	if cursor.Page < 0 {
		cursor = Cursor{}
	}
	start := time.Now()
	strategy := StrategyFor(node)

	var page Page
	if strategy == StrategyDirect {
		page = s.direct(node, cursor)
	} else {
		page = s.bestFirst(node, cursor)
	}

	if s.metrics != nil {
		s.metrics.PagesTotal.WithLabelValues(string(strategy)).Inc()
		s.metrics.PageLatency.WithLabelValues(string(strategy)).Observe(time.Since(start).Seconds())
	}
	s.logger.Debug("candidate page produced",
		"path", node.PathString(),
		"strategy", strategy,
		"page", page.Number,
		"returned", len(page.Candidates),
		"has_next", page.HasNext,
	)
	return page
}

func (s *Searcher) direct(node *trie.Node, cursor Cursor) Page {
	size := s.cfg.PageSize
	total := node.CandidateCount()
	startIdx := cursor.Page * size
	page := Page{
		Number: cursor.Page,
		Next:   Cursor{Page: cursor.Page + 1},
	}
	if startIdx >= total {
		return page
	}
	words := node.OrderedCandidates(startIdx, size)
	path := node.FullPath()
	page.Candidates = make([]CandidateDetail, len(words))
	for i, w := range words {
		page.Candidates[i] = CandidateDetail{
			Word:      w,
			Path:      path,
			WordIndex: startIdx + i,
		}
	}
	page.HasNext = startIdx+len(words) < total
	return page
}

func (s *Searcher) bestFirst(node *trie.Node, cursor Cursor) Page {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.root != node || s.rootPath != node.PathString() {
		s.resetLocked()
		s.root = node
		s.rootPath = node.PathString()
		s.enumeration = enumerate(node)
		s.logger.Debug("best-first enumeration built",
			"path", s.rootPath,
			"terminal_nodes", len(s.enumeration),
		)
	}

	if cursor.Page < len(s.pages) {
		if s.metrics != nil {
			s.metrics.PageCacheHitsTotal.Inc()
		}
		return s.pages[cursor.Page]
	}

	for len(s.pages) <= cursor.Page {
		from := Cursor{Page: len(s.pages)}
		if len(s.pages) > 0 {
			last := s.pages[len(s.pages)-1]
			if !last.HasNext {
				return Page{Number: cursor.Page, Next: Cursor{Page: cursor.Page + 1}}
			}
			from = last.Next
		}
		if cursor.Page == len(s.pages) && (cursor.NodeIndex > 0 || cursor.Emitted > 0) {
			from = cursor
		}
		s.pages = append(s.pages, s.forward(from))
	}
	return s.pages[cursor.Page]
}

// forward materializes one page starting at from.
func (s *Searcher) forward(from Cursor) Page {
	size := s.cfg.PageSize
	out := make([]CandidateDetail, 0, size)
	ni, emitted := from.NodeIndex, from.Emitted

	for ni < len(s.enumeration) && len(out) < size {
		node := s.enumeration[ni]
		words := node.OrderedCandidates(0, takeCount(node.CandidateCount(), s.cfg.MaxPerNode))
		if emitted < len(words) {
			path := node.FullPath()
			for emitted < len(words) && len(out) < size {
				out = append(out, CandidateDetail{
					Word:      words[emitted],
					Path:      path,
					WordIndex: emitted,
					NodeIndex: ni,
				})
				emitted++
			}
		}
		if emitted >= len(words) {
			ni++
			emitted = 0
		}
	}

	// Every enumerated node is terminal and contributes at least one word, so
	// any node left at or after ni means more candidates follow.
	return Page{
		Candidates: out,
		HasNext:    ni < len(s.enumeration),
		Number:     from.Page,
		Next:       Cursor{NodeIndex: ni, Emitted: emitted, Page: from.Page + 1},
	}
}
