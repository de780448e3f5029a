package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/search"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/trie"
)

// Session holds the resolved node and pagination cursor of one input
// session. Its methods are safe for concurrent use.
type Session struct {
	id       string
	engine   *Engine
	searcher *search.Searcher
	logger   *slog.Logger

	mu      sync.Mutex
	input   string
	node    *trie.Node
	symbols []string
	cursor  search.Cursor
	last    search.Page
	hasLast bool
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Input returns the last code passed to SetInput.
func (s *Session) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// Symbols returns the next-symbol hint of the current input.
func (s *Session) Symbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.symbols
}

// SetInput resolves code and resets pagination. It returns the wildcard for
// terminal nodes, the ranked child symbols for internal nodes, and false when
// code does not resolve.
func (s *Session) SetInput(code string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.input = code
	s.node = nil
	s.symbols = nil
	s.cursor = search.Cursor{}
	s.last = search.Page{}
	s.hasLast = false
	s.searcher.Reset()

	if !s.engine.Enabled() || code == "" {
		s.engine.countLookup("miss")
		return nil, false
	}
	node, ok := s.engine.tree.Lookup(code)
	if !ok {
		s.engine.countLookup("miss")
		s.logger.Debug("input did not resolve", "code", code)
		return nil, false
	}

	s.node = node
	s.symbols = trie.NextSymbols(node)
	if node.IsTerminal() {
		s.engine.countLookup("terminal")
	} else {
		s.engine.countLookup("internal")
	}
	return s.symbols, true
}

// CurrentPage returns the page at the session's cursor.
func (s *Session) CurrentPage() search.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked()
}

func (s *Session) currentLocked() search.Page {
	if s.node == nil {
		return search.Page{}
	}
	s.last = s.searcher.Page(s.node, s.cursor)
	s.hasLast = true
	return s.last
}

// NextPage advances to the page after the last one returned, or wraps to the
// first page when there is none.
func (s *Session) NextPage() search.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.node == nil {
		return search.Page{}
	}
	if !s.hasLast {
		s.currentLocked()
	}
	if s.last.HasNext {
		s.cursor = s.last.Next
	} else {
		s.cursor = search.Cursor{}
	}
	return s.currentLocked()
}

// PrevPage steps back one page. At the first page it re-issues the first
// page.
func (s *Session) PrevPage() search.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.node == nil {
		return search.Page{}
	}
	if s.cursor.Page-1 < 0 {
		s.cursor = search.Cursor{}
	} else {
		s.cursor = search.Cursor{Page: s.cursor.Page - 1}
	}
	return s.currentLocked()
}

// Select applies a chosen candidate: the prefix tree is reinforced along its
// path, the score store is bumped and observers are notified. It reports
// whether the tree changed.
func (s *Session) Select(ctx context.Context, pair search.CandidatePair) bool {
	if !s.engine.Promote(pair) {
		s.logger.Debug("selection ignored", "word", pair.Word, "path", pair.Path)
		return false
	}

	s.mu.Lock()
	page := s.cursor.Page
	// Rankings changed: cached pages and the cursor's continuation are stale.
	// The page number survives and is rebuilt from the new enumeration.
	s.searcher.Reset()
	s.cursor = search.Cursor{Page: page}
	s.hasLast = false
	s.mu.Unlock()

	s.engine.notify(ctx, Selection{
		SessionID: s.id,
		Pair:      pair,
		Page:      page,
		At:        time.Now(),
	})
	s.logger.Debug("candidate selected", "word", pair.Word, "path", pair.Path)
	return true
}
