// Package session drives candidate resolution for one input session at a
// time: it resolves typed codes against the prefix tree, pages through ranked
// candidates and feeds selections back into the ranking state.
package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/associative"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/optimizer"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/personal"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/search"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/trie"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/metrics"
)

// ScoreKeySeparator joins word and path into a long-term score key.
const ScoreKeySeparator = "|"

// Selection describes a candidate the user picked.
type Selection struct {
	SessionID string
	Pair      search.CandidatePair
	Page      int
	At        time.Time
}

// SelectionObserver is notified after a selection has been applied.
type SelectionObserver interface {
	ObserveSelection(ctx context.Context, sel Selection)
}

// Options wires optional collaborators into an Engine.
type Options struct {
	Paging      search.PageConfig
	Scores      *personal.Store
	Associative *associative.Manager
	Metrics     *metrics.Metrics
	Observer    SelectionObserver
}

// Engine is the composition root shared by all sessions. An engine built
// without a tree is disabled and answers every call with an empty result.
type Engine struct {
	tree      *trie.Tree
	optimizer *optimizer.PathOptimizer
	opts      Options
	logger    *slog.Logger
}

// NewEngine creates an Engine over tree. A nil tree yields a disabled engine.
func NewEngine(tree *trie.Tree, opts Options) *Engine {
	e := &Engine{
		tree:   tree,
		opts:   opts,
		logger: slog.Default().With("component", "session-engine"),
	}
	if tree != nil {
		e.optimizer = optimizer.New(tree, opts.Metrics)
	} else {
		e.logger.Warn("engine disabled: no prefix tree loaded")
	}
	return e
}

// Enabled reports whether a prefix tree is loaded.
func (e *Engine) Enabled() bool {
	return e.tree != nil
}

// Tree returns the prefix tree, nil when disabled.
func (e *Engine) Tree() *trie.Tree {
	return e.tree
}

// Scores returns the long-term score store, which may be nil.
func (e *Engine) Scores() *personal.Store {
	return e.opts.Scores
}

// Paging returns the page configuration given to new sessions.
func (e *Engine) Paging() search.PageConfig {
	return e.opts.Paging
}

// NewSession starts a session identified by id.
func (e *Engine) NewSession(id string) *Session {
	return &Session{
		id:       id,
		engine:   e,
		searcher: search.NewSearcher(e.opts.Paging, e.opts.Metrics),
		logger:   e.logger.With("session_id", id),
	}
}

// Promote reinforces pair in the prefix tree and records it in the score
// store. It reports whether the tree changed.
func (e *Engine) Promote(pair search.CandidatePair) bool {
	if !e.Enabled() {
		return false
	}
	if !e.optimizer.PromotePair(pair) {
		return false
	}
	if e.opts.Scores != nil {
		e.opts.Scores.Promote(ScoreKey(pair))
	}
	return true
}

// Suggest returns next-character suggestions, empty until the associative
// tree is ready.
func (e *Engine) Suggest(chars string) []string {
	if e.opts.Associative == nil {
		return nil
	}
	return e.opts.Associative.Suggest(chars)
}

// SuggestionsReady reports whether the associative tree has loaded.
func (e *Engine) SuggestionsReady() bool {
	return e.opts.Associative != nil && e.opts.Associative.Ready()
}

// ScoreKey is the long-term score key for pair.
func ScoreKey(pair search.CandidatePair) string {
	return pair.Word + ScoreKeySeparator + pair.Path
}

func (e *Engine) notify(ctx context.Context, sel Selection) {
	if e.opts.Observer != nil {
		e.opts.Observer.ObserveSelection(ctx, sel)
	}
}

func (e *Engine) countLookup(outcome string) {
	if e.opts.Metrics != nil {
		e.opts.Metrics.LookupsTotal.WithLabelValues(outcome).Inc()
	}
}
