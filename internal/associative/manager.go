package associative

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	apperrors "github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/metrics"
)

// Source produces a tree, typically by decoding an asset file. It should
// return promptly once ctx is cancelled.
type Source func(ctx context.Context) (*Tree, error)

// Manager owns the suggestion tree and loads it in the background. Until a
// load succeeds every suggestion is empty.
type Manager struct {
	source  Source
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu      sync.RWMutex
	tree    *Tree
	err     error
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewManager creates a Manager reading from source. m may be nil.
func NewManager(source Source, m *metrics.Metrics) *Manager {
	return &Manager{
		source:  source,
		metrics: m,
		logger:  slog.Default().With("component", "associative-manager"),
	}
}

// Start begins loading in a background goroutine. Calls after the first, or
// once the tree is ready, do nothing.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started || m.tree != nil {
		m.mu.Unlock()
		return
	}
	loadCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.started = true
	done := m.done
	m.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		if err := m.Load(loadCtx); err != nil {
			m.logger.Error("associative tree load failed", "error", err)
		}
	}()
}

// Load runs the source synchronously. Concurrent calls share one load.
func (m *Manager) Load(ctx context.Context) error {
	_, err, _ := m.group.Do("associative", func() (interface{}, error) {
		if m.Ready() {
			return nil, nil
		}
		start := time.Now()
		tree, err := m.source(ctx)
		if err == nil && tree == nil {
			err = fmt.Errorf("source returned no tree")
		}
		if err == nil {
			err = ctx.Err()
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		if err != nil {
			m.err = err
			m.observe("error")
			return nil, err
		}
		m.tree = tree
		m.err = nil
		m.observe("ok")
		m.logger.Info("associative tree ready",
			"nodes", tree.NodeCount(),
			"duration", time.Since(start),
		)
		return nil, nil
	})
	return err
}

func (m *Manager) observe(status string) {
	if m.metrics != nil {
		m.metrics.AssetLoadsTotal.WithLabelValues("associative", status).Inc()
	}
}

// Cancel abandons an in-flight background load. A load that finishes after
// Cancel leaves the tree unset.
func (m *Manager) Cancel() {
	m.mu.RLock()
	cancel := m.cancel
	m.mu.RUnlock()
	if cancel != nil {
		cancel()
		m.logger.Info("associative tree loading cancelled")
	}
}

// Ready reports whether a tree is installed.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree != nil
}

// Wait blocks until the background load finishes or ctx is done. It returns
// nil once the tree is ready, the load error otherwise.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.RLock()
	done, ready := m.done, m.tree != nil
	m.mu.RUnlock()
	if ready {
		return nil
	}
	if done == nil {
		return apperrors.ErrNotReady
	}
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.tree != nil {
		return nil
	}
	if m.err != nil {
		return m.err
	}
	return apperrors.ErrNotReady
}

// Suggest returns ranked next characters for the last two runes of chars,
// or nil while the tree is not ready.
func (m *Manager) Suggest(chars string) []string {
	m.mu.RLock()
	tree := m.tree
	m.mu.RUnlock()

	outcome := "hit"
	var out []string
	switch {
	case tree == nil:
		outcome = "not_ready"
		m.logger.Debug("associative tree not ready")
	default:
		out = tree.Suggest(chars)
		if len(out) == 0 {
			outcome = "miss"
		}
	}
	if m.metrics != nil {
		m.metrics.SuggestionsTotal.WithLabelValues(outcome).Inc()
	}
	return out
}
