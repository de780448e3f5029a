package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/personal"
	apperrors "github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/resilience"
)

const (
	DefaultInterval     = 30 * time.Second
	defaultFinalTimeout = 10 * time.Second
)

// Saver moves score store snapshots to and from a Sink.
type Saver struct {
	store        *personal.Store
	sink         Sink
	interval     time.Duration
	finalTimeout time.Duration
	retry        resilience.RetryConfig
	breaker      *resilience.CircuitBreaker
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// Option configures a Saver.
type Option func(*Saver)

// WithInterval sets the period between dirty checks.
func WithInterval(d time.Duration) Option {
	return func(s *Saver) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithRetry overrides the per-save retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(s *Saver) { s.retry = cfg }
}

// WithBreaker overrides the circuit breaker guarding the sink.
func WithBreaker(cfg resilience.CircuitBreakerConfig) Option {
	return func(s *Saver) { s.breaker = resilience.NewCircuitBreaker("snapshot-"+s.sink.Name(), cfg) }
}

// WithFinalTimeout bounds the save performed on shutdown.
func WithFinalTimeout(d time.Duration) Option {
	return func(s *Saver) {
		if d > 0 {
			s.finalTimeout = d
		}
	}
}

// WithMetrics records save outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Saver) { s.metrics = m }
}

// NewSaver creates a Saver for store and sink.
func NewSaver(store *personal.Store, sink Sink, opts ...Option) *Saver {
	s := &Saver{
		store:        store,
		sink:         sink,
		interval:     DefaultInterval,
		finalTimeout: defaultFinalTimeout,
		retry: resilience.RetryConfig{
			MaxAttempts: 3,
			Retryable: func(err error) bool {
				return !errors.Is(err, context.Canceled)
			},
		},
		logger: slog.Default().With("component", "snapshot", "backend", sink.Name()),
	}
	s.breaker = resilience.NewCircuitBreaker("snapshot-"+sink.Name(), resilience.CircuitBreakerConfig{})
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore imports the last saved snapshot. A missing snapshot is not an
// error; a malformed one is, and leaves the store untouched.
func (s *Saver) Restore(ctx context.Context) error {
	data, err := s.sink.Load(ctx)
	if errors.Is(err, apperrors.ErrSnapshotMissing) {
		s.logger.Info("no score snapshot to restore")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading snapshot from %s: %w", s.sink.Name(), err)
	}
	if err := s.store.ImportJSON(data); err != nil {
		return fmt.Errorf("restoring snapshot from %s: %w", s.sink.Name(), err)
	}
	s.logger.Info("score snapshot restored", "entries", s.store.Len(), "bytes", len(data))
	return nil
}

// Save writes the current store contents unconditionally.
func (s *Saver) Save(ctx context.Context) error {
	s.store.MarkSaved()
	data, err := s.store.ExportJSON()
	if err != nil {
		s.store.MarkDirty()
		return fmt.Errorf("exporting scores: %w", err)
	}

	err = s.breaker.Execute(func() error {
		return resilience.Retry(ctx, "snapshot-save", s.retry, func(ctx context.Context) error {
			return s.sink.Save(ctx, data)
		})
	})
	if err != nil {
		s.store.MarkDirty()
		s.observe("error")
		return fmt.Errorf("saving snapshot to %s: %w", s.sink.Name(), err)
	}
	s.observe("ok")
	s.logger.Debug("score snapshot saved", "bytes", len(data))
	return nil
}

// SaveIfChanged saves only when the store was modified since the last save.
func (s *Saver) SaveIfChanged(ctx context.Context) (bool, error) {
	if !s.store.Changed() {
		return false, nil
	}
	if err := s.Save(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Run saves on every tick while the store is dirty until ctx is cancelled,
// then performs one last save on a detached context.
func (s *Saver) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("snapshot saver started", "interval", s.interval)
	for {
		select {
		case <-ticker.C:
			if _, err := s.SaveIfChanged(ctx); err != nil {
				s.logger.Warn("periodic snapshot failed", "error", err)
			}
		case <-ctx.Done():
			return s.final(context.WithoutCancel(ctx))
		}
	}
}

func (s *Saver) final(ctx context.Context) error {
	if !s.store.Changed() {
		s.logger.Info("snapshot saver stopped, nothing to flush")
		return nil
	}
	err := resilience.WithTimeout(ctx, s.finalTimeout, "final-snapshot", func(ctx context.Context) error {
		// A breaker left open by earlier failures must not block the flush.
		s.breaker.Reset()
		return s.Save(ctx)
	})
	if err != nil {
		s.logger.Error("final snapshot failed", "error", err)
		return err
	}
	s.logger.Info("snapshot saver stopped, scores flushed", "entries", s.store.Len())
	return nil
}

func (s *Saver) observe(status string) {
	if s.metrics != nil {
		s.metrics.SnapshotSavesTotal.WithLabelValues(s.sink.Name(), status).Inc()
	}
}
