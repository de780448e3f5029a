package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/session"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/metrics"
)

const (
	defaultBufferSize    = 10000
	defaultBatchSize     = 100
	defaultFlushInterval = 5 * time.Second
)

// Publisher writes a batch of events. *kafka.Producer satisfies it.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector buffers selection events and publishes them in batches, either
// when a batch fills up or when the flush interval elapses.
type Collector struct {
	publisher     Publisher
	eventCh       chan SelectionEvent
	batchSize     int
	flushInterval time.Duration
	metrics       *metrics.Metrics
	logger        *slog.Logger
	done          chan struct{}
}

// NewCollector creates a Collector. Zero sizes and intervals take defaults.
func NewCollector(publisher Publisher, bufferSize, batchSize int, flushInterval time.Duration, m *metrics.Metrics) *Collector {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}
	return &Collector{
		publisher:     publisher,
		eventCh:       make(chan SelectionEvent, bufferSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		metrics:       m,
		logger:        slog.Default().With("component", "selection-collector"),
		done:          make(chan struct{}),
	}
}

var _ session.SelectionObserver = (*Collector)(nil)

// ObserveSelection queues sel for publishing.
func (c *Collector) ObserveSelection(_ context.Context, sel session.Selection) {
	c.Track(FromSelection(sel))
}

// Track queues an event, dropping it when the buffer is full.
func (c *Collector) Track(event SelectionEvent) {
	select {
	case c.eventCh <- event:
	default:
		c.observe("dropped", 1)
		c.logger.Warn("selection event dropped (buffer full)")
	}
}

// Start runs the batching loop until ctx is cancelled or Close is called.
// Pending events are flushed before it returns.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()

		batch := make([]SelectionEvent, 0, c.batchSize)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					c.flush(context.WithoutCancel(ctx), batch)
					return
				}
				batch = append(batch, event)
				if len(batch) >= c.batchSize {
					c.flush(ctx, batch)
					batch = batch[:0]
				}
			case <-ticker.C:
				c.flush(ctx, batch)
				batch = batch[:0]
			case <-ctx.Done():
				c.flush(context.WithoutCancel(ctx), c.drain(batch))
				return
			}
		}
	}()
	c.logger.Info("selection collector started",
		"buffer_size", cap(c.eventCh),
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
	)
}

// Close stops accepting events and waits for the final flush. Track must
// not be called after Close.
func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
}

// Done is closed once the batching loop has exited.
func (c *Collector) Done() <-chan struct{} {
	return c.done
}

func (c *Collector) drain(batch []SelectionEvent) []SelectionEvent {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return batch
			}
			batch = append(batch, event)
		default:
			return batch
		}
	}
}

func (c *Collector) flush(ctx context.Context, batch []SelectionEvent) {
	if len(batch) == 0 {
		return
	}
	out := make([]kafka.Event, len(batch))
	for i, e := range batch {
		out[i] = kafka.Event{Key: e.SessionID, Value: e}
	}
	if err := c.publisher.PublishBatch(ctx, out); err != nil {
		c.observe("error", len(out))
		c.logger.Error("failed to publish selection events", "count", len(out), "error", err)
		return
	}
	c.observe("ok", len(out))
}

func (c *Collector) observe(status string, n int) {
	if c.metrics != nil {
		c.metrics.EventsPublishedTotal.WithLabelValues(status).Add(float64(n))
	}
}
