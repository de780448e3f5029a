// Package kafka carries selection events over segmentio/kafka-go: a batching
// producer for the daemon and a consumer that replays the selection topic
// into a score store. Values travel as JSON.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/errors"
)

// MessageHandler processes one message value. Returning an error wrapping
// ErrInvalidInput marks the message as unreadable: it is committed and
// skipped. Any other error leaves it uncommitted for a later run.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ReplayStats counts what a consumer did with the messages it fetched.
type ReplayStats struct {
	Applied int64 `json:"applied"`
	Skipped int64 `json:"skipped"`
	Failed  int64 `json:"failed"`
}

// Consumer replays a topic from the consumer group's committed offset, or
// from the earliest message for a new group.
type Consumer struct {
	reader  messageReader
	logger  *slog.Logger
	handler MessageHandler

	applied atomic.Int64
	skipped atomic.Int64
	failed  atomic.Int64
}

// NewConsumer creates a Consumer for topic in the configured group.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	return newConsumer(r, topic, handler)
}

func newConsumer(r messageReader, topic string, handler MessageHandler) *Consumer {
	return &Consumer{
		reader:  r,
		logger:  slog.Default().With("component", "selection-replay", "topic", topic),
		handler: handler,
	}
}

// Start fetches and applies messages until ctx ends, then returns nil.
// Fetch errors are logged and retried. The caller closes the consumer.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("replay started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("replay stopping", "stats", c.Stats())
				return nil
			}
			c.logger.Error("fetch failed", "error", err)
			continue
		}
		c.apply(ctx, msg)
	}
}

func (c *Consumer) apply(ctx context.Context, msg kafka.Message) {
	err := c.handler(ctx, msg.Key, msg.Value)
	switch {
	case err == nil:
		c.applied.Add(1)
	case errors.Is(err, apperrors.ErrInvalidInput):
		c.skipped.Add(1)
		c.logger.Warn("skipping unreadable selection", "partition", msg.Partition, "offset", msg.Offset, "error", err)
	default:
		c.failed.Add(1)
		c.logger.Error("selection not applied", "partition", msg.Partition, "offset", msg.Offset, "error", err)
		return
	}
	if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
		c.logger.Error("commit failed", "partition", msg.Partition, "offset", msg.Offset, "error", err)
	}
}

// Stats returns the running message counts.
func (c *Consumer) Stats() ReplayStats {
	return ReplayStats{
		Applied: c.applied.Load(),
		Skipped: c.skipped.Load(),
		Failed:  c.failed.Load(),
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
