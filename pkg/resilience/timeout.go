package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// WithTimeout bounds fn to limit. fn receives a context cancelled at the
// deadline; if fn has not returned by then the caller gets
// context.DeadlineExceeded and fn is left to finish on its own. A limit of
// zero runs fn unbounded.
func WithTimeout(ctx context.Context, limit time.Duration, name string, fn func(ctx context.Context) error) error {
	if limit <= 0 {
		return fn(ctx)
	}
	bounded, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	result := make(chan error, 1)
	go func() { result <- fn(bounded) }()

	select {
	case err := <-result:
		return err
	case <-bounded.Done():
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		slog.Default().With("component", "timeout").Warn("operation exceeded limit", "operation", name, "limit", limit)
		return fmt.Errorf("%s: %w after %v", name, context.DeadlineExceeded, limit)
	}
}
