package snapshot

import (
	"context"
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/redis"
)

// RedisSink stores the snapshot under a single key with no expiry.
type RedisSink struct {
	client *redis.Client
	key    string
}

func NewRedisSink(client *redis.Client, key string) *RedisSink {
	return &RedisSink{client: client, key: key}
}

func (r *RedisSink) Name() string { return "redis" }

func (r *RedisSink) Save(ctx context.Context, data []byte) error {
	if err := r.client.Set(ctx, r.key, data, 0); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", r.key, err)
	}
	return nil
}

func (r *RedisSink) Load(ctx context.Context) ([]byte, error) {
	data, err := r.client.GetBytes(ctx, r.key)
	if redis.IsNilError(err) {
		return nil, fmt.Errorf("%w: redis key %s", apperrors.ErrSnapshotMissing, r.key)
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", r.key, err)
	}
	return data, nil
}
