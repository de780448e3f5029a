// Package snapshot persists the personalized score store to an external
// sink: periodic saves while the store is dirty, a restore at startup and a
// final save on shutdown.
package snapshot

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/errors"
)

// Sink stores one opaque snapshot. Load returns apperrors.ErrSnapshotMissing
// when nothing has been saved yet.
type Sink interface {
	Name() string
	Save(ctx context.Context, data []byte) error
	Load(ctx context.Context) ([]byte, error)
}

// MemorySink keeps the snapshot in process.
type MemorySink struct {
	mu   sync.Mutex
	data []byte
	err  error
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Name() string { return "memory" }

func (m *MemorySink) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data = append([]byte(nil), data...)
	return nil
}

func (m *MemorySink) Load(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.data == nil {
		return nil, fmt.Errorf("%w: memory", apperrors.ErrSnapshotMissing)
	}
	return append([]byte(nil), m.data...), nil
}

// FailWith makes every subsequent call return err. Passing nil heals it.
func (m *MemorySink) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}
