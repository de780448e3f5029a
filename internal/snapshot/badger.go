package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/errors"
)

// BadgerSink stores the snapshot in an embedded Badger database.
type BadgerSink struct {
	db  *badger.DB
	key []byte
}

// OpenBadgerSink opens (or creates) the database described by cfg.
func OpenBadgerSink(cfg config.BadgerConfig, key string) (*BadgerSink, error) {
	opts := badger.DefaultOptions(cfg.DataDir).WithLogger(nil)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %q: %w", cfg.DataDir, err)
	}
	return &BadgerSink{db: db, key: []byte(key)}, nil
}

func (b *BadgerSink) Name() string { return "badger" }

func (b *BadgerSink) Save(_ context.Context, data []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.key, data)
	})
}

func (b *BadgerSink) Load(context.Context) ([]byte, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.key)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: badger key %s", apperrors.ErrSnapshotMissing, b.key)
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return data, nil
}

func (b *BadgerSink) Close() error {
	return b.db.Close()
}
