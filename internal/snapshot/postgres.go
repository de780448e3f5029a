package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS score_snapshots (
	name       TEXT PRIMARY KEY,
	payload    BYTEA NOT NULL,
	saved_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresSink keeps one row per snapshot name in score_snapshots.
type PostgresSink struct {
	client *postgres.Client
	name   string
}

func NewPostgresSink(client *postgres.Client, name string) *PostgresSink {
	return &PostgresSink{client: client, name: name}
}

// EnsureSchema creates the snapshot table when missing.
func (p *PostgresSink) EnsureSchema(ctx context.Context) error {
	if _, err := p.client.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating score_snapshots: %w", err)
	}
	return nil
}

func (p *PostgresSink) Name() string { return "postgres" }

func (p *PostgresSink) Save(ctx context.Context, data []byte) error {
	return p.client.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO score_snapshots (name, payload, saved_at)
			VALUES ($1, $2, now())
			ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload, saved_at = EXCLUDED.saved_at`,
			p.name, data,
		)
		if err != nil {
			return fmt.Errorf("upserting snapshot %s: %w", p.name, err)
		}
		return nil
	})
}

func (p *PostgresSink) Load(ctx context.Context) ([]byte, error) {
	var data []byte
	err := p.client.DB.QueryRowContext(ctx,
		`SELECT payload FROM score_snapshots WHERE name = $1`, p.name,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: postgres row %s", apperrors.ErrSnapshotMissing, p.name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", p.name, err)
	}
	return data, nil
}
