package main

import (
	"context"
	"fmt"
	"io"

	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/snapshot"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/redis"
)

type noopCloser struct{}

func (noopCloser) Close() error { return nil }

// openSink connects the configured snapshot backend. It returns a nil sink
// for the "none" backend.
func openSink(ctx context.Context, cfg *config.Config) (snapshot.Sink, io.Closer, health.Check, error) {
	switch cfg.Snapshot.Backend {
	case "redis":
		client, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, nil, err
		}
		return snapshot.NewRedisSink(client, cfg.Snapshot.Key), client, health.Ping(client.Ping), nil
	case "postgres":
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, nil, err
		}
		sink := snapshot.NewPostgresSink(client, cfg.Snapshot.Key)
		if err := sink.EnsureSchema(ctx); err != nil {
			client.Close()
			return nil, nil, nil, err
		}
		return sink, client, health.Ping(client.Ping), nil
	case "badger":
		sink, err := snapshot.OpenBadgerSink(cfg.Badger, cfg.Snapshot.Key)
		if err != nil {
			return nil, nil, nil, err
		}
		return sink, sink, nil, nil
	case "none", "":
		return nil, noopCloser{}, nil, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown snapshot backend %q", cfg.Snapshot.Backend)
	}
}
