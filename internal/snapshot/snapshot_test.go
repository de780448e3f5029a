package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/personal"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/resilience"
)

var fastRetry = resilience.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}

func fixedClock() func() time.Time {
	at := time.UnixMilli(1_700_000_000_000)
	return func() time.Time { return at }
}

func TestMemorySink(t *testing.T) {
	ctx := context.Background()
	sink := NewMemorySink()

	_, err := sink.Load(ctx)
	assert.True(t, errors.Is(err, apperrors.ErrSnapshotMissing))

	buf := []byte(`{"a":{"s":1,"t":2}}`)
	require.NoError(t, sink.Save(ctx, buf))
	buf[2] = 'z'
	got, err := sink.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"s":1,"t":2}}`, string(got))

	sink.FailWith(errors.New("down"))
	assert.Error(t, sink.Save(ctx, nil))
	sink.FailWith(nil)
	assert.NoError(t, sink.Save(ctx, nil))
}

func TestBadgerSinkRoundTrip(t *testing.T) {
	ctx := context.Background()
	sink, err := OpenBadgerSink(config.BadgerConfig{InMemory: true}, "scores")
	require.NoError(t, err)
	defer sink.Close()

	_, err = sink.Load(ctx)
	assert.True(t, errors.Is(err, apperrors.ErrSnapshotMissing))

	require.NoError(t, sink.Save(ctx, []byte(`{"x":{"s":5,"t":9}}`)))
	require.NoError(t, sink.Save(ctx, []byte(`{"y":{"s":1,"t":1}}`)))
	got, err := sink.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"y":{"s":1,"t":1}}`, string(got))
}

func TestBadgerSinkOnDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	sink, err := OpenBadgerSink(config.BadgerConfig{DataDir: dir}, "scores")
	require.NoError(t, err)
	require.NoError(t, sink.Save(ctx, []byte(`{}`)))
	require.NoError(t, sink.Close())

	sink, err = OpenBadgerSink(config.BadgerConfig{DataDir: dir}, "scores")
	require.NoError(t, err)
	defer sink.Close()
	got, err := sink.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(got))
}

func TestRedisSinkUnreachable(t *testing.T) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	sink := NewRedisSink(redis.Wrap(rdb), "ime:test")
	defer rdb.Close()

	_, err := sink.Load(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrSnapshotMissing))
	assert.Error(t, sink.Save(context.Background(), []byte(`{}`)))
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	sink := NewMemorySink()
	store := personal.New()
	s := NewSaver(store, sink)

	require.NoError(t, s.Restore(ctx))
	assert.Equal(t, 0, store.Len())

	require.NoError(t, sink.Save(ctx, []byte(`{"b|1":{"s":3,"t":30},"a|2":{"s":1,"t":10}}`)))
	require.NoError(t, s.Restore(ctx))
	assert.Equal(t, []string{"b|1", "a|2"}, store.Keys())
	assert.False(t, store.Changed())

	require.NoError(t, sink.Save(ctx, []byte(`{"b|1":`)))
	err := s.Restore(ctx)
	assert.True(t, errors.Is(err, apperrors.ErrMalformedScores))
	assert.Equal(t, 2, store.Len())

	sink.FailWith(errors.New("unreachable"))
	assert.Error(t, s.Restore(ctx))
}

func TestSaveIfChanged(t *testing.T) {
	ctx := context.Background()
	m := metrics.New(prometheus.NewRegistry())
	sink := NewMemorySink()
	store := personal.New(personal.WithClock(fixedClock()))
	s := NewSaver(store, sink, WithMetrics(m), WithRetry(fastRetry))

	saved, err := s.SaveIfChanged(ctx)
	require.NoError(t, err)
	assert.False(t, saved)

	store.Promote("w|12")
	saved, err = s.SaveIfChanged(ctx)
	require.NoError(t, err)
	assert.True(t, saved)
	assert.False(t, store.Changed())

	got, err := sink.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"w|12":{"s":1,"t":1700000000000}}`, string(got))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotSavesTotal.WithLabelValues("memory", "ok")))

	store.Promote("w|12")
	sink.FailWith(errors.New("down"))
	_, err = s.SaveIfChanged(ctx)
	require.Error(t, err)
	assert.True(t, store.Changed())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotSavesTotal.WithLabelValues("memory", "error")))
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	sink := NewMemorySink()
	store := personal.New()
	s := NewSaver(store, sink,
		WithRetry(fastRetry),
		WithBreaker(resilience.CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour}),
	)
	store.Promote("k|1")
	sink.FailWith(errors.New("down"))

	require.Error(t, s.Save(ctx))
	require.Error(t, s.Save(ctx))

	sink.FailWith(nil)
	err := s.Save(ctx)
	assert.True(t, errors.Is(err, resilience.ErrCircuitOpen))
	assert.True(t, store.Changed())
}

func TestRunSavesPeriodicallyAndFlushesOnStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	sink := NewMemorySink()
	store := personal.New()
	s := NewSaver(store, sink, WithInterval(5*time.Millisecond), WithRetry(fastRetry))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	store.Promote("first|1")
	require.Eventually(t, func() bool {
		data, err := sink.Load(context.Background())
		return err == nil && string(data) != "" && !store.Changed()
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []string{"first|1"}, store.Keys())
}

func TestRunFinalFlush(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	sink := NewMemorySink()
	store := personal.New()
	s := NewSaver(store, sink, WithInterval(time.Hour), WithRetry(fastRetry))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	store.Promote("k|1")
	store.Promote("k|1")
	cancel()
	require.NoError(t, <-done)

	data, err := sink.Load(context.Background())
	require.NoError(t, err)
	restored := personal.New()
	require.NoError(t, restored.ImportJSON(data))
	rec, ok := restored.Get("k|1")
	require.True(t, ok)
	assert.Equal(t, 2, rec.Score)
	assert.False(t, store.Changed())
}

func TestRunFinalFlushFailure(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	sink := NewMemorySink()
	sink.FailWith(errors.New("down"))
	store := personal.New()
	s := NewSaver(store, sink, WithInterval(time.Hour), WithRetry(fastRetry))

	ctx, cancel := context.WithCancel(context.Background())
	store.Promote("k|1")
	cancel()
	assert.Error(t, s.Run(ctx))
	assert.True(t, store.Changed())
}
