// Command imed serves the candidate engine to keyboard front ends over the
// JSON-over-TCP RPC layer and HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/asset"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/associative"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/bridge"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/events"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/personal"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/search"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/session"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/snapshot"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/trie"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/rpc"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if err := run(cfg); err != nil {
		slog.Error("imed stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("imed stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		defer shutdownMetrics(context.Background())
	}

	scores := personal.New(personal.WithCapacity(cfg.Scores.Capacity), personal.WithMetrics(m))
	sink, sinkCloser, sinkCheck, err := openSink(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening snapshot backend %s: %w", cfg.Snapshot.Backend, err)
	}
	defer sinkCloser.Close()

	var saver *snapshot.Saver
	if sink != nil {
		saver = snapshot.NewSaver(scores, sink,
			snapshot.WithInterval(cfg.Snapshot.Interval),
			snapshot.WithFinalTimeout(cfg.Server.ShutdownTimeout),
			snapshot.WithMetrics(m),
		)
	}

	// The dictionary and the score snapshot are independent, so load both
	// before serving.
	var tree *trie.Tree
	startup, startCtx := errgroup.WithContext(ctx)
	startup.Go(func() error {
		t, err := loadDictionary(cfg.Assets.DictionaryPath, m)
		tree = t
		return err
	})
	if saver != nil {
		startup.Go(func() error {
			if err := saver.Restore(startCtx); err != nil {
				slog.Warn("score snapshot not restored, starting empty", "error", err)
			}
			return nil
		})
	}
	if err := startup.Wait(); err != nil {
		return err
	}

	assoc := associative.NewManager(func(context.Context) (*associative.Tree, error) {
		return asset.LoadFile(cfg.Assets.AssociativePath, asset.ReadAssociative)
	}, m)
	assoc.Start(ctx)
	defer assoc.Cancel()

	var observer session.SelectionObserver
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.SelectionTopic)
		defer producer.Close()
		collector := events.NewCollector(producer, cfg.Kafka.BufferSize, cfg.Kafka.BatchSize, cfg.Kafka.FlushInterval, m)
		collector.Start(ctx)
		defer func() {
			stop()
			<-collector.Done()
		}()
		observer = collector
		slog.Info("selection events enabled", "topic", cfg.Kafka.SelectionTopic, "brokers", cfg.Kafka.Brokers)
	}

	engine := session.NewEngine(tree, session.Options{
		Paging:      search.PageConfig{PageSize: cfg.Paging.PageSize, MaxPerNode: cfg.Paging.MaxPerNode},
		Scores:      scores,
		Associative: assoc,
		Metrics:     m,
		Observer:    observer,
	})
	service := bridge.NewService(engine, m)

	checker := health.NewChecker()
	checker.Register("dictionary", health.Ready(engine.Enabled, false, "no dictionary loaded"))
	checker.Register("associative", health.Ready(assoc.Ready, false, "loading"))
	if sinkCheck != nil {
		checker.Register("snapshot_"+cfg.Snapshot.Backend, sinkCheck)
	}

	mux := http.NewServeMux()
	service.Routes(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.Trace(cfg.Server.SlowRequest)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http bridge listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	var rpcServer *rpc.Server
	if cfg.RPC.Enabled {
		rpcServer = rpc.NewServer()
		service.Register(rpcServer)
		g.Go(func() error {
			slog.Info("rpc bridge listening", "addr", cfg.RPC.Addr, "methods", rpcServer.Methods())
			return rpcServer.Serve(cfg.RPC.Addr)
		})
	}

	if saver != nil {
		g.Go(func() error { return saver.Run(gctx) })
	}
	if cfg.Server.SessionIdleTimeout > 0 {
		g.Go(func() error {
			service.RunReaper(gctx, cfg.Server.SessionIdleTimeout/2, cfg.Server.SessionIdleTimeout)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if rpcServer != nil {
			rpcServer.Stop()
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	slog.Info("imed started",
		"engine_enabled", engine.Enabled(),
		"snapshot_backend", cfg.Snapshot.Backend,
		"page_size", cfg.Paging.PageSize,
	)
	return g.Wait()
}

func loadDictionary(path string, m *metrics.Metrics) (*trie.Tree, error) {
	start := time.Now()
	tree, err := asset.LoadFile(path, asset.ReadPrefixTree)
	switch {
	case errors.Is(err, apperrors.ErrAssetNotFound):
		m.AssetLoadsTotal.WithLabelValues("dictionary", "missing").Inc()
		slog.Warn("dictionary asset missing, engine disabled", "path", path)
		return nil, nil
	case errors.Is(err, apperrors.ErrCorruptAsset):
		m.AssetLoadsTotal.WithLabelValues("dictionary", "error").Inc()
		slog.Error("dictionary asset corrupt, engine disabled", "path", path, "error", err)
		return nil, nil
	case err != nil:
		m.AssetLoadsTotal.WithLabelValues("dictionary", "error").Inc()
		return nil, fmt.Errorf("loading dictionary %s: %w", path, err)
	}
	m.AssetLoadsTotal.WithLabelValues("dictionary", "ok").Inc()
	st := tree.Stats()
	slog.Info("dictionary loaded",
		"path", path,
		"nodes", st.Nodes,
		"candidates", st.Candidates,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return tree, nil
}
