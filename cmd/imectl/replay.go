package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/asset"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/events"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/personal"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/kafka"
)

var (
	replayConfig   string
	replayOut      string
	replayDuration time.Duration
)

var replayCmd = &cobra.Command{
	Use:   "replay-selections",
	Short: "Fold published selection events into a score snapshot file",
	Long: "Consumes the selection topic configured for imed and writes the resulting " +
		"personalized scores as a snapshot that imed can import. An existing output " +
		"file is loaded first so replays accumulate.",
	Args: cobra.NoArgs,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayConfig, "config", "configs/development.yaml", "imed config file with Kafka settings")
	replayCmd.Flags().StringVar(&replayOut, "out", "scores.json", "snapshot file to update")
	replayCmd.Flags().DurationVar(&replayDuration, "for", 30*time.Second, "how long to consume (0 = until interrupted)")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(replayConfig)
	if err != nil {
		return err
	}

	store := personal.New(personal.WithCapacity(cfg.Scores.Capacity))
	if data, err := os.ReadFile(replayOut); err == nil {
		if err := store.ImportJSON(data); err != nil {
			return err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	ctx, stop := signal.NotifyContext(newContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if replayDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, replayDuration)
		defer cancel()
	}

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.SelectionTopic, events.ReplayHandler(store))
	defer consumer.Close()
	if err := consumer.Start(ctx); err != nil {
		return err
	}

	if err := asset.SaveFile(replayOut, func(w io.Writer) error {
		data, err := store.ExportJSON()
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}); err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]any{
		"entries": store.Len(),
		"out":     replayOut,
		"replay":  consumer.Stats(),
	})
}
