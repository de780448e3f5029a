package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/asset"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/associative"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/builder"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/trie"
)

var (
	buildIn        string
	buildOut       string
	buildThreshold int
)

var buildDictCmd = &cobra.Command{
	Use:   "build-dict",
	Short: "Compile a .cin phonetic table into a prefix tree asset",
	RunE:  runBuildDict,
}

var buildTrigramCmd = &cobra.Command{
	Use:   "build-trigram",
	Short: "Compile tab-separated n-gram counts into an associative tree asset",
	RunE:  runBuildTrigram,
}

func init() {
	for _, cmd := range []*cobra.Command{buildDictCmd, buildTrigramCmd} {
		cmd.Flags().StringVar(&buildIn, "in", "", "source file (required)")
		cmd.Flags().StringVar(&buildOut, "out", "", "asset file to write (required)")
		cmd.MarkFlagRequired("in")
		cmd.MarkFlagRequired("out")
		rootCmd.AddCommand(cmd)
	}
	buildTrigramCmd.Flags().IntVar(&buildThreshold, "threshold", associative.DefaultThreshold, "minimum frequency kept")
}

func runBuildDict(cmd *cobra.Command, args []string) error {
	f, err := os.Open(buildIn)
	if err != nil {
		return err
	}
	defer f.Close()

	tree := trie.New()
	stats, err := builder.ParseDictionary(f, tree)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", buildIn, err)
	}
	if err := asset.SaveFile(buildOut, func(w io.Writer) error {
		return asset.WritePrefixTree(w, tree)
	}); err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]any{
		"source": stats,
		"tree":   tree.Stats(),
		"asset":  buildOut,
	})
}

func runBuildTrigram(cmd *cobra.Command, args []string) error {
	f, err := os.Open(buildIn)
	if err != nil {
		return err
	}
	defer f.Close()

	b := associative.NewBuilder(buildThreshold)
	stats, err := builder.ParseTrigrams(f, b)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", buildIn, err)
	}
	tree := b.Build()
	if err := asset.SaveFile(buildOut, func(w io.Writer) error {
		return asset.WriteAssociative(w, tree)
	}); err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]any{
		"source": stats,
		"nodes":  tree.NodeCount(),
		"asset":  buildOut,
	})
}
