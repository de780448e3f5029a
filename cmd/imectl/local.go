package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/asset"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/bridge"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/search"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/internal/session"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/proto"
)

var (
	lookupAsset string
	lookupPages int
	lookupPage  search.PageConfig
	suggestPath string
)

var lookupCmd = &cobra.Command{
	Use:   "lookup CODE",
	Short: "Page through candidates for CODE from a local dictionary asset",
	Args:  cobra.ExactArgs(1),
	RunE:  runLookup,
}

var suggestCmd = &cobra.Command{
	Use:   "suggest CHARS",
	Short: "Print associative suggestions for CHARS from a local asset",
	Args:  cobra.ExactArgs(1),
	RunE:  runSuggest,
}

func init() {
	def := search.DefaultPageConfig()
	lookupCmd.Flags().StringVar(&lookupAsset, "asset", "assets/dictionary.bin", "prefix tree asset")
	lookupCmd.Flags().IntVar(&lookupPages, "pages", 1, "number of pages to print")
	lookupCmd.Flags().IntVar(&lookupPage.PageSize, "page-size", def.PageSize, "candidates per page")
	lookupCmd.Flags().IntVar(&lookupPage.MaxPerNode, "max-per-node", def.MaxPerNode, "best-first per-node cap (0 = unbounded)")
	suggestCmd.Flags().StringVar(&suggestPath, "asset", "assets/trigram.bin", "associative tree asset")
	rootCmd.AddCommand(lookupCmd, suggestCmd)
}

func runLookup(cmd *cobra.Command, args []string) error {
	tree, err := asset.LoadFile(lookupAsset, asset.ReadPrefixTree)
	if err != nil {
		return err
	}
	sess := session.NewEngine(tree, session.Options{Paging: lookupPage}).NewSession("imectl")
	chars, ok := sess.SetInput(args[0])
	if !ok {
		return fmt.Errorf("code %q does not resolve", args[0])
	}

	pages := make([]proto.PageResponse, 0, lookupPages)
	page := sess.CurrentPage()
	for i := 0; i < lookupPages; i++ {
		pages = append(pages, bridge.PagePayload(page, chars))
		if !page.HasNext {
			break
		}
		page = sess.NextPage()
	}
	return printJSON(cmd.OutOrStdout(), pages)
}

func runSuggest(cmd *cobra.Command, args []string) error {
	tree, err := asset.LoadFile(suggestPath, asset.ReadAssociative)
	if err != nil {
		return err
	}
	out := tree.Suggest(args[0])
	if out == nil {
		out = []string{}
	}
	return printJSON(cmd.OutOrStdout(), proto.SuggestResponse{Suggestions: out, Ready: true})
}

func newContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
