package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/proto"
	"github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/rpc"
)

var (
	remoteAddr    string
	remoteTimeout time.Duration
)

var queryCmd = &cobra.Command{
	Use:   "query CODE",
	Short: "Resolve CODE on a running imed and print its first page",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print engine statistics from a running imed",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var exportCmd = &cobra.Command{
	Use:   "export-scores",
	Short: "Print the personalized score snapshot of a running imed",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	for _, cmd := range []*cobra.Command{queryCmd, statsCmd, exportCmd} {
		cmd.Flags().StringVar(&remoteAddr, "addr", "localhost:9400", "imed RPC address")
		cmd.Flags().DurationVar(&remoteTimeout, "timeout", 5*time.Second, "per-command deadline")
		rootCmd.AddCommand(cmd)
	}
}

func dialRemote(cmd *cobra.Command) (*rpc.Client, context.Context, context.CancelFunc, error) {
	c, err := rpc.Dial(remoteAddr)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(newContext(cmd), remoteTimeout)
	return c, ctx, cancel, nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	c, ctx, cancel, err := dialRemote(cmd)
	if err != nil {
		return err
	}
	defer cancel()
	defer c.Close()

	var open proto.OpenSessionResponse
	if err := c.Call(ctx, proto.MethodOpenSession, nil, &open); err != nil {
		return err
	}
	defer c.Call(ctx, proto.MethodCloseSession, proto.SessionRequest{SessionID: open.SessionID}, nil)

	var in proto.SetInputResponse
	if err := c.Call(ctx, proto.MethodSetInput, proto.SetInputRequest{SessionID: open.SessionID, Code: args[0]}, &in); err != nil {
		return err
	}
	var page proto.PageResponse
	if err := c.Call(ctx, proto.MethodCurrentPage, proto.SessionRequest{SessionID: open.SessionID}, &page); err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), page)
}

func runStats(cmd *cobra.Command, args []string) error {
	c, ctx, cancel, err := dialRemote(cmd)
	if err != nil {
		return err
	}
	defer cancel()
	defer c.Close()

	var stats proto.StatsResponse
	if err := c.Call(ctx, proto.MethodStats, nil, &stats); err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), stats)
}

func runExport(cmd *cobra.Command, args []string) error {
	c, ctx, cancel, err := dialRemote(cmd)
	if err != nil {
		return err
	}
	defer cancel()
	defer c.Close()

	var payload proto.ScoresPayload
	if err := c.Call(ctx, proto.MethodExportScores, nil, &payload); err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write([]byte(payload.Snapshot + "\n"))
	return err
}
