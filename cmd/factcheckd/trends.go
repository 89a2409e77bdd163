package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"
)

var (
	trendsEvents bool
	trendsMaxAge time.Duration
)

var trendsCmd = &cobra.Command{
	Use:   "trends <community-id>",
	Short: "Print a community's misinformation trends",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrends,
}

func init() {
	trendsCmd.Flags().BoolVar(&trendsEvents, "events", false, "Print the raw alert events instead of the summary")
	trendsCmd.Flags().DurationVar(&trendsMaxAge, "max-age", 0, "With --events, only events newer than this")
}

func runTrends(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()

	var out interface{}
	if trendsEvents {
		out, err = a.detector.RecentEvents(ctx, args[0], trendsMaxAge)
	} else {
		out, err = a.detector.Trends(ctx, args[0])
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
