package main

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mangomango3x/Discord-fact-check/pkg/types"
)

var (
	analyzeCommunity string
	analyzeUser      string
	analyzeRate      bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <statement>",
	Short: "Run one statement through the pipeline and print the outcome",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeCommunity, "community", "", "Community partition to record patterns in")
	analyzeCmd.Flags().StringVar(&analyzeUser, "user", "cli", "User ID the statement is attributed to")
	analyzeCmd.Flags().BoolVar(&analyzeRate, "rate", false, "Only rate truthiness (command path), skip pre-filters and patterns")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
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

	statement := strings.Join(args, " ")
	identity := types.Identity{UserID: analyzeUser, CommunityID: analyzeCommunity}

	var result interface{}
	if analyzeRate {
		result, err = a.detector.RateStatement(ctx, identity, statement)
	} else {
		result, err = a.detector.Process(ctx, &types.Message{
			ID:        "cli-" + time.Now().UTC().Format("20060102T150405"),
			ChannelID: "cli",
			Author:    identity,
			Content:   statement,
			Timestamp: time.Now().UTC(),
		})
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
