// Command factcheckd runs the community misinformation detector.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mangomango3x/Discord-fact-check/internal/config"
	"github.com/mangomango3x/Discord-fact-check/internal/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "factcheckd",
	Short:         "factcheckd - community misinformation detection service",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("FACTCHECK_CONFIG"), "Path to YAML config file")
	rootCmd.AddCommand(serveCmd, analyzeCmd, trendsCmd, backupCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads configuration and builds the logger.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
