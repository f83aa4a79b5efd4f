// Package cmd provides the CLI commands of the search state service.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/config"
	"github.com/chips-fries/st-llm-search-engine-backend/internal/logger"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "st-llm",
		Short: "Session state and search enrichment backend",
		Long: `st-llm keeps per-session chat threads and saved searches in a
key-value cache, filters the upstream KOL sheets into markdown documents and
forwards thread context to an LLM.`,
		SilenceUsage: true,
		RunE:         runServe,
	}

	cmd.PersistentFlags().String("config", "", "Path to a config file (yaml, json or toml)")
	cmd.AddCommand(newServeCmd(), newWarmCmd(), newWatchCmd())

	return cmd
}

// loadConfig reads the configuration named by --config and applies its log
// level.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(cfg.LogLevel)
	return cfg, nil
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
