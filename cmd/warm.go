package cmd

import (
	"github.com/spf13/cobra"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/logger"
)

func newWarmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "warm",
		Short: "Load the upstream sheets into the cache and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			c, _, refresher, err := openSheets(ctx, cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := refresher.Refresh(ctx); err != nil {
				return err
			}
			logger.L.Info("sheets warmed")
			return nil
		},
	}
}
