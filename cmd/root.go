package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/school-intel/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "school-intel",
	Short: "School prospecting intelligence for sales teams",
	Long:  "Merges the school directory and financial benchmarking feeds, ranks schools by staffing spend, and generates cached talking points from financial data and inspection reports.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
