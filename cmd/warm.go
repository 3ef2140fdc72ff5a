package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Pre-generate talking points for the highest priority schools",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "query")
		if err != nil {
			return err
		}
		defer env.Close()

		if !env.Intel.FinancialAvailable() && !env.Intel.InspectionAvailable() {
			return eris.New("warm: no generator configured (set SCHOOLINTEL_ANTHROPIC_KEY)")
		}

		limit, _ := cmd.Flags().GetInt("limit")
		count, _ := cmd.Flags().GetInt("count")
		withInspection, _ := cmd.Flags().GetBool("inspection")

		report, err := env.Intel.Warm(ctx, limit, count, withInspection)
		if report != nil {
			fmt.Fprintf(os.Stdout, "Schools: %d  Generated: %d  Cached: %d  Empty: %d\n",
				report.Schools, report.Generated, report.Cached, report.Empty)
		}
		return err
	},
}

func init() {
	warmCmd.Flags().Int("limit", 20, "number of schools, highest priority first")
	warmCmd.Flags().Int("count", 0, "talking points per school (default from config)")
	warmCmd.Flags().Bool("inspection", false, "include inspection report analysis")
	rootCmd.AddCommand(warmCmd)
}
