package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage cached talking points",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached talking points",
	Long:  "Removes the cached talking points for --school, or every cached entry when no school is given.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "query")
		if err != nil {
			return err
		}
		defer env.Close()

		school, _ := cmd.Flags().GetString("school")
		n := env.Intel.ClearCache(ctx, school)
		fmt.Fprintf(os.Stdout, "Cleared %d cache entries.\n", n)
		return nil
	},
}

func init() {
	cacheClearCmd.Flags().String("school", "", "school name to clear (default all)")
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
