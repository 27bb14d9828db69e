package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "algora",
	Short: "Algora - autonomous governance workflow orchestrator",
	Long: `Algora runs detected governance issues through typed decision
workflows: staged pipelines of specialist tasks with quality gates,
voting, approval, and KPI tracking.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with SIGINT/SIGTERM cancelling the context.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "algora.yaml", "path to the configuration file")
}
