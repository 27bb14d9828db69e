package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mossland/Algora-sub004/internal/config"
	"github.com/mossland/Algora-sub004/internal/observability"
)

var workflowDefsPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the orchestration service",
	Long: `Run starts the orchestration service: it resumes workflows left
active by a previous process, serves the metrics endpoint, and accepts
issues until interrupted.`,
	RunE: runService,
}

func init() {
	runCmd.Flags().StringVar(&workflowDefsPath, "workflows", "", "optional workflow transition override file")
	rootCmd.AddCommand(runCmd)
}

func runService(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.LoadWithDefaults(configPath)
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	if err != nil {
		return err
	}

	if workflowDefsPath != "" {
		if err := applyWorkflowOverrides(workflowDefsPath); err != nil {
			return err
		}
		logger.Info("workflow transition overrides applied", "path", workflowDefsPath)
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.orch.Start(ctx); err != nil {
		return err
	}

	resumed, err := a.orch.ResumeWorkflows(ctx)
	if err != nil {
		logger.Error("workflow resume failed", "error", err)
	} else if resumed > 0 {
		logger.Info("workflows resumed", "count", resumed)
	}

	if a.metrics != nil {
		if err := a.metrics.Start(cfg.Metrics.Listen); err != nil {
			return err
		}
	}

	logger.Info("algora service started",
		"database", cfg.Database.Path,
		"max_concurrent_workflows", cfg.Orchestrator.MaxConcurrentWorkflows,
	)

	<-ctx.Done()
	logger.Info("shutdown signal received")
	return nil
}
