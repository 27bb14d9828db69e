package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mossland/Algora-sub004/internal/config"
	"github.com/mossland/Algora-sub004/internal/events"
	"github.com/mossland/Algora-sub004/internal/issue"
	"github.com/mossland/Algora-sub004/internal/observability"
	"github.com/mossland/Algora-sub004/internal/orchestrator"
)

var (
	issueFilePath string
	submitWait    time.Duration
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit one issue and wait for its workflow to finish",
	Long: `Submit reads a scored issue from a YAML file, runs it through its
governance workflow in-process, and prints the outcome. Intended for
operator-driven runs and smoke checks; the service normally receives
issues while running.`,
	RunE: submitIssue,
}

func init() {
	submitCmd.Flags().StringVarP(&issueFilePath, "file", "f", "", "issue definition file (required)")
	submitCmd.Flags().DurationVar(&submitWait, "wait", 15*time.Minute, "how long to wait for the workflow to finish")
	submitCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(submitCmd)
}

// issueFile is the on-disk YAML shape for a submitted issue.
type issueFile struct {
	Title       string                   `yaml:"title"`
	Description string                   `yaml:"description"`
	Category    string                   `yaml:"category"`
	Source      string                   `yaml:"source"`
	Impact      issue.ImpactFactors      `yaml:"impact"`
	Urgency     issue.UrgencyFactors     `yaml:"urgency"`
	Feasibility issue.FeasibilityFactors `yaml:"feasibility"`
}

func submitIssue(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.LoadWithDefaults(configPath)
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	if err != nil {
		return err
	}

	iss, err := loadIssue(issueFilePath)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.orch.Start(ctx); err != nil {
		return err
	}

	done, unsubscribe := a.bus.Subscribe(ctx, events.Filter{
		Types: []events.EventType{events.EventPipelineCompleted, events.EventPipelineError},
	}, 16)
	defer unsubscribe()

	tasks, err := a.orch.ProcessIssue(ctx, iss)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return fmt.Errorf("issue %s produced no intake tasks", iss.ID)
	}
	workflowID := tasks[0].WorkflowID

	cmd.Printf("Issue %s admitted: workflow %s (%s, priority %.1f)\n",
		iss.ID, workflowID, iss.Category, iss.Priority.Total)

	timeout := time.After(submitWait)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return fmt.Errorf("workflow %s did not finish within %s", workflowID, submitWait)
		case event := <-done:
			if event.WorkflowID != workflowID {
				continue
			}
			if event.Type == events.EventPipelineError {
				return fmt.Errorf("workflow %s failed at stage %s: %v",
					workflowID, event.Stage, event.Attrs["error"])
			}
			return printResult(cmd, event)
		}
	}
}

func loadIssue(path string) (*issue.Issue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read issue file: %w", err)
	}

	var file issueFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse issue file: %w", err)
	}

	iss, err := issue.New(file.Title, file.Description, issue.Category(file.Category))
	if err != nil {
		return nil, err
	}
	iss.Source = file.Source

	if _, err := iss.Score(file.Impact, file.Urgency, file.Feasibility); err != nil {
		return nil, err
	}
	return iss, nil
}

func printResult(cmd *cobra.Command, event events.Event) error {
	result, ok := event.Payload.(orchestrator.PipelineResult)
	if !ok {
		cmd.Printf("Workflow %s finished\n", event.WorkflowID)
		return nil
	}

	status := "succeeded"
	if !result.Success {
		status = "did not succeed"
	}
	cmd.Printf("Workflow %s %s: final state %s, %d document(s), %s elapsed\n",
		result.WorkflowID, status, result.Status, len(result.DocumentIDs), result.Duration.Round(time.Second))
	return nil
}
