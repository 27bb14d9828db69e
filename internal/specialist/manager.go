package specialist

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/mossland/Algora-sub004/internal/types"
)

// Task is a dispatch unit: one specialist role asked to produce one piece of
// work for a workflow stage.
type Task struct {
	ID         types.ID       `json:"id"`
	WorkflowID types.ID       `json:"workflow_id"`
	Stage      string         `json:"stage"`
	Code       Code           `json:"code"`
	Payload    map[string]any `json:"payload,omitempty"`

	// Difficulty overrides the role's default tier when set (> 0 values of
	// the enum; DifficultyBasic counts as unset unless OverrideDifficulty).
	Difficulty         Difficulty `json:"difficulty,omitempty"`
	OverrideDifficulty bool       `json:"override_difficulty,omitempty"`
}

// Output carries a specialist's result and its quality-gate verdict.
type Output struct {
	TaskID       types.ID      `json:"task_id"`
	Code         Code          `json:"code"`
	Success      bool          `json:"success"`
	Content      string        `json:"content,omitempty"`
	DocumentType string        `json:"document_type"`
	Difficulty   Difficulty    `json:"difficulty"`
	Verdict      Verdict       `json:"verdict"`
	Attempts     int           `json:"attempts"`
	Duration     time.Duration `json:"duration"`
}

// Config tunes the dispatch retry policy.
type Config struct {
	// MaxAttempts is the total number of dispatch attempts per task,
	// including the first. Must be >= 1.
	MaxAttempts int `mapstructure:"max_attempts"`

	// BackoffBase is the delay before the first retry; each further retry
	// doubles it.
	BackoffBase time.Duration `mapstructure:"backoff_base"`

	// BackoffMax caps the retry delay.
	BackoffMax time.Duration `mapstructure:"backoff_max"`

	// Workers bounds concurrent provider calls.
	Workers int `mapstructure:"workers"`

	// QueueCapacity bounds accepted-but-unstarted work.
	QueueCapacity int `mapstructure:"queue_capacity"`
}

// DefaultConfig returns the default dispatch policy.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   3,
		BackoffBase:   100 * time.Millisecond,
		BackoffMax:    5 * time.Second,
		Workers:       4,
		QueueCapacity: 16,
	}
}

// Manager routes tasks to specialist roles through the task queue, gates
// every result, and retries rejected work with difficulty escalation.
type Manager struct {
	provider Provider
	gate     QualityGate
	queue    TaskQueue
	cfg      Config
	logger   *slog.Logger
}

// NewManager creates a specialist manager. A nil gate falls back to the
// built-in DefaultGate; a nil queue gets a fresh WorkerQueue sized from cfg.
func NewManager(ctx context.Context, provider Provider, gate QualityGate, queue TaskQueue, cfg Config, logger *slog.Logger) (*Manager, error) {
	if err := ValidateRegistry(); err != nil {
		return nil, fmt.Errorf("specialist registry validation failed: %w", err)
	}
	if provider == nil {
		return nil, fmt.Errorf("specialist manager requires a provider")
	}
	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("max attempts must be >= 1, got %d", cfg.MaxAttempts)
	}
	if gate == nil {
		gate = NewDefaultGate()
	}
	if queue == nil {
		queue = NewWorkerQueue(ctx, cfg.Workers, cfg.QueueCapacity)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		provider: provider,
		gate:     gate,
		queue:    queue,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Stop shuts down the underlying task queue.
func (m *Manager) Stop() {
	m.queue.Stop()
}

// QueueDepth reports queued-but-unstarted work when the queue supports it.
func (m *Manager) QueueDepth() int {
	if wq, ok := m.queue.(*WorkerQueue); ok {
		return wq.Depth()
	}
	return 0
}

// Dispatch submits the task through the queue and blocks until its result is
// available or ctx is cancelled. The returned Output is non-nil whenever the
// task executed, even on failure, so callers can inspect the final verdict.
func (m *Manager) Dispatch(ctx context.Context, task Task) (*Output, error) {
	def, err := Lookup(task.Code)
	if err != nil {
		return nil, types.WrapError(types.SPECIALIST_UNKNOWN, "cannot dispatch task", err)
	}

	type result struct {
		output *Output
		err    error
	}
	done := make(chan result, 1)

	submitErr := m.queue.Submit(ctx, func(workerCtx context.Context) {
		output, execErr := m.execute(workerCtx, def, task)
		done <- result{output: output, err: execErr}
	})
	if submitErr != nil {
		return nil, submitErr
	}

	select {
	case r := <-done:
		return r.output, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// execute runs the retry loop: invoke, gate, and on rejection back off and
// escalate the difficulty tier while below the maximum.
func (m *Manager) execute(ctx context.Context, def Definition, task Task) (*Output, error) {
	difficulty := def.Difficulty
	if task.OverrideDifficulty {
		difficulty = task.Difficulty
	}
	if docDifficulty := DocumentDifficulty(def.DocumentType); docDifficulty > difficulty {
		difficulty = docDifficulty
	}

	prompt := buildPrompt(def, task)
	started := time.Now()

	output := &Output{
		TaskID:       task.ID,
		Code:         task.Code,
		DocumentType: def.DocumentType,
	}

	var lastVerdict Verdict
	for attempt := 1; attempt <= m.cfg.MaxAttempts; attempt++ {
		output.Attempts = attempt
		output.Difficulty = difficulty

		if attempt > 1 {
			if err := m.backoff(ctx, attempt-1); err != nil {
				output.Duration = time.Since(started)
				return output, err
			}
			difficulty = difficulty.Escalate()
			output.Difficulty = difficulty
		}

		content, err := m.provider.Invoke(ctx, prompt, difficulty)
		if err != nil {
			if ctx.Err() != nil {
				output.Duration = time.Since(started)
				return output, ctx.Err()
			}
			lastVerdict = Verdict{Passed: false, Reason: err.Error()}
			m.logger.Warn("specialist invocation failed",
				"task_id", task.ID, "specialist", task.Code,
				"attempt", attempt, "error", err)
			continue
		}

		output.Content = content
		verdict := m.gate.Evaluate(ctx, task, *output)
		output.Verdict = verdict
		if verdict.Passed {
			output.Success = true
			output.Duration = time.Since(started)
			return output, nil
		}

		lastVerdict = verdict
		m.logger.Info("quality gate rejected output",
			"task_id", task.ID, "specialist", task.Code,
			"attempt", attempt, "reason", verdict.Reason)
	}

	output.Success = false
	output.Verdict = lastVerdict
	output.Duration = time.Since(started)
	return output, types.NewError(types.SPECIALIST_EXHAUSTED,
		fmt.Sprintf("task %s failed after %d attempts: %s",
			task.ID, m.cfg.MaxAttempts, lastVerdict.Reason))
}

// backoff sleeps for base * 2^(retry-1), capped at BackoffMax, honoring ctx.
func (m *Manager) backoff(ctx context.Context, retry int) error {
	delay := m.cfg.BackoffBase * time.Duration(1<<(retry-1))
	if m.cfg.BackoffMax > 0 && delay > m.cfg.BackoffMax {
		delay = m.cfg.BackoffMax
	}

	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context cancelled during retry backoff: %w", ctx.Err())
	}
}

// buildPrompt renders the dispatch prompt from the role definition and the
// task payload. Payload keys are appended in sorted order so prompts are
// deterministic for tests.
func buildPrompt(def Definition, task Task) string {
	prompt := fmt.Sprintf("You are the %s specialist for the Algora governance system. You %s.\n",
		def.Code, def.Description)
	prompt += fmt.Sprintf("Produce a %s for workflow stage %q.\n", def.DocumentType, task.Stage)

	if len(task.Payload) > 0 {
		keys := make([]string, 0, len(task.Payload))
		for k := range task.Payload {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		prompt += "Inputs:\n"
		for _, k := range keys {
			prompt += fmt.Sprintf("- %s: %v\n", k, task.Payload[k])
		}
	}

	return prompt
}
