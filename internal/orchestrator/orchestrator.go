// Package orchestrator drives governance issues through their workflows: it
// scores and admits issues, seeds specialist tasks stage by stage, requests
// state transitions from the workflow state machine, integrates the external
// voting/approval/lock gates, and reports progress through events and KPIs.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mossland/Algora-sub004/internal/events"
	"github.com/mossland/Algora-sub004/internal/issue"
	"github.com/mossland/Algora-sub004/internal/kpi"
	"github.com/mossland/Algora-sub004/internal/specialist"
	"github.com/mossland/Algora-sub004/internal/todo"
	"github.com/mossland/Algora-sub004/internal/types"
	"github.com/mossland/Algora-sub004/internal/workflow"
)

// Dispatcher executes specialist tasks. *specialist.Manager is the production
// implementation; tests substitute deterministic doubles.
type Dispatcher interface {
	Dispatch(ctx context.Context, task specialist.Task) (*specialist.Output, error)
	QueueDepth() int
}

// Config tunes the orchestrator's admission and timing policy.
type Config struct {
	// MaxConcurrentWorkflows bounds workflows running at once. Issues beyond
	// the cap wait in the FIFO admission queue.
	MaxConcurrentWorkflows int `mapstructure:"max_concurrent_workflows"`

	// AdmissionQueueFactor sizes the admission queue as a multiple of
	// MaxConcurrentWorkflows. Beyond that bound, ProcessIssue fails with
	// ORCHESTRATOR_QUEUE_FULL instead of blocking.
	AdmissionQueueFactor int `mapstructure:"admission_queue_factor"`

	// StageTimeout is the wall-clock budget per workflow stage. A stage that
	// exceeds it escalates the workflow, like exhausted retries.
	StageTimeout time.Duration `mapstructure:"stage_timeout"`

	// HeartbeatInterval paces the liveness samples fed to the KPI collector.
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

// DefaultConfig returns the default orchestration policy.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentWorkflows: 4,
		AdmissionQueueFactor:   4,
		StageTimeout:           10 * time.Minute,
		HeartbeatInterval:      30 * time.Second,
	}
}

// Deps are the orchestrator's collaborators. Machine, Todos, Specialists,
// and Store are required; nil gate services fall back to in-memory stand-ins,
// and Bus and Collector may be nil when nothing observes.
type Deps struct {
	Machine     *workflow.StateMachine
	Todos       *todo.Manager
	Specialists Dispatcher
	Store       WorkflowStore
	Documents   DocumentRegistry
	Voting      VotingService
	Approvals   ApprovalService
	Locks       LockService
	Collector   *kpi.Collector
	Bus         events.EventBus
	Logger      *slog.Logger
}

// Orchestrator is the pipeline engine. One instance serves the whole process;
// per-workflow state lives in the store, never in the struct.
type Orchestrator struct {
	machine     *workflow.StateMachine
	todos       *todo.Manager
	specialists Dispatcher
	store       WorkflowStore
	documents   DocumentRegistry
	voting      VotingService
	approvals   ApprovalService
	locks       LockService
	collector   *kpi.Collector
	bus         events.EventBus
	logger      *slog.Logger
	cfg         Config

	admission chan types.ID
	slots     chan struct{}

	mu      sync.Mutex
	cancels map[types.ID]context.CancelFunc
	started bool

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New creates an orchestrator after validating the static stage plans.
func New(deps Deps, cfg Config) (*Orchestrator, error) {
	if err := ValidatePlans(); err != nil {
		return nil, fmt.Errorf("stage plan validation failed: %w", err)
	}
	if deps.Machine == nil || deps.Todos == nil || deps.Specialists == nil || deps.Store == nil {
		return nil, fmt.Errorf("orchestrator requires machine, todo manager, dispatcher, and store")
	}
	if cfg.MaxConcurrentWorkflows < 1 {
		return nil, fmt.Errorf("max concurrent workflows must be >= 1, got %d", cfg.MaxConcurrentWorkflows)
	}
	if cfg.AdmissionQueueFactor < 1 {
		cfg.AdmissionQueueFactor = 1
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = DefaultConfig().StageTimeout
	}
	if deps.Documents == nil {
		deps.Documents = NewMemoryDocumentRegistry()
	}
	if deps.Voting == nil {
		deps.Voting = NewMemoryVotingService()
	}
	if deps.Approvals == nil {
		deps.Approvals = NewMemoryApprovalService()
	}
	if deps.Locks == nil {
		deps.Locks = NewMemoryLockService()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &Orchestrator{
		machine:     deps.Machine,
		todos:       deps.Todos,
		specialists: deps.Specialists,
		store:       deps.Store,
		documents:   deps.Documents,
		voting:      deps.Voting,
		approvals:   deps.Approvals,
		locks:       deps.Locks,
		collector:   deps.Collector,
		bus:         deps.Bus,
		logger:      deps.Logger,
		cfg:         cfg,
		admission:   make(chan types.ID, cfg.MaxConcurrentWorkflows*cfg.AdmissionQueueFactor),
		slots:       make(chan struct{}, cfg.MaxConcurrentWorkflows),
		cancels:     make(map[types.ID]context.CancelFunc),
		stopCh:      make(chan struct{}),
	}, nil
}

// Start launches the admission dispatcher and the heartbeat loop. Workflows
// run on goroutines derived from ctx; cancelling it aborts them all.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator already started")
	}
	o.started = true
	o.mu.Unlock()

	o.wg.Add(1)
	go o.dispatchLoop(ctx)

	if o.collector != nil && o.cfg.HeartbeatInterval > 0 {
		o.wg.Add(1)
		go o.heartbeatLoop(ctx)
	}

	o.logger.Info("orchestrator started",
		"max_concurrent", o.cfg.MaxConcurrentWorkflows,
		"queue_capacity", cap(o.admission),
		"stage_timeout", o.cfg.StageTimeout)
	return nil
}

// Stop shuts the orchestrator down and waits for running workflows to yield.
// Idempotent.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() { close(o.stopCh) })
	o.wg.Wait()
}

// dispatchLoop admits queued workflows in FIFO order, one concurrency slot
// each.
func (o *Orchestrator) dispatchLoop(ctx context.Context) {
	defer o.wg.Done()
	for {
		select {
		case <-o.stopCh:
			return
		case <-ctx.Done():
			return
		case id := <-o.admission:
			select {
			case o.slots <- struct{}{}:
			case <-o.stopCh:
				return
			case <-ctx.Done():
				return
			}

			o.wg.Add(1)
			go func(workflowID types.ID) {
				defer o.wg.Done()
				defer func() { <-o.slots }()
				o.runWorkflow(ctx, workflowID)
			}(id)
		}
	}
}

// heartbeatLoop feeds liveness and queue-depth samples to the KPI collector.
func (o *Orchestrator) heartbeatLoop(ctx context.Context) {
	defer o.wg.Done()
	ticker := time.NewTicker(o.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.collector.RecordHeartbeat()
			o.collector.RecordQueueDepth(o.specialists.QueueDepth())
		}
	}
}

// ProcessIssue admits a detected issue: selects its workflow type from the
// category and priority score, creates the workflow context, durably seeds
// the first stage's tasks, and queues the workflow for execution. The seeded
// tasks are returned. A full admission queue fails with
// ORCHESTRATOR_QUEUE_FULL and leaves the workflow resumable.
func (o *Orchestrator) ProcessIssue(ctx context.Context, iss *issue.Issue) ([]*todo.Task, error) {
	if err := iss.Validate(); err != nil {
		return nil, err
	}

	workflowType, err := workflow.SelectType(iss.Category, iss.Priority)
	if err != nil {
		return nil, err
	}

	wf := workflow.NewContext(workflowType, iss.ID)
	wf.Metadata["category"] = string(iss.Category)
	wf.Metadata["issue_title"] = iss.Title
	wf.Metadata["priority_total"] = iss.Priority.Total

	if err := o.store.Save(ctx, wf); err != nil {
		return nil, err
	}

	o.publish(events.Event{
		Type:       events.EventPipelineStarted,
		Timestamp:  time.Now(),
		WorkflowID: wf.ID,
		Stage:      string(wf.State),
		Payload:    wf.Clone(),
	})

	tasks, err := o.seedStage(ctx, wf)
	if err != nil {
		return nil, err
	}

	select {
	case o.admission <- wf.ID:
	default:
		return tasks, types.NewError(types.ORCHESTRATOR_QUEUE_FULL,
			fmt.Sprintf("admission queue full (%d waiting); workflow %s recorded but not scheduled",
				cap(o.admission), wf.ID))
	}

	iss.Status = issue.StatusQueued
	iss.UpdatedAt = time.Now()

	o.logger.Info("issue admitted",
		"issue_id", iss.ID, "workflow_id", wf.ID,
		"type", workflowType, "priority", iss.Priority.Total)
	return tasks, nil
}

// GetWorkflow returns the current context of a workflow.
func (o *Orchestrator) GetWorkflow(ctx context.Context, id types.ID) (*workflow.Context, error) {
	return o.store.Get(ctx, id)
}

// CancelWorkflow aborts a workflow at any point. This is an explicit escape
// hatch, not a transition-table edge: the context moves straight to rejected,
// pending tasks are failed, and no further dispatch happens for the id.
func (o *Orchestrator) CancelWorkflow(ctx context.Context, id types.ID) error {
	wf, err := o.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if wf.State.Terminal() {
		return types.NewError(types.WORKFLOW_TERMINAL,
			fmt.Sprintf("workflow %s already finished in state %s", id, wf.State))
	}

	o.mu.Lock()
	if cancel, ok := o.cancels[id]; ok {
		cancel()
	}
	o.mu.Unlock()

	now := time.Now()
	wf.State = workflow.StateRejected
	wf.CompletedAt = &now
	wf.Error = "cancelled by operator"
	if err := o.store.Update(ctx, wf); err != nil {
		return err
	}

	tasks, err := o.todos.ListTasks(ctx, id)
	if err == nil {
		for _, task := range tasks {
			if task.Status.Terminal() {
				continue
			}
			if _, ferr := o.todos.MarkFailed(ctx, task.ID, "workflow cancelled"); ferr != nil {
				o.logger.Warn("failed to fail task on cancel", "task_id", task.ID, "error", ferr)
			}
		}
	}

	o.publish(events.Event{
		Type:       events.EventPipelineCompleted,
		Timestamp:  now,
		WorkflowID: wf.ID,
		Stage:      string(wf.State),
		Payload:    resultFor(wf),
	})

	o.logger.Info("workflow cancelled", "workflow_id", id)
	return nil
}

// ResumeWorkflows re-queues every non-terminal, non-escalated workflow found
// in the store, re-seeding the current stage's tasks idempotently. Called at
// startup to pick up work interrupted by a crash. Returns how many workflows
// were resumed.
func (o *Orchestrator) ResumeWorkflows(ctx context.Context) (int, error) {
	active, err := o.store.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	resumed := 0
	for _, wf := range active {
		if wf.State == workflow.StateEscalated {
			// Escalations wait for human resolution, not re-execution.
			continue
		}
		if _, err := o.seedStage(ctx, wf); err != nil {
			return resumed, err
		}
		select {
		case o.admission <- wf.ID:
			resumed++
		default:
			return resumed, types.NewError(types.ORCHESTRATOR_QUEUE_FULL,
				"admission queue full during resume")
		}
	}

	if resumed > 0 {
		o.logger.Info("resumed workflows", "count", resumed)
	}
	return resumed, nil
}

// runWorkflow drives one workflow from its current state to a terminal
// state, an escalation, or a block. Unexpected panics are converted to
// pipeline:error; other workflows are unaffected.
func (o *Orchestrator) runWorkflow(ctx context.Context, id types.ID) {
	wfCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.mu.Lock()
	o.cancels[id] = cancel
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		delete(o.cancels, id)
		o.mu.Unlock()
	}()

	wf, err := o.store.Get(wfCtx, id)
	if err != nil {
		o.logger.Error("cannot load workflow", "workflow_id", id, "error", err)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			o.systemError(wf, fmt.Sprintf("panic during dispatch: %v", r))
		}
	}()

	for !wf.State.Terminal() && wf.State != workflow.StateEscalated {
		if wfCtx.Err() != nil {
			return
		}

		stage := wf.State
		stageStart := time.Now()
		stageCtx, cancelStage := context.WithTimeout(wfCtx, o.cfg.StageTimeout)
		err := o.runStage(stageCtx, wf)
		cancelStage()

		if err != nil {
			if wfCtx.Err() != nil {
				// Cancelled: CancelWorkflow already persisted the outcome.
				return
			}
			if errors.Is(err, context.DeadlineExceeded) {
				o.escalate(wf, types.NewError(types.ORCHESTRATOR_STAGE_TIMEOUT,
					fmt.Sprintf("stage %s exceeded its %s budget", stage, o.cfg.StageTimeout)))
				return
			}
			o.escalate(wf, err)
			return
		}

		next, ok := workflow.NextOnPath(wf.Type, stage)
		if !ok {
			o.escalate(wf, fmt.Errorf("no next stage after %s on the %s path", stage, wf.Type))
			return
		}

		if err := o.applyPreTransitionGates(wfCtx, wf, next); err != nil {
			o.escalate(wf, err)
			return
		}

		updated, err := o.machine.Transition(wf, next)
		if err != nil {
			if workflow.IsCriteriaUnmet(err) {
				// The edge is legal but a requirement is missing. Leave the
				// workflow in place for later resumption.
				o.publish(events.Event{
					Type:       events.EventPipelineStageBlocked,
					Timestamp:  time.Now(),
					WorkflowID: wf.ID,
					Stage:      string(stage),
					Payload:    wf.Clone(),
					Attrs:      map[string]any{"reason": err.Error()},
				})
				o.logger.Warn("stage blocked",
					"workflow_id", wf.ID, "stage", stage, "reason", err)
				return
			}
			o.escalate(wf, err)
			return
		}
		wf = updated

		if wf.State.Terminal() {
			now := time.Now()
			wf.CompletedAt = &now
		}
		if err := o.store.Update(wfCtx, wf); err != nil {
			if wfCtx.Err() != nil {
				// Cancelled: CancelWorkflow already persisted the outcome,
				// and this stale context must not overwrite it.
				return
			}
			o.systemError(wf, err.Error())
			return
		}

		o.publish(events.Event{
			Type:       events.EventPipelineStageCompleted,
			Timestamp:  time.Now(),
			WorkflowID: wf.ID,
			Stage:      string(stage),
			Payload:    wf.Clone(),
		})
		if o.collector != nil {
			o.collector.RecordExecutionTiming(string(stage), time.Since(stageStart))
		}

		if !wf.State.Terminal() {
			if _, err := o.seedStage(wfCtx, wf); err != nil {
				if wfCtx.Err() != nil {
					return
				}
				o.systemError(wf, err.Error())
				return
			}
		}
	}

	if wf.State.Terminal() {
		o.complete(wf)
	}
}

// runStage executes every planned task of the current stage and applies the
// stage's collaborator side effects.
func (o *Orchestrator) runStage(ctx context.Context, wf *workflow.Context) error {
	stage := wf.State

	if stage == workflow.StateExecution && wf.RiskLevel.RequiresLock() && wf.LockID.IsZero() {
		lockID, err := o.locks.LockAction(ctx, wf.ID, "HIGH-risk execution")
		if err != nil {
			return fmt.Errorf("failed to take execution lock: %w", err)
		}
		wf.LockID = lockID
		if err := o.store.Update(ctx, wf); err != nil {
			return err
		}
		o.publish(events.Event{
			Type:       events.EventExecutionLocked,
			Timestamp:  time.Now(),
			WorkflowID: wf.ID,
			Stage:      string(stage),
			Payload:    events.LockPayload{ActionID: wf.ID, Reason: "HIGH-risk execution"},
		})
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		task, err := o.todos.NextPendingTask(ctx, wf.ID)
		if err != nil {
			return err
		}
		if task == nil || task.Stage != string(stage) {
			break
		}
		if err := o.runTask(ctx, wf, task); err != nil {
			return err
		}
	}

	satisfied, err := o.todos.StageSatisfied(ctx, wf.ID, string(stage))
	if err != nil {
		return err
	}
	if !satisfied {
		return types.NewError(types.ORCHESTRATOR_DISPATCH_ERROR,
			fmt.Sprintf("stage %s has unsatisfied tasks", stage))
	}

	switch stage {
	case workflow.InitialState:
		// Triage resolves the risk classification from the issue category.
		category := issue.Category(stringMetadata(wf, "category"))
		level, err := RiskForCategory(category)
		if err != nil {
			return err
		}
		wf.RiskLevel = level
		if err := o.store.Update(ctx, wf); err != nil {
			return err
		}

	case workflow.StateVoting:
		if wf.VotingID.IsZero() {
			votingID, err := o.voting.SubmitForVote(ctx, wf.ID, wf.DocumentIDs)
			if err != nil {
				return fmt.Errorf("failed to submit for vote: %w", err)
			}
			wf.VotingID = votingID
			if err := o.store.Update(ctx, wf); err != nil {
				return err
			}
		}

	case workflow.StateExecution:
		if !wf.LockID.IsZero() {
			if err := o.locks.UnlockAction(ctx, wf.LockID); err != nil {
				o.logger.Warn("failed to release execution lock",
					"workflow_id", wf.ID, "lock_id", wf.LockID, "error", err)
			}
			o.publish(events.Event{
				Type:       events.EventExecutionUnlocked,
				Timestamp:  time.Now(),
				WorkflowID: wf.ID,
				Stage:      string(stage),
				Payload:    events.LockPayload{ActionID: wf.ID},
			})
		}
	}

	return nil
}

// enactsDecision reports whether entering next puts the workflow's decision
// into effect: the approval and execution stages, and the productive terminal
// states of templates that finish without either. Verified is excluded since
// it is only reachable through the already-gated execution stage.
func enactsDecision(next workflow.WorkflowState) bool {
	switch next {
	case workflow.StateApproval, workflow.StateExecution,
		workflow.StateExecuted, workflow.StateClosed:
		return true
	default:
		return false
	}
}

// applyPreTransitionGates requests external approvals needed by the upcoming
// stage. Approval is an opaque gate: workflows whose template has a
// dedicated approval stage pass through it, and elevated-risk workflows
// without one get their approval requested here before their decision takes
// effect.
func (o *Orchestrator) applyPreTransitionGates(ctx context.Context, wf *workflow.Context, next workflow.WorkflowState) error {
	needsApproval := wf.RiskLevel.RequiresApproval() &&
		wf.ApprovalID.IsZero() && !wf.HasCompleted(workflow.StateApproval)

	if enactsDecision(next) && needsApproval {
		o.publish(events.Event{
			Type:       events.EventWorkflowRequiresApproval,
			Timestamp:  time.Now(),
			WorkflowID: wf.ID,
			Stage:      string(wf.State),
			Payload:    events.RequiresApprovalPayload{WorkflowID: wf.ID, RiskLevel: wf.RiskLevel},
		})

		approvalID, err := o.approvals.RequestApproval(ctx, wf.ID, wf.RiskLevel)
		if err != nil {
			return fmt.Errorf("failed to request approval: %w", err)
		}
		wf.ApprovalID = approvalID
		return o.store.Update(ctx, wf)
	}
	return nil
}

// runTask dispatches one task to its specialist, records the produced
// document, and settles the task's lifecycle. The task record and the
// document are durable before any event is published. Settlement writes run
// on a detached context: the stage deadline bounds specialist work, and a
// task whose dispatch already returned must never be left in_progress just
// because the deadline fired meanwhile.
func (o *Orchestrator) runTask(ctx context.Context, wf *workflow.Context, task *todo.Task) error {
	if _, err := o.todos.MarkInProgress(ctx, task.ID); err != nil {
		return err
	}

	settleCtx := context.WithoutCancel(ctx)

	output, err := o.specialists.Dispatch(ctx, specialist.Task{
		ID:         task.ID,
		WorkflowID: wf.ID,
		Stage:      task.Stage,
		Code:       task.SpecialistCode,
		Payload:    task.Payload,
	})
	if o.collector != nil {
		o.collector.RecordLLMCall(err == nil)
	}

	if err != nil || output == nil || !output.Success {
		reason := "specialist output rejected"
		if err != nil {
			reason = err.Error()
		} else if output != nil && output.Verdict.Reason != "" {
			reason = output.Verdict.Reason
		}
		if _, ferr := o.todos.MarkFailed(settleCtx, task.ID, reason); ferr != nil {
			o.logger.Warn("failed to record task failure", "task_id", task.ID, "error", ferr)
		}
		if err != nil {
			return err
		}
		return types.NewError(types.SPECIALIST_EXHAUSTED, reason)
	}

	provenance := fmt.Sprintf("%s/%s@%s", wf.ID, task.SpecialistCode, task.Stage)
	documentID, err := o.documents.CreateDocument(settleCtx, output.DocumentType, output.Content, provenance)
	if err != nil {
		if _, ferr := o.todos.MarkFailed(settleCtx, task.ID, "document registration failed"); ferr != nil {
			o.logger.Warn("failed to record task failure", "task_id", task.ID, "error", ferr)
		}
		return fmt.Errorf("failed to register document: %w", err)
	}

	wf.DocumentIDs = append(wf.DocumentIDs, documentID)
	if err := o.store.Update(settleCtx, wf); err != nil {
		return err
	}

	o.publish(events.Event{
		Type:       events.EventWorkflowDocumentProduced,
		Timestamp:  time.Now(),
		WorkflowID: wf.ID,
		Stage:      task.Stage,
		Payload: events.DocumentProducedPayload{
			WorkflowID:   wf.ID,
			DocumentID:   documentID,
			DocumentType: output.DocumentType,
		},
	})

	_, err = o.todos.MarkCompleted(settleCtx, task.ID)
	return err
}

// seedStage creates the current stage's tasks idempotently. Stages with an
// empty plan are pure gates and seed nothing.
func (o *Orchestrator) seedStage(ctx context.Context, wf *workflow.Context) ([]*todo.Task, error) {
	codes := StagePlan(wf.Type, wf.State)
	if len(codes) == 0 {
		return nil, nil
	}

	specs := make([]todo.Spec, 0, len(codes))
	for _, code := range codes {
		specs = append(specs, todo.Spec{
			SpecialistCode: code,
			Payload: map[string]any{
				"issue_title": stringMetadata(wf, "issue_title"),
				"category":    stringMetadata(wf, "category"),
				"stage":       string(wf.State),
			},
		})
	}
	return o.todos.CreateTasks(ctx, wf.ID, string(wf.State), specs)
}

// escalate moves the workflow to the escalated state and reports the failure
// as pipeline:error. Escalated workflows wait for human resolution.
func (o *Orchestrator) escalate(wf *workflow.Context, cause error) {
	ctx := context.Background()

	updated, err := o.machine.Transition(wf, workflow.StateEscalated)
	if err != nil {
		o.logger.Error("cannot escalate workflow",
			"workflow_id", wf.ID, "state", wf.State, "error", err)
	} else {
		wf = updated
	}
	wf.Error = cause.Error()
	if err := o.store.Update(ctx, wf); err != nil {
		o.logger.Error("failed to persist escalation", "workflow_id", wf.ID, "error", err)
	}

	o.publish(events.Event{
		Type:       events.EventPipelineError,
		Timestamp:  time.Now(),
		WorkflowID: wf.ID,
		Stage:      string(wf.State),
		Payload:    wf.Clone(),
		Attrs:      map[string]any{"error": cause.Error()},
	})
	if o.collector != nil {
		o.collector.RecordOperation(false)
	}
	o.logger.Warn("workflow escalated", "workflow_id", wf.ID, "error", cause)
}

// systemError marks the workflow errored without changing its state and
// reports pipeline:error. Used for unexpected failures at the dispatch
// boundary; other workflows continue unaffected.
func (o *Orchestrator) systemError(wf *workflow.Context, reason string) {
	wf.Error = reason
	if err := o.store.Update(context.Background(), wf); err != nil {
		o.logger.Error("failed to persist workflow error", "workflow_id", wf.ID, "error", err)
	}

	o.publish(events.Event{
		Type:       events.EventPipelineError,
		Timestamp:  time.Now(),
		WorkflowID: wf.ID,
		Stage:      string(wf.State),
		Payload:    wf.Clone(),
		Attrs:      map[string]any{"error": reason},
	})
	if o.collector != nil {
		o.collector.RecordOperation(false)
	}
	o.logger.Error("workflow system error", "workflow_id", wf.ID, "error", reason)
}

// complete finalizes a terminal workflow: publishes pipeline:completed and
// feeds the KPI collector.
func (o *Orchestrator) complete(wf *workflow.Context) {
	result := resultFor(wf)

	o.publish(events.Event{
		Type:       events.EventPipelineCompleted,
		Timestamp:  time.Now(),
		WorkflowID: wf.ID,
		Stage:      string(wf.State),
		Payload:    result,
	})

	if o.collector != nil {
		o.collector.RecordExecutionTiming("end_to_end", result.Duration)
		o.collector.RecordOperation(result.Success)
		o.recordDecisionQuality(wf)
	}

	o.logger.Info("workflow completed",
		"workflow_id", wf.ID, "status", wf.State,
		"success", result.Success, "documents", len(wf.DocumentIDs),
		"duration", result.Duration)
}

// recordDecisionQuality samples the decision-quality KPIs from the finished
// workflow: path completeness, document counts, and the first-try pass rate
// of its tasks as a calibration proxy.
func (o *Orchestrator) recordDecisionQuality(wf *workflow.Context) {
	path, err := workflow.HappyPath(wf.Type)
	if err != nil {
		return
	}

	completeness := 0.0
	if stages := len(path) - 1; stages > 0 {
		completed := 0
		for _, state := range path[:len(path)-1] {
			if wf.HasCompleted(state) {
				completed++
			}
		}
		completeness = 100 * float64(completed) / float64(stages)
	}

	calibration := 100.0
	if tasks, err := o.todos.ListTasks(context.Background(), wf.ID); err == nil && len(tasks) > 0 {
		completed, attempts := 0, 0
		for _, task := range tasks {
			attempts += task.Attempts
			if task.Status == todo.StatusCompleted {
				completed++
			}
		}
		if attempts > 0 {
			calibration = 100 * float64(completed) / float64(attempts)
		}
	}

	o.collector.RecordDecisionPacket(kpi.DecisionPacket{
		WorkflowID:            wf.ID,
		Completeness:          completeness,
		OptionCount:           len(wf.DocumentIDs),
		EvidenceCount:         len(wf.DocumentIDs),
		ConfidenceCalibration: calibration,
		RiskLevel:             wf.RiskLevel,
		HasRedTeamAnalysis:    wf.HasCompleted(workflow.StateRedTeam),
	})
}

// publish emits an event best-effort. Workflow records are durable before
// their events are published, so a dropped event never loses state.
func (o *Orchestrator) publish(event events.Event) {
	if o.bus == nil {
		return
	}
	if err := o.bus.Publish(context.Background(), event); err != nil {
		o.logger.Warn("failed to publish event", "type", event.Type, "error", err)
	}
}

func stringMetadata(wf *workflow.Context, key string) string {
	if wf.Metadata == nil {
		return ""
	}
	if v, ok := wf.Metadata[key].(string); ok {
		return v
	}
	return ""
}
