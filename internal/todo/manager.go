package todo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mossland/Algora-sub004/internal/events"
	"github.com/mossland/Algora-sub004/internal/types"
)

// Manager owns task records for every workflow. All status changes go
// through it, and every change is durably recorded before the corresponding
// lifecycle event is published, so observers can never see a task state that
// would not survive a crash.
type Manager struct {
	store  TaskStore
	bus    events.EventBus
	logger *slog.Logger
}

// NewManager creates a TodoManager over the given store. The bus may be nil
// in tests that do not observe events.
func NewManager(store TaskStore, bus events.EventBus, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:  store,
		bus:    bus,
		logger: logger,
	}
}

// CreateTasks creates one task per spec for the given workflow stage.
// Creation is idempotent keyed by (workflowID, stage, specialistCode):
// specs whose key already has a task are skipped, and the existing task is
// returned in their place. The returned slice is ordered by creation.
func (m *Manager) CreateTasks(ctx context.Context, workflowID types.ID, stage string, specs []Spec) ([]*Task, error) {
	if workflowID.IsZero() {
		return nil, fmt.Errorf("workflow ID cannot be empty")
	}

	tasks := make([]*Task, 0, len(specs))
	for _, spec := range specs {
		existing, err := m.store.FindByKey(ctx, workflowID, stage, spec.SpecialistCode)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			tasks = append(tasks, existing)
			continue
		}

		seq, err := m.store.NextSeq(ctx, workflowID)
		if err != nil {
			return nil, err
		}

		now := time.Now()
		task := &Task{
			ID:             types.NewID(),
			WorkflowID:     workflowID,
			Stage:          stage,
			SpecialistCode: spec.SpecialistCode,
			Status:         StatusPending,
			Payload:        spec.Payload,
			Seq:            seq,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		if err := m.store.Save(ctx, task); err != nil {
			// A concurrent creator won the race for this key; fall back to
			// its task instead of duplicating.
			if errors.Is(err, types.NewError(types.TASK_DUPLICATE, "")) {
				existing, ferr := m.store.FindByKey(ctx, workflowID, stage, spec.SpecialistCode)
				if ferr == nil && existing != nil {
					tasks = append(tasks, existing)
					continue
				}
			}
			return nil, err
		}

		m.logger.Debug("task created",
			"task_id", task.ID,
			"workflow_id", workflowID,
			"stage", stage,
			"specialist", spec.SpecialistCode)

		m.publish(ctx, events.EventTaskCreated, task)
		tasks = append(tasks, task)
	}

	return tasks, nil
}

// NextPendingTask returns the oldest pending task of the workflow, or nil
// when nothing is pending.
func (m *Manager) NextPendingTask(ctx context.Context, workflowID types.ID) (*Task, error) {
	tasks, err := m.store.ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	for _, task := range tasks {
		if task.Status == StatusPending {
			return task, nil
		}
	}
	return nil, nil
}

// MarkInProgress moves a pending task to in_progress and increments its
// attempt counter. It refuses if another task of the same workflow+stage is
// already in progress: stage execution is serialized per workflow.
func (m *Manager) MarkInProgress(ctx context.Context, taskID types.ID) (*Task, error) {
	task, err := m.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if !canTransition(task.Status, StatusInProgress) {
		return nil, types.NewError(types.TASK_INVALID_STATUS,
			fmt.Sprintf("task %s cannot move from %s to %s", taskID, task.Status, StatusInProgress))
	}

	siblings, err := m.store.ListByWorkflow(ctx, task.WorkflowID)
	if err != nil {
		return nil, err
	}
	for _, sibling := range siblings {
		if sibling.ID != task.ID && sibling.Stage == task.Stage && sibling.Status == StatusInProgress {
			return nil, types.NewError(types.TASK_INVALID_STATUS,
				fmt.Sprintf("task %s is already in progress for stage %s", sibling.ID, task.Stage))
		}
	}

	now := time.Now()
	task.Status = StatusInProgress
	task.Attempts++
	task.StartedAt = &now
	touch(task)

	if err := m.store.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// MarkCompleted moves an in_progress task to completed. The record is
// persisted before the task:completed event is published.
func (m *Manager) MarkCompleted(ctx context.Context, taskID types.ID) (*Task, error) {
	task, err := m.transition(ctx, taskID, StatusCompleted, "")
	if err != nil {
		return nil, err
	}
	m.publish(ctx, events.EventTaskCompleted, task)
	return task, nil
}

// MarkFailed moves a task to failed with the given reason. The record is
// persisted before the task:failed event is published.
func (m *Manager) MarkFailed(ctx context.Context, taskID types.ID, reason string) (*Task, error) {
	task, err := m.transition(ctx, taskID, StatusFailed, reason)
	if err != nil {
		return nil, err
	}
	m.publish(ctx, events.EventTaskFailed, task)
	return task, nil
}

// ListTasks returns all tasks of a workflow ordered by creation.
func (m *Manager) ListTasks(ctx context.Context, workflowID types.ID) ([]*Task, error) {
	return m.store.ListByWorkflow(ctx, workflowID)
}

// StageTasks returns the workflow's tasks for one stage, ordered by creation.
func (m *Manager) StageTasks(ctx context.Context, workflowID types.ID, stage string) ([]*Task, error) {
	tasks, err := m.store.ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	var stageTasks []*Task
	for _, task := range tasks {
		if task.Stage == stage {
			stageTasks = append(stageTasks, task)
		}
	}
	return stageTasks, nil
}

// StageSatisfied reports whether the stage has at least one task and every
// task is completed.
func (m *Manager) StageSatisfied(ctx context.Context, workflowID types.ID, stage string) (bool, error) {
	tasks, err := m.StageTasks(ctx, workflowID, stage)
	if err != nil {
		return false, err
	}
	if len(tasks) == 0 {
		return false, nil
	}
	for _, task := range tasks {
		if task.Status != StatusCompleted {
			return false, nil
		}
	}
	return true, nil
}

// transition applies a status change with lifecycle validation.
func (m *Manager) transition(ctx context.Context, taskID types.ID, to Status, reason string) (*Task, error) {
	task, err := m.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if !canTransition(task.Status, to) {
		return nil, types.NewError(types.TASK_INVALID_STATUS,
			fmt.Sprintf("task %s cannot move from %s to %s", taskID, task.Status, to))
	}

	now := time.Now()
	task.Status = to
	task.Error = reason
	if to.Terminal() {
		task.CompletedAt = &now
	}
	touch(task)

	if err := m.store.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// publish emits a task lifecycle event. Publishing is best-effort: the task
// record is already durable, and a dropped event must never fail the caller.
func (m *Manager) publish(ctx context.Context, eventType events.EventType, task *Task) {
	if m.bus == nil {
		return
	}
	err := m.bus.Publish(ctx, events.Event{
		Type:       eventType,
		Timestamp:  time.Now(),
		WorkflowID: task.WorkflowID,
		Stage:      task.Stage,
		Payload: events.TaskPayload{
			TaskID:         task.ID,
			WorkflowID:     task.WorkflowID,
			Stage:          task.Stage,
			SpecialistCode: string(task.SpecialistCode),
		},
	})
	if err != nil {
		m.logger.Warn("failed to publish task event",
			"event", eventType, "task_id", task.ID, "error", err)
	}
}
