// Package todo persists the ordered, resumable task list of each workflow.
// The TodoManager is the sole owner and source of truth for task status:
// task state is durably recorded before any side effect of executing it
// becomes externally visible, so replaying the task list after a crash
// reproduces the exact pending set.
package todo

import (
	"fmt"
	"time"

	"github.com/mossland/Algora-sub004/internal/specialist"
	"github.com/mossland/Algora-sub004/internal/types"
)

// Status is the task lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Valid reports whether the status is a defined lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the status ends the task lifecycle.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task is the durable unit of work tracked per workflow stage. A task belongs
// to exactly one workflow and one pipeline stage and is uniquely keyed by
// (workflow, stage, specialist code).
type Task struct {
	ID             types.ID        `json:"id"`
	WorkflowID     types.ID        `json:"workflow_id"`
	Stage          string          `json:"stage"`
	SpecialistCode specialist.Code `json:"specialist_code"`
	Status         Status          `json:"status"`

	// Payload carries the dispatch input for the specialist.
	Payload map[string]any `json:"payload,omitempty"`

	// Attempts counts dispatch attempts, including quality-gate retries.
	Attempts int `json:"attempts"`

	// Error holds the final failure message for failed tasks.
	Error string `json:"error,omitempty"`

	// Seq orders tasks by creation within a workflow.
	Seq int64 `json:"seq"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Spec describes one task to create for a stage.
type Spec struct {
	SpecialistCode specialist.Code
	Payload        map[string]any
}

// Validate checks structural integrity before the task is persisted.
func (t *Task) Validate() error {
	if err := t.ID.Validate(); err != nil {
		return fmt.Errorf("task ID: %w", err)
	}
	if err := t.WorkflowID.Validate(); err != nil {
		return fmt.Errorf("task %s workflow ID: %w", t.ID, err)
	}
	if t.Stage == "" {
		return fmt.Errorf("task %s has no stage", t.ID)
	}
	if !t.SpecialistCode.Valid() {
		return fmt.Errorf("task %s has unknown specialist code %q", t.ID, t.SpecialistCode)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("task %s has invalid status %q", t.ID, t.Status)
	}
	return nil
}

// canTransition enforces the pending -> in_progress -> completed|failed
// lifecycle. Failed is also reachable straight from pending so that a
// workflow cancelled before dispatch leaves an honest record.
func canTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusInProgress || to == StatusFailed
	case StatusInProgress:
		return to == StatusCompleted || to == StatusFailed
	}
	return false
}
