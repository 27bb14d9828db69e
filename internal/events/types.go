package events

import (
	"time"

	"github.com/mossland/Algora-sub004/internal/types"
)

// EventType identifies the category and nature of an event in the Algora
// orchestration core. Names are part of the public contract and must not
// change between releases.
type EventType string

// Pipeline lifecycle events.
// These events track an issue's journey through its governance workflow.
const (
	EventPipelineStarted        EventType = "pipeline:started"
	EventPipelineStageCompleted EventType = "pipeline:stage_completed"
	EventPipelineStageBlocked   EventType = "pipeline:stage_blocked"
	EventPipelineCompleted      EventType = "pipeline:completed"
	EventPipelineError          EventType = "pipeline:error"
)

// Workflow side-effect events.
// Emitted when a workflow produces a document or requires human approval.
const (
	EventWorkflowDocumentProduced EventType = "workflow:document_produced"
	EventWorkflowRequiresApproval EventType = "workflow:requires_approval"
)

// Execution lock events.
// Emitted around the safe-autonomy lock for HIGH-risk actions.
const (
	EventExecutionLocked   EventType = "execution:locked"
	EventExecutionUnlocked EventType = "execution:unlocked"
)

// Task lifecycle events.
// Emitted by the TodoManager so observers never need to poll task state.
const (
	EventTaskCreated   EventType = "task:created"
	EventTaskCompleted EventType = "task:completed"
	EventTaskFailed    EventType = "task:failed"
)

// KPI events.
// Advisory only: a threshold breach never blocks the pipeline.
const (
	EventKPIUpdated         EventType = "kpi:updated"
	EventKPIAlert           EventType = "kpi:alert"
	EventKPIThresholdBreach EventType = "kpi:threshold_breach"
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	return string(t)
}

// Event represents a lifecycle notification in the Algora orchestration core.
// The struct is JSON-serializable and carries enough context for filtering
// without forcing observers to inspect the payload.
type Event struct {
	// Type identifies the category and nature of the event
	Type EventType `json:"type"`

	// Timestamp records when the event occurred
	Timestamp time.Time `json:"timestamp"`

	// WorkflowID associates the event with a workflow (empty for system events)
	WorkflowID types.ID `json:"workflow_id,omitempty"`

	// Stage identifies the workflow stage that produced the event, if any
	Stage string `json:"stage,omitempty"`

	// Payload contains event-specific typed data (use type assertion to access)
	Payload any `json:"payload,omitempty"`

	// Attrs contains additional key-value attributes for flexible event metadata
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Filter defines criteria for filtering events in subscriptions.
// All filter fields use AND logic; empty fields act as wildcards.
type Filter struct {
	// Types filters by event types (empty = all types)
	Types []EventType `json:"types,omitempty"`

	// WorkflowID filters by workflow (empty = all workflows)
	WorkflowID types.ID `json:"workflow_id,omitempty"`
}

// Matches determines if the given event matches this filter's criteria.
// Empty filter fields act as wildcards that match any value.
func (f *Filter) Matches(event Event) bool {
	if len(f.Types) > 0 {
		matched := false
		for _, t := range f.Types {
			if event.Type == t {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if f.WorkflowID != "" && event.WorkflowID != f.WorkflowID {
		return false
	}

	return true
}

// DocumentProducedPayload contains data for workflow:document_produced events.
type DocumentProducedPayload struct {
	WorkflowID   types.ID `json:"workflow_id"`
	DocumentID   types.ID `json:"document_id"`
	DocumentType string   `json:"document_type,omitempty"`
}

// RequiresApprovalPayload contains data for workflow:requires_approval events.
type RequiresApprovalPayload struct {
	WorkflowID types.ID        `json:"workflow_id"`
	RiskLevel  types.RiskLevel `json:"risk_level"`
}

// LockPayload contains data for execution:locked and execution:unlocked events.
type LockPayload struct {
	ActionID types.ID `json:"action_id"`
	Reason   string   `json:"reason,omitempty"`
}

// TaskPayload contains data for task:* events.
type TaskPayload struct {
	TaskID         types.ID `json:"task_id"`
	WorkflowID     types.ID `json:"workflow_id"`
	Stage          string   `json:"stage"`
	SpecialistCode string   `json:"specialist_code"`
}

// ThresholdBreachPayload contains data for kpi:threshold_breach events.
type ThresholdBreachPayload struct {
	Metric    string  `json:"metric"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
}
