package orchestrator

import (
	"time"

	"github.com/mossland/Algora-sub004/internal/types"
	"github.com/mossland/Algora-sub004/internal/workflow"
)

// PipelineResult summarizes a finished workflow. It is the payload of
// pipeline:completed events.
type PipelineResult struct {
	WorkflowID types.ID               `json:"workflow_id"`
	IssueID    types.ID               `json:"issue_id"`
	Type       workflow.WorkflowType  `json:"type"`
	Status     workflow.WorkflowState `json:"status"`
	Success    bool                   `json:"success"`

	DocumentIDs []types.ID `json:"document_ids,omitempty"`
	VotingID    types.ID   `json:"voting_id,omitempty"`
	ApprovalID  types.ID   `json:"approval_id,omitempty"`

	Error string `json:"error,omitempty"`

	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Duration    time.Duration `json:"duration"`
}

// resultFor builds the pipeline result from a terminal workflow context.
// Success means the workflow ended in a productive terminal state rather
// than rejection.
func resultFor(wf *workflow.Context) PipelineResult {
	completedAt := time.Now()
	if wf.CompletedAt != nil {
		completedAt = *wf.CompletedAt
	}

	return PipelineResult{
		WorkflowID:  wf.ID,
		IssueID:     wf.IssueID,
		Type:        wf.Type,
		Status:      wf.State,
		Success:     wf.State.Terminal() && wf.State != workflow.StateRejected && wf.Error == "",
		DocumentIDs: append([]types.ID(nil), wf.DocumentIDs...),
		VotingID:    wf.VotingID,
		ApprovalID:  wf.ApprovalID,
		Error:       wf.Error,
		StartedAt:   wf.StartedAt,
		CompletedAt: completedAt,
		Duration:    completedAt.Sub(wf.StartedAt),
	}
}
