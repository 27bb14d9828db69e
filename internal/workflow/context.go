package workflow

import (
	"time"

	"github.com/mossland/Algora-sub004/internal/types"
)

// Context carries the full runtime state of one governance workflow. It is
// owned exclusively by the orchestrator and mutated only through
// state-machine-validated transitions (plus the explicit cancel escape hatch).
type Context struct {
	ID      types.ID      `json:"id"`
	Type    WorkflowType  `json:"type"`
	State   WorkflowState `json:"state"`
	IssueID types.ID      `json:"issue_id"`

	// DocumentIDs accumulates registry document ids produced by specialist
	// tasks, in production order.
	DocumentIDs []types.ID `json:"document_ids,omitempty"`

	// VotingID, ApprovalID, and LockID reference external collaborators when
	// the workflow passes through the corresponding gates.
	VotingID   types.ID `json:"voting_id,omitempty"`
	ApprovalID types.ID `json:"approval_id,omitempty"`
	LockID     types.ID `json:"lock_id,omitempty"`

	RiskLevel types.RiskLevel `json:"risk_level"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// CompletedStages records every stage the workflow has left, in order.
	// It is always a strict prefix of a valid path through the type's
	// transition table.
	CompletedStages []WorkflowState `json:"completed_stages,omitempty"`

	// Error holds the message of the failure that terminated the workflow,
	// if any.
	Error string `json:"error,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewContext creates a workflow context in the initial state for the given
// issue.
func NewContext(workflowType WorkflowType, issueID types.ID) *Context {
	return &Context{
		ID:        types.NewID(),
		Type:      workflowType,
		State:     InitialState,
		IssueID:   issueID,
		RiskLevel: types.RiskUnknown,
		StartedAt: time.Now(),
		Metadata:  make(map[string]any),
	}
}

// Clone returns a deep copy of the context. Transition works on a clone so a
// failed transition leaves the caller's context untouched.
func (c *Context) Clone() *Context {
	clone := *c

	clone.DocumentIDs = append([]types.ID(nil), c.DocumentIDs...)
	clone.CompletedStages = append([]WorkflowState(nil), c.CompletedStages...)

	if c.CompletedAt != nil {
		completedAt := *c.CompletedAt
		clone.CompletedAt = &completedAt
	}

	if c.Metadata != nil {
		clone.Metadata = make(map[string]any, len(c.Metadata))
		for k, v := range c.Metadata {
			clone.Metadata[k] = v
		}
	}

	return &clone
}

// HasCompleted reports whether the given stage appears in the completed list.
func (c *Context) HasCompleted(state WorkflowState) bool {
	for _, s := range c.CompletedStages {
		if s == state {
			return true
		}
	}
	return false
}

// HasDocuments reports whether the workflow has produced at least one document.
func (c *Context) HasDocuments() bool {
	return len(c.DocumentIDs) > 0
}

// Done reports whether the workflow has reached a terminal state.
func (c *Context) Done() bool {
	return c.State.Terminal()
}
