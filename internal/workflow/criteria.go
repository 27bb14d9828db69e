package workflow

import "fmt"

// Criterion is a named predicate over a workflow context that must hold
// before a transition into its state is permitted. Criteria are evaluated
// against the prospective context (target state applied, prior stage already
// in CompletedStages) and never mutate it.
type Criterion struct {
	// Name identifies the criterion in errors and logs.
	Name string

	// Check returns nil when the context satisfies the criterion, or an
	// error describing the blocking requirement.
	Check func(c *Context) error
}

// acceptanceCriteria maps target states to their entry criteria. States
// absent from the map accept any context arriving over a legal edge.
// The escalated and rejected states deliberately carry no criteria: the
// escape paths must always be open.
var acceptanceCriteria = map[WorkflowState][]Criterion{
	StateReview: {
		{
			Name: "has_draft_document",
			Check: func(c *Context) error {
				if !c.HasDocuments() {
					return fmt.Errorf("review requires at least one produced document")
				}
				return nil
			},
		},
	},
	StateRedTeam: {
		{
			Name: "risk_level_resolved",
			Check: func(c *Context) error {
				if !c.RiskLevel.Resolved() {
					return fmt.Errorf("red-team review requires a resolved risk level, have %s", c.RiskLevel)
				}
				return nil
			},
		},
	},
	StateVoting: {
		{
			Name: "review_completed",
			Check: func(c *Context) error {
				if !c.HasCompleted(StateReview) {
					return fmt.Errorf("voting requires a completed review stage")
				}
				return nil
			},
		},
		{
			Name: "has_draft_document",
			Check: func(c *Context) error {
				if !c.HasDocuments() {
					return fmt.Errorf("voting requires at least one produced document")
				}
				return nil
			},
		},
	},
	StateApproval: {
		{
			Name: "risk_level_resolved",
			Check: func(c *Context) error {
				if !c.RiskLevel.Resolved() {
					return fmt.Errorf("approval requires a resolved risk level, have %s", c.RiskLevel)
				}
				return nil
			},
		},
		{
			Name: "red_team_for_high_risk",
			Check: func(c *Context) error {
				if c.RiskLevel.RequiresLock() && !c.HasCompleted(StateRedTeam) {
					return fmt.Errorf("HIGH-risk workflows require red-team analysis before approval")
				}
				return nil
			},
		},
	},
	StateExecution: {
		{
			Name: "risk_level_resolved",
			Check: func(c *Context) error {
				if !c.RiskLevel.Resolved() {
					return fmt.Errorf("execution requires a resolved risk level, have %s", c.RiskLevel)
				}
				return nil
			},
		},
		{
			Name: "approval_for_elevated_risk",
			Check: checkElevatedRiskApproved,
		},
	},
	StateClosed: {
		{
			Name: "has_outcome_document",
			Check: func(c *Context) error {
				if !c.HasDocuments() {
					return fmt.Errorf("closing requires at least one produced document")
				}
				return nil
			},
		},
		{
			Name: "approval_for_elevated_risk",
			Check: checkElevatedRiskApproved,
		},
	},
	StateExecuted: {
		{
			Name: "voting_or_execution_completed",
			Check: func(c *Context) error {
				if !c.HasCompleted(StateVoting) && !c.HasCompleted(StateExecution) {
					return fmt.Errorf("executed requires a completed voting or execution stage")
				}
				return nil
			},
		},
		{
			Name: "approval_for_elevated_risk",
			Check: checkElevatedRiskApproved,
		},
	},
	StateVerified: {
		{
			Name: "execution_completed",
			Check: func(c *Context) error {
				if !c.HasCompleted(StateExecution) {
					return fmt.Errorf("verification requires a completed execution stage")
				}
				return nil
			},
		},
	},
}

// checkElevatedRiskApproved blocks a decision from taking effect for MID and
// HIGH risk workflows until an approval is granted. Shared by the execution
// stage and the productive terminal states of templates that finish without
// an approval or execution stage.
func checkElevatedRiskApproved(c *Context) error {
	if !c.RiskLevel.RequiresApproval() {
		return nil
	}
	if c.ApprovalID.IsZero() && !c.HasCompleted(StateApproval) {
		return fmt.Errorf("%s-risk decisions require an approval before taking effect", c.RiskLevel)
	}
	return nil
}

// CriteriaFor returns the entry criteria for a target state. The returned
// slice must not be mutated.
func CriteriaFor(target WorkflowState) []Criterion {
	return acceptanceCriteria[target]
}
