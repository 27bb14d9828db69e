// Package workflow implements the guarded state machine at the heart of the
// Algora orchestration core: workflow types, per-type transition tables,
// acceptance criteria, and the pure transition logic that validates every
// state change before the orchestrator commits it.
package workflow

import "fmt"

// WorkflowType identifies one of the five fixed governance process templates.
// Each type has its own transition table and document outputs.
type WorkflowType string

const (
	// TypeAcademicActivity (A) drives research publications and academic programs.
	TypeAcademicActivity WorkflowType = "academic_activity"
	// TypeFreeDebate (B) drives community debates that end in a vote.
	TypeFreeDebate WorkflowType = "free_debate"
	// TypeDeveloperSupport (C) drives developer support actions.
	TypeDeveloperSupport WorkflowType = "developer_support"
	// TypeEcosystemExpansion (D) drives partnership and expansion decisions,
	// the highest-stakes template with red-team review and approval gates.
	TypeEcosystemExpansion WorkflowType = "ecosystem_expansion"
	// TypeWorkingGroups (E) drives lightweight working-group formation.
	TypeWorkingGroups WorkflowType = "working_groups"
)

// Types returns all workflow types in stable order.
func Types() []WorkflowType {
	return []WorkflowType{
		TypeAcademicActivity,
		TypeFreeDebate,
		TypeDeveloperSupport,
		TypeEcosystemExpansion,
		TypeWorkingGroups,
	}
}

// Valid reports whether the workflow type is one of the five templates.
func (t WorkflowType) Valid() bool {
	for _, known := range Types() {
		if t == known {
			return true
		}
	}
	return false
}

// WorkflowState labels a stage in a governance workflow.
type WorkflowState string

const (
	StateIntake    WorkflowState = "intake"
	StateResearch  WorkflowState = "research"
	StateAnalysis  WorkflowState = "analysis"
	StateDebate    WorkflowState = "debate"
	StateDrafting  WorkflowState = "drafting"
	StateRedTeam   WorkflowState = "red_team"
	StateReview    WorkflowState = "review"
	StateVoting    WorkflowState = "voting"
	StateApproval  WorkflowState = "approval"
	StateExecution WorkflowState = "execution"
	StateEscalated WorkflowState = "escalated"

	// Terminal states. No transitions are defined out of these.
	StateExecuted WorkflowState = "executed"
	StateVerified WorkflowState = "verified"
	StateClosed   WorkflowState = "closed"
	StateRejected WorkflowState = "rejected"
)

// InitialState is the state every workflow starts in.
const InitialState = StateIntake

// States returns every defined workflow state in stable order.
func States() []WorkflowState {
	return []WorkflowState{
		StateIntake, StateResearch, StateAnalysis, StateDebate, StateDrafting,
		StateRedTeam, StateReview, StateVoting, StateApproval, StateExecution,
		StateEscalated, StateExecuted, StateVerified, StateClosed, StateRejected,
	}
}

// Valid reports whether the state is one of the defined workflow states.
func (s WorkflowState) Valid() bool {
	for _, known := range States() {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether the state ends a workflow. Terminal states have no
// outgoing edges in any transition table.
func (s WorkflowState) Terminal() bool {
	switch s {
	case StateExecuted, StateVerified, StateClosed, StateRejected:
		return true
	}
	return false
}

// ParseType converts a string to a WorkflowType, returning an error for
// unrecognized values.
func ParseType(s string) (WorkflowType, error) {
	t := WorkflowType(s)
	if !t.Valid() {
		return "", fmt.Errorf("invalid workflow type: %q", s)
	}
	return t, nil
}
