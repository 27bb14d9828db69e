package workflow

import (
	"fmt"

	"github.com/mossland/Algora-sub004/internal/issue"
)

// TransitionTable maps each state to the set of states it may legally move to.
// Tables are data, not control flow: they are fixed at startup and validated
// by ValidateTables before the orchestrator accepts any issue.
type TransitionTable map[WorkflowState][]WorkflowState

// escalationTargets are the only states reachable out of escalation. Human
// review resolves an escalated workflow by closing or rejecting it.
var escalationTargets = []WorkflowState{StateClosed, StateRejected}

// withEscalation adds the S -> escalated edge for every non-terminal state in
// the table, plus the escalation resolution edges. Every template shares the
// same escalation shape.
func withEscalation(table TransitionTable) TransitionTable {
	for state := range table {
		if state.Terminal() || state == StateEscalated {
			continue
		}
		table[state] = append(table[state], StateEscalated)
	}
	table[StateEscalated] = append([]WorkflowState(nil), escalationTargets...)
	return table
}

// transitionTables holds the fixed per-type transition tables.
var transitionTables = map[WorkflowType]TransitionTable{
	TypeAcademicActivity: withEscalation(TransitionTable{
		StateIntake:   {StateResearch},
		StateResearch: {StateAnalysis},
		StateAnalysis: {StateDrafting},
		StateDrafting: {StateReview},
		StateReview:   {StateClosed, StateRejected},
	}),
	TypeFreeDebate: withEscalation(TransitionTable{
		StateIntake:   {StateResearch},
		StateResearch: {StateDebate},
		StateDebate:   {StateDrafting},
		StateDrafting: {StateReview},
		StateReview:   {StateVoting, StateRejected},
		StateVoting:   {StateExecuted, StateRejected},
	}),
	TypeDeveloperSupport: withEscalation(TransitionTable{
		StateIntake:    {StateAnalysis},
		StateAnalysis:  {StateDrafting},
		StateDrafting:  {StateReview},
		StateReview:    {StateExecution, StateRejected},
		StateExecution: {StateExecuted},
	}),
	TypeEcosystemExpansion: withEscalation(TransitionTable{
		StateIntake:    {StateResearch},
		StateResearch:  {StateAnalysis},
		StateAnalysis:  {StateDrafting},
		StateDrafting:  {StateRedTeam},
		StateRedTeam:   {StateReview},
		StateReview:    {StateVoting, StateRejected},
		StateVoting:    {StateApproval, StateRejected},
		StateApproval:  {StateExecution, StateRejected},
		StateExecution: {StateVerified},
	}),
	TypeWorkingGroups: withEscalation(TransitionTable{
		StateIntake:   {StateDrafting},
		StateDrafting: {StateReview},
		StateReview:   {StateVoting, StateRejected},
		StateVoting:   {StateClosed, StateRejected},
	}),
}

// happyPaths lists the expected successful stage sequence for each type.
// The orchestrator drives workflows along these paths; deviations (rejection,
// escalation) are still legal edges in the table.
var happyPaths = map[WorkflowType][]WorkflowState{
	TypeAcademicActivity: {
		StateIntake, StateResearch, StateAnalysis, StateDrafting, StateReview, StateClosed,
	},
	TypeFreeDebate: {
		StateIntake, StateResearch, StateDebate, StateDrafting, StateReview, StateVoting, StateExecuted,
	},
	TypeDeveloperSupport: {
		StateIntake, StateAnalysis, StateDrafting, StateReview, StateExecution, StateExecuted,
	},
	TypeEcosystemExpansion: {
		StateIntake, StateResearch, StateAnalysis, StateDrafting, StateRedTeam,
		StateReview, StateVoting, StateApproval, StateExecution, StateVerified,
	},
	TypeWorkingGroups: {
		StateIntake, StateDrafting, StateReview, StateVoting, StateClosed,
	},
}

// categoryWorkflowType is the static category -> workflow type mapping.
var categoryWorkflowType = map[issue.Category]WorkflowType{
	issue.CategoryAcademic:    TypeAcademicActivity,
	issue.CategoryCommunity:   TypeFreeDebate,
	issue.CategoryDevelopment: TypeDeveloperSupport,
	issue.CategoryEcosystem:   TypeEcosystemExpansion,
	issue.CategoryTreasury:    TypeEcosystemExpansion,
	issue.CategoryProtocol:    TypeFreeDebate,
	issue.CategorySecurity:    TypeDeveloperSupport,
	issue.CategoryProcess:     TypeWorkingGroups,
}

// CommunityDebateThreshold is the minimum priority score for an issue to
// justify a full community debate workflow. Below it, debate-bound issues
// are routed to the lightweight working-groups template instead.
const CommunityDebateThreshold = 6.0

// SelectType selects the workflow type for an issue from its category and
// priority score via the static category mapping.
func SelectType(category issue.Category, priority issue.PriorityScore) (WorkflowType, error) {
	workflowType, ok := categoryWorkflowType[category]
	if !ok {
		return "", fmt.Errorf("no workflow type mapped for category %q", category)
	}

	if workflowType == TypeFreeDebate && priority.Total < CommunityDebateThreshold {
		return TypeWorkingGroups, nil
	}

	return workflowType, nil
}

// Table returns the transition table for the given workflow type.
func Table(workflowType WorkflowType) (TransitionTable, error) {
	table, ok := transitionTables[workflowType]
	if !ok {
		return nil, fmt.Errorf("no transition table for workflow type %q", workflowType)
	}
	return table, nil
}

// HappyPath returns the expected successful stage sequence for the type.
func HappyPath(workflowType WorkflowType) ([]WorkflowState, error) {
	path, ok := happyPaths[workflowType]
	if !ok {
		return nil, fmt.Errorf("no happy path for workflow type %q", workflowType)
	}
	return append([]WorkflowState(nil), path...), nil
}

// NextOnPath returns the state following current on the type's happy path, or
// false when current is not on the path or is its final state.
func NextOnPath(workflowType WorkflowType, current WorkflowState) (WorkflowState, bool) {
	path, ok := happyPaths[workflowType]
	if !ok {
		return "", false
	}
	for i, state := range path {
		if state == current && i+1 < len(path) {
			return path[i+1], true
		}
	}
	return "", false
}

// ValidateTables checks the static tables at startup: every referenced state
// must be declared, terminal states must have no outgoing edges, every happy
// path must be walkable through its table, and every issue category must map
// to a defined type. The process must refuse to start on a broken table
// rather than fail mid-workflow.
func ValidateTables() error {
	for _, workflowType := range Types() {
		table, ok := transitionTables[workflowType]
		if !ok {
			return fmt.Errorf("workflow type %s has no transition table", workflowType)
		}

		if _, ok := table[InitialState]; !ok {
			return fmt.Errorf("workflow type %s: initial state %s has no outgoing edges",
				workflowType, InitialState)
		}

		for from, targets := range table {
			if !from.Valid() {
				return fmt.Errorf("workflow type %s: unknown state %q", workflowType, from)
			}
			if from.Terminal() {
				return fmt.Errorf("workflow type %s: terminal state %s has outgoing edges",
					workflowType, from)
			}
			for _, to := range targets {
				if !to.Valid() {
					return fmt.Errorf("workflow type %s: unknown target state %q in edges of %s",
						workflowType, to, from)
				}
			}
		}

		path, ok := happyPaths[workflowType]
		if !ok {
			return fmt.Errorf("workflow type %s has no happy path", workflowType)
		}
		for i := 0; i < len(path)-1; i++ {
			if !hasEdge(table, path[i], path[i+1]) {
				return fmt.Errorf("workflow type %s: happy path edge %s -> %s missing from table",
					workflowType, path[i], path[i+1])
			}
		}
		if !path[len(path)-1].Terminal() {
			return fmt.Errorf("workflow type %s: happy path does not end in a terminal state",
				workflowType)
		}
	}

	for _, category := range issue.Categories() {
		workflowType, ok := categoryWorkflowType[category]
		if !ok {
			return fmt.Errorf("issue category %s has no workflow type mapping", category)
		}
		if !workflowType.Valid() {
			return fmt.Errorf("issue category %s maps to unknown workflow type %q",
				category, workflowType)
		}
	}

	return nil
}

// hasEdge reports whether from -> to exists in the table.
func hasEdge(table TransitionTable, from, to WorkflowState) bool {
	for _, target := range table[from] {
		if target == to {
			return true
		}
	}
	return false
}
