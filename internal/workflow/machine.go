package workflow

import (
	"fmt"
)

// StateMachine validates and applies workflow state transitions. It is pure
// transition logic: it holds no workflow state of its own and never performs
// side effects, so a single instance is safely shared by every workflow the
// orchestrator runs.
type StateMachine struct{}

// NewStateMachine creates a state machine after validating the static
// transition tables. A broken table is a startup error, never a runtime one.
func NewStateMachine() (*StateMachine, error) {
	if err := ValidateTables(); err != nil {
		return nil, fmt.Errorf("transition table validation failed: %w", err)
	}
	return &StateMachine{}, nil
}

// Transition validates the move from ctx.State to target and, on success,
// returns a new context with the target state applied and the prior state
// appended to CompletedStages. The input context is never mutated: on any
// failure the returned context is the input itself.
//
// Failure modes:
//   - *InvalidTransitionError: the edge is not in the type's table. Fatal to
//     this attempt, not to the process.
//   - *AcceptanceCriteriaError: the edge is legal but the target state's
//     criteria are unmet. Retry after the blocking requirement is produced.
//
// Criteria are evaluated against the prospective context, so a predicate like
// "review completed" holds for the stage currently being left.
func (sm *StateMachine) Transition(ctx *Context, target WorkflowState) (*Context, error) {
	table, err := Table(ctx.Type)
	if err != nil {
		return ctx, err
	}

	if ctx.State.Terminal() || !hasEdge(table, ctx.State, target) {
		return ctx, &InvalidTransitionError{Type: ctx.Type, From: ctx.State, To: target}
	}

	candidate := ctx.Clone()
	candidate.CompletedStages = append(candidate.CompletedStages, ctx.State)
	candidate.State = target

	for _, criterion := range CriteriaFor(target) {
		if err := criterion.Check(candidate); err != nil {
			return ctx, &AcceptanceCriteriaError{
				Type:      ctx.Type,
				Target:    target,
				Criterion: criterion.Name,
				Reason:    err,
			}
		}
	}

	return candidate, nil
}

// ValidatePath checks that the proposed state sequence is walkable through
// the type's transition table, without mutating any live state. The sequence
// must start at the initial state. Only edge legality is checked; acceptance
// criteria depend on runtime context and are not evaluated here.
func (sm *StateMachine) ValidatePath(workflowType WorkflowType, sequence []WorkflowState) error {
	table, err := Table(workflowType)
	if err != nil {
		return err
	}

	if len(sequence) == 0 {
		return fmt.Errorf("empty workflow path")
	}
	if sequence[0] != InitialState {
		return &InvalidTransitionError{Type: workflowType, From: sequence[0], To: sequence[0]}
	}

	for i := 0; i < len(sequence)-1; i++ {
		if !hasEdge(table, sequence[i], sequence[i+1]) {
			return &InvalidTransitionError{Type: workflowType, From: sequence[i], To: sequence[i+1]}
		}
	}

	return nil
}

// PossiblePaths returns every path from the given state to a terminal state
// through the type's transition table. Used for planning and testing; the
// tables are acyclic so enumeration terminates.
func (sm *StateMachine) PossiblePaths(workflowType WorkflowType, from WorkflowState) ([][]WorkflowState, error) {
	table, err := Table(workflowType)
	if err != nil {
		return nil, err
	}
	if !from.Valid() {
		return nil, fmt.Errorf("unknown state %q", from)
	}

	var paths [][]WorkflowState
	walk(table, from, []WorkflowState{from}, &paths)
	return paths, nil
}

// walk enumerates paths depth-first, guarding against table cycles so a
// misconfigured table cannot hang the planner.
func walk(table TransitionTable, current WorkflowState, path []WorkflowState, paths *[][]WorkflowState) {
	if current.Terminal() {
		*paths = append(*paths, append([]WorkflowState(nil), path...))
		return
	}

	for _, next := range table[current] {
		if containsState(path, next) {
			continue
		}
		// Copy before extending so sibling branches never share a backing array.
		extended := append(append([]WorkflowState(nil), path...), next)
		walk(table, next, extended, paths)
	}
}

func containsState(states []WorkflowState, state WorkflowState) bool {
	for _, s := range states {
		if s == state {
			return true
		}
	}
	return false
}
